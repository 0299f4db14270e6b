package service

import (
	"gocv.io/x/gocv"
)

// composeAlpha 保持BGR通道不变，将掩码写入alpha通道，输出BGRA图像
// 不做任何重采样，输出尺寸恒等于输入尺寸
func composeAlpha(img gocv.Mat, mask gocv.Mat) gocv.Mat {
	channels := gocv.Split(img)
	out := gocv.NewMat()
	gocv.Merge([]gocv.Mat{channels[0], channels[1], channels[2], mask}, &out)
	for _, ch := range channels {
		ch.Close()
	}
	return out
}
