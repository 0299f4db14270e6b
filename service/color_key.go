package service

import (
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// colorKeyMask 颜色抠图：以四角中值作为背景参考色，按色彩距离分割
func (s *Segmenter) colorKeyMask(img gocv.Mat, threshold float64) gocv.Mat {
	width := img.Cols()
	height := img.Rows()

	// 四个角各取一个像素作为背景采样
	// 单像素采样对噪点敏感，这里保持与参考行为一致
	corners := [4]gocv.Vecb{
		img.GetVecbAt(0, 0),
		img.GetVecbAt(0, width-1),
		img.GetVecbAt(height-1, 0),
		img.GetVecbAt(height-1, width-1),
	}

	// 逐通道取中值，单个异常角不影响参考色
	var bg [3]float64
	for ch := 0; ch < 3; ch++ {
		vals := []int{int(corners[0][ch]), int(corners[1][ch]), int(corners[2][ch]), int(corners[3][ch])}
		sort.Ints(vals)
		bg[ch] = float64((vals[1] + vals[2]) / 2)
	}

	// threshold越高允许的色差越小，扣除越激进
	cutoff := (100-threshold)*2.55 + 10
	cutoff = math.Min(math.Max(cutoff, 10), 265)

	mask := newZeroMask(height, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := img.GetVecbAt(y, x)
			db := float64(px[0]) - bg[0]
			dg := float64(px[1]) - bg[1]
			dr := float64(px[2]) - bg[2]
			if math.Sqrt(db*db+dg*dg+dr*dr) > cutoff {
				mask.SetUCharAt(y, x, 255)
			}
		}
	}

	cleaned := s.maskProcessor.CloseOpen(&mask, 3)
	mask.Close()
	return cleaned
}
