package service

import (
	"math"

	"gocv.io/x/gocv"
)

// luminanceMask 亮度分割：亮于cutoff的像素视为背景，适合浅色背景
func (s *Segmenter) luminanceMask(img gocv.Mat, threshold float64) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	cutoff := math.Floor(255 - threshold*2.55)

	// 阈值取cutoff-0.5做反向二值化，等价于 luma < cutoff
	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, float32(cutoff)-0.5, 255, gocv.ThresholdBinaryInv)

	cleaned := s.maskProcessor.CloseOpen(&mask, 3)
	mask.Close()
	return cleaned
}
