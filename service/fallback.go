package service

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/j031nich0145/noBG/utils"
)

// fallbackMask GrabCut兜底分割，任何内部失败降级为静态椭圆掩码
// 该路径保证返回非空掩码
func (s *Segmenter) fallbackMask(img gocv.Mat) gocv.Mat {
	mask, err := s.refineMask(img)
	if err != nil {
		mask.Close()
		utils.Logger.Warn("grabcut refinement failed, using ellipse mask", zap.Error(err))
		return s.ellipseMask(img.Cols(), img.Rows())
	}
	return mask
}

// refineMask 以内缩矩形为前景种子执行GrabCut迭代估计
func (s *Segmenter) refineMask(img gocv.Mat) (mask gocv.Mat, err error) {
	// GrabCut内部异常以panic形式冒出，统一转为错误交给上层降级
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grabcut panic: %v", r)
		}
	}()

	width := img.Cols()
	height := img.Rows()

	margin := int(float64(min(width, height)) * 0.05)
	if margin < 1 {
		return gocv.NewMat(), fmt.Errorf("image too small for seed rectangle: %dx%d", width, height)
	}
	rect := image.Rect(margin, margin, width-margin, height-margin)

	labels := newZeroMask(height, width)
	defer labels.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(img, &labels, rect, &bgdModel, &fgdModel, s.iterations, gocv.GCInitWithRect)

	fg := s.maskProcessor.ExtractForeground(&labels)
	if gocv.CountNonZero(fg) == 0 {
		fg.Close()
		return gocv.NewMat(), fmt.Errorf("grabcut produced empty foreground")
	}

	return fg, nil
}

// ellipseMask 静态兜底：以图像中心为圆心、半轴为宽高1/3的实心椭圆
func (s *Segmenter) ellipseMask(width, height int) gocv.Mat {
	mask := newZeroMask(height, width)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Ellipse(&mask, image.Pt(width/2, height/2), image.Pt(width/3, height/3), 0, 0, 360, white, -1)
	return mask
}
