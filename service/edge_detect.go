package service

import (
	"image"
	"image/color"
	"math"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/j031nich0145/noBG/utils"
)

// edgeDetectMask 边缘检测分割：Canny边缘→外轮廓填充→形态学清理
// 覆盖率过低时升级到GrabCut兜底，保证不会返回全空掩码
func (s *Segmenter) edgeDetectMask(img gocv.Mat, threshold float64) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	// threshold(0-100)映射到Canny双阈值
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(math.Floor(threshold*0.5)), float32(math.Floor(threshold*1.5)))

	// 膨胀两次，闭合断裂的边缘
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	dilated := edges.Clone()
	defer dilated.Close()
	for i := 0; i < 2; i++ {
		gocv.Dilate(dilated, &dilated, kernel)
	}

	// 只取外轮廓，内部孔洞一并视为前景
	contours := gocv.FindContours(dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	mask := newZeroMask(img.Rows(), img.Cols())
	if contours.Size() > 0 {
		white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		gocv.DrawContours(&mask, contours, -1, white, -1)

		cleaned := s.maskProcessor.CloseOpen(&mask, 5)
		mask.Close()
		mask = cleaned
	}

	// 覆盖率过低视为分割失败
	coverage := float64(gocv.CountNonZero(mask)) / float64(img.Rows()*img.Cols())
	if coverage < s.coverageThreshold {
		utils.Logger.Info("edge-detect mask degenerate, escalating to grabcut",
			zap.Float64("coverage", coverage),
			zap.Float64("min_coverage", s.coverageThreshold))
		mask.Close()
		return s.fallbackMask(img)
	}

	return mask
}
