package service

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MaskProcessor 负责掩码的形态学处理
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// CloseOpen 先闭运算桥接小缺口，再开运算去除孤立噪点
// 对大于核尺寸的连通区域是稳定的，重复应用结果不变
func (mp *MaskProcessor) CloseOpen(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	closed := gocv.NewMat()
	gocv.MorphologyEx(*mask, &closed, gocv.MorphClose, kernel)

	opened := gocv.NewMat()
	gocv.MorphologyEx(closed, &opened, gocv.MorphOpen, kernel)
	closed.Close()

	return opened
}

// ExtractForeground 从GrabCut标签中提取前景掩码
// 确定前景(1)和可能前景(3)都记为255
func (mp *MaskProcessor) ExtractForeground(labels *gocv.Mat) gocv.Mat {
	fgMask := gocv.NewMat()
	one := gocv.NewMatFromScalar(gocv.Scalar{Val1: 1}, gocv.MatTypeCV8U)
	defer one.Close()
	gocv.Compare(*labels, one, &fgMask, gocv.CompareEQ)

	prMask := gocv.NewMat()
	defer prMask.Close()
	three := gocv.NewMatFromScalar(gocv.Scalar{Val1: 3}, gocv.MatTypeCV8U)
	defer three.Close()
	gocv.Compare(*labels, three, &prMask, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fgMask, prMask, &combined)
	fgMask.Close()

	return combined
}

// KeepLargest 只保留掩码中面积最大的连通区域
func (mp *MaskProcessor) KeepLargest(mask *gocv.Mat) gocv.Mat {
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return mask.Clone()
	}

	maxArea := 0.0
	maxIndex := 0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > maxArea {
			maxArea = area
			maxIndex = i
		}
	}

	newMask := newZeroMask(mask.Rows(), mask.Cols())
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.DrawContours(&newMask, contours, maxIndex, white, -1)

	return newMask
}

// newZeroMask 创建全零的单通道掩码
func newZeroMask(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}
