package service

import (
	"context"
	"errors"
	"image"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/j031nich0145/noBG/config"
	"github.com/j031nich0145/noBG/utils"
)

// Method 背景移除算法
type Method string

const (
	MethodEdgeDetect Method = "edge-detect"
	MethodColorKey   Method = "color-key"
	MethodLuminance  Method = "luminance"
)

// ResolveMethod 解析算法名，未知值回退到边缘检测
func ResolveMethod(name string) Method {
	switch Method(name) {
	case MethodColorKey:
		return MethodColorKey
	case MethodLuminance:
		return MethodLuminance
	default:
		return MethodEdgeDetect
	}
}

var (
	// ErrInvalidImage 输入图像宽或高为0
	ErrInvalidImage = errors.New("invalid image: zero width or height")
	// ErrQueueFull 处理队列已满
	ErrQueueFull = errors.New("processing queue is full")
)

// Segmenter 负责前景/背景分割
type Segmenter struct {
	iterations        int
	coverageThreshold float64
	maxDimension      int
	semaphore         chan struct{}
	queueTimeout      time.Duration
	maskProcessor     *MaskProcessor
}

func NewSegmenter(cfg *config.SegmentConfig) *Segmenter {
	return &Segmenter{
		iterations:        cfg.Iterations,
		coverageThreshold: cfg.CoverageThreshold,
		maxDimension:      cfg.MaxDimension,
		semaphore:         make(chan struct{}, cfg.MaxConcurrent),
		queueTimeout:      time.Duration(cfg.QueueTimeout) * time.Second,
		maskProcessor:     NewMaskProcessor(),
	}
}

// RemoveBackground 移除背景，返回alpha通道为前景掩码的BGRA图像
// 输入为BGR三通道图像，threshold取值[0,100]由调用方保证
func (s *Segmenter) RemoveBackground(img gocv.Mat, threshold float64, method Method, largestOnly bool) (gocv.Mat, error) {
	if img.Empty() || img.Cols() == 0 || img.Rows() == 0 {
		return gocv.NewMat(), ErrInvalidImage
	}

	// 并发控制
	ctx, cancel := context.WithTimeout(context.Background(), s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-ctx.Done():
		return gocv.NewMat(), ErrQueueFull
	}

	startTime := time.Now()
	width := img.Cols()
	height := img.Rows()

	// 大图先缩放处理，掩码再还原到原始尺寸
	scaled, scale := s.smartResize(&img)
	defer scaled.Close()

	var mask gocv.Mat
	switch method {
	case MethodColorKey:
		mask = s.colorKeyMask(scaled, threshold)
	case MethodLuminance:
		mask = s.luminanceMask(scaled, threshold)
	default:
		mask = s.edgeDetectMask(scaled, threshold)
	}

	if scale != 1.0 {
		restored := gocv.NewMat()
		gocv.Resize(mask, &restored, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		gocv.Threshold(restored, &restored, 127, 255, gocv.ThresholdBinary)
		mask.Close()
		mask = restored
	}

	if largestOnly {
		largest := s.maskProcessor.KeepLargest(&mask)
		mask.Close()
		mask = largest
	}

	out := composeAlpha(img, mask)
	mask.Close()

	utils.Logger.Debug("background removed",
		zap.String("method", string(method)),
		zap.Float64("threshold", threshold),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Duration("cost", time.Since(startTime)))

	return out, nil
}

// smartResize 超过最大处理尺寸的图像按比例缩小
func (s *Segmenter) smartResize(img *gocv.Mat) (gocv.Mat, float64) {
	width := img.Cols()
	height := img.Rows()
	maxDim := max(width, height)
	if s.maxDimension <= 0 || maxDim <= s.maxDimension {
		return img.Clone(), 1.0
	}

	scale := float64(s.maxDimension) / float64(maxDim)
	// 极端长宽比下取整会得到0，至少保留1像素
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: newWidth, Y: newHeight}, 0, 0, gocv.InterpolationArea)

	return resized, scale
}
