package service

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/j031nich0145/noBG/config"
	"github.com/j031nich0145/noBG/utils"
)

func TestMain(m *testing.M) {
	if err := utils.InitLogger("test"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestSegmenter() *Segmenter {
	return NewSegmenter(&config.SegmentConfig{
		Iterations:        5,
		CoverageThreshold: 0.01,
		MaxDimension:      1600,
		MaxConcurrent:     2,
		QueueTimeout:      10,
	})
}

// newUniformImage 生成纯色BGR测试图
func newUniformImage(width, height int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), height, width, gocv.MatTypeCV8UC3)
}

// alphaOf 提取BGRA图像的alpha通道，调用方负责Close
func alphaOf(t *testing.T, img gocv.Mat) gocv.Mat {
	t.Helper()
	require.Equal(t, 4, img.Channels())
	channels := gocv.Split(img)
	for i := 0; i < 3; i++ {
		channels[i].Close()
	}
	return channels[3]
}

func TestRemoveBackgroundPreservesDimensions(t *testing.T) {
	s := newTestSegmenter()

	img := newUniformImage(120, 90, 255, 255, 255)
	defer img.Close()
	black := color.RGBA{A: 255}
	gocv.Rectangle(&img, image.Rect(30, 20, 80, 60), black, -1)

	for _, method := range []Method{MethodEdgeDetect, MethodColorKey, MethodLuminance} {
		out, err := s.RemoveBackground(img, 50, method, false)
		require.NoError(t, err, "method %s", method)
		require.Equal(t, 120, out.Cols(), "method %s", method)
		require.Equal(t, 90, out.Rows(), "method %s", method)
		require.Equal(t, 4, out.Channels(), "method %s", method)
		out.Close()
	}
}

func TestRemoveBackgroundInvalidImage(t *testing.T) {
	s := newTestSegmenter()

	empty := gocv.NewMat()
	defer empty.Close()

	out, err := s.RemoveBackground(empty, 50, MethodEdgeDetect, false)
	defer out.Close()
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestRemoveBackgroundDownscaleRestoresDimensions(t *testing.T) {
	s := NewSegmenter(&config.SegmentConfig{
		Iterations:        5,
		CoverageThreshold: 0.01,
		MaxDimension:      100, // 强制走缩放路径
		MaxConcurrent:     1,
		QueueTimeout:      10,
	})

	img := newUniformImage(300, 200, 128, 128, 128)
	defer img.Close()

	out, err := s.RemoveBackground(img, 0, MethodLuminance, false)
	require.NoError(t, err)
	defer out.Close()

	require.Equal(t, 300, out.Cols())
	require.Equal(t, 200, out.Rows())

	// threshold=0时中灰图整张都是前景，还原后的掩码也应如此
	alpha := alphaOf(t, out)
	defer alpha.Close()
	require.Equal(t, 300*200, gocv.CountNonZero(alpha))
}

func TestRemoveBackgroundExtremeAspectRatio(t *testing.T) {
	s := NewSegmenter(&config.SegmentConfig{
		Iterations:        5,
		CoverageThreshold: 0.01,
		MaxDimension:      100,
		MaxConcurrent:     1,
		QueueTimeout:      10,
	})

	// 1像素宽的长条，按比例缩放取整后宽度会变成0，必须钳制到1
	img := newUniformImage(1, 300, 128, 128, 128)
	defer img.Close()

	out, err := s.RemoveBackground(img, 0, MethodLuminance, false)
	require.NoError(t, err)
	defer out.Close()

	require.Equal(t, 1, out.Cols())
	require.Equal(t, 300, out.Rows())
	require.Equal(t, 4, out.Channels())
}

func TestRemoveBackgroundQueueFull(t *testing.T) {
	s := NewSegmenter(&config.SegmentConfig{
		Iterations:        5,
		CoverageThreshold: 0.01,
		MaxDimension:      1600,
		MaxConcurrent:     1,
		QueueTimeout:      1,
	})

	// 占满唯一的并发槽位，后续请求等待直至超时
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	img := newUniformImage(32, 32, 128, 128, 128)
	defer img.Close()

	out, err := s.RemoveBackground(img, 50, MethodLuminance, false)
	out.Close()
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestResolveMethod(t *testing.T) {
	require.Equal(t, MethodColorKey, ResolveMethod("color-key"))
	require.Equal(t, MethodLuminance, ResolveMethod("luminance"))
	require.Equal(t, MethodEdgeDetect, ResolveMethod("edge-detect"))
	require.Equal(t, MethodEdgeDetect, ResolveMethod(""))
	require.Equal(t, MethodEdgeDetect, ResolveMethod("magic"))
}
