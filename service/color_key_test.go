package service

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestColorKeyUniformImageAllTransparent(t *testing.T) {
	s := newTestSegmenter()

	// 纯红图：每个像素到背景参考色的距离都是0，cutoff最小也有10
	img := newUniformImage(100, 100, 0, 0, 255)
	defer img.Close()

	out, err := s.RemoveBackground(img, 50, MethodColorKey, false)
	require.NoError(t, err)
	defer out.Close()

	alpha := alphaOf(t, out)
	defer alpha.Close()
	require.Zero(t, gocv.CountNonZero(alpha))
}

func TestColorKeyDistinctInterior(t *testing.T) {
	s := newTestSegmenter()

	// 白底黑块：黑白距离sqrt(3)*255≈441，远超threshold=50的cutoff 137.5
	img := newUniformImage(100, 100, 255, 255, 255)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(30, 30, 70, 70), color.RGBA{A: 255}, -1)

	out, err := s.RemoveBackground(img, 50, MethodColorKey, false)
	require.NoError(t, err)
	defer out.Close()

	alpha := alphaOf(t, out)
	defer alpha.Close()
	require.EqualValues(t, 255, alpha.GetUCharAt(50, 50))
	require.EqualValues(t, 0, alpha.GetUCharAt(5, 5))
	require.EqualValues(t, 0, alpha.GetUCharAt(95, 95))
}

func TestColorKeyOutlierCornerIgnored(t *testing.T) {
	s := newTestSegmenter()

	// 三个白角加一个黑角，中值参考色仍然是白色
	img := newUniformImage(100, 100, 255, 255, 255)
	defer img.Close()
	img.SetUCharAt3(0, 0, 0, 0)
	img.SetUCharAt3(0, 0, 1, 0)
	img.SetUCharAt3(0, 0, 2, 0)

	out, err := s.RemoveBackground(img, 50, MethodColorKey, false)
	require.NoError(t, err)
	defer out.Close()

	// 白色区域应当仍被判为背景
	alpha := alphaOf(t, out)
	defer alpha.Close()
	require.EqualValues(t, 0, alpha.GetUCharAt(50, 50))
}
