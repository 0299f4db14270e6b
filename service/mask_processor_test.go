package service

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func requireMatEqual(t *testing.T, want, got gocv.Mat) {
	t.Helper()
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(want, got, &diff)
	require.Zero(t, gocv.CountNonZero(diff))
}

func TestCloseOpenIdempotentOnSolidRect(t *testing.T) {
	mp := NewMaskProcessor()

	mask := newZeroMask(100, 100)
	defer mask.Close()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Rectangle(&mask, image.Rect(30, 30, 70, 70), white, -1)

	once := mp.CloseOpen(&mask, 5)
	defer once.Close()
	twice := mp.CloseOpen(&once, 5)
	defer twice.Close()

	// 大于核的实心矩形应当原样保留，重复清理不再改变结果
	requireMatEqual(t, mask, once)
	requireMatEqual(t, once, twice)
}

func TestCloseOpenRemovesSpeckNoise(t *testing.T) {
	mp := NewMaskProcessor()

	mask := newZeroMask(50, 50)
	defer mask.Close()
	mask.SetUCharAt(25, 25, 255) // 孤立噪点

	cleaned := mp.CloseOpen(&mask, 3)
	defer cleaned.Close()
	require.Zero(t, gocv.CountNonZero(cleaned))
}

func TestExtractForeground(t *testing.T) {
	mp := NewMaskProcessor()

	labels := newZeroMask(2, 4)
	defer labels.Close()
	labels.SetUCharAt(0, 0, 0) // 确定背景
	labels.SetUCharAt(0, 1, 1) // 确定前景
	labels.SetUCharAt(0, 2, 2) // 可能背景
	labels.SetUCharAt(0, 3, 3) // 可能前景

	fg := mp.ExtractForeground(&labels)
	defer fg.Close()

	require.EqualValues(t, 0, fg.GetUCharAt(0, 0))
	require.EqualValues(t, 255, fg.GetUCharAt(0, 1))
	require.EqualValues(t, 0, fg.GetUCharAt(0, 2))
	require.EqualValues(t, 255, fg.GetUCharAt(0, 3))
}

func TestKeepLargest(t *testing.T) {
	mp := NewMaskProcessor()

	mask := newZeroMask(100, 100)
	defer mask.Close()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Rectangle(&mask, image.Rect(10, 10, 60, 60), white, -1)
	gocv.Rectangle(&mask, image.Rect(80, 80, 90, 90), white, -1)

	largest := mp.KeepLargest(&mask)
	defer largest.Close()

	require.EqualValues(t, 255, largest.GetUCharAt(30, 30))
	require.EqualValues(t, 0, largest.GetUCharAt(85, 85))
}

func TestKeepLargestEmptyMask(t *testing.T) {
	mp := NewMaskProcessor()

	mask := newZeroMask(20, 20)
	defer mask.Close()

	kept := mp.KeepLargest(&mask)
	defer kept.Close()
	require.Zero(t, gocv.CountNonZero(kept))
}
