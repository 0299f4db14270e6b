package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestEllipseMask(t *testing.T) {
	s := newTestSegmenter()

	mask := s.ellipseMask(90, 60)
	defer mask.Close()

	require.Equal(t, 90, mask.Cols())
	require.Equal(t, 60, mask.Rows())
	require.EqualValues(t, 255, mask.GetUCharAt(30, 45)) // 中心
	require.EqualValues(t, 0, mask.GetUCharAt(0, 0))     // 角落
}

func TestFallbackMaskNeverEmpty(t *testing.T) {
	s := newTestSegmenter()

	img := newUniformImage(64, 64, 180, 180, 180)
	defer img.Close()

	mask := s.fallbackMask(img)
	defer mask.Close()

	require.Equal(t, 64, mask.Cols())
	require.Equal(t, 64, mask.Rows())
	require.Positive(t, gocv.CountNonZero(mask))
}

func TestRefineMaskDegenerateRect(t *testing.T) {
	s := newTestSegmenter()

	// 宽高太小，内缩边距取整为0，种子矩形退化
	img := newUniformImage(12, 12, 180, 180, 180)
	defer img.Close()

	mask, err := s.refineMask(img)
	mask.Close()
	require.Error(t, err)
}
