package dimensions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolve_Scenarios(t *testing.T) {
	ratio := Ratio(1920, 1080)
	current := Size{Width: 1920, Height: 1080}

	tests := []struct {
		name   string
		edit   Edit
		locked bool
		want   Size
	}{
		{"lock width 960", Edit{Width, 960}, true, Size{960, 540}},
		{"lock width 1 clamps height", Edit{Width, 1}, true, Size{1, 1}},
		{"lock height 540", Edit{Height, 540}, true, Size{960, 540}},
		{"lock height 1", Edit{Height, 1}, true, Size{2, 1}},
		{"unlocked width", Edit{Width, 800}, false, Size{800, 1080}},
		{"unlocked height", Edit{Height, 10}, false, Size{1920, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Solve(tt.edit, ratio, tt.locked, current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSolve_RoundsHalfAwayFromZero(t *testing.T) {
	// 1:2, высота 5 -> 2.5 -> 3
	got, err := Solve(Edit{Height, 5}, Ratio(1, 2), true, Size{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Width)

	got, err = Solve(Edit{Width, 5}, Ratio(3, 2), true, Size{3, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Height)
}

func TestSolve_RejectsNonPositive(t *testing.T) {
	current := Size{Width: 100, Height: 50}
	for _, v := range []int{0, -1, -500} {
		got, err := Solve(Edit{Width, v}, 2, true, current)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDimension))
		assert.Equal(t, current, got, "state must not change on rejected edit")

		var dimErr *Error
		require.True(t, errors.As(err, &dimErr))
		assert.Equal(t, Width, dimErr.Field)
	}
}

func TestSolve_UnusableRatioBehavesUnlocked(t *testing.T) {
	current := Size{Width: 100, Height: 50}
	got, err := Solve(Edit{Width, 300}, 0, true, current)
	require.NoError(t, err)
	assert.Equal(t, Size{300, 50}, got)
}

func TestSolve_NeverZeroHeight(t *testing.T) {
	ratios := []float64{Ratio(1920, 1080), Ratio(10000, 1), Ratio(1, 10000), 3.7, 0.0001, 12345.678}
	for _, r := range ratios {
		for _, w := range []int{1, 2, 3, 7, 99, 1000, 65535} {
			got, err := Solve(Edit{Width, w}, r, true, Size{1, 1})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got.Height, 1, "ratio=%v width=%d", r, w)
			assert.GreaterOrEqual(t, got.Width, 1)
		}
	}
}

func TestSolve_RoundTripRestoresHeight(t *testing.T) {
	sources := []Size{{1920, 1080}, {1000, 333}, {7, 3}, {4032, 3024}, {500, 501}}
	for _, src := range sources {
		ratio := Ratio(src.Width, src.Height)
		for _, w := range []int{1, 17, 640, 999, 5000} {
			edited, err := Solve(Edit{Width, w}, ratio, true, src)
			require.NoError(t, err)

			back, err := Solve(Edit{Width, src.Width}, ratio, true, edited)
			require.NoError(t, err)

			assert.InDelta(t, src.Height, back.Height, 1, "source=%v via width=%d", src, w)
		}
	}
}

func TestParseEdit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"960", 960, false},
		{" 12 ", 12, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"12.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			edit, err := ParseEdit(Height, tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDimension)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Edit{Height, tt.want}, edit)
		})
	}
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 16.0/9.0, Ratio(1920, 1080), 1e-12)
	assert.Equal(t, 0.0, Ratio(0, 10))
	assert.Equal(t, 0.0, Ratio(10, -1))
}
