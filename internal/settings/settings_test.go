package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artemshloyda/rtconvert/internal/format"
)

var session = Settings{Format: format.WEBP, Quality: 70, Width: 1280, Height: 720}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate Settings
		want      Settings
		fixed     []string
	}{
		{
			name:      "bmp drops quality",
			candidate: Settings{Format: format.BMP, Quality: 50, Width: 10, Height: 10},
			want:      Settings{Format: format.BMP, Quality: QualityNA, Width: 10, Height: 10},
			fixed:     []string{"quality"},
		},
		{
			name:      "png drops quality",
			candidate: Settings{Format: format.PNG, Quality: 100, Width: 10, Height: 10},
			want:      Settings{Format: format.PNG, Quality: QualityNA, Width: 10, Height: 10},
			fixed:     []string{"quality"},
		},
		{
			name:      "jpeg quality above max",
			candidate: Settings{Format: format.JPEG, Quality: 150, Width: 10, Height: 10},
			want:      Settings{Format: format.JPEG, Quality: 100, Width: 10, Height: 10},
			fixed:     []string{"quality"},
		},
		{
			name:      "webp quality below min",
			candidate: Settings{Format: format.WEBP, Quality: -3, Width: 10, Height: 10},
			want:      Settings{Format: format.WEBP, Quality: 1, Width: 10, Height: 10},
			fixed:     []string{"quality"},
		},
		{
			name:      "unset quality takes session quality",
			candidate: Settings{Format: format.JPEG, Width: 10, Height: 10},
			want:      Settings{Format: format.JPEG, Quality: 70, Width: 10, Height: 10},
			fixed:     []string{"quality"},
		},
		{
			name:      "omitted dimensions take session dimensions",
			candidate: Settings{Format: format.PNG},
			want:      Settings{Format: format.PNG, Quality: QualityNA, Width: 1280, Height: 720},
			fixed:     []string{"width", "height"},
		},
		{
			name:      "negative dimensions clamp to one",
			candidate: Settings{Format: format.GIF, Width: -5, Height: -1},
			want:      Settings{Format: format.GIF, Quality: QualityNA, Width: 1, Height: 1},
			fixed:     []string{"width", "height"},
		},
		{
			name:      "unknown format takes session format",
			candidate: Settings{Format: "tiff", Quality: 90, Width: 5, Height: 5},
			want:      Settings{Format: format.WEBP, Quality: 90, Width: 5, Height: 5},
			fixed:     []string{"format"},
		},
		{
			name:      "valid settings untouched",
			candidate: Settings{Format: format.JPEG, Quality: 85, Width: 640, Height: 480},
			want:      Settings{Format: format.JPEG, Quality: 85, Width: 640, Height: 480},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fixes := Validate(tt.candidate, session)
			assert.Equal(t, tt.want, got)

			var fields []string
			for _, f := range fixes {
				fields = append(fields, f.Field)
			}
			assert.Equal(t, tt.fixed, fields)
		})
	}
}

func TestValidate_EmptySession(t *testing.T) {
	got, _ := Validate(Settings{Quality: 400}, Settings{})
	assert.Equal(t, Settings{Format: DefaultFormat, Quality: 100, Width: 1, Height: 1}, got)

	got, _ = Validate(Settings{Format: format.WEBP}, Settings{})
	assert.Equal(t, DefaultQuality, got.Quality)
}

func TestValidate_Idempotent(t *testing.T) {
	formats := append(format.All(), "", "tiff")
	qualities := []int{-100, -1, 0, 1, 50, 100, 101, 255}
	sizes := []int{-10, -1, 0, 1, 2, 4000}
	sessions := []Settings{session, {}, {Format: format.BMP, Quality: 0, Width: 0, Height: 3}}

	for _, s := range sessions {
		for _, f := range formats {
			for _, q := range qualities {
				for _, w := range sizes {
					for _, h := range sizes {
						x := Settings{Format: f, Quality: q, Width: w, Height: h}
						once, _ := Validate(x, s)
						twice, fixes := Validate(once, s)
						if once != twice {
							t.Fatalf("Validate not idempotent for %+v (session %+v): %+v != %+v", x, s, once, twice)
						}
						if len(fixes) != 0 {
							t.Fatalf("second pass produced corrections for %+v: %v", x, fixes)
						}
						if once.Width < 1 || once.Height < 1 {
							t.Fatalf("dimensions below 1: %+v", once)
						}
						if !once.HasQuality() && once.Quality != QualityNA {
							t.Fatalf("quality kept for %s: %+v", once.Format, once)
						}
					}
				}
			}
		}
	}
}

func TestParamsHash(t *testing.T) {
	a := Settings{Format: format.JPEG, Quality: 80, Width: 10, Height: 20}
	b := a
	b.Quality = 81

	assert.Equal(t, a.ParamsHash(), a.ParamsHash())
	assert.NotEqual(t, a.ParamsHash(), b.ParamsHash())
	assert.Len(t, a.ParamsHash(), 64)
}
