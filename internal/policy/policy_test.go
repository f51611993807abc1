package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/settings"
)

func TestRecommend_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		in          Input
		wantFormat  format.Format
		wantQuality int
		wantReason  string
	}{
		{
			name:        "png transparent storage",
			in:          Input{SourceMIME: "image/png", Goal: GoalStorage, HasTransparency: true},
			wantFormat:  format.PNG,
			wantQuality: settings.QualityNA,
			wantReason:  "transparency",
		},
		{
			name:        "jpeg web",
			in:          Input{SourceMIME: "image/jpeg", Goal: GoalWeb},
			wantFormat:  format.WEBP,
			wantQuality: 80,
			wantReason:  "web performance balance",
		},
		{
			name:        "jpeg storage",
			in:          Input{SourceMIME: "image/jpeg", Goal: GoalStorage},
			wantFormat:  format.JPEG,
			wantQuality: 72,
			wantReason:  "space savings",
		},
		{
			name:        "png quality transparent",
			in:          Input{SourceMIME: "image/png", Goal: GoalQuality, HasTransparency: true},
			wantFormat:  format.PNG,
			wantQuality: settings.QualityNA,
			wantReason:  "lossless fidelity",
		},
		{
			name:        "jpeg quality",
			in:          Input{SourceMIME: "image/jpeg", Goal: GoalQuality},
			wantFormat:  format.WEBP,
			wantQuality: 92,
			wantReason:  "high-fidelity, near-lossless",
		},
		{
			name:        "gif quality opaque",
			in:          Input{SourceMIME: "image/gif", Goal: GoalQuality},
			wantFormat:  format.WEBP,
			wantQuality: 92,
			wantReason:  "smaller than GIF at similar visual quality",
		},
		{
			name:        "gif storage transparent overrides png",
			in:          Input{SourceMIME: "image/gif", Goal: GoalStorage, HasTransparency: true},
			wantFormat:  format.WEBP,
			wantQuality: 72,
			wantReason:  "smaller than GIF",
		},
		{
			name:        "gif quality transparent stays lossless",
			in:          Input{SourceMIME: "image/gif", Goal: GoalQuality, HasTransparency: true},
			wantFormat:  format.PNG,
			wantQuality: settings.QualityNA,
			wantReason:  "lossless fidelity",
		},
		{
			name:        "gif mime case insensitive",
			in:          Input{SourceMIME: "IMAGE/GIF", Goal: GoalWeb},
			wantFormat:  format.WEBP,
			wantQuality: 80,
			wantReason:  "smaller than GIF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Recommend(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.wantFormat, rec.Format)
			assert.Equal(t, tt.wantQuality, rec.Quality)
			assert.Contains(t, rec.Reasoning, tt.wantReason)
		})
	}
}

func TestRecommend_Totality(t *testing.T) {
	sources := []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/bmp", "image/tiff", ""}
	for _, src := range sources {
		for _, goal := range Goals() {
			for _, transparent := range []bool{false, true} {
				in := Input{SourceMIME: src, Goal: goal, HasTransparency: transparent}

				matched := 0
				var first Rule
				for _, r := range Rules() {
					if r.Matches(in) {
						if matched == 0 {
							first = r
						}
						matched++
					}
				}
				require.NotZero(t, matched, "no rule for %+v", in)

				rec, ok := Recommend(in)
				require.True(t, ok)
				assert.NotEmpty(t, strings.TrimSpace(rec.Reasoning), "empty reasoning for %+v (rule %s)", in, first.Name)
				assert.True(t, rec.Format.Valid())

				// рекомендация уже проходит валидатор без исправлений по качеству
				validated, _ := settings.Validate(rec.Settings(), settings.Settings{Width: 1, Height: 1})
				assert.Equal(t, rec.Quality, validated.Quality, "%+v", in)
			}
		}
	}
}

func TestRecommend_UnknownGoal(t *testing.T) {
	_, ok := Recommend(Input{SourceMIME: "image/gif", Goal: "fast"})
	assert.False(t, ok)

	assert.Panics(t, func() { MustRecommend(Input{Goal: "fast"}) })
}

func TestParseGoal(t *testing.T) {
	for _, s := range []string{"web", "WEB", " storage ", "quality"} {
		_, err := ParseGoal(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseGoal("speed")
	assert.Error(t, err)
}

func TestRulesOrder(t *testing.T) {
	r := Rules()
	require.Len(t, r, 6)
	assert.Equal(t, "gif-to-webp", r[0].Name)
}
