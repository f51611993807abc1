package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/rtconvert/internal/config"
	"github.com/artemshloyda/rtconvert/internal/dimensions"
)

// isolate убирает влияние окружения: домашний конфиг и ключ советника.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvAdvisorAPIKey, "")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writePNG(t *testing.T, path string, w, h int, transparent bool) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if transparent && x == 0 {
				a = 0
			}
			img.Set(x, y, color.NRGBA{R: uint8(x * 5), G: uint8(y * 5), B: 200, A: a})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rtconvert dev")
}

func TestPolicyCmd(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "policy")
	require.NoError(t, err)
	assert.Contains(t, out, "gif-to-webp")
	assert.Contains(t, out, "storage-transparent")
	assert.Contains(t, out, "GIF с прозрачностью")
}

func TestFormatsCmd(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "formats", "--no-progress")
	require.NoError(t, err)
	for _, s := range []string{"jpeg", "image/png", ".jpg", "bmp", "Кодек"} {
		assert.Contains(t, out, s)
	}
}

func TestConfigInit(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "config", "init", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "[advisor]")

	path := filepath.Join(t.TempDir(), "rtconvert.yaml")
	_, _, err = execute(t, "config", "init", "--out", path)
	require.NoError(t, err)
	fc, err := config.LoadFromFile(path)
	require.NoError(t, err)
	require.NotNil(t, fc)

	_, _, err = execute(t, "config", "init", "--out", path)
	require.Error(t, err, "existing file must not be overwritten without --force")

	_, _, err = execute(t, "config", "init", "--out", path, "--force")
	require.NoError(t, err)
}

func TestConvert_ManualWithJournal(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "banner.png")
	writePNG(t, src, 40, 20, false)
	outDir := filepath.Join(dir, "out")
	journal := filepath.Join(dir, "journal.db")

	out, _, err := execute(t, "convert", src, "--width", "20", "--out", outDir, "--journal", journal, "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ banner_converted.jpg")

	f, err := os.Open(filepath.Join(outDir, "banner_converted.jpg"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)

	out, _, err = execute(t, "stats", "--journal", journal)
	require.NoError(t, err)
	assert.Contains(t, out, "Всего записей: 1")
	assert.Contains(t, out, "banner.png")
	assert.Contains(t, strings.ToUpper(out), "ИТОГО")
}

func TestConvert_GoalFallsBackToPolicy(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 16, 16, false)

	out, _, err := execute(t, "convert", src, "--goal", "storage", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "источник: policy")
	assert.Contains(t, out, "советник не настроен")
	assert.Contains(t, out, "jpeg q=72 16x16")
	assert.FileExists(t, filepath.Join(dir, "photo_converted.jpg"))
}

func TestConvert_GoalFromConfigFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 8, 8, false)

	cfgPath := filepath.Join(dir, "rtconvert.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[output]\ngoal = \"storage\"\n"), 0644))

	out, _, err := execute(t, "--config", cfgPath, "convert", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Цель: storage")

	// Ручной формат отключает цель из конфигурации
	out, _, err = execute(t, "--config", cfgPath, "convert", src, "--format", "png")
	require.NoError(t, err)
	assert.NotContains(t, out, "Цель:")
	assert.Contains(t, out, "png q=n/a 8x8")
}

func TestConvert_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 8, 8, false)

	_, _, err := execute(t, "convert", src, "--goal", "web", "--format", "png")
	require.Error(t, err)

	_, _, err = execute(t, "convert", src, "--width", "abc")
	require.ErrorIs(t, err, dimensions.ErrInvalidDimension)

	_, _, err = execute(t, "convert", src, "--goal", "fast")
	require.Error(t, err)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0644))
	_, _, err = execute(t, "convert", text)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[processing\n"), 0644))
	_, _, err = execute(t, "--config", bad, "convert", src)
	require.Error(t, err)
}

func TestConvert_QualityCorrection(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 8, 8, false)

	out, _, err := execute(t, "convert", src, "--quality", "150")
	require.NoError(t, err)
	assert.Contains(t, out, "🔧 Исправлено: quality")
	assert.Contains(t, out, "jpeg q=100")
}

func TestRecommend(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	writePNG(t, src, 10, 10, true)

	out, _, err := execute(t, "recommend", src, "--goal", "quality")
	require.NoError(t, err)
	assert.Contains(t, out, "policy")
	assert.Contains(t, out, "png")
	assert.Contains(t, out, "logo_converted.png")
	assert.NoFileExists(t, filepath.Join(dir, "logo_converted.png"))

	_, _, err = execute(t, "recommend", "--ping")
	require.Error(t, err)

	_, _, err = execute(t, "recommend", src)
	require.Error(t, err, "goal is required")
}

func TestRenderTable(t *testing.T) {
	out := tableSpec{
		headers: []string{"Формат", "Размер"},
		rows:    [][]string{{"jpeg", "1.0 kB"}, {"png"}},
		aligns:  []columnAlignment{alignLeft, alignRight},
		footer:  []string{"Итого", "2.0 kB"},
	}.render()

	assert.Contains(t, out, "jpeg")
	assert.Contains(t, out, "png")
	assert.Contains(t, strings.ToUpper(out), "ИТОГО")
	assert.Contains(t, out, "2.0 kB")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestStats_RequiresJournal(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "stats")
	require.Error(t, err)
}
