package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/vipsfinder"
)

// Vips кодирует через внешний бинарник vips.
// Пиксели передаются во временном PNG, vips определяет формат по расширению.
type Vips struct {
	// vipsPath - путь к бинарнику vips.
	vipsPath string

	// formats - форматы, которые умеет сохранять найденный vips.
	formats map[format.Format]bool

	// timeout - таймаут на один вызов vips.
	timeout time.Duration

	// useGPU включает VIPS_OPENCL.
	useGPU bool

	// maxPixels - лимит пикселей при декодировании.
	maxPixels int64

	// run выполняет команду и возвращает stderr; подменяется в тестах.
	run func(ctx context.Context, name string, args []string, env []string) (string, error)
}

// NewVips создаёт кодек по найденному vips.
func NewVips(info *vipsfinder.VipsInfo) *Vips {
	return newVips(info.Path, info.SupportedFormats())
}

func newVips(path string, formats []format.Format) *Vips {
	v := &Vips{
		vipsPath:  path,
		formats:   make(map[format.Format]bool, len(formats)),
		timeout:   time.Minute,
		maxPixels: DefaultMaxPixels,
		run:       runVips,
	}
	for _, f := range formats {
		v.formats[f] = true
	}
	return v
}

// SetMaxPixels устанавливает лимит пикселей при декодировании.
func (v *Vips) SetMaxPixels(p int64) {
	if p > 0 {
		v.maxPixels = p
	}
}

// SetTimeout устанавливает таймаут на вызов vips.
func (v *Vips) SetTimeout(d time.Duration) {
	if d > 0 {
		v.timeout = d
	}
}

// SetGPU включает или выключает OpenCL ускорение.
func (v *Vips) SetGPU(enabled bool) {
	v.useGPU = enabled
}

// Name возвращает имя кодека.
func (v *Vips) Name() string {
	return "vips"
}

// Supports сообщает, может ли vips сохранить формат.
func (v *Vips) Supports(f format.Format) bool {
	return v.formats[f]
}

// EncodeRaster кодирует изображение через "vips copy in.png out.ext[Q=..]".
func (v *Vips) EncodeRaster(ctx context.Context, img image.Image, f format.Format, quality int) ([]byte, error) {
	if !v.Supports(f) {
		return nil, unsupported(v.Name(), f)
	}

	dir, err := os.MkdirTemp("", "rtconvert-vips-*")
	if err != nil {
		return nil, fmt.Errorf("не удалось создать временную директорию: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "in.png")
	if err := writePNG(srcPath, img); err != nil {
		return nil, err
	}

	dstPath := filepath.Join(dir, "out."+f.Extension())
	if err := v.copy(ctx, srcPath, dstPath+saveOptions(f, quality)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать результат vips: %w", err)
	}
	return data, nil
}

// DecodeRaster переводит данные в PNG через vips и декодирует его.
func (v *Vips) DecodeRaster(ctx context.Context, data []byte) (*Raster, error) {
	dir, err := os.MkdirTemp("", "rtconvert-vips-*")
	if err != nil {
		return nil, fmt.Errorf("не удалось создать временную директорию: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "in")
	if err := os.WriteFile(srcPath, data, 0644); err != nil {
		return nil, fmt.Errorf("не удалось записать входной файл: %w", err)
	}

	dstPath := filepath.Join(dir, "out.png")
	if err := v.copy(ctx, srcPath, dstPath); err != nil {
		return nil, err
	}

	out, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать результат vips: %w", err)
	}
	if err := checkDimensions(out, v.maxPixels); err != nil {
		return nil, fmt.Errorf("декодирование результата vips: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("декодирование результата vips: %w", err)
	}

	b := img.Bounds()
	return &Raster{
		Pixels:          img,
		Width:           b.Dx(),
		Height:          b.Dy(),
		HasTransparency: HasTransparency(img),
	}, nil
}

// copy выполняет "vips copy src dst" с таймаутом.
func (v *Vips) copy(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	env := os.Environ()
	if v.useGPU {
		env = append(env, "VIPS_OPENCL=1")
	}

	stderr, err := v.run(ctx, v.vipsPath, []string{"copy", src, dst}, env)
	if err != nil {
		if stderr != "" {
			return fmt.Errorf("vips copy failed: %w: %s", err, stderr)
		}
		return fmt.Errorf("vips copy failed: %w", err)
	}
	return nil
}

// saveOptions возвращает суффикс параметров сохранения vips, например "[Q=80,strip]".
func saveOptions(f format.Format, quality int) string {
	if quality > 0 && f.Caps().SupportsQuality {
		return fmt.Sprintf("[Q=%d,strip]", quality)
	}
	return "[strip]"
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("не удалось создать временный PNG: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("не удалось записать временный PNG: %w", err)
	}
	return file.Close()
}

func runVips(ctx context.Context, name string, args []string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Env = env
	err := cmd.Run()
	return stderr.String(), err
}

/*
Возможные расширения:
- Передавать пиксели через stdin ("vips copy stdin out.webp") без временных файлов
- Использовать vips thumbnail для масштабирования вместо x/image/draw
*/
