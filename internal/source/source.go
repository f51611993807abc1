// Package source отвечает за загрузку исходного изображения.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/artemshloyda/rtconvert/internal/codec"
	"github.com/artemshloyda/rtconvert/internal/dimensions"
)

// ErrNotImage - файл не является изображением.
var ErrNotImage = errors.New("файл не является изображением")

// Image - загруженное исходное изображение. Не изменяется после загрузки.
type Image struct {
	// Name - имя файла без директории.
	Name string

	// MIMEType - MIME-тип по содержимому или расширению.
	MIMEType string

	// ByteSize - размер файла в байтах.
	ByteSize int64

	// Width и Height - размеры в пикселях.
	Width  int
	Height int

	// HasTransparency - есть ли прозрачные пиксели.
	HasTransparency bool

	// SHA256 - хэш содержимого.
	SHA256 string

	// Raster - декодированные пиксели.
	Raster *codec.Raster
}

// Ratio возвращает соотношение сторон источника.
func (img *Image) Ratio() float64 {
	return dimensions.Ratio(img.Width, img.Height)
}

// Size возвращает размеры источника.
func (img *Image) Size() dimensions.Size {
	return dimensions.Size{Width: img.Width, Height: img.Height}
}

// Load читает файл с диска и декодирует его.
func Load(ctx context.Context, path string, decoder codec.Codec) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}
	return FromBytes(ctx, filepath.Base(path), data, decoder)
}

// FromBytes создаёт Image из содержимого файла.
func FromBytes(ctx context.Context, name string, data []byte, decoder codec.Codec) (*Image, error) {
	mimeType := DetectMIME(name, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s (%s): %w", name, displayMIME(mimeType), ErrNotImage)
	}

	raster, err := decoder.DecodeRaster(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать %s: %w", name, err)
	}
	if raster.Width < 1 || raster.Height < 1 {
		return nil, fmt.Errorf("%s: пустое изображение %dx%d", name, raster.Width, raster.Height)
	}

	return &Image{
		Name:            name,
		MIMEType:        mimeType,
		ByteSize:        int64(len(data)),
		Width:           raster.Width,
		Height:          raster.Height,
		HasTransparency: raster.HasTransparency,
		SHA256:          ComputeSHA256(data),
		Raster:          raster,
	}, nil
}

// ComputeSHA256 вычисляет sha256 хэш содержимого.
func ComputeSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DetectMIME определяет MIME-тип по содержимому. Если содержимое не похоже
// на изображение, используется расширение имени, а затем тип содержимого.
// Возвращает пустую строку, если тип не определён.
func DetectMIME(name string, data []byte) string {
	detected := mimetype.Detect(data)
	if strings.HasPrefix(detected.String(), "image/") {
		return baseMIME(detected.String())
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return baseMIME(byExt)
	}
	if detected.Is("application/octet-stream") {
		return ""
	}
	return baseMIME(detected.String())
}

// baseMIME отбрасывает параметры вида "; charset=utf-8".
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

func displayMIME(m string) string {
	if m == "" {
		return "неизвестный тип"
	}
	return m
}

/*
Возможные расширения:
- Читать размеры из заголовка без полного декодирования
- Учитывать EXIF-ориентацию JPEG
*/
