// Package codec описывает платформенную возможность кодирования и декодирования
// растров и её реализации.
package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/artemshloyda/rtconvert/internal/format"
)

var (
	// ErrUnsupported - кодек не умеет производить запрошенный формат.
	ErrUnsupported = errors.New("формат не поддерживается кодеком")

	// ErrTooLarge - заявленные в заголовке размеры превышают лимит пикселей.
	ErrTooLarge = errors.New("изображение слишком большое")
)

// DefaultMaxPixels - лимит пикселей декодируемого изображения по умолчанию (100 Мп).
const DefaultMaxPixels int64 = 100_000_000

// Raster - декодированное изображение.
type Raster struct {
	// Pixels - пиксели изображения.
	Pixels image.Image

	// Width и Height - размеры в пикселях.
	Width  int
	Height int

	// HasTransparency - есть ли хотя бы один не полностью непрозрачный пиксель.
	HasTransparency bool
}

// Codec - платформенная возможность кодирования растров.
type Codec interface {
	// Name возвращает имя реализации для логов.
	Name() string

	// Supports сообщает, может ли кодек закодировать формат.
	Supports(f format.Format) bool

	// EncodeRaster кодирует пиксели в формат f.
	// quality = 0 означает, что качество не передаётся.
	EncodeRaster(ctx context.Context, img image.Image, f format.Format, quality int) ([]byte, error)

	// DecodeRaster декодирует байты изображения.
	DecodeRaster(ctx context.Context, data []byte) (*Raster, error)
}

// checkDimensions читает заголовок и отклоняет изображение, в котором больше
// maxPixels пикселей, до выделения памяти под растр.
func checkDimensions(data []byte, maxPixels int64) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("чтение заголовка: %w", err)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return fmt.Errorf("пустое изображение %dx%d", cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return fmt.Errorf("%dx%d больше %d пикселей: %w", cfg.Width, cfg.Height, maxPixels, ErrTooLarge)
	}
	return nil
}

// unsupported возвращает ошибку ErrUnsupported с именем кодека и формата.
func unsupported(codecName string, f format.Format) error {
	return fmt.Errorf("%s: %s: %w", codecName, f, ErrUnsupported)
}

// Chain перебирает кодеки по порядку и использует первый, который поддерживает формат.
type Chain struct {
	codecs []Codec
}

// NewChain создаёт цепочку кодеков. nil-элементы пропускаются.
func NewChain(codecs ...Codec) *Chain {
	c := &Chain{}
	for _, cd := range codecs {
		if cd != nil {
			c.codecs = append(c.codecs, cd)
		}
	}
	return c
}

// Name возвращает имена кодеков цепочки.
func (c *Chain) Name() string {
	name := "chain("
	for i, cd := range c.codecs {
		if i > 0 {
			name += ","
		}
		name += cd.Name()
	}
	return name + ")"
}

// Supports возвращает true, если формат поддерживает хотя бы один кодек.
func (c *Chain) Supports(f format.Format) bool {
	return c.pick(f) != nil
}

// EncodeRaster кодирует первым подходящим кодеком.
func (c *Chain) EncodeRaster(ctx context.Context, img image.Image, f format.Format, quality int) ([]byte, error) {
	cd := c.pick(f)
	if cd == nil {
		return nil, unsupported(c.Name(), f)
	}
	return cd.EncodeRaster(ctx, img, f, quality)
}

// DecodeRaster декодирует первым кодеком, который справился.
func (c *Chain) DecodeRaster(ctx context.Context, data []byte) (*Raster, error) {
	var errs []error
	for _, cd := range c.codecs {
		r, err := cd.DecodeRaster(ctx, data)
		if err == nil {
			return r, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%s: нет кодеков", c.Name())
	}
	return nil, errors.Join(errs...)
}

func (c *Chain) pick(f format.Format) Codec {
	for _, cd := range c.codecs {
		if cd.Supports(f) {
			return cd
		}
	}
	return nil
}
