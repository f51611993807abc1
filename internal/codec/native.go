package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // регистрирует декодер WebP

	"github.com/artemshloyda/rtconvert/internal/format"
)

// Native кодирует средствами Go: JPEG, PNG, GIF, BMP.
// Декодирует все пять форматов. Кодировщика WebP в Go нет.
type Native struct {
	// maxPixels - лимит пикселей при декодировании.
	maxPixels int64
}

// NewNative создаёт Native кодек.
func NewNative() *Native {
	return &Native{maxPixels: DefaultMaxPixels}
}

// SetMaxPixels устанавливает лимит пикселей при декодировании.
func (n *Native) SetMaxPixels(p int64) {
	if p > 0 {
		n.maxPixels = p
	}
}

// Name возвращает имя кодека.
func (n *Native) Name() string {
	return "native"
}

// Supports сообщает, может ли кодек закодировать формат.
func (n *Native) Supports(f format.Format) bool {
	switch f {
	case format.JPEG, format.PNG, format.GIF, format.BMP:
		return true
	}
	return false
}

// EncodeRaster кодирует изображение в формат f.
func (n *Native) EncodeRaster(ctx context.Context, img image.Image, f format.Format, quality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case format.JPEG:
		opts := &jpeg.Options{Quality: jpeg.DefaultQuality}
		if quality > 0 {
			opts.Quality = quality
		}
		err = jpeg.Encode(&buf, img, opts)
	case format.PNG:
		err = png.Encode(&buf, img)
	case format.GIF:
		err = gif.Encode(&buf, toPaletted(img), nil)
	case format.BMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, unsupported(n.Name(), f)
	}
	if err != nil {
		return nil, fmt.Errorf("кодирование %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// DecodeRaster декодирует JPEG, PNG, GIF, BMP или WebP.
// Размеры из заголовка проверяются до декодирования пикселей.
func (n *Native) DecodeRaster(ctx context.Context, data []byte) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDimensions(data, n.maxPixels); err != nil {
		return nil, fmt.Errorf("декодирование: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("декодирование: %w", err)
	}
	b := img.Bounds()
	return &Raster{
		Pixels:          img,
		Width:           b.Dx(),
		Height:          b.Dy(),
		HasTransparency: HasTransparency(img),
	}, nil
}

// gifPalette - web-safe палитра плюс прозрачный цвет для бинарной прозрачности GIF.
var gifPalette = func() color.Palette {
	p := make(color.Palette, 0, len(palette.WebSafe)+1)
	p = append(p, palette.WebSafe...)
	return append(p, color.Transparent)
}()

// toPaletted переводит изображение в палитру с диффузией ошибки.
func toPaletted(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok {
		return p
	}
	b := img.Bounds()
	pm := image.NewPaletted(b, gifPalette)
	draw.FloydSteinberg.Draw(pm, b, img, b.Min)
	return pm
}

// HasTransparency проверяет, есть ли в изображении не полностью непрозрачные пиксели.
func HasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
