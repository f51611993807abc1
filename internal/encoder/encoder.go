// Package encoder применяет проверенные настройки к растру через кодек.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"github.com/artemshloyda/rtconvert/internal/codec"
	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/settings"
)

var (
	// ErrUnsupportedByPlatform - кодек не может произвести формат.
	ErrUnsupportedByPlatform = errors.New("формат не поддерживается платформой")

	// ErrEncodeFailed - кодирование завершилось ошибкой.
	ErrEncodeFailed = errors.New("ошибка кодирования")
)

// Error описывает ошибку кодирования с видом и полем.
type Error struct {
	// Kind - ErrUnsupportedByPlatform или ErrEncodeFailed.
	Kind error

	// Field - параметр, из-за которого произошла ошибка (может быть пустым).
	Field string

	// Format - запрошенный формат.
	Format format.Format

	// Err - исходная ошибка.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Format != "" {
		msg += ": " + string(e.Format)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is сравнивает ошибку с её видом.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result - результат кодирования. Data принадлежит вызывающему.
type Result struct {
	Data     []byte
	ByteSize int64
	Format   format.Format
	Quality  int
	Width    int
	Height   int
	Duration time.Duration
}

// Orchestrator кодирует растры через кодек.
type Orchestrator struct {
	codec  codec.Codec
	logger *slog.Logger
}

// New создаёт Orchestrator.
func New(c codec.Codec, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{codec: c, logger: logger}
}

// Supports сообщает, может ли платформа произвести формат.
func (o *Orchestrator) Supports(f format.Format) bool {
	return f.Valid() && o.codec.Supports(f)
}

// Encode масштабирует растр до размеров s, при необходимости накладывает его
// на белый фон и кодирует. Настройки должны быть проверены settings.Validate.
func (o *Orchestrator) Encode(ctx context.Context, raster *codec.Raster, s settings.Settings) (*Result, error) {
	start := time.Now()

	if !o.Supports(s.Format) {
		return nil, &Error{Kind: ErrUnsupportedByPlatform, Field: "format", Format: s.Format}
	}
	if raster == nil || raster.Pixels == nil {
		return nil, &Error{Kind: ErrEncodeFailed, Format: s.Format, Err: errors.New("нет исходного растра")}
	}
	if s.Width < 1 || s.Height < 1 {
		return nil, &Error{
			Kind:   ErrEncodeFailed,
			Field:  "size",
			Format: s.Format,
			Err:    fmt.Errorf("размер %dx%d", s.Width, s.Height),
		}
	}

	caps := s.Format.Caps()
	flatten := caps.RequiresOpaqueBackground && raster.HasTransparency
	img := prepare(raster.Pixels, s.Width, s.Height, flatten)

	quality := settings.QualityNA
	if caps.SupportsQuality {
		quality = s.Quality
	}

	data, err := o.codec.EncodeRaster(ctx, img, s.Format, quality)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, codec.ErrUnsupported) {
			return nil, &Error{Kind: ErrUnsupportedByPlatform, Field: "format", Format: s.Format, Err: err}
		}
		return nil, &Error{Kind: ErrEncodeFailed, Format: s.Format, Err: err}
	}

	res := &Result{
		Data:     data,
		ByteSize: int64(len(data)),
		Format:   s.Format,
		Quality:  quality,
		Width:    s.Width,
		Height:   s.Height,
		Duration: time.Since(start),
	}

	o.logger.Debug("закодировано",
		"codec", o.codec.Name(),
		"format", s.Format,
		"quality", quality,
		"width", s.Width,
		"height", s.Height,
		"flatten", flatten,
		"bytes", res.ByteSize,
		"duration", res.Duration,
	)

	return res, nil
}

// prepare масштабирует изображение и накладывает на белый фон, если нужно.
// Исходное изображение не изменяется.
func prepare(src image.Image, width, height int, flatten bool) image.Image {
	b := src.Bounds()
	if !flatten && b.Dx() == width && b.Dy() == height {
		return src
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	op := draw.Src
	if flatten {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		op = draw.Over
	}

	if b.Dx() == width && b.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, b.Min, op)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, op, nil)
	}
	return dst
}

/*
Возможные расширения:
- Настраиваемый цвет фона для форматов без прозрачности
- Выбор алгоритма масштабирования (ApproxBiLinear для превью)
*/
