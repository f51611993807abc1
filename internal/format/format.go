// Package format описывает выходные форматы изображений и их возможности.
package format

import (
	"fmt"
	"strings"
)

// Format определяет выходной формат изображения.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WEBP Format = "webp"
	GIF  Format = "gif"
	BMP  Format = "bmp"
)

// Capabilities описывает, какие параметры имеют смысл для формата.
type Capabilities struct {
	// SupportsQuality - формат принимает параметр качества (lossy).
	SupportsQuality bool

	// SupportsTransparency - формат хранит альфа-канал (у GIF только бинарная прозрачность).
	SupportsTransparency bool

	// RequiresOpaqueBackground - перед кодированием прозрачный источник
	// нужно наложить на непрозрачный (белый) фон.
	RequiresOpaqueBackground bool
}

// capabilities - статическая таблица возможностей форматов.
var capabilities = map[Format]Capabilities{
	JPEG: {SupportsQuality: true, SupportsTransparency: false, RequiresOpaqueBackground: true},
	PNG:  {SupportsQuality: false, SupportsTransparency: true, RequiresOpaqueBackground: false},
	WEBP: {SupportsQuality: true, SupportsTransparency: true, RequiresOpaqueBackground: false},
	GIF:  {SupportsQuality: false, SupportsTransparency: true, RequiresOpaqueBackground: false},
	BMP:  {SupportsQuality: false, SupportsTransparency: false, RequiresOpaqueBackground: true},
}

// All возвращает все форматы в порядке отображения.
func All() []Format {
	return []Format{JPEG, PNG, WEBP, GIF, BMP}
}

// Lookup возвращает возможности формата.
// Для неизвестного формата возвращает нулевое значение и false.
func Lookup(f Format) (Capabilities, bool) {
	c, ok := capabilities[f]
	return c, ok
}

// Caps возвращает возможности известного формата.
func (f Format) Caps() Capabilities {
	return capabilities[f]
}

// Valid проверяет, входит ли формат в закрытый набор.
func (f Format) Valid() bool {
	_, ok := capabilities[f]
	return ok
}

// String возвращает имя формата.
func (f Format) String() string {
	return string(f)
}

// Extension возвращает расширение файла без точки.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// MIMEType возвращает MIME-тип формата.
func (f Format) MIMEType() string {
	return "image/" + string(f)
}

// Parse разбирает имя формата, расширение или MIME-тип.
// Примеры: "jpeg", "JPG", ".png", "image/webp".
func Parse(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "image/")
	name = strings.TrimPrefix(name, ".")

	switch name {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WEBP, nil
	case "gif":
		return GIF, nil
	case "bmp", "x-ms-bmp":
		return BMP, nil
	}
	return "", fmt.Errorf("неизвестный формат: %q (доступны: jpeg, png, webp, gif, bmp)", s)
}
