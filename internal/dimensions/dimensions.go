// Package dimensions пересчитывает ширину и высоту при редактировании
// с учётом блокировки пропорций.
package dimensions

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDimension - верхняя граница для пересчитанной стороны.
const MaxDimension = math.MaxInt32

// ErrInvalidDimension - введённое значение не является положительным целым.
var ErrInvalidDimension = errors.New("некорректный размер")

// Dimension определяет редактируемую сторону.
type Dimension string

const (
	Width  Dimension = "width"
	Height Dimension = "height"
)

// Size содержит пару ширина/высота в пикселях.
type Size struct {
	Width  int
	Height int
}

// Edit описывает изменение одной стороны.
type Edit struct {
	Dimension Dimension
	Value     int
}

// Error описывает отклонённое редактирование.
type Error struct {
	// Field - сторона, которую пытались изменить.
	Field Dimension

	// Input - исходный ввод пользователя.
	Input string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s = %q, ожидается целое число >= 1", ErrInvalidDimension, e.Field, e.Input)
}

// Is позволяет сравнивать ошибку с ErrInvalidDimension через errors.Is.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidDimension
}

// Ratio возвращает соотношение сторон источника (ширина / высота).
// Возвращает 0, если одна из сторон меньше 1: в этом случае блокировка не применяется.
func Ratio(width, height int) float64 {
	if width < 1 || height < 1 {
		return 0
	}
	return float64(width) / float64(height)
}

// ParseEdit разбирает пользовательский ввод для стороны dim.
func ParseEdit(dim Dimension, raw string) (Edit, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return Edit{}, &Error{Field: dim, Input: raw}
	}
	return Edit{Dimension: dim, Value: value}, nil
}

// Solve применяет редактирование к текущим размерам.
//
// Без блокировки меняется только редактируемая сторона. С блокировкой вторая
// сторона пересчитывается от исходного соотношения sourceRatio, а не от
// текущих (возможно, округлённых) размеров, чтобы повторные правки не накапливали
// погрешность. Результат всегда >= 1 по обеим сторонам.
func Solve(edit Edit, sourceRatio float64, locked bool, current Size) (Size, error) {
	if edit.Value < 1 {
		return current, &Error{Field: edit.Dimension, Input: strconv.Itoa(edit.Value)}
	}

	next := current
	switch edit.Dimension {
	case Width:
		next.Width = edit.Value
	case Height:
		next.Height = edit.Value
	default:
		return current, &Error{Field: edit.Dimension, Input: strconv.Itoa(edit.Value)}
	}

	if !locked || !usableRatio(sourceRatio) {
		return next, nil
	}

	// math.Round округляет половину от нуля
	if edit.Dimension == Width {
		next.Height = clamp(math.Round(float64(edit.Value) / sourceRatio))
	} else {
		next.Width = clamp(math.Round(float64(edit.Value) * sourceRatio))
	}
	return next, nil
}

// usableRatio отбрасывает нулевые, отрицательные и нечисловые соотношения.
func usableRatio(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

func clamp(v float64) int {
	if v < 1 {
		return 1
	}
	if v > MaxDimension {
		return MaxDimension
	}
	return int(v)
}
