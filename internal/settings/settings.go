// Package settings содержит параметры конвертации и их валидацию.
package settings

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/artemshloyda/rtconvert/internal/format"
)

const (
	// QualityNA - качество не применимо к формату.
	QualityNA = 0

	// MinQuality и MaxQuality - допустимый диапазон качества.
	MinQuality = 1
	MaxQuality = 100

	// DefaultQuality - качество по умолчанию для lossy форматов.
	DefaultQuality = 85

	// DefaultFormat - формат по умолчанию, если иначе не определить.
	DefaultFormat = format.JPEG
)

// Settings содержит параметры конвертации.
type Settings struct {
	// Format - выходной формат.
	Format format.Format

	// Quality - качество 1-100, QualityNA для форматов без качества.
	// 0 в кандидате означает "не задано".
	Quality int

	// Width - ширина в пикселях; 0 в кандидате означает "не задано".
	Width int

	// Height - высота в пикселях; 0 в кандидате означает "не задано".
	Height int
}

// Correction описывает одно исправление, внесённое валидатором.
type Correction struct {
	Field  string
	From   string
	To     string
	Reason string
}

func (c Correction) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", c.Field, c.From, c.To, c.Reason)
}

// HasQuality сообщает, применимо ли качество к формату настроек.
func (s Settings) HasQuality() bool {
	return s.Format.Caps().SupportsQuality
}

// Params возвращает параметры выхода в виде JSON.
func (s Settings) Params() string {
	params := map[string]interface{}{
		"format":  s.Format,
		"quality": s.Quality,
		"width":   s.Width,
		"height":  s.Height,
	}
	b, _ := json.Marshal(params)
	return string(b)
}

// ParamsHash возвращает sha256 хэш параметров выхода.
func (s Settings) ParamsHash() string {
	h := sha256.Sum256([]byte(s.Params()))
	return hex.EncodeToString(h[:])
}

// Validate приводит кандидата к пригодным настройкам. Никогда не возвращает ошибку:
// некорректные значения исправляются, а исправления перечисляются во втором результате.
//
// session - текущие настройки сессии; из них берутся формат, качество и размеры,
// если кандидат их не задаёт. Нулевое качество кандидата означает "не задано"
// и заменяется качеством сессии, а не исправляется на 1; отрицательное
// качество исправляется на 1. Функция идемпотентна:
// Validate(Validate(x, s), s) == Validate(x, s).
func Validate(candidate, session Settings) (Settings, []Correction) {
	out := candidate
	var fixes []Correction

	// Формат вне закрытого набора: берём формат сессии
	if !out.Format.Valid() {
		to := session.Format
		if !to.Valid() {
			to = DefaultFormat
		}
		fixes = append(fixes, Correction{
			Field:  "format",
			From:   fmt.Sprintf("%q", string(out.Format)),
			To:     string(to),
			Reason: "неизвестный формат",
		})
		out.Format = to
	}

	// Правило 1: качество
	if out.HasQuality() {
		q := out.Quality
		reason := ""
		switch {
		case q == QualityNA:
			q = DefaultQuality
			if session.Quality >= MinQuality && session.Quality <= MaxQuality {
				q = session.Quality
			}
			reason = "качество не задано"
		case q < MinQuality:
			q = MinQuality
			reason = "качество ниже минимума"
		case q > MaxQuality:
			q = MaxQuality
			reason = "качество выше максимума"
		}
		if q != out.Quality {
			fixes = append(fixes, qualityFix(out.Quality, q, reason))
			out.Quality = q
		}
	} else if out.Quality != QualityNA {
		fixes = append(fixes, qualityFix(out.Quality, QualityNA, fmt.Sprintf("%s не поддерживает качество", out.Format)))
		out.Quality = QualityNA
	}

	// Правила 2 и 3: размеры
	out.Width, fixes = fixDimension("width", out.Width, session.Width, fixes)
	out.Height, fixes = fixDimension("height", out.Height, session.Height, fixes)

	return out, fixes
}

func fixDimension(field string, v, sessionValue int, fixes []Correction) (int, []Correction) {
	switch {
	case v < 0:
		fixes = append(fixes, Correction{Field: field, From: fmt.Sprint(v), To: "1", Reason: "размер меньше 1"})
		return 1, fixes
	case v == 0:
		to := sessionValue
		if to < 1 {
			to = 1
		}
		fixes = append(fixes, Correction{Field: field, From: "0", To: fmt.Sprint(to), Reason: "размер не задан, взят из сессии"})
		return to, fixes
	}
	return v, fixes
}

func qualityFix(from, to int, reason string) Correction {
	return Correction{Field: "quality", From: qualityString(from), To: qualityString(to), Reason: reason}
}

func qualityString(q int) string {
	if q == QualityNA {
		return "n/a"
	}
	return fmt.Sprint(q)
}
