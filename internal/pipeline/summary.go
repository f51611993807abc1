package pipeline

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Summary сравнивает размер исходного и сконвертированного файла.
type Summary struct {
	Original  int64
	Converted int64

	// SavedPercent - экономия в процентах. Отрицательное значение - файл вырос.
	SavedPercent float64
}

// NewSummary считает экономию.
func NewSummary(original, converted int64) Summary {
	s := Summary{Original: original, Converted: converted}
	if original > 0 {
		s.SavedPercent = float64(original-converted) / float64(original) * 100
	}
	return s
}

// String возвращает строку вида "1.2 MB → 340 kB (-72.0%)".
func (s Summary) String() string {
	return fmt.Sprintf("%s → %s (%+.1f%%)",
		humanize.Bytes(uint64(max(s.Original, 0))),
		humanize.Bytes(uint64(max(s.Converted, 0))),
		-s.SavedPercent,
	)
}
