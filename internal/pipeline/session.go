// Package pipeline связывает решатель размеров, валидатор, политику, советника
// и кодировщик в сессию, где последний запрос всегда побеждает.
package pipeline

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/artemshloyda/rtconvert/internal/advisor"
	"github.com/artemshloyda/rtconvert/internal/dimensions"
	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/policy"
	"github.com/artemshloyda/rtconvert/internal/settings"
	"github.com/artemshloyda/rtconvert/internal/source"
)

// Session - состояние работы с одним исходным изображением.
// Текущие настройки меняются только через методы сессии.
type Session struct {
	// ID - uuid сессии.
	ID string

	// Source - исходное изображение.
	Source *source.Image

	mu       sync.Mutex
	settings settings.Settings
	locked   bool

	seq Sequencer
}

// NewSession создаёт сессию: размеры источника, JPEG, качество 85, пропорции заблокированы.
func NewSession(src *source.Image) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Source: src,
		settings: settings.Settings{
			Format:  settings.DefaultFormat,
			Quality: settings.DefaultQuality,
			Width:   max(src.Width, 1),
			Height:  max(src.Height, 1),
		},
		locked: true,
	}
}

// Settings возвращает текущие настройки.
func (s *Session) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Locked сообщает, заблокированы ли пропорции.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// SetLocked включает или выключает блокировку пропорций.
func (s *Session) SetLocked(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = locked
}

// Sequencer возвращает счётчик запросов сессии.
func (s *Session) Sequencer() *Sequencer {
	return &s.seq
}

// EditDimension разбирает ввод пользователя и применяет его к размерам.
// При ошибке состояние не меняется.
func (s *Session) EditDimension(dim dimensions.Dimension, raw string) (dimensions.Size, error) {
	edit, err := dimensions.ParseEdit(dim, raw)
	if err != nil {
		return s.size(), err
	}
	return s.ApplyEdit(edit)
}

// ApplyEdit применяет изменение одной стороны с учётом блокировки пропорций.
func (s *Session) ApplyEdit(edit dimensions.Edit) (dimensions.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := dimensions.Size{Width: s.settings.Width, Height: s.settings.Height}
	next, err := dimensions.Solve(edit, s.Source.Ratio(), s.locked, current)
	if err != nil {
		return current, err
	}
	s.settings.Width, s.settings.Height = next.Width, next.Height
	return next, nil
}

// SetFormat меняет формат и приводит качество к возможностям формата.
func (s *Session) SetFormat(f format.Format) []settings.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.settings
	candidate.Format = f
	if candidate.HasQuality() && candidate.Quality == settings.QualityNA {
		candidate.Quality = settings.DefaultQuality
	}
	return s.applyLocked(candidate)
}

// SetQuality меняет качество. Для форматов без качества оно сбрасывается.
func (s *Session) SetQuality(q int) []settings.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.settings
	candidate.Quality = q
	return s.applyLocked(candidate)
}

// Apply проверяет кандидата относительно текущих настроек и сохраняет результат.
func (s *Session) Apply(candidate settings.Settings) (settings.Settings, []settings.Correction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fixes := s.applyLocked(candidate)
	return s.settings, fixes
}

func (s *Session) applyLocked(candidate settings.Settings) []settings.Correction {
	validated, fixes := settings.Validate(candidate, s.settings)
	s.settings = validated
	return fixes
}

// ApplyRecommendation применяет рекомендацию к текущим настройкам.
func (s *Session) ApplyRecommendation(rec policy.Recommendation) (settings.Settings, []settings.Correction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	validated, fixes := resolveRecommendation(rec, s.settings, s.Source.Ratio(), s.locked)
	s.settings = validated
	return validated, fixes
}

// resolveRecommendation строит проверенные настройки из рекомендации.
// Подсказки размеров проходят через решатель: при блокировке побеждает ширина.
func resolveRecommendation(rec policy.Recommendation, current settings.Settings, ratio float64, locked bool) (settings.Settings, []settings.Correction) {
	size := dimensions.Size{Width: current.Width, Height: current.Height}

	switch {
	case rec.Width >= 1 && (locked || rec.Height < 1):
		if next, err := dimensions.Solve(dimensions.Edit{Dimension: dimensions.Width, Value: rec.Width}, ratio, locked, size); err == nil {
			size = next
		}
	case rec.Height >= 1 && rec.Width < 1:
		if next, err := dimensions.Solve(dimensions.Edit{Dimension: dimensions.Height, Value: rec.Height}, ratio, locked, size); err == nil {
			size = next
		}
	case rec.Width >= 1 && rec.Height >= 1:
		size = dimensions.Size{Width: rec.Width, Height: rec.Height}
	}

	candidate := settings.Settings{
		Format:  rec.Format,
		Quality: rec.Quality,
		Width:   size.Width,
		Height:  size.Height,
	}
	return settings.Validate(candidate, current)
}

// commit сохраняет настройки, если запрос seq всё ещё последний.
func (s *Session) commit(seq uint64, st settings.Settings) bool {
	if !s.seq.IsLatest(seq) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
	return true
}

func (s *Session) snapshot() (settings.Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, s.locked
}

func (s *Session) size() dimensions.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dimensions.Size{Width: s.settings.Width, Height: s.settings.Height}
}

// PolicyInput возвращает вход политики для цели.
func (s *Session) PolicyInput(goal policy.Goal) policy.Input {
	return policy.Input{
		SourceMIME:      s.Source.MIMEType,
		Goal:            goal,
		HasTransparency: s.Source.HasTransparency,
	}
}

// AdvisorRequest возвращает запрос к советнику для цели.
func (s *Session) AdvisorRequest(goal policy.Goal) advisor.Request {
	return advisor.Request{
		FileName: s.Source.Name,
		FileType: s.Source.MIMEType,
		FileSize: s.Source.ByteSize,
		Goal:     goal,
	}
}

// OutputName возвращает имя выходного файла: <имя>_converted.<расширение>.
func OutputName(srcName string, f format.Format) string {
	base := filepath.Base(srcName)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if strings.TrimSpace(base) == "" {
		base = "image"
	}
	return base + "_converted." + f.Extension()
}
