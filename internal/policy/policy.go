// Package policy содержит детерминированные правила рекомендации формата
// и качества по цели оптимизации.
package policy

import (
	"fmt"
	"strings"

	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/settings"
)

// Goal определяет цель оптимизации.
type Goal string

const (
	// GoalWeb - баланс размера и качества для веба.
	GoalWeb Goal = "web"
	// GoalStorage - минимальный размер файла.
	GoalStorage Goal = "storage"
	// GoalQuality - максимальное сохранение качества.
	GoalQuality Goal = "quality"
)

// Goals возвращает все цели.
func Goals() []Goal {
	return []Goal{GoalWeb, GoalStorage, GoalQuality}
}

// ParseGoal разбирает имя цели.
func ParseGoal(s string) (Goal, error) {
	g := Goal(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case GoalWeb, GoalStorage, GoalQuality:
		return g, nil
	}
	return "", fmt.Errorf("неизвестная цель: %q (доступны: web, storage, quality)", s)
}

// Input содержит данные об источнике, нужные для рекомендации.
type Input struct {
	// SourceMIME - MIME-тип исходного файла (любой, не только выходные форматы).
	SourceMIME string

	// Goal - цель оптимизации.
	Goal Goal

	// HasTransparency - есть ли в источнике прозрачные пиксели.
	HasTransparency bool
}

// Recommendation - рекомендованные параметры и объяснение.
type Recommendation struct {
	Format    format.Format
	Quality   int
	Reasoning string

	// Width и Height - необязательные подсказки советника (0 = не заданы).
	Width  int
	Height int
}

// Settings превращает рекомендацию в кандидата для валидатора.
func (r Recommendation) Settings() settings.Settings {
	return settings.Settings{Format: r.Format, Quality: r.Quality, Width: r.Width, Height: r.Height}
}

// Rule - одно правило таблицы решений.
type Rule struct {
	// Name - короткое имя правила для вывода.
	Name string

	// Condition - человекочитаемое условие.
	Condition string

	match     func(in Input) bool
	recommend func(in Input) Recommendation
}

// Matches проверяет условие правила.
func (r Rule) Matches(in Input) bool {
	return r.match(in)
}

// gifQuality - качество WebP при замене GIF, по цели.
var gifQuality = map[Goal]int{
	GoalWeb:     80,
	GoalStorage: 72,
	GoalQuality: 92,
}

// rules - упорядоченная таблица, срабатывает первое подходящее правило.
// Замена GIF проверяется первой и уступает только паре quality + прозрачность.
var rules = []Rule{
	{
		Name:      "gif-to-webp",
		Condition: "источник GIF, кроме quality с прозрачностью",
		match: func(in Input) bool {
			if _, known := gifQuality[in.Goal]; !known {
				return false
			}
			return isGIF(in.SourceMIME) && !(in.Goal == GoalQuality && in.HasTransparency)
		},
		recommend: func(in Input) Recommendation {
			return Recommendation{
				Format:    format.WEBP,
				Quality:   gifQuality[in.Goal],
				Reasoning: "Converted GIF to WebP: smaller than GIF at similar visual quality.",
			}
		},
	},
	{
		Name:      "web",
		Condition: "цель web",
		match:     func(in Input) bool { return in.Goal == GoalWeb },
		recommend: func(Input) Recommendation {
			return Recommendation{
				Format:    format.WEBP,
				Quality:   80,
				Reasoning: "Switched to WebP at 80% quality for web performance balance between size and quality.",
			}
		},
	},
	{
		Name:      "storage-transparent",
		Condition: "цель storage, есть прозрачность",
		match:     func(in Input) bool { return in.Goal == GoalStorage && in.HasTransparency },
		recommend: func(Input) Recommendation {
			return Recommendation{
				Format:    format.PNG,
				Quality:   settings.QualityNA,
				Reasoning: "Kept PNG so transparency is preserved, lossless compression.",
			}
		},
	},
	{
		Name:      "storage",
		Condition: "цель storage, без прозрачности",
		match:     func(in Input) bool { return in.Goal == GoalStorage },
		recommend: func(Input) Recommendation {
			return Recommendation{
				Format:    format.JPEG,
				Quality:   72,
				Reasoning: "JPEG at 72% quality for maximum space savings.",
			}
		},
	},
	{
		Name:      "quality-transparent",
		Condition: "цель quality, есть прозрачность",
		match:     func(in Input) bool { return in.Goal == GoalQuality && in.HasTransparency },
		recommend: func(Input) Recommendation {
			return Recommendation{
				Format:    format.PNG,
				Quality:   settings.QualityNA,
				Reasoning: "PNG for lossless fidelity with the alpha channel intact.",
			}
		},
	},
	{
		Name:      "quality",
		Condition: "цель quality, без прозрачности",
		match:     func(in Input) bool { return in.Goal == GoalQuality },
		recommend: func(Input) Recommendation {
			return Recommendation{
				Format:    format.WEBP,
				Quality:   92,
				Reasoning: "WebP at 92% quality for high-fidelity, near-lossless output.",
			}
		},
	},
}

// Rules возвращает таблицу правил в порядке проверки.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Recommend возвращает рекомендацию по первому подходящему правилу.
// Таблица полна для всех целей из Goals; для неизвестной цели ok = false.
func Recommend(in Input) (rec Recommendation, ok bool) {
	for _, r := range rules {
		if r.match(in) {
			return r.recommend(in), true
		}
	}
	return Recommendation{}, false
}

// MustRecommend как Recommend, но паникует на неизвестной цели.
// Цель должна быть получена через ParseGoal.
func MustRecommend(in Input) Recommendation {
	rec, ok := Recommend(in)
	if !ok {
		panic(fmt.Sprintf("policy: нет правила для цели %q", in.Goal))
	}
	return rec
}

func isGIF(mime string) bool {
	return strings.EqualFold(strings.TrimSpace(mime), "image/gif")
}

/*
Возможные расширения:
- Учитывать размер исходного файла (маленькие PNG оставлять как есть)
- Отдельное правило для PNG-источника без прозрачности при цели web
*/
