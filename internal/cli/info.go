package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/policy"
)

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

// newFormatsCmd создаёт команду formats.
func newFormatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "Показать поддерживаемые форматы и их возможности",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			a, err := newApp(opts.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rows := make([][]string, 0, len(format.All()))
			for _, f := range format.All() {
				caps := f.Caps()
				encode := "✅"
				if !a.encoder.Supports(f) {
					encode = "❌"
				}
				rows = append(rows, []string{
					string(f),
					f.MIMEType(),
					"." + f.Extension(),
					yesNo(caps.SupportsQuality),
					yesNo(caps.SupportsTransparency),
					yesNo(caps.RequiresOpaqueBackground),
					encode,
				})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Формат", "MIME", "Расширение", "Качество", "Прозрачность", "Белый фон", "Кодирование"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignCenter, alignCenter, alignCenter, alignCenter},
			))

			if a.vips != nil {
				fmt.Fprintf(out, "📦 Кодек: %s, vips %s (%s)\n", a.codec.Name(), a.vips.Version, a.vips.Path)
			} else {
				fmt.Fprintf(out, "📦 Кодек: %s (vips не найден, WebP недоступен)\n", a.codec.Name())
			}
			return nil
		},
	}
}

// newPolicyCmd создаёт команду policy.
func newPolicyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Показать встроенные правила рекомендаций",
		Long: `Показывает таблицу правил, которые используются без советника или при его ошибке.
Правила проверяются сверху вниз, срабатывает первое подходящее.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			rules := policy.Rules()
			rows := make([][]string, 0, len(rules))
			for i, r := range rules {
				rows = append(rows, []string{strconv.Itoa(i + 1), r.Name, r.Condition})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Правило", "Условие"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft}))

			// Итог для каждого сочетания цели и типа источника
			type sample struct {
				mime        string
				transparent bool
				label       string
			}
			samples := []sample{
				{"image/jpeg", false, "JPEG"},
				{"image/png", true, "PNG с прозрачностью"},
				{"image/gif", false, "GIF"},
				{"image/gif", true, "GIF с прозрачностью"},
			}

			matrix := make([][]string, 0, len(samples)*len(policy.Goals()))
			for _, g := range policy.Goals() {
				for _, s := range samples {
					rec := policy.MustRecommend(policy.Input{SourceMIME: s.mime, Goal: g, HasTransparency: s.transparent})
					q := "-"
					if rec.Format.Caps().SupportsQuality {
						q = strconv.Itoa(rec.Quality)
					}
					matrix = append(matrix, []string{string(g), s.label, string(rec.Format), q})
				}
			}
			fmt.Fprintln(out, renderTable([]string{"Цель", "Источник", "Формат", "Качество"}, matrix,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}
