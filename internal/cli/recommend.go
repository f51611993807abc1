package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/rtconvert/internal/advisor"
	"github.com/artemshloyda/rtconvert/internal/config"
	"github.com/artemshloyda/rtconvert/internal/pipeline"
	"github.com/artemshloyda/rtconvert/internal/policy"
	"github.com/artemshloyda/rtconvert/internal/progress"
	"github.com/artemshloyda/rtconvert/internal/settings"
	"github.com/artemshloyda/rtconvert/internal/source"
)

// newRecommendCmd создаёт команду recommend.
func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var (
		goalFlag string
		ping     bool
		unlock   bool
	)

	cmd := &cobra.Command{
		Use:   "recommend [файл]",
		Short: "Показать рекомендацию без конвертации",
		Long: `Показывает, какие настройки будут выбраны для цели, и откуда они взяты.

С --ping проверяет только доступность советника.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			a, err := newApp(opts.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if ping {
				if a.llm == nil {
					return fmt.Errorf("советник не настроен: задайте %s", config.EnvAdvisorAPIKey)
				}
				if err := a.llm.HealthCheck(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "✅ Советник отвечает (%s)\n", opts.cfg.AdvisorModel)
				return nil
			}

			if len(args) == 0 {
				return errors.New("укажите файл")
			}
			if goalFlag == "" {
				goalFlag = opts.cfg.Goal
			}
			goal, err := policy.ParseGoal(goalFlag)
			if err != nil {
				return err
			}

			src, err := source.Load(ctx, args[0], a.codec)
			if err != nil {
				return err
			}
			sess := pipeline.NewSession(src)
			sess.SetLocked(!unlock)

			var adv advisor.Advisor
			if a.llm != nil {
				adv = a.llm
			}

			var outcome advisor.Outcome
			resolve := func() error {
				outcome = advisor.Resolve(ctx, adv, sess.AdvisorRequest(goal), sess.PolicyInput(goal), opts.cfg.AdvisorTimeout)
				return nil
			}
			if a.llm != nil && !opts.cfg.NoProgress {
				_ = progress.Spin(cmd.ErrOrStderr(), "🤖 Советник подбирает настройки", resolve)
			} else {
				_ = resolve()
			}

			st, fixes := sess.ApplyRecommendation(outcome.Recommendation)

			fmt.Fprintf(out, "🖼️  %s: %s, %dx%d, %s\n", src.Name, src.MIMEType, src.Width, src.Height, humanize.Bytes(uint64(src.ByteSize)))
			if outcome.Note != "" {
				fmt.Fprintf(out, "ℹ️  %s\n", outcome.Note)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Цель", "Источник", "Формат", "Качество", "Размер", "Файл"},
				[][]string{{
					string(goal),
					string(outcome.Source),
					string(st.Format),
					qualityString(st),
					fmt.Sprintf("%dx%d", st.Width, st.Height),
					pipeline.OutputName(src.Name, st.Format),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			if r := outcome.Recommendation.Reasoning; r != "" {
				fmt.Fprintf(out, "💡 %s\n", r)
			}
			printCorrections(out, fixes)
			return nil
		},
	}

	cmd.Flags().StringVar(&goalFlag, "goal", "", "Цель оптимизации: web, storage, quality")
	cmd.Flags().BoolVar(&ping, "ping", false, "Проверить доступность советника")
	cmd.Flags().BoolVar(&unlock, "unlock", false, "Не сохранять пропорции при подсказках размеров")

	return cmd
}

func qualityString(st settings.Settings) string {
	if !st.HasQuality() {
		return "-"
	}
	return strconv.Itoa(st.Quality)
}
