package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/rtconvert/internal/dimensions"
	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/pipeline"
	"github.com/artemshloyda/rtconvert/internal/policy"
	"github.com/artemshloyda/rtconvert/internal/progress"
	"github.com/artemshloyda/rtconvert/internal/settings"
	"github.com/artemshloyda/rtconvert/internal/source"
)

// sessionFlags - ручные настройки сессии из флагов.
type sessionFlags struct {
	goal    string
	format  string
	quality int
	width   string
	height  string
	unlock  bool
	outDir  string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.goal, "goal", "", "Цель оптимизации: web, storage, quality")
	flags.StringVar(&f.format, "format", "", "Выходной формат: jpeg, png, webp, gif, bmp")
	flags.IntVar(&f.quality, "quality", 0, "Качество для lossy форматов (1-100)")
	flags.StringVar(&f.width, "width", "", "Ширина в пикселях")
	flags.StringVar(&f.height, "height", "", "Высота в пикселях")
	flags.BoolVar(&f.unlock, "unlock", false, "Не сохранять пропорции при изменении размеров")
	flags.StringVar(&f.outDir, "out", "", "Директория для результата (по умолчанию рядом с исходным)")
}

// manual сообщает, заданы ли формат или качество вручную.
func (f *sessionFlags) manual(cmd *cobra.Command) bool {
	return f.format != "" || cmd.Flags().Changed("quality")
}

// resolveGoal возвращает цель: явный --goal, иначе цель из конфигурации,
// если формат и качество не заданы вручную.
func (f *sessionFlags) resolveGoal(cmd *cobra.Command, fallback string) (policy.Goal, error) {
	if f.goal != "" {
		if f.manual(cmd) {
			return "", errors.New("--goal нельзя сочетать с --format и --quality")
		}
		return policy.ParseGoal(f.goal)
	}
	if fallback == "" || f.manual(cmd) {
		return "", nil
	}
	return policy.ParseGoal(fallback)
}

// configure применяет ручные настройки к сессии и возвращает исправления валидатора.
func (f *sessionFlags) configure(cmd *cobra.Command, sess *pipeline.Session) ([]settings.Correction, error) {
	if f.unlock {
		sess.SetLocked(false)
	}
	if f.width != "" {
		if _, err := sess.EditDimension(dimensions.Width, f.width); err != nil {
			return nil, err
		}
	}
	if f.height != "" {
		if _, err := sess.EditDimension(dimensions.Height, f.height); err != nil {
			return nil, err
		}
	}

	var fixes []settings.Correction
	if f.format != "" {
		ft, err := format.Parse(f.format)
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, sess.SetFormat(ft)...)
	}
	if cmd.Flags().Changed("quality") {
		fixes = append(fixes, sess.SetQuality(f.quality)...)
	}
	return fixes, nil
}

// outputDir возвращает директорию результата.
func (f *sessionFlags) outputDir(cfgDir, srcPath string) string {
	switch {
	case f.outDir != "":
		return f.outDir
	case cfgDir != "":
		return cfgDir
	default:
		return filepath.Dir(srcPath)
	}
}

// newConvertCmd создаёт команду convert.
func newConvertCmd(opts *rootOptions) *cobra.Command {
	var sf sessionFlags

	cmd := &cobra.Command{
		Use:   "convert <файл>",
		Short: "Сконвертировать изображение",
		Long: `Конвертирует изображение с ручными настройками или по цели.

Без флагов используются настройки сессии по умолчанию: исходные размеры, JPEG, качество 85.
С --goal формат и качество подбирает советник или встроенные правила.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, &sf, args[0])
		},
	}
	sf.register(cmd)

	return cmd
}

func runConvert(cmd *cobra.Command, opts *rootOptions, sf *sessionFlags, path string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	goal, err := sf.resolveGoal(cmd, opts.cfg.Goal)
	if err != nil {
		return err
	}

	a, err := newApp(opts.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	src, err := source.Load(ctx, path, a.codec)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "🖼️  %s: %s, %dx%d\n", src.Name, src.MIMEType, src.Width, src.Height)

	sess := pipeline.NewSession(src)
	fixes, err := sf.configure(cmd, sess)
	if err != nil {
		return err
	}
	printCorrections(out, fixes)

	req := pipeline.Request{Goal: goal, OutputDir: sf.outputDir(opts.cfg.OutputDir, path)}

	var res *pipeline.Result
	run := func() error {
		var err error
		res, err = a.pipeline.Run(ctx, sess, req)
		return err
	}
	if goal != "" && a.llm != nil && !opts.cfg.NoProgress {
		err = progress.Spin(cmd.ErrOrStderr(), "🤖 Советник подбирает настройки", run)
	} else {
		err = run()
	}
	if err != nil {
		return fmt.Errorf("не удалось сконвертировать %s: %w", src.Name, err)
	}

	printResult(out, res)
	return nil
}

// printResult выводит итог запроса.
func printResult(out io.Writer, res *pipeline.Result) {
	if res.Outcome != nil {
		fmt.Fprintf(out, "🎯 Цель: %s (источник: %s)\n", res.Goal, res.Outcome.Source)
		if res.Outcome.Note != "" {
			fmt.Fprintf(out, "ℹ️  %s\n", res.Outcome.Note)
		}
		if r := res.Outcome.Recommendation.Reasoning; r != "" {
			fmt.Fprintf(out, "💡 %s\n", r)
		}
	}
	printCorrections(out, res.Corrections)

	name := res.Output
	if name == "" {
		name = "результат"
	} else {
		name = filepath.Base(name)
	}
	cached := ""
	if res.Cached {
		cached = " (из кэша)"
	}
	fmt.Fprintf(out, "✅ %s: %s%s\n", name, res.Describe(), cached)
	fmt.Fprintf(out, "📉 %s\n", res.Summary)
}

func printCorrections(out io.Writer, fixes []settings.Correction) {
	for _, c := range fixes {
		fmt.Fprintf(out, "🔧 Исправлено: %s\n", c)
	}
}
