package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/artemshloyda/rtconvert/internal/pipeline"
	"github.com/artemshloyda/rtconvert/internal/progress"
	"github.com/artemshloyda/rtconvert/internal/source"
	"github.com/artemshloyda/rtconvert/internal/watcher"
)

// delivery - результат фонового запроса для вывода.
type delivery struct {
	res *pipeline.Result
	err error
}

// newWatchCmd создаёт команду watch.
func newWatchCmd(opts *rootOptions) *cobra.Command {
	var sf sessionFlags

	cmd := &cobra.Command{
		Use:   "watch <файл>",
		Short: "Пересчитывать результат при каждом изменении файла",
		Long: `Следит за файлом и конвертирует его после каждого сохранения.

Если файл меняется, пока предыдущая конвертация не закончена, она отменяется:
показывается только результат последней версии файла.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, &sf, args[0])
		},
	}
	sf.register(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, opts *rootOptions, sf *sessionFlags, path string) error {
	goal, err := sf.resolveGoal(cmd, opts.cfg.Goal)
	if err != nil {
		return err
	}

	a, err := newApp(opts.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	w, err := watcher.New(path, a.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	bar := progress.New(progress.Options{
		Description: "👀 Наблюдение за " + filepath.Base(path),
		Disabled:    opts.cfg.NoProgress || !progress.Interactive(errOut),
		Writer:      errOut,
	})
	bar.Start()

	out := cmd.OutOrStdout()
	req := pipeline.Request{Goal: goal, OutputDir: sf.outputDir(opts.cfg.OutputDir, path)}
	results := make(chan delivery, 4)

	g, gctx := errgroup.WithContext(ctx)

	// Производитель: на каждое изменение новая сессия, предыдущая отменяется
	g.Go(func() error {
		defer close(results)
		defer a.pipeline.Wait()

		var current *pipeline.Session
		submit := func() error {
			src, err := source.Load(gctx, path, a.codec)
			if err != nil {
				// Файл может быть записан не до конца: ждём следующего изменения
				bar.WriteMessage("⚠️  %s: %v\n", filepath.Base(path), err)
				return gctx.Err()
			}
			if current != nil {
				current.Sequencer().Stop()
			}
			current = pipeline.NewSession(src)
			fixes, err := sf.configure(cmd, current)
			if err != nil {
				return err
			}
			printCorrections(out, fixes)

			a.pipeline.Submit(gctx, current, req, func(res *pipeline.Result, err error) {
				results <- delivery{res: res, err: err}
			})
			return nil
		}

		if err := submit(); err != nil {
			return err
		}
		for range changes {
			if err := submit(); err != nil {
				return err
			}
		}
		if current != nil {
			current.Sequencer().Stop()
		}
		return nil
	})

	// Потребитель: вывод результатов
	g.Go(func() error {
		for d := range results {
			switch {
			case d.err == nil:
				bar.Increment()
				bar.WriteMessage("✅ %s: %s, %s\n", filepath.Base(d.res.Output), d.res.Describe(), d.res.Summary)
			case errors.Is(d.err, context.Canceled):
				bar.IncrementDropped()
			default:
				bar.IncrementFailed()
				bar.WriteMessage("❌ %v\n", d.err)
			}
		}
		return nil
	})

	err = g.Wait()
	bar.Finish()

	converted, failed, dropped := bar.Stats()
	fmt.Fprintf(out, "📊 Сконвертировано: %d, ошибок: %d, отменено: %d\n", converted, failed, dropped+a.pipeline.Dropped())

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
