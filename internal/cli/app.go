package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/artemshloyda/rtconvert/internal/advisor"
	"github.com/artemshloyda/rtconvert/internal/cache"
	"github.com/artemshloyda/rtconvert/internal/codec"
	"github.com/artemshloyda/rtconvert/internal/config"
	"github.com/artemshloyda/rtconvert/internal/encoder"
	"github.com/artemshloyda/rtconvert/internal/logging"
	"github.com/artemshloyda/rtconvert/internal/pipeline"
	"github.com/artemshloyda/rtconvert/internal/storage"
	"github.com/artemshloyda/rtconvert/internal/vipsfinder"
	"github.com/artemshloyda/rtconvert/internal/worker"
)

// app - собранные компоненты для одной команды.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	// vips - найденный vips (nil, если не найден).
	vips *vipsfinder.VipsInfo

	codec    codec.Codec
	encoder  *encoder.Orchestrator
	llm      *advisor.LLM
	journal  *storage.Storage
	pipeline *pipeline.Pipeline
}

// newApp собирает компоненты по конфигурации. Логи пишутся в logOut.
func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: logOut})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	// vips необязателен, пока путь не задан явно
	native := codec.NewNative()
	vipsInfo, err := vipsfinder.NewFinder(cfg.VipsPath).Find()
	switch {
	case err == nil:
		a.vips = vipsInfo
		v := codec.NewVips(vipsInfo)
		v.SetGPU(cfg.UseGPU)
		a.codec = codec.NewChain(native, v)
		logger.Debug("найден vips", "path", vipsInfo.Path, "version", vipsInfo.Version)
	case cfg.VipsPath != "":
		return nil, err
	default:
		a.codec = native
		logger.Info("vips не найден, используется встроенный кодек", "reason", err)
	}
	a.encoder = encoder.New(a.codec, logger)

	var adv advisor.Advisor
	if cfg.AdvisorEnabled() {
		llm, err := advisor.NewOpenAI(advisor.Config{
			APIKey:  cfg.AdvisorAPIKey,
			BaseURL: cfg.AdvisorBaseURL,
			Model:   cfg.AdvisorModel,
			Timeout: cfg.AdvisorTimeout,
		}, advisor.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.llm = llm
		adv = llm
	}

	pcfg := pipeline.Config{
		Advisor: adv,
		Encoder: a.encoder,
		Runner:  worker.NewRunner(cfg.Workers, cfg.MaxMemoryMB),
		Cache:   cache.New(cfg.CacheBytes()),
		Logger:  logger,

		AdvisorTimeout: cfg.AdvisorTimeout,
	}

	if cfg.JournalPath != "" {
		store, err := storage.New(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть журнал: %w", err)
		}
		a.journal = store
		pcfg.Journal = store
	}

	a.pipeline = pipeline.New(pcfg)
	return a, nil
}

// Close освобождает ресурсы.
func (a *app) Close() error {
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}
