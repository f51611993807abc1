package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/artemshloyda/rtconvert/internal/advisor"
	"github.com/artemshloyda/rtconvert/internal/cache"
	"github.com/artemshloyda/rtconvert/internal/encoder"
	"github.com/artemshloyda/rtconvert/internal/policy"
	"github.com/artemshloyda/rtconvert/internal/settings"
	"github.com/artemshloyda/rtconvert/internal/storage"
	"github.com/artemshloyda/rtconvert/internal/worker"
)

// ErrSuperseded - результат устарел: после него был отправлен новый запрос.
var ErrSuperseded = errors.New("запрос заменён более новым")

// SourceManual - настройки заданы пользователем без рекомендации.
const SourceManual = "manual"

// Journal записывает итоги конвертаций и находит прошлые успешные результаты.
type Journal interface {
	Record(e *storage.Entry) error
	FindOK(srcSHA256, paramsHash string) (*storage.Entry, error)
}

// Config - зависимости Pipeline. Обязателен только Encoder.
type Config struct {
	Advisor advisor.Advisor
	Encoder *encoder.Orchestrator
	Runner  *worker.Runner
	Cache   *cache.Cache
	Journal Journal
	Logger  *slog.Logger

	// AdvisorTimeout ограничивает ожидание советника (0 = advisor.DefaultTimeout).
	AdvisorTimeout time.Duration
}

// Pipeline выполняет цепочку "рекомендация, затем кодирование" для сессии.
type Pipeline struct {
	advisor        advisor.Advisor
	advisorTimeout time.Duration
	encoder        *encoder.Orchestrator
	runner         *worker.Runner
	cache          *cache.Cache
	journal        Journal
	logger         *slog.Logger

	dropped atomic.Int64
}

// New создаёт Pipeline.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		advisor:        cfg.Advisor,
		advisorTimeout: cfg.AdvisorTimeout,
		encoder:        cfg.Encoder,
		runner:         cfg.Runner,
		cache:          cfg.Cache,
		journal:        cfg.Journal,
		logger:         cfg.Logger,
	}
	if p.runner == nil {
		p.runner = worker.NewRunner(1, 0)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Request - один запрос пересчёта.
type Request struct {
	// Goal - цель оптимизации. Пустая цель означает текущие настройки сессии без рекомендации.
	Goal policy.Goal

	// OutputDir - директория для записи результата под именем OutputName.
	// Пустая директория - без записи на диск.
	OutputDir string
}

// Result - итог одного запроса.
type Result struct {
	// Seq - номер запроса в сессии.
	Seq uint64

	// Goal - цель запроса (пустая для ручных настроек).
	Goal policy.Goal

	// Settings - проверенные настройки, с которыми выполнено кодирование.
	Settings settings.Settings

	// Corrections - исправления валидатора.
	Corrections []settings.Correction

	// Outcome - итог рекомендации (nil без цели).
	Outcome *advisor.Outcome

	// Encoded - результат кодирования.
	Encoded *encoder.Result

	// Cached - результат взят из кэша.
	Cached bool

	// Summary - сравнение размеров.
	Summary Summary

	// Output - путь записанного файла.
	Output string
}

// RecSource возвращает источник настроек: advisor, policy или manual.
func (r *Result) RecSource() string {
	if r.Outcome == nil {
		return SourceManual
	}
	return string(r.Outcome.Source)
}

// Run выполняет запрос синхронно. Если во время выполнения пришёл более
// новый запрос той же сессии, возвращается ErrSuperseded.
func (p *Pipeline) Run(ctx context.Context, sess *Session, req Request) (*Result, error) {
	seq, reqCtx := sess.seq.Next(ctx)
	defer sess.seq.done(seq)

	var res *Result
	err := p.runner.Do(reqCtx, p.task(sess, req, seq, &res))
	return p.finish(sess, req, seq, res, err)
}

// Submit запускает запрос в фоне и сразу возвращает его номер. Предыдущий
// запрос сессии отменяется. deliver вызывается только для последнего запроса;
// устаревшие результаты отбрасываются.
func (p *Pipeline) Submit(ctx context.Context, sess *Session, req Request, deliver func(*Result, error)) uint64 {
	seq, reqCtx := sess.seq.Next(ctx)

	var res *Result
	p.runner.Go(reqCtx, p.task(sess, req, seq, &res), func(err error) {
		defer sess.seq.done(seq)
		out, err := p.finish(sess, req, seq, res, err)
		if errors.Is(err, ErrSuperseded) {
			return
		}
		if deliver != nil {
			deliver(out, err)
		}
	})
	return seq
}

// Wait ждёт завершения всех фоновых запросов.
func (p *Pipeline) Wait() {
	p.runner.Wait()
}

// Dropped возвращает количество отброшенных устаревших результатов.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// finish применяет правило "последний запрос побеждает" и сохраняет настройки.
func (p *Pipeline) finish(sess *Session, req Request, seq uint64, res *Result, err error) (*Result, error) {
	if !sess.seq.IsLatest(seq) {
		p.dropped.Add(1)
		p.logger.Debug("устаревший результат отброшен", "session", sess.ID, "seq", seq)
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	if !sess.commit(seq, res.Settings) {
		p.dropped.Add(1)
		return nil, ErrSuperseded
	}
	if req.OutputDir != "" {
		path := filepath.Join(req.OutputDir, OutputName(sess.Source.Name, res.Settings.Format))
		if err := writeOutput(path, res.Encoded.Data); err != nil {
			p.record(sess, res, err)
			return nil, err
		}
		res.Output = path
	}
	p.record(sess, res, nil)
	return res, nil
}

// task строит задачу для Runner: рекомендация, валидация и кодирование.
func (p *Pipeline) task(sess *Session, req Request, seq uint64, out **Result) worker.Task {
	current, locked := sess.snapshot()
	src := sess.Source

	return worker.Task{
		Cost: worker.EstimateRaster(src.Width, src.Height, current.Width, current.Height),
		Run: func(ctx context.Context) error {
			res := &Result{Seq: seq, Goal: req.Goal}

			target := current
			if req.Goal != "" {
				outcome := advisor.Resolve(ctx, p.advisor, sess.AdvisorRequest(req.Goal), sess.PolicyInput(req.Goal), p.advisorTimeout)
				if outcome.Err != nil {
					p.logger.Info("откат на правила", "session", sess.ID, "reason", outcome.Err)
				}
				res.Outcome = &outcome
				target, res.Corrections = resolveRecommendation(outcome.Recommendation, current, src.Ratio(), locked)
			} else {
				target, res.Corrections = settings.Validate(current, current)
			}
			res.Settings = target

			if err := ctx.Err(); err != nil {
				return err
			}

			encoded, cached, err := p.encode(ctx, sess, target)
			if err != nil {
				if !errors.Is(err, context.Canceled) && sess.seq.IsLatest(seq) {
					p.record(sess, res, err)
				}
				return err
			}
			res.Encoded = encoded
			res.Cached = cached
			res.Summary = NewSummary(src.ByteSize, encoded.ByteSize)
			*out = res
			return nil
		},
	}
}

func (p *Pipeline) encode(ctx context.Context, sess *Session, st settings.Settings) (*encoder.Result, bool, error) {
	key := cache.CacheKey(sess.Source.SHA256, st.ParamsHash())
	if res, ok := p.cache.Get(key); ok {
		return res, true, nil
	}

	if res, ok := p.fromJournal(sess, st); ok {
		p.cache.Put(key, res)
		return res, true, nil
	}

	res, err := p.encoder.Encode(ctx, sess.Source.Raster, st)
	if err != nil {
		return nil, false, err
	}
	p.cache.Put(key, res)
	return res, false, nil
}

// fromJournal возвращает ранее записанный файл с теми же параметрами,
// если он всё ещё лежит на диске без изменений.
func (p *Pipeline) fromJournal(sess *Session, st settings.Settings) (*encoder.Result, bool) {
	if p.journal == nil {
		return nil, false
	}

	e, err := p.journal.FindOK(sess.Source.SHA256, st.ParamsHash())
	if err != nil {
		p.logger.Warn("не удалось прочитать журнал", "error", err)
		return nil, false
	}
	if e == nil || e.DstPath == "" {
		return nil, false
	}

	data, err := os.ReadFile(e.DstPath)
	if err != nil || int64(len(data)) != e.OutSize {
		return nil, false
	}

	p.logger.Debug("результат найден в журнале", "path", e.DstPath)
	return &encoder.Result{
		Data:     data,
		ByteSize: e.OutSize,
		Format:   st.Format,
		Quality:  st.Quality,
		Width:    st.Width,
		Height:   st.Height,
	}, true
}

// record пишет итог в журнал, если он подключён. Ошибки журнала только логируются.
func (p *Pipeline) record(sess *Session, res *Result, encodeErr error) {
	if p.journal == nil || res == nil {
		return
	}

	e := &storage.Entry{
		SessionID:     sess.ID,
		SrcName:       sess.Source.Name,
		SrcMIME:       sess.Source.MIMEType,
		SrcSize:       sess.Source.ByteSize,
		SrcSHA256:     sess.Source.SHA256,
		Goal:          string(res.Goal),
		RecSource:     res.RecSource(),
		OutFormat:     string(res.Settings.Format),
		OutQuality:    res.Settings.Quality,
		OutWidth:      res.Settings.Width,
		OutHeight:     res.Settings.Height,
		OutParams:     res.Settings.Params(),
		OutParamsHash: res.Settings.ParamsHash(),
		DstPath:       res.Output,
		Status:        storage.StatusOK,
		CreatedAt:     time.Now(),
	}
	if res.Encoded != nil {
		e.OutSize = res.Encoded.ByteSize
		e.Duration = res.Encoded.Duration
	}
	if encodeErr != nil {
		e.Status = storage.StatusFailed
		e.Error = encodeErr.Error()
	}

	if err := p.journal.Record(e); err != nil {
		p.logger.Warn("не удалось записать в журнал", "error", err)
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать %s: %w", path, err)
	}
	return nil
}

// Describe возвращает краткое описание результата для вывода.
func (r *Result) Describe() string {
	st := r.Settings
	q := "n/a"
	if st.HasQuality() {
		q = fmt.Sprintf("%d", st.Quality)
	}
	return fmt.Sprintf("%s q=%s %dx%d", st.Format, q, st.Width, st.Height)
}
