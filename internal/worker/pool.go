// Package worker выполняет кодирование вне вызывающей горутины.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Stats содержит статистику выполнения задач.
type Stats struct {
	// Processed - количество успешно выполненных задач.
	Processed int64

	// Failed - количество задач с ошибками.
	Failed int64

	// Cancelled - количество отменённых задач.
	Cancelled int64
}

// Task - задача для Runner.
type Task struct {
	// Cost - оценка памяти в байтах для MemoryLimiter (0 = не учитывать).
	Cost int64

	// Run выполняет работу. ctx отменяется при отмене задачи.
	Run func(ctx context.Context) error
}

// Runner выполняет задачи в фоне с ограничением параллельности и памяти.
type Runner struct {
	slots         chan struct{}
	memoryLimiter *MemoryLimiter
	wg            sync.WaitGroup
	stats         Stats
}

// NewRunner создаёт Runner.
// workers - максимум одновременных задач (минимум 1), maxMemoryMB - лимит памяти (0 = без лимита).
func NewRunner(workers, maxMemoryMB int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		slots:         make(chan struct{}, workers),
		memoryLimiter: NewMemoryLimiter(maxMemoryMB),
	}
}

// Go запускает задачу в отдельной горутине и сразу возвращает управление.
// done вызывается ровно один раз с результатом задачи (может быть nil).
func (r *Runner) Go(ctx context.Context, task Task, done func(error)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.run(ctx, task)
		r.account(err)
		if done != nil {
			done(err)
		}
	}()
}

// Do выполняет задачу синхронно с теми же ограничениями.
func (r *Runner) Do(ctx context.Context, task Task) error {
	err := r.run(ctx, task)
	r.account(err)
	return err
}

func (r *Runner) run(ctx context.Context, task Task) error {
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.slots }()

	release, err := r.memoryLimiter.Acquire(ctx, task.Cost)
	if err != nil {
		return err
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}
	return task.Run(ctx)
}

func (r *Runner) account(err error) {
	switch {
	case err == nil:
		atomic.AddInt64(&r.stats.Processed, 1)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		atomic.AddInt64(&r.stats.Cancelled, 1)
	default:
		atomic.AddInt64(&r.stats.Failed, 1)
	}
}

// Wait ждёт завершения всех задач, запущенных через Go.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// MemoryLimiter возвращает ограничитель памяти.
func (r *Runner) MemoryLimiter() *MemoryLimiter {
	return r.memoryLimiter
}

// GetStats возвращает текущую статистику.
func (r *Runner) GetStats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&r.stats.Processed),
		Failed:    atomic.LoadInt64(&r.stats.Failed),
		Cancelled: atomic.LoadInt64(&r.stats.Cancelled),
	}
}

/*
Возможные расширения:
- Приоритет для задач превью перед полным кодированием
- Метрики времени ожидания слота
*/
