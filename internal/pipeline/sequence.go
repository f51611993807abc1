package pipeline

import (
	"context"
	"sync"
)

// Sequencer выдаёт монотонно растущие номера запросов сессии.
// Новый номер отменяет контекст предыдущего запроса; результат считается
// актуальным, только если его номер последний.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

// Next выдаёт новый номер и контекст запроса, отменяя предыдущий.
func (q *Sequencer) Next(parent context.Context) (uint64, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.latest++
	q.cancel = cancel
	return q.latest, ctx
}

// IsLatest сообщает, является ли seq последним выданным номером.
func (q *Sequencer) IsLatest(seq uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return seq == q.latest
}

// Latest возвращает последний выданный номер.
func (q *Sequencer) Latest() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.latest
}

// done освобождает контекст запроса seq, если он всё ещё последний.
func (q *Sequencer) done(seq uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if seq == q.latest && q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

// Stop отменяет текущий запрос и делает его результат устаревшим, даже если
// кодирование уже завершилось.
func (q *Sequencer) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.latest++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}
