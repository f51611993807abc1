package worker

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// bytesPerPixel - NRGBA растр.
const bytesPerPixel = 4

// EstimateRaster оценивает память на кодирование: исходный растр плюс
// масштабированная копия, плюс буфер результата того же порядка.
func EstimateRaster(srcW, srcH, dstW, dstH int) int64 {
	src := int64(srcW) * int64(srcH) * bytesPerPixel
	dst := int64(dstW) * int64(dstH) * bytesPerPixel
	return src + 2*dst
}

// MemoryLimiter ограничивает использование памяти при кодировании.
type MemoryLimiter struct {
	// maxMemoryBytes - максимальное использование памяти в байтах.
	maxMemoryBytes uint64

	// mu защищает доступ к текущему использованию.
	mu sync.Mutex

	// currentUsage - текущее зарезервированное использование памяти.
	currentUsage uint64

	// enabled - включено ли ограничение.
	enabled bool

	// alloc возвращает текущую память процесса; подменяется в тестах.
	alloc func() uint64

	// retry - пауза между попытками.
	retry time.Duration
}

// NewMemoryLimiter создаёт новый MemoryLimiter.
// maxMemoryMB - ограничение в мегабайтах (0 = без ограничения).
func NewMemoryLimiter(maxMemoryMB int) *MemoryLimiter {
	if maxMemoryMB <= 0 {
		return &MemoryLimiter{enabled: false}
	}

	return &MemoryLimiter{
		maxMemoryBytes: uint64(maxMemoryMB) * 1024 * 1024,
		enabled:        true,
		alloc:          heapAlloc,
		retry:          100 * time.Millisecond,
	}
}

func heapAlloc() uint64 {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return memStats.Alloc
}

// Acquire резервирует estimated байт. Блокирует выполнение, пока не будет
// достаточно памяти. Задача, которая не помещается в лимит, ждёт, пока не
// освободятся все остальные, и затем выполняется одна.
// Возвращает функцию для освобождения памяти.
func (ml *MemoryLimiter) Acquire(ctx context.Context, estimated int64) (release func(), err error) {
	if !ml.enabled || estimated <= 0 {
		return func() {}, nil
	}

	size := uint64(estimated)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ml.mu.Lock()
		fits := ml.currentUsage+size <= ml.maxMemoryBytes && ml.alloc()+size <= ml.maxMemoryBytes
		// Без других резерваций задача допускается всегда: куча процесса
		// уже содержит исходный растр и сама по себе не освободится
		alone := ml.currentUsage == 0
		if fits || alone {
			ml.currentUsage += size
			ml.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					ml.mu.Lock()
					ml.currentUsage -= size
					ml.mu.Unlock()
				})
			}, nil
		}
		ml.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ml.retry):
			runtime.GC()
		}
	}
}

// IsEnabled возвращает true если ограничение включено.
func (ml *MemoryLimiter) IsEnabled() bool {
	return ml.enabled
}

// CurrentUsage возвращает текущее зарезервированное использование памяти.
func (ml *MemoryLimiter) CurrentUsage() uint64 {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.currentUsage
}

// MaxMemory возвращает максимальное ограничение памяти.
func (ml *MemoryLimiter) MaxMemory() uint64 {
	return ml.maxMemoryBytes
}
