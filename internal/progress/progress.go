// Package progress показывает индикатор ожидания советника и счётчики режима наблюдения.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Bar - спиннер с текстовым описанием и счётчиками результатов.
// Длительность операций заранее неизвестна, поэтому вместо шкалы крутится спиннер.
type Bar struct {
	// bar - внутренний progressbar (nil, если отключён).
	bar *progressbar.ProgressBar

	// mu защищает счётчики и bar.
	mu sync.Mutex

	disabled bool

	// converted - успешно выполненные запросы.
	converted int64

	// failed - запросы с ошибками.
	failed int64

	// dropped - устаревшие результаты, которые не были показаны.
	dropped int64

	startTime time.Time

	// writer - куда выводить (по умолчанию os.Stderr).
	writer io.Writer
}

// Options содержит настройки индикатора.
type Options struct {
	// Description - описание задачи.
	Description string

	// Disabled - отключить спиннер (только текстовый вывод).
	Disabled bool

	// Writer - куда выводить (по умолчанию os.Stderr).
	Writer io.Writer
}

// Interactive сообщает, является ли w терминалом.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New создаёт индикатор. Если writer не терминал, спиннер отключается.
func New(opts Options) *Bar {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	b := &Bar{
		disabled:  opts.Disabled,
		startTime: time.Now(),
		writer:    writer,
	}

	if !opts.Disabled {
		description := opts.Description
		if description == "" {
			description = "Обработка"
		}

		b.bar = progressbar.NewOptions64(
			-1,
			progressbar.OptionSetWriter(writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionSetDescription(description),
			progressbar.OptionClearOnFinish(),
		)
	}

	return b
}

// Start отрисовывает спиннер.
func (b *Bar) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.RenderBlank()
	}
}

// Describe меняет описание.
func (b *Bar) Describe(description string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Describe(description)
	}
}

// Increment увеличивает счётчик успешных запросов.
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.converted++
}

// IncrementFailed увеличивает счётчик ошибок.
func (b *Bar) IncrementFailed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed++
}

// IncrementDropped увеличивает счётчик отброшенных результатов.
func (b *Bar) IncrementDropped() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped++
}

// Finish останавливает спиннер и стирает его строку.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Stats возвращает текущую статистику.
func (b *Bar) Stats() (converted, failed, dropped int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.converted, b.failed, b.dropped
}

// Duration возвращает время с момента создания.
func (b *Bar) Duration() time.Duration {
	return time.Since(b.startTime)
}

// IsDisabled возвращает true, если спиннер отключён.
func (b *Bar) IsDisabled() bool {
	return b.disabled
}

// WriteMessage выводит сообщение, временно скрывая спиннер.
func (b *Bar) WriteMessage(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Clear()
	}

	fmt.Fprintf(b.writer, format, args...)

	if b.bar != nil && !b.bar.IsFinished() {
		_ = b.bar.RenderBlank()
	}
}

// Spin показывает спиннер с описанием, пока выполняется fn.
// Вне терминала спиннер не рисуется.
func Spin(w io.Writer, description string, fn func() error) error {
	b := New(Options{Description: description, Writer: w, Disabled: !Interactive(w)})
	b.Start()
	defer b.Finish()
	return fn()
}

/*
Возможные расширения:
- Показывать номер текущего запроса рядом со спиннером
- Выводить счётчики в заголовок окна терминала
*/
