// Package watcher следит за исходным файлом и сообщает о его изменениях.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change - файл изменён и готов к повторной загрузке.
type Change struct {
	// Path - путь к файлу.
	Path string

	// Size - размер файла после изменения.
	Size int64

	// ModTime - время изменения.
	ModTime time.Time
}

// Watcher следит за одним файлом. Наблюдение идёт за директорией файла,
// потому что редакторы часто сохраняют через запись во временный файл и rename.
type Watcher struct {
	// path - абсолютный путь к файлу.
	path string

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время ожидания перед отправкой изменения.
	// Нужно для того, чтобы файл успел полностью записаться.
	debounceTime time.Duration

	// pending - время последнего события (ноль - событий нет).
	pending time.Time
	mu      sync.Mutex

	logger *slog.Logger
}

// New создаёт Watcher для файла path.
func New(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить путь %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s - директория, ожидается файл", path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		path:         abs,
		watcher:      w,
		debounceTime: 300 * time.Millisecond,
		logger:       logger,
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// Path возвращает абсолютный путь к файлу.
func (w *Watcher) Path() string {
	return w.path
}

// Watch запускает слежение и возвращает канал изменений.
// Канал закрывается при отмене ctx.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return nil, fmt.Errorf("не удалось добавить директорию %s: %w", filepath.Dir(w.path), err)
	}

	changes := make(chan Change, 1)

	go w.processEvents(ctx)
	go w.processPending(ctx, changes)

	return changes, nil
}

// processEvents обрабатывает события от fsnotify.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			// Удаление без последующего создания игнорируется: ждём новый файл
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("ошибка watcher", "error", err)
		}
	}
}

// processPending отправляет изменение после debounce.
func (w *Watcher) processPending(ctx context.Context, changes chan<- Change) {
	defer close(changes)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			change, ok := w.checkPending()
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

// checkPending возвращает изменение, если debounce истёк и файл существует.
func (w *Watcher) checkPending() (Change, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending.IsZero() || time.Since(w.pending) < w.debounceTime {
		return Change{}, false
	}
	w.pending = time.Time{}

	info, err := os.Stat(w.path)
	if err != nil || info.IsDir() {
		return Change{}, false
	}

	return Change{Path: w.path, Size: info.Size(), ModTime: info.ModTime()}, true
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Следить за несколькими файлами одной сессии
- Сравнивать хэш содержимого, чтобы пропускать touch без изменений
*/
