// Package cache хранит результаты кодирования в памяти, чтобы повторный
// запрос с теми же параметрами не кодировал изображение заново.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/artemshloyda/rtconvert/internal/encoder"
)

// Cache - LRU кэш результатов кодирования с ограничением по байтам.
type Cache struct {
	// maxBytes - максимальный суммарный размер данных (0 = кэш выключен).
	maxBytes int64

	mu      sync.Mutex
	size    int64
	order   *list.List
	entries map[string]*list.Element

	hits   int64
	misses int64
}

type entry struct {
	key    string
	result encoder.Result
}

// New создаёт кэш. maxBytes <= 0 выключает кэш.
func New(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// IsEnabled возвращает true если кэш включён.
func (c *Cache) IsEnabled() bool {
	return c != nil && c.maxBytes > 0
}

// CacheKey генерирует ключ кэша на основе хэша источника и параметров кодирования.
func CacheKey(sourceSHA256, paramsHash string) string {
	h := sha256.New()
	h.Write([]byte(sourceSHA256))
	h.Write([]byte(paramsHash))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Get возвращает копию результата, если он есть в кэше.
func (c *Cache) Get(key string) (*encoder.Result, bool) {
	if !c.IsEnabled() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return clone(&el.Value.(*entry).result), true
}

// Put сохраняет копию результата. Результат больше лимита не сохраняется.
func (c *Cache) Put(key string, res *encoder.Result) {
	if !c.IsEnabled() || res == nil || res.ByteSize > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.size -= el.Value.(*entry).result.ByteSize
		c.order.Remove(el)
		delete(c.entries, key)
	}

	el := c.order.PushFront(&entry{key: key, result: *clone(res)})
	c.entries[key] = el
	c.size += res.ByteSize

	for c.size > c.maxBytes {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		e := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.entries, e.key)
		c.size -= e.result.ByteSize
	}
}

// Clear очищает кэш.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.size = 0
}

// Size возвращает общий размер данных в кэше в байтах.
func (c *Cache) Size() int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len возвращает количество записей.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats возвращает количество попаданий и промахов.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func clone(r *encoder.Result) *encoder.Result {
	out := *r
	out.Data = append([]byte(nil), r.Data...)
	return &out
}

/*
Возможные расширения:
- TTL для записей кэша
- Дисковый кэш для режима watch между запусками
*/
