// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/artemshloyda/rtconvert/internal/logging"
	"github.com/artemshloyda/rtconvert/internal/policy"
)

// EnvAdvisorAPIKey - переменная окружения с ключом API советника.
const EnvAdvisorAPIKey = "RTCONVERT_ADVISOR_API_KEY"

// Config содержит все настройки приложения.
type Config struct {
	// AdvisorAPIKey - ключ API советника. Пустой ключ - советник отключён.
	AdvisorAPIKey string

	// AdvisorBaseURL - адрес OpenAI-совместимого API (пусто = по умолчанию).
	AdvisorBaseURL string

	// AdvisorModel - имя модели.
	AdvisorModel string

	// AdvisorTimeout - ограничение времени на один запрос к советнику.
	AdvisorTimeout time.Duration

	// Goal - цель оптимизации по умолчанию (пусто = ручные настройки).
	Goal string

	// OutputDir - директория для результатов (пусто = рядом с исходным файлом).
	OutputDir string

	// VipsPath - путь к vips бинарнику (опционально).
	VipsPath string

	// UseGPU - использовать GPU ускорение (OpenCL) в vips.
	UseGPU bool

	// Workers - количество одновременных кодирований.
	Workers int

	// MaxMemoryMB - ограничение использования памяти в мегабайтах (0 = без ограничения).
	MaxMemoryMB int

	// CacheMB - размер кэша закодированных результатов в мегабайтах (0 = без кэша).
	CacheMB int

	// JournalPath - путь к SQLite журналу конвертаций (пусто = журнал не ведётся).
	JournalPath string

	// LogLevel - уровень логирования (debug, info, warn, error).
	LogLevel string

	// LogFormat - формат логов (console, json).
	LogFormat string

	// NoProgress - отключить спиннер.
	NoProgress bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		AdvisorModel:   "gpt-4o-mini",
		AdvisorTimeout: 10 * time.Second,
		Workers:        max(runtime.NumCPU()/2, 1),
		CacheMB:        64,
		LogLevel:       "warn",
		LogFormat:      "console",
	}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("количество воркеров должно быть >= 1, получено: %d", c.Workers)
	}
	if c.MaxMemoryMB < 0 {
		return fmt.Errorf("лимит памяти не может быть отрицательным: %d", c.MaxMemoryMB)
	}
	if c.CacheMB < 0 {
		return fmt.Errorf("размер кэша не может быть отрицательным: %d", c.CacheMB)
	}
	if c.AdvisorTimeout <= 0 {
		return fmt.Errorf("таймаут советника должен быть положительным, получено: %s", c.AdvisorTimeout)
	}
	if c.Goal != "" {
		if _, err := policy.ParseGoal(c.Goal); err != nil {
			return err
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("неизвестный формат логов: %s (доступны: console, json)", c.LogFormat)
	}
	return nil
}

// ApplyEnv подставляет значения из переменных окружения, если они не заданы.
func (c *Config) ApplyEnv() {
	if c.AdvisorAPIKey == "" {
		c.AdvisorAPIKey = os.Getenv(EnvAdvisorAPIKey)
	}
}

// AdvisorEnabled сообщает, настроен ли советник.
func (c *Config) AdvisorEnabled() bool {
	return c.AdvisorAPIKey != ""
}

// CacheBytes возвращает размер кэша в байтах.
func (c *Config) CacheBytes() int64 {
	return int64(c.CacheMB) * 1024 * 1024
}

/*
Возможные расширения:
- Поддержка нескольких профилей советника
- Переменные окружения для всех полей
*/
