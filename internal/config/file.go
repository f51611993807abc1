package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML или TOML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Advisor - настройки советника.
	Advisor *AdvisorConfig `yaml:"advisor,omitempty" toml:"advisor,omitempty"`

	// Output - настройки выходных данных.
	Output *OutputConfig `yaml:"output,omitempty" toml:"output,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty" toml:"processing,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty" toml:"paths,omitempty"`

	// Logging - настройки логов.
	Logging *LoggingConfig `yaml:"logging,omitempty" toml:"logging,omitempty"`
}

// AdvisorConfig содержит настройки советника.
type AdvisorConfig struct {
	// APIKey - ключ API. Лучше задавать через RTCONVERT_ADVISOR_API_KEY.
	APIKey string `yaml:"api_key,omitempty" toml:"api_key,omitempty"`

	// BaseURL - адрес OpenAI-совместимого API.
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url,omitempty"`

	// Model - имя модели.
	Model string `yaml:"model,omitempty" toml:"model,omitempty"`

	// Timeout - таймаут запроса, например "10s".
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// OutputConfig содержит настройки выходных данных.
type OutputConfig struct {
	// Dir - директория для сохранения результатов.
	Dir string `yaml:"dir,omitempty" toml:"dir,omitempty"`

	// Goal - цель по умолчанию (web, storage, quality).
	Goal string `yaml:"goal,omitempty" toml:"goal,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	// Workers - количество одновременных кодирований.
	Workers int `yaml:"workers,omitempty" toml:"workers,omitempty"`

	// MaxMemoryMB - лимит памяти в мегабайтах.
	MaxMemoryMB int `yaml:"max_memory_mb,omitempty" toml:"max_memory_mb,omitempty"`

	// CacheMB - размер кэша в мегабайтах.
	CacheMB *int `yaml:"cache_mb,omitempty" toml:"cache_mb,omitempty"`

	// GPU - использовать OpenCL в vips.
	GPU bool `yaml:"gpu,omitempty" toml:"gpu,omitempty"`

	// NoProgress - отключить спиннер.
	NoProgress bool `yaml:"no_progress,omitempty" toml:"no_progress,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// Journal - путь к SQLite журналу.
	Journal string `yaml:"journal,omitempty" toml:"journal,omitempty"`

	// VipsPath - путь к бинарнику vips.
	VipsPath string `yaml:"vips_path,omitempty" toml:"vips_path,omitempty"`
}

// LoggingConfig содержит настройки логов.
type LoggingConfig struct {
	// Level - уровень (debug, info, warn, error).
	Level string `yaml:"level,omitempty" toml:"level,omitempty"`

	// Format - формат (console, json).
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./rtconvert.yaml, ./rtconvert.yml, ./rtconvert.toml (текущая директория)
// 2. ~/.config/rtconvert/config.yaml, config.yml, config.toml
func DefaultConfigPaths() []string {
	paths := []string{
		"rtconvert.yaml",
		"rtconvert.yml",
		"rtconvert.toml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "rtconvert")
		paths = append(paths,
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.yml"),
			filepath.Join(dir, "config.toml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Формат определяется по расширению: .toml - TOML, иначе YAML.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if isTOML(path) {
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("ошибка парсинга TOML в %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
		}
	}

	return &fc, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, "", nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет над файлом конфигурации, поэтому
// эта функция должна вызываться до применения CLI флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) error {
	if fc == nil {
		return nil
	}

	if fc.Advisor != nil {
		if fc.Advisor.APIKey != "" {
			cfg.AdvisorAPIKey = fc.Advisor.APIKey
		}
		if fc.Advisor.BaseURL != "" {
			cfg.AdvisorBaseURL = fc.Advisor.BaseURL
		}
		if fc.Advisor.Model != "" {
			cfg.AdvisorModel = fc.Advisor.Model
		}
		if fc.Advisor.Timeout != "" {
			d, err := time.ParseDuration(fc.Advisor.Timeout)
			if err != nil {
				return fmt.Errorf("некорректный advisor.timeout %q: %w", fc.Advisor.Timeout, err)
			}
			cfg.AdvisorTimeout = d
		}
	}

	if fc.Output != nil {
		if fc.Output.Dir != "" {
			cfg.OutputDir = fc.Output.Dir
		}
		if fc.Output.Goal != "" {
			cfg.Goal = fc.Output.Goal
		}
	}

	if fc.Processing != nil {
		if fc.Processing.Workers > 0 {
			cfg.Workers = fc.Processing.Workers
		}
		if fc.Processing.MaxMemoryMB > 0 {
			cfg.MaxMemoryMB = fc.Processing.MaxMemoryMB
		}
		if fc.Processing.CacheMB != nil {
			cfg.CacheMB = *fc.Processing.CacheMB
		}
		if fc.Processing.GPU {
			cfg.UseGPU = true
		}
		if fc.Processing.NoProgress {
			cfg.NoProgress = true
		}
	}

	if fc.Paths != nil {
		if fc.Paths.Journal != "" {
			cfg.JournalPath = fc.Paths.Journal
		}
		if fc.Paths.VipsPath != "" {
			cfg.VipsPath = fc.Paths.VipsPath
		}
	}

	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.LogLevel = fc.Logging.Level
		}
		if fc.Logging.Format != "" {
			cfg.LogFormat = fc.Logging.Format
		}
	}

	return nil
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
// format - "yaml" или "toml".
func GenerateExampleConfig(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		return exampleYAML, nil
	case "toml":
		return exampleTOML, nil
	}
	return "", fmt.Errorf("неизвестный формат конфигурации: %s (доступны: yaml, toml)", format)
}

const exampleYAML = `# rtconvert Configuration File
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

advisor:
  # Ключ API (лучше через RTCONVERT_ADVISOR_API_KEY)
  api_key: ""
  # Адрес OpenAI-совместимого API (пусто = api.openai.com)
  base_url: ""
  # Модель
  model: gpt-4o-mini
  # Таймаут запроса
  timeout: 10s

output:
  # Директория для результатов (пусто = рядом с исходным файлом)
  dir: ""
  # Цель по умолчанию: web, storage, quality (пусто = ручные настройки)
  goal: web

processing:
  # Одновременные кодирования
  workers: 2
  # Лимит памяти в МБ (0 = без ограничения)
  max_memory_mb: 0
  # Кэш результатов в МБ (0 = выключен)
  cache_mb: 64
  # OpenCL в vips
  gpu: false
  # Отключить спиннер
  no_progress: false

paths:
  # Журнал конвертаций (пусто = не вести)
  journal: ""
  # Путь к бинарнику vips (по умолчанию автопоиск)
  vips_path: ""

logging:
  # debug, info, warn, error
  level: warn
  # console или json
  format: console
`

const exampleTOML = `# rtconvert Configuration File
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

[advisor]
# Ключ API (лучше через RTCONVERT_ADVISOR_API_KEY)
api_key = ""
base_url = ""
model = "gpt-4o-mini"
timeout = "10s"

[output]
dir = ""
# web, storage, quality (пусто = ручные настройки)
goal = "web"

[processing]
workers = 2
max_memory_mb = 0
cache_mb = 64
gpu = false
no_progress = false

[paths]
journal = ""
vips_path = ""

[logging]
level = "warn"
format = "console"
`

/*
Возможные расширения:
- Добавить валидацию неизвестных ключей в файле конфигурации
- Добавить поддержку переменных окружения в значениях
*/
