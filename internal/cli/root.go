// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artemshloyda/rtconvert/internal/config"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// rootOptions - общее состояние команд: конфигурация и путь к файлу конфигурации.
type rootOptions struct {
	cfg        *config.Config
	configPath string
}

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{cfg: config.DefaultConfig()}
	cfg := opts.cfg

	rootCmd := &cobra.Command{
		Use:   "rtconvert",
		Short: "Конвертер изображений с подбором настроек под цель",
		Long: `rtconvert - конвертер изображений с подбором формата, качества и размеров.

Настройки можно задать вручную или выбрать цель (web, storage, quality):
тогда рекомендацию даёт советник (LLM), а при его недоступности - встроенные правила.
Некорректные значения не отклоняются, а исправляются с пояснением.

Примеры:
  # Уменьшить фото до ширины 960 с сохранением пропорций
  rtconvert convert photo.jpg --width 960

  # Подобрать настройки для веба
  rtconvert convert banner.png --goal web

  # Показать рекомендацию без конвертации
  rtconvert recommend animation.gif --goal storage

  # Пересчитывать результат при каждом сохранении файла
  rtconvert watch draft.png --goal quality`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&opts.configPath, "config", "", "Путь к файлу конфигурации (yaml или toml)")

	// Советник
	flags.StringVar(&cfg.AdvisorBaseURL, "advisor-url", cfg.AdvisorBaseURL, "Адрес OpenAI-совместимого API")
	flags.StringVar(&cfg.AdvisorModel, "advisor-model", cfg.AdvisorModel, "Модель советника")
	flags.DurationVar(&cfg.AdvisorTimeout, "advisor-timeout", cfg.AdvisorTimeout, "Таймаут запроса к советнику")

	// Производительность
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Количество одновременных кодирований")
	flags.IntVar(&cfg.MaxMemoryMB, "max-memory", cfg.MaxMemoryMB, "Лимит памяти в МБ (0 = без ограничения)")
	flags.IntVar(&cfg.CacheMB, "cache-mb", cfg.CacheMB, "Кэш результатов в МБ (0 = выключен)")
	flags.BoolVar(&cfg.UseGPU, "gpu", cfg.UseGPU, "Использовать OpenCL в vips")

	// Пути
	flags.StringVar(&cfg.VipsPath, "vips-path", cfg.VipsPath, "Путь к бинарнику vips")
	flags.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "Путь к SQLite журналу конвертаций")

	// Вывод
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Уровень логов: debug, info, warn, error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Формат логов: console или json")
	flags.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Отключить спиннер")

	rootCmd.AddCommand(newConvertCmd(opts))
	rootCmd.AddCommand(newRecommendCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newFormatsCmd(opts))
	rootCmd.AddCommand(newPolicyCmd())
	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load собирает конфигурацию: значения по умолчанию, затем файл,
// затем переменные окружения, затем явно заданные флаги.
func (o *rootOptions) load(cmd *cobra.Command) error {
	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	*o.cfg = *config.DefaultConfig()

	fc, path, err := config.FindAndLoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if err := fc.ApplyToConfig(o.cfg); err != nil {
		return fmt.Errorf("ошибка конфигурации в %s: %w", path, err)
	}
	o.cfg.ApplyEnv()

	// Флаги привязаны к полям cfg, повторная установка возвращает их значения
	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("флаг --%s: %w", name, err)
		}
	}

	if err := o.cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}
	return nil
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rtconvert %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Интерактивный режим с редактированием настроек в терминале
- Команда export для выгрузки журнала в JSON
*/
