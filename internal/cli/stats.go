package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/rtconvert/internal/config"
	"github.com/artemshloyda/rtconvert/internal/storage"
)

// newStatsCmd создаёт команду stats.
func newStatsCmd(opts *rootOptions) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику из журнала конвертаций",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if opts.cfg.JournalPath == "" {
				return errors.New("журнал не настроен: укажите путь через --journal")
			}

			store, err := storage.New(opts.cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("не удалось открыть журнал: %w", err)
			}
			defer func() { _ = store.Close() }()

			st, err := store.GetStats()
			if err != nil {
				return fmt.Errorf("не удалось получить статистику: %w", err)
			}

			fmt.Fprintf(out, "📊 Статистика журнала:\n")
			fmt.Fprintf(out, "   Всего записей: %d\n", st.Total)
			fmt.Fprintf(out, "   Успешно: %d\n", st.OK)
			fmt.Fprintf(out, "   Ошибок: %d\n", st.Failed)
			fmt.Fprintf(out, "   Сэкономлено: %s (%.1f%%)\n", signedBytes(st.SavedBytes()), st.SavedPercent())
			for _, src := range []string{"advisor", "policy", "manual"} {
				if n := st.BySource[src]; n > 0 {
					fmt.Fprintf(out, "   Источник %s: %d\n", src, n)
				}
			}

			if len(st.ByFormat) > 0 {
				spec := tableSpec{
					headers: []string{"Формат", "Файлов", "Исходно", "Результат"},
					aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				}
				var count, in, outBytes int64
				for _, fs := range st.ByFormat {
					spec.rows = append(spec.rows, []string{
						fs.Format,
						strconv.FormatInt(fs.Count, 10),
						humanize.Bytes(uint64(max(fs.InputBytes, 0))),
						humanize.Bytes(uint64(max(fs.OutputBytes, 0))),
					})
					count += fs.Count
					in += fs.InputBytes
					outBytes += fs.OutputBytes
				}
				spec.footer = []string{
					"Итого",
					strconv.FormatInt(count, 10),
					humanize.Bytes(uint64(max(in, 0))),
					humanize.Bytes(uint64(max(outBytes, 0))),
				}
				fmt.Fprintln(out, spec.render())
			}

			if recent <= 0 {
				return nil
			}

			entries, err := store.Recent(recent)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := "✅"
				if e.Status != storage.StatusOK {
					status = "❌"
				}
				rows = append(rows, []string{
					humanize.Time(e.CreatedAt),
					e.SrcName,
					e.RecSource,
					fmt.Sprintf("%s %dx%d", e.OutFormat, e.OutWidth, e.OutHeight),
					humanize.Bytes(uint64(max(e.OutSize, 0))),
					status,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Когда", "Файл", "Источник", "Результат", "Размер", ""}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignCenter}))
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 10, "Показать последние N записей (0 = не показывать)")

	return cmd
}

func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// newConfigCmd создаёт команду config.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с файлом конфигурации",
	}

	var (
		formatFlag string
		outPath    string
		force      bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Создать пример файла конфигурации",
		Long: `Выводит пример файла конфигурации или записывает его в --out.

Файл ищется в ./rtconvert.{yaml,yml,toml} и ~/.config/rtconvert/config.{yaml,yml,toml}.`,
		// Конфигурация не загружается: файл может быть ещё не создан или некорректен
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := config.GenerateExampleConfig(formatFlag)
			if err != nil {
				return err
			}

			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}

			if _, err := os.Stat(outPath); err == nil && !force {
				return fmt.Errorf("файл %s уже существует (используйте --force)", outPath)
			}
			if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
				return fmt.Errorf("не удалось записать %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📝 Создан %s\n", outPath)
			return nil
		},
	}
	initCmd.Flags().StringVar(&formatFlag, "format", "yaml", "Формат файла: yaml или toml")
	initCmd.Flags().StringVar(&outPath, "out", "", "Куда записать файл (по умолчанию stdout)")
	initCmd.Flags().BoolVar(&force, "force", false, "Перезаписать существующий файл")

	cmd.AddCommand(initCmd)
	return cmd
}
