// Package vipsfinder отвечает за поиск бинарника vips в системе.
package vipsfinder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/artemshloyda/rtconvert/internal/format"
)

// EnvVar - переменная окружения с путём к vips.
const EnvVar = "RTCONVERT_VIPS"

// VipsInfo содержит информацию о найденном vips.
type VipsInfo struct {
	// Path - абсолютный путь к бинарнику vips.
	Path string

	// Version - версия vips (например, "8.14.2").
	Version string
}

// Finder ищет бинарник vips.
type Finder struct {
	// CustomPath - пользовательский путь к vips (из конфига или флага --vips-path).
	CustomPath string

	// EnvVar - имя переменной окружения для пути к vips.
	EnvVar string

	// lookPath и run подменяются в тестах.
	lookPath func(string) (string, error)
	run      func(path string, args ...string) ([]byte, error)
}

// NewFinder создаёт новый Finder.
func NewFinder(customPath string) *Finder {
	return &Finder{
		CustomPath: customPath,
		EnvVar:     EnvVar,
		lookPath:   exec.LookPath,
		run:        runCommand,
	}
}

func runCommand(path string, args ...string) ([]byte, error) {
	return exec.Command(path, args...).Output()
}

// Find ищет vips в следующем порядке:
// 1. CustomPath (если задан)
// 2. Переменная окружения RTCONVERT_VIPS
// 3. PATH
// 4. Рядом с исполняемым файлом в ./bin/<os-arch>/vips
func (f *Finder) Find() (*VipsInfo, error) {
	var candidates []string

	if f.CustomPath != "" {
		candidates = append(candidates, f.CustomPath)
	}

	if envPath := os.Getenv(f.EnvVar); envPath != "" {
		candidates = append(candidates, envPath)
	}

	if pathVips, err := f.lookPath("vips"); err == nil {
		candidates = append(candidates, pathVips)
	}

	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		platformDir := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)

		candidates = append(candidates,
			filepath.Join(execDir, "bin", platformDir, vipsBinaryName()),
			filepath.Join(execDir, "bin", vipsBinaryName()),
			filepath.Join(execDir, vipsBinaryName()),
		)
	}

	for _, path := range candidates {
		if info, err := f.checkVips(path); err == nil {
			return info, nil
		}
	}

	return nil, fmt.Errorf("vips не найден. Проверьте:\n"+
		"  1. Установлен ли vips в системе (apt install libvips-tools / brew install vips)\n"+
		"  2. Установлена ли переменная окружения %s\n"+
		"  3. Указан ли путь через флаг --vips-path\n"+
		"  4. Находится ли vips рядом с утилитой в ./bin/<os-arch>/", f.EnvVar)
}

// checkVips проверяет, является ли путь рабочим vips.
func (f *Finder) checkVips(path string) (*VipsInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("файл не найден: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}

	output, err := f.run(absPath, "--version")
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить vips --version: %w", err)
	}

	return &VipsInfo{
		Path:    absPath,
		Version: parseVersion(string(output)),
	}, nil
}

// parseVersion извлекает версию из вывода "vips --version".
// Пример вывода: "vips-8.14.2"
func parseVersion(output string) string {
	output = strings.TrimSpace(output)

	if strings.HasPrefix(output, "vips-") {
		return strings.TrimPrefix(output, "vips-")
	}
	if strings.HasPrefix(output, "vips ") {
		return strings.TrimPrefix(output, "vips ")
	}

	return output
}

// vipsBinaryName возвращает имя бинарника vips для текущей ОС.
func vipsBinaryName() string {
	if runtime.GOOS == "windows" {
		return "vips.exe"
	}
	return "vips"
}

// saverFormats - классы сохранения vips и соответствующие выходные форматы.
var saverFormats = map[string]format.Format{
	"VipsForeignSaveJpeg": format.JPEG,
	"VipsForeignSavePng":  format.PNG,
	"VipsForeignSaveSpng": format.PNG,
	"VipsForeignSaveWebp": format.WEBP,
	"VipsForeignSaveGif":  format.GIF,
	"VipsForeignSaveCgif": format.GIF,
}

// fallbackFormats - форматы, которые есть практически в любой сборке vips.
var fallbackFormats = []format.Format{format.JPEG, format.PNG, format.WEBP}

// SupportedFormats возвращает выходные форматы, которые умеет сохранять vips.
// BMP vips не сохраняет, его кодирует нативный кодек.
func (v *VipsInfo) SupportedFormats() []format.Format {
	return v.supportedFormats(runCommand)
}

func (v *VipsInfo) supportedFormats(run func(string, ...string) ([]byte, error)) []format.Format {
	output, err := run(v.Path, "list", "classes")
	if err != nil {
		return fallbackFormats
	}

	found := ParseSaverClasses(string(output))
	if len(found) == 0 {
		return fallbackFormats
	}
	return found
}

// ParseSaverClasses извлекает выходные форматы из вывода "vips list classes".
// Строки вида "    VipsForeignSaveWebpFile (webpsave), save image ...".
func ParseSaverClasses(output string) []format.Format {
	seen := make(map[format.Format]bool)
	var formats []format.Format

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "VipsForeignSave") {
			continue
		}
		class := line
		if i := strings.IndexAny(class, " ("); i >= 0 {
			class = class[:i]
		}
		for _, suffix := range []string{"File", "Buffer", "Target"} {
			class = strings.TrimSuffix(class, suffix)
		}
		f, ok := saverFormats[class]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}

	return formats
}

/*
Возможные расширения:
- Кэширование результата поиска
- Проверка минимальной версии vips
*/
