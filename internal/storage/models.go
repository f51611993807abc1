// Package storage содержит журнал конвертаций в SQLite.
package storage

import "time"

// Status определяет итог конвертации.
type Status string

const (
	// StatusOK - конвертация успешна.
	StatusOK Status = "ok"
	// StatusFailed - конвертация завершилась ошибкой.
	StatusFailed Status = "failed"
)

// Entry - одна запись журнала.
type Entry struct {
	// ID - uuid записи.
	ID string

	// SessionID - uuid сессии, в которой выполнена конвертация.
	SessionID string

	// SrcName - имя исходного файла.
	SrcName string

	// SrcMIME - MIME-тип источника.
	SrcMIME string

	// SrcSize - размер исходного файла в байтах.
	SrcSize int64

	// SrcSHA256 - sha256 хэш содержимого источника.
	SrcSHA256 string

	// Goal - цель оптимизации (пусто, если параметры заданы вручную).
	Goal string

	// RecSource - источник рекомендации: advisor, policy или manual.
	RecSource string

	// OutFormat - выходной формат.
	OutFormat string

	// OutQuality - качество (0, если не применимо).
	OutQuality int

	// OutWidth и OutHeight - размеры результата.
	OutWidth  int
	OutHeight int

	// OutParams - JSON с параметрами выхода.
	OutParams string

	// OutParamsHash - sha256 хэш параметров выхода.
	OutParamsHash string

	// OutSize - размер результата в байтах.
	OutSize int64

	// DstPath - путь к выходному файлу (может быть пустым).
	DstPath string

	// Status - итог.
	Status Status

	// Error - сообщение об ошибке (если есть).
	Error string

	// Duration - время кодирования.
	Duration time.Duration

	// CreatedAt - время записи.
	CreatedAt time.Time
}

// SavedBytes возвращает количество сэкономленных байт.
func (e *Entry) SavedBytes() int64 {
	return e.SrcSize - e.OutSize
}

// FormatStats - агрегаты по одному выходному формату.
type FormatStats struct {
	Format      string
	Count       int64
	InputBytes  int64
	OutputBytes int64
}

// Stats содержит сводную статистику журнала.
type Stats struct {
	Total       int64
	OK          int64
	Failed      int64
	InputBytes  int64
	OutputBytes int64

	// BySource - количество успешных конвертаций по источнику рекомендации.
	BySource map[string]int64

	// ByFormat - агрегаты успешных конвертаций по формату.
	ByFormat []FormatStats
}

// SavedBytes возвращает количество сэкономленных байт.
func (s *Stats) SavedBytes() int64 {
	return s.InputBytes - s.OutputBytes
}

// SavedPercent возвращает процент экономии.
func (s *Stats) SavedPercent() float64 {
	if s.InputBytes == 0 {
		return 0
	}
	return float64(s.SavedBytes()) / float64(s.InputBytes) * 100
}
