package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage предоставляет методы для работы с журналом конвертаций.
type Storage struct {
	db *sql.DB
}

// New открывает или создаёт журнал и выполняет миграции.
func New(dbPath string) (*Storage, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Storage{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return s, nil
}

// migrate выполняет все SQL-миграции.
func (s *Storage) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Record добавляет запись в журнал. Пустые ID и CreatedAt заполняются.
func (s *Storage) Record(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}

	_, err := s.db.Exec(`
		INSERT INTO conversions (id, session_id, src_name, src_mime, src_size, src_sha256,
		                         goal, rec_source, out_format, out_quality, out_width, out_height,
		                         out_params, out_params_hash, out_size, dst_path, status, error,
		                         duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.SrcName, e.SrcMIME, e.SrcSize, e.SrcSHA256,
		nullString(e.Goal), e.RecSource, e.OutFormat, e.OutQuality, e.OutWidth, e.OutHeight,
		e.OutParams, e.OutParamsHash, e.OutSize, nullString(e.DstPath), e.Status, nullString(e.Error),
		e.Duration.Milliseconds(), e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("не удалось записать конвертацию: %w", err)
	}
	return nil
}

// FindOK ищет последнюю успешную конвертацию того же содержимого с теми же параметрами.
func (s *Storage) FindOK(srcSHA256, paramsHash string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT `+entryColumns+` FROM conversions
		WHERE src_sha256 = ? AND out_params_hash = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		srcSHA256, paramsHash, StatusOK,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось найти конвертацию: %w", err)
	}
	return e, nil
}

// Recent возвращает последние limit записей, новые первыми.
func (s *Storage) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT `+entryColumns+` FROM conversions
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать запись: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetStats возвращает сводную статистику журнала.
func (s *Storage) GetStats() (*Stats, error) {
	st := &Stats{BySource: make(map[string]int64)}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'ok' THEN src_size ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'ok' THEN out_size ELSE 0 END), 0)
		FROM conversions`).Scan(&st.Total, &st.OK, &st.Failed, &st.InputBytes, &st.OutputBytes)
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать статистику: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT out_format, COUNT(*), SUM(src_size), SUM(out_size)
		FROM conversions WHERE status = 'ok'
		GROUP BY out_format ORDER BY COUNT(*) DESC, out_format`)
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать статистику по форматам: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fs FormatStats
		if err := rows.Scan(&fs.Format, &fs.Count, &fs.InputBytes, &fs.OutputBytes); err != nil {
			return nil, fmt.Errorf("не удалось прочитать статистику: %w", err)
		}
		st.ByFormat = append(st.ByFormat, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcRows, err := s.db.Query(`
		SELECT rec_source, COUNT(*) FROM conversions
		WHERE status = 'ok' GROUP BY rec_source`)
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать статистику по источникам: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var src string
		var n int64
		if err := srcRows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("не удалось прочитать статистику: %w", err)
		}
		st.BySource[src] = n
	}
	return st, srcRows.Err()
}

const entryColumns = `id, session_id, src_name, src_mime, src_size, src_sha256, goal, rec_source,
	out_format, out_quality, out_width, out_height, out_params, out_params_hash, out_size,
	dst_path, status, error, duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var goal, dstPath, errMsg sql.NullString
	var durationMS, createdAt int64

	err := row.Scan(&e.ID, &e.SessionID, &e.SrcName, &e.SrcMIME, &e.SrcSize, &e.SrcSHA256,
		&goal, &e.RecSource, &e.OutFormat, &e.OutQuality, &e.OutWidth, &e.OutHeight,
		&e.OutParams, &e.OutParamsHash, &e.OutSize, &dstPath, &e.Status, &errMsg,
		&durationMS, &createdAt)
	if err != nil {
		return nil, err
	}

	e.Goal = goal.String
	e.DstPath = dstPath.String
	e.Error = errMsg.String
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

/*
Возможные расширения:
- Экспорт журнала в JSON
- Очистка записей старше заданного срока
*/
