package storage

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: таблица журнала конвертаций
	`CREATE TABLE IF NOT EXISTS conversions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		src_name TEXT NOT NULL,
		src_mime TEXT NOT NULL,
		src_size INTEGER NOT NULL,
		src_sha256 TEXT NOT NULL,
		goal TEXT,
		rec_source TEXT NOT NULL,
		out_format TEXT NOT NULL,
		out_quality INTEGER NOT NULL,
		out_width INTEGER NOT NULL,
		out_height INTEGER NOT NULL,
		out_params TEXT NOT NULL,
		out_params_hash TEXT NOT NULL,
		out_size INTEGER NOT NULL DEFAULT 0,
		dst_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);`,

	// Миграция 2: поиск прошлых результатов по содержимому и параметрам
	`CREATE INDEX IF NOT EXISTS ix_conversions_src
	ON conversions (src_sha256, out_params_hash);`,

	// Миграция 3: индекс для сортировки по времени
	`CREATE INDEX IF NOT EXISTS ix_conversions_created ON conversions (created_at);`,

	// Миграция 4: таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 5: запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}
