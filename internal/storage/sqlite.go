package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"codebase-consultant/internal/config"
	"codebase-consultant/internal/domain"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	_ "modernc.org/sqlite" // Pure Go driver, CGO-free, compatible with CGO_ENABLED=0
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS consultations (
        id          TEXT PRIMARY KEY,
        tool        TEXT NOT NULL,
        directory   TEXT NOT NULL,
        detail      TEXT NOT NULL,
        created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
        duration_ms INTEGER,
        status      TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_consultations_tool ON consultations(tool);
    CREATE INDEX IF NOT EXISTS idx_consultations_created ON consultations(created_at);
    `
	_, err := db.Exec(schema)
	return err
}

func (r *SQLiteRepository) SaveConsultation(ctx context.Context, record *domain.Consultation) error {
	detail, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal consultation: %w", err)
	}

	trimmed := trimDetail(string(detail), config.MaxStoredField)

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO consultations (id, tool, directory, detail, duration_ms, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, record.ID, record.Tool, record.Directory, trimmed, record.DurationMs, record.Status, record.CreatedAt)
	return err
}

func (r *SQLiteRepository) GetConsultation(ctx context.Context, id string) (*domain.Consultation, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, detail, created_at, duration_ms, status
        FROM consultations WHERE id = ?
    `, id)
	return scanConsultation(row)
}

func (r *SQLiteRepository) ListRecentConsultations(ctx context.Context, limit int) ([]*domain.Consultation, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, detail, created_at, duration_ms, status
        FROM consultations
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Consultation
	for rows.Next() {
		record, err := scanConsultation(rows)
		if err != nil {
			slog.Warn("scan consultation failed", "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// trimDetail caps the free-text fields in the persisted JSON so one verbose
// consultation cannot bloat the database. Deliverables routinely run tens of
// kilobytes.
func trimDetail(detail string, maxLen int) string {
	for _, field := range []string{"input", "result", "error"} {
		text := gjson.Get(detail, field).String()
		if len(text) > maxLen {
			detail, _ = sjson.Set(detail, field, text[:maxLen]+config.TruncatedSuffix)
		}
	}
	return detail
}

// Scanner interface to support both Row and Rows
type Scanner interface {
	Scan(dest ...any) error
}

func scanConsultation(s Scanner) (*domain.Consultation, error) {
	var id, detail, status string
	var createdAt time.Time
	var durationMs int64

	if err := s.Scan(&id, &detail, &createdAt, &durationMs, &status); err != nil {
		return nil, err
	}

	var record domain.Consultation
	if err := json.Unmarshal([]byte(detail), &record); err != nil {
		return nil, fmt.Errorf("unmarshal consultation: %w", err)
	}

	// Columns are authoritative for indexed fields
	record.ID = id
	record.CreatedAt = createdAt
	record.DurationMs = durationMs
	record.Status = status
	return &record, nil
}
