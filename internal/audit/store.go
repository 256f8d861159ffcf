// Package audit provides an optional Postgres-backed log of API operations.
// It records outcomes and latencies only; embeddings and images are never
// persisted, keeping the service stateless.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// Entry is a single recorded API operation
type Entry struct {
	RequestID  string    `db:"request_id" json:"request_id"`
	Operation  string    `db:"operation" json:"operation"`
	Metric     string    `db:"metric" json:"metric,omitempty"`
	StatusCode int       `db:"status_code" json:"status_code"`
	ErrorCode  string    `db:"error_code" json:"error_code,omitempty"`
	DurationMS float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Store handles audit log persistence with PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS api_audit_log (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	metric TEXT NOT NULL DEFAULT '',
	status_code INT NOT NULL,
	error_code TEXT NOT NULL DEFAULT '',
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_api_audit_log_created_at ON api_audit_log (created_at);
`

// NewStore creates a new audit store instance
func NewStore(cfg config.AuditConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	logger.Info("Audit store initialized")
	return &Store{db: db, logger: logger}, nil
}

// Record inserts an audit entry. Best effort: failures are logged, not
// propagated, so auditing never affects request outcomes.
func (s *Store) Record(ctx context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO api_audit_log (request_id, operation, metric, status_code, error_code, duration_ms, created_at)
		VALUES (:request_id, :operation, :metric, :status_code, :error_code, :duration_ms, :created_at)`,
		entry)
	if err != nil {
		s.logger.Error("Failed to record audit entry",
			zap.Error(err),
			zap.String("operation", entry.Operation))
	}
}

// RecentEntries returns the most recent audit entries, newest first
func (s *Store) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []Entry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT request_id, operation, metric, status_code, error_code, duration_ms, created_at
		FROM api_audit_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
