package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

//go:embed schema.sql
var schemaSQL string

// ErrNoDatabaseURL is returned by Open when persistence is not configured.
var ErrNoDatabaseURL = errors.New("database URL is not configured (hint: check SNAPREG_DATABASE_URL)")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var attemptColumns = []string{
	"id", "run_id", "registration_id", "manufacturer", "strategy", "method", "attempt", "success",
	"confirmation_code", "error_type", "error_message", "screenshot_path", "duration_ms", "created_at",
}

const (
	insertAttemptSQL = `
        INSERT INTO registration_attempts (id, run_id, registration_id, manufacturer, strategy, method, attempt, success,
            confirmation_code, error_type, error_message, screenshot_path, duration_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
    `
	selectAttemptsSQL = `
        SELECT id, run_id, registration_id, manufacturer, strategy, method, attempt, success,
            confirmation_code, error_type, error_message, screenshot_path, duration_ms, created_at
        FROM registration_attempts
        WHERE registration_id = $1
        ORDER BY created_at ASC, attempt ASC;
    `
)

// Store persists registration attempts in PostgreSQL.
type Store struct {
	pool  DBPool
	log   *zap.Logger
	close func()
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects a pooled store to url. Close releases the pool.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	if url == "" {
		return nil, ErrNoDatabaseURL
	}
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.close = pool.Close
	return s, nil
}

// Close releases the pool opened by Open. It is a no-op for stores built
// with New.
func (s *Store) Close() {
	if s.close != nil {
		s.log.Debug("Closing PostgreSQL connection pool.")
		s.close()
		s.close = nil
	}
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.log.Info("Database schema is up to date.")
	return nil
}

// RecordAttempt inserts a single attempt row.
func (s *Store) RecordAttempt(ctx context.Context, rec schemas.AttemptRecord) error {
	if _, err := s.pool.Exec(ctx, insertAttemptSQL, attemptRow(rec)...); err != nil {
		return fmt.Errorf("failed to insert attempt %s: %w", rec.ID, err)
	}
	return nil
}

// RecordAttempts bulk-copies recs inside one transaction.
func (s *Store) RecordAttempts(ctx context.Context, recs []schemas.AttemptRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	rows := make([][]interface{}, len(recs))
	for i, rec := range recs {
		rows[i] = attemptRow(rec)
	}
	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"registration_attempts"}, attemptColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy attempts: %w", err)
	}
	if int(copyCount) != len(recs) {
		return fmt.Errorf("mismatch in copied attempts count: expected %d, got %d", len(recs), copyCount)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AttemptsForRegistration lists the attempts made for one registration,
// oldest first.
func (s *Store) AttemptsForRegistration(ctx context.Context, registrationID string) ([]schemas.AttemptRecord, error) {
	rows, err := s.pool.Query(ctx, selectAttemptsSQL, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []schemas.AttemptRecord
	for rows.Next() {
		var (
			rec        schemas.AttemptRecord
			method     string
			errorType  string
			durationMS int64
		)
		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.RegistrationID, &rec.Manufacturer, &rec.Strategy,
			&method, &rec.Attempt, &rec.Success,
			&rec.ConfirmationCode, &errorType, &rec.ErrorMessage, &rec.ScreenshotPath,
			&durationMS, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		rec.Method = schemas.Method(method)
		rec.ErrorKind = schemas.ErrorKind(errorType)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

func attemptRow(rec schemas.AttemptRecord) []interface{} {
	return []interface{}{
		rec.ID, rec.RunID, rec.RegistrationID, rec.Manufacturer, rec.Strategy,
		string(rec.Method), rec.Attempt, rec.Success,
		rec.ConfirmationCode, string(rec.ErrorKind), rec.ErrorMessage, rec.ScreenshotPath,
		rec.Duration.Milliseconds(), rec.CreatedAt.UTC(),
	}
}
