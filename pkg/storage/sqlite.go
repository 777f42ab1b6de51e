package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sqlite "modernc.org/sqlite"

	"github.com/metronai/costmeter/pkg/model"
)

const (
	sqliteBusy   = 5
	sqliteLocked = 6

	// insertAttempts bounds the internal retry loop on top of the driver's
	// busy timeout. A record is never silently dropped under contention:
	// the loop either commits or fails with BusyError.
	insertAttempts = 5
	retryBaseDelay = 50 * time.Millisecond
)

// SQLite implements Storage on an embedded SQLite database. WAL mode allows
// aggregate queries to run concurrently with inserts; the engine's native
// file locking serializes the writer section.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens or creates the database at dbPath, creating parent
// directories and migrating the schema idempotently. A corrupt or
// newer-versioned file fails with SchemaError.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The _pragma form applies on every pooled connection; a bare PRAGMA
	// statement would only reach the one connection that executes it.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, &SchemaError{Path: dbPath, Err: err}
	}

	return &SQLite{db: db, path: dbPath}, nil
}

func (s *SQLite) Insert(ctx context.Context, record *model.CostRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("insert cost record: %w", err)
	}

	if record.RequestID == "" {
		record.RequestID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	} else {
		record.CreatedAt = record.CreatedAt.UTC()
	}

	// Normalize cost to whole micros so stored sums are exact integers.
	micros := record.CostUSD.Shift(6).RoundBank(0)
	record.CostUSD = micros.Shift(-6)

	metadata, err := record.MetadataJSON()
	if err != nil {
		return fmt.Errorf("insert cost record: %w", err)
	}

	var latency sql.NullInt64
	if record.LatencyMS != nil {
		latency = sql.NullInt64{Int64: *record.LatencyMS, Valid: true}
	}

	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		res, err := s.db.ExecContext(ctx,
			`INSERT INTO cost_records (org_id, user_id, feature, provider, model,
			   tokens_in, tokens_out, cost_micros, latency_ms, request_id, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.OrgID, record.UserID, record.Feature, record.Provider, record.Model,
			record.TokensIn, record.TokensOut, micros.IntPart(), latency,
			record.RequestID, metadata, record.CreatedAt.UnixNano(),
		)
		if err == nil {
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("read inserted id: %w", err)
			}
			record.ID = id
			return nil
		}
		if !isBusy(err) {
			return fmt.Errorf("insert cost record: %w", err)
		}
		lastErr = err
	}

	return &BusyError{Attempts: insertAttempts, Err: lastErr}
}

func (s *SQLite) TotalCost(ctx context.Context, filter model.QueryFilter) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(cost_micros), 0) FROM cost_records"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}

	var micros int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&micros); err != nil {
		return decimal.Zero, fmt.Errorf("total cost: %w", err)
	}
	return decimal.New(micros, -6), nil
}

func (s *SQLite) TopUsers(ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error) {
	return s.topBy(ctx, "user_id", limit, filter)
}

func (s *SQLite) TopFeatures(ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error) {
	return s.topBy(ctx, "feature", limit, filter)
}

// topBy runs the grouped aggregate over an indexed column. field is one of
// the fixed grouping columns, never caller input.
func (s *SQLite) topBy(ctx context.Context, field string, limit int, filter model.QueryFilter) ([]model.AggregateRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("top %s: limit must be positive, got %d", field, limit)
	}

	query := fmt.Sprintf("SELECT %s, SUM(cost_micros), COUNT(*) FROM cost_records", field)
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" GROUP BY %s ORDER BY SUM(cost_micros) DESC, %s ASC LIMIT ?", field, field)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", field, err)
	}
	defer rows.Close()

	var result []model.AggregateRow
	for rows.Next() {
		var key string
		var micros, count int64
		if err := rows.Scan(&key, &micros, &count); err != nil {
			return nil, fmt.Errorf("scan top %s row: %w", field, err)
		}
		result = append(result, model.AggregateRow{
			Key:       key,
			TotalUSD:  decimal.New(micros, -6),
			CallCount: count,
		})
	}
	return result, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from a QueryFilter.
func buildWhereClause(filter model.QueryFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.OrgID != "" {
		conditions = append(conditions, "org_id = ?")
		args = append(args, filter.OrgID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Feature != "" {
		conditions = append(conditions, "feature = ?")
		args = append(args, filter.Feature)
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, filter.Model)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC().UnixNano())
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.Until.UTC().UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
