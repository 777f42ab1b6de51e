package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/metronai/costmeter/pkg/model"
)

// Storage is the persistence layer for cost records. It is the sole arbiter
// of consistency: callers never see or manage transactions directly, and a
// record returned from a query is always fully written.
type Storage interface {
	// Insert persists a record, assigning its ID, CreatedAt and RequestID.
	// The write is atomic: a record is either fully visible to subsequent
	// queries or not at all.
	Insert(ctx context.Context, record *model.CostRecord) error

	// TotalCost sums cost over records matching the filter. An empty result
	// set yields zero, not an error.
	TotalCost(ctx context.Context, filter model.QueryFilter) (decimal.Decimal, error)

	// TopUsers groups matching records by user, ordered by descending total
	// cost with ties broken by ascending user id, truncated to limit.
	// A non-positive limit is an input error.
	TopUsers(ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error)

	// TopFeatures is TopUsers grouped by feature.
	TopFeatures(ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error)

	// Close releases resources.
	Close() error
}

// BusyError reports storage contention that outlasted the internal retry
// budget. The record was not persisted.
type BusyError struct {
	Attempts int
	Err      error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("storage: still busy after %d attempts: %v", e.Attempts, e.Err)
}

func (e *BusyError) Unwrap() error { return e.Err }

// SchemaError reports a corrupt or incompatible storage file. It is fatal:
// surfaced at open time and not recoverable without manual intervention.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("storage: incompatible or corrupt database %s: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
