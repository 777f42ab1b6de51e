package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CostRecord is a single persisted LLM API call with its computed cost.
// Records are immutable once written; corrections are made by inserting
// compensating records, never by mutation.
type CostRecord struct {
	ID        int64             `json:"id" db:"id"`
	OrgID     string            `json:"org_id" db:"org_id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Feature   string            `json:"feature" db:"feature"`
	Provider  string            `json:"provider" db:"provider"`
	Model     string            `json:"model" db:"model"`
	TokensIn  int64             `json:"tokens_in" db:"tokens_in"`
	TokensOut int64             `json:"tokens_out" db:"tokens_out"`
	CostUSD   decimal.Decimal   `json:"cost_usd" db:"cost_micros"`
	LatencyMS *int64            `json:"latency_ms,omitempty" db:"latency_ms"`
	RequestID string            `json:"request_id" db:"request_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// MetadataJSON serializes the metadata bag for storage. The blob is opaque
// at the storage layer and never individually indexed.
func (r *CostRecord) MetadataJSON() (string, error) {
	if len(r.Metadata) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(r.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}

// Validate checks invariants that must hold before a record may be persisted.
func (r *CostRecord) Validate() error {
	if r.TokensIn < 0 || r.TokensOut < 0 {
		return fmt.Errorf("token counts must be non-negative (in=%d, out=%d)", r.TokensIn, r.TokensOut)
	}
	if r.CostUSD.IsNegative() {
		return fmt.Errorf("cost must be non-negative, got %s", r.CostUSD)
	}
	if r.LatencyMS != nil && *r.LatencyMS < 0 {
		return fmt.Errorf("latency must be non-negative, got %d", *r.LatencyMS)
	}
	return nil
}

// QueryFilter restricts which cost records an aggregate query covers.
// Zero-valued fields are ignored.
type QueryFilter struct {
	OrgID    string    `json:"org_id,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	Feature  string    `json:"feature,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
	Since    time.Time `json:"since,omitempty"`
	Until    time.Time `json:"until,omitempty"`
}

// AggregateRow is one group of an aggregate query: the grouping key
// (a user id or a feature name), the summed cost, and the call count.
type AggregateRow struct {
	Key       string          `json:"key"`
	TotalUSD  decimal.Decimal `json:"total_usd"`
	CallCount int64           `json:"call_count"`
}
