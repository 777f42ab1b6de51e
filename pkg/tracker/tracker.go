// Package tracker is the recording facade: it ties usage extraction, cost
// computation and the record store together per call.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/metronai/costmeter/pkg/model"
	"github.com/metronai/costmeter/pkg/pricing"
	"github.com/metronai/costmeter/pkg/storage"
	"github.com/metronai/costmeter/pkg/usage"
)

// Tracker records per-call cost, token usage and latency, and answers
// aggregate cost queries. Safe for concurrent use.
type Tracker struct {
	table      *pricing.Table
	calculator *Calculator
	store      storage.Storage
	logger     *slog.Logger
	orgID      string
	bestEffort bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithOrgID sets the organization id applied to records that do not carry
// their own.
func WithOrgID(orgID string) Option {
	return func(t *Tracker) { t.orgID = orgID }
}

// WithBestEffort makes wrapped-call recording swallow extraction and storage
// errors (logging them) instead of surfacing them to the caller. The wrapped
// call's own result is never affected either way.
func WithBestEffort() Option {
	return func(t *Tracker) { t.bestEffort = true }
}

// New creates a tracker over the given store and pricing table.
func New(store storage.Storage, table *pricing.Table, opts ...Option) *Tracker {
	t := &Tracker{
		table:      table,
		calculator: NewCalculator(table),
		store:      store,
		logger:     slog.Default(),
		orgID:      "default",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Calculator returns the tracker's cost calculator.
func (t *Tracker) Calculator() *Calculator { return t.calculator }

// Manual describes a call recorded from explicit token counts, with no
// provider response object.
type Manual struct {
	UserID    string
	Feature   string
	Provider  string
	Model     string
	TokensIn  int64
	TokensOut int64
	LatencyMS *int64
	Metadata  map[string]string
	OrgID     string
}

// Call carries the attribution context for a wrapped provider call.
type Call struct {
	UserID   string
	Feature  string
	Provider string
	Metadata map[string]string
	OrgID    string
}

// TrackManual records a call from explicit token counts, bypassing usage
// extraction entirely. The returned record carries the store-assigned id
// and timestamp.
func (t *Tracker) TrackManual(ctx context.Context, m Manual) (*model.CostRecord, error) {
	cost, err := t.calculator.Compute(m.Provider, m.Model, m.TokensIn, m.TokensOut)
	if err != nil {
		return nil, fmt.Errorf("track manual: %w", err)
	}

	record := &model.CostRecord{
		OrgID:     t.resolveOrg(m.OrgID),
		UserID:    m.UserID,
		Feature:   m.Feature,
		Provider:  m.Provider,
		Model:     m.Model,
		TokensIn:  m.TokensIn,
		TokensOut: m.TokensOut,
		CostUSD:   cost,
		LatencyMS: m.LatencyMS,
		Metadata:  m.Metadata,
	}
	if err := t.store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("track manual: %w", err)
	}

	t.logRecorded(record)
	return record, nil
}

// TrackResponse records an already-executed provider call from its response
// object: extracts usage, computes cost, and persists the record. No record
// is written if extraction or pricing fails.
func (t *Tracker) TrackResponse(ctx context.Context, call Call, response any, latency time.Duration) (*model.CostRecord, error) {
	u, err := usage.Extract(call.Provider, response)
	if err != nil {
		return nil, fmt.Errorf("track response: %w", err)
	}

	cost, err := t.calculator.Compute(call.Provider, u.Model, u.TokensIn, u.TokensOut)
	if err != nil {
		return nil, fmt.Errorf("track response: %w", err)
	}

	latencyMS := latency.Milliseconds()
	record := &model.CostRecord{
		OrgID:     t.resolveOrg(call.OrgID),
		UserID:    call.UserID,
		Feature:   call.Feature,
		Provider:  call.Provider,
		Model:     u.Model,
		TokensIn:  u.TokensIn,
		TokensOut: u.TokensOut,
		CostUSD:   cost,
		LatencyMS: &latencyMS,
		Metadata:  call.Metadata,
	}
	if err := t.store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("track response: %w", err)
	}

	t.logRecorded(record)
	return record, nil
}

// TotalCost sums cost over records matching the filter.
func (t *Tracker) TotalCost(ctx context.Context, filter model.QueryFilter) (decimal.Decimal, error) {
	return t.store.TotalCost(ctx, filter)
}

// TopUsers returns the costliest users matching the filter.
func (t *Tracker) TopUsers(ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error) {
	return t.store.TopUsers(ctx, limit, filter)
}

// TopFeatures returns the costliest features matching the filter.
func (t *Tracker) TopFeatures(ctx context.Context, limit int, filter model.QueryFilter) ([]model.AggregateRow, error) {
	return t.store.TopFeatures(ctx, limit, filter)
}

func (t *Tracker) resolveOrg(orgID string) string {
	if orgID != "" {
		return orgID
	}
	return t.orgID
}

func (t *Tracker) logRecorded(r *model.CostRecord) {
	t.logger.Info("cost recorded",
		"id", r.ID,
		"org_id", r.OrgID,
		"user_id", r.UserID,
		"feature", r.Feature,
		"provider", r.Provider,
		"model", r.Model,
		"tokens_in", r.TokensIn,
		"tokens_out", r.TokensOut,
		"cost_usd", r.CostUSD.String(),
	)
}
