package tracker

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/metronai/costmeter/pkg/pricing"
	"github.com/metronai/costmeter/pkg/storage"
)

// ErrNotInitialized is returned by Default before Init has run.
var ErrNotInitialized = errors.New("tracker: not initialized, call Init first")

// The explicit-handle API above is the core; the process-wide default below
// is an ergonomic convenience layer on top of it.
var defaultTracker atomic.Pointer[Tracker]

// Init opens (or creates) the database at storagePath, builds the default
// pricing table, and installs the resulting tracker as the process-wide
// default. It returns the tracker so callers can also use it explicitly.
func Init(storagePath string, opts ...Option) (*Tracker, error) {
	table, err := pricing.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("init tracker: %w", err)
	}
	store, err := storage.NewSQLite(storagePath)
	if err != nil {
		return nil, fmt.Errorf("init tracker: %w", err)
	}

	t := New(store, table, opts...)
	defaultTracker.Store(t)
	return t, nil
}

// SetDefault installs a tracker built elsewhere as the process-wide default.
func SetDefault(t *Tracker) {
	defaultTracker.Store(t)
}

// Default returns the process-wide tracker, or ErrNotInitialized.
func Default() (*Tracker, error) {
	t := defaultTracker.Load()
	if t == nil {
		return nil, ErrNotInitialized
	}
	return t, nil
}
