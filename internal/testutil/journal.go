package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/reconciler/internal/ir"
)

// Journal records pass outcomes in memory.
type Journal struct {
	mu       sync.Mutex
	passes   []ir.PassRecord
	failures []ir.FailureRecord
}

// RecordPass stores a committed pass.
func (j *Journal) RecordPass(_ context.Context, rec ir.PassRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.passes = append(j.passes, rec)
	return nil
}

// RecordFailure stores a failed pass.
func (j *Journal) RecordFailure(_ context.Context, rec ir.FailureRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures = append(j.failures, rec)
	return nil
}

// Passes returns the committed passes in order.
func (j *Journal) Passes() []ir.PassRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.PassRecord(nil), j.passes...)
}

// Failures returns the failed passes in order.
func (j *Journal) Failures() []ir.FailureRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.FailureRecord(nil), j.failures...)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
