package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reconciler/internal/ir"
)

func TestBudget_AdmitsExactlyN(t *testing.T) {
	b := NewBudget(2)

	assert.Equal(t, time.Hour, b.TimeRemaining())
	assert.Equal(t, time.Hour, b.TimeRemaining())
	assert.Zero(t, b.TimeRemaining())
	assert.Zero(t, b.TimeRemaining())
	assert.Zero(t, b.Remaining())

	b.Refill(1)
	assert.Equal(t, 1, b.Remaining())
	assert.Equal(t, time.Hour, b.TimeRemaining())
	assert.Zero(t, b.TimeRemaining())
}

func TestSequentialPassIDs(t *testing.T) {
	g := NewSequentialPassIDs("")
	assert.Equal(t, "pass-1", g.Generate())
	assert.Equal(t, "pass-2", g.Generate())

	g.Reset()
	assert.Equal(t, "pass-1", g.Generate())

	custom := NewSequentialPassIDs("scenario")
	assert.Equal(t, "scenario-1", custom.Generate())
}

func TestSequentialPassIDs_ThreadSafe(t *testing.T) {
	g := NewSequentialPassIDs("p")
	const goroutines = 50

	ids := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- g.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestJournal_RecordsInOrder(t *testing.T) {
	var j Journal
	ctx := context.Background()

	require.NoError(t, j.RecordPass(ctx, ir.PassRecord{ID: "a", Seq: 1}))
	require.NoError(t, j.RecordFailure(ctx, ir.FailureRecord{ID: "b", Seq: 2, Code: "RENDER_FAILED"}))
	require.NoError(t, j.RecordPass(ctx, ir.PassRecord{ID: "c", Seq: 3}))

	passes := j.Passes()
	require.Len(t, passes, 2)
	assert.Equal(t, "a", passes[0].ID)
	assert.Equal(t, "c", passes[1].ID)

	failures := j.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "RENDER_FAILED", failures[0].Code)
}

func TestLogger_Discards(t *testing.T) {
	l := Logger()
	require.NotNil(t, l)
	l.Info("dropped", "k", "v")
}
