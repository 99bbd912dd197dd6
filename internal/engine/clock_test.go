package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
	"github.com/roach88/reconciler/internal/testutil"
)

func TestClock_StampsFromOne(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, []int64{1, 2, 3}, []int64{c.Next(), c.Next(), c.Next()})
	assert.Equal(t, int64(3), c.Current())
}

func TestClock_ContinuesJournal(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(41), c.Current())
	assert.Equal(t, int64(42), c.Next())
}

func TestClock_ConcurrentStampsAreUnique(t *testing.T) {
	c := NewClock()
	const workers, perWorker = 16, 250

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, workers*perWorker)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), c.Current())
}

func TestClock_SharedByCommitsAndFailures(t *testing.T) {
	doc := host.NewDocument()
	j := &testutil.Journal{}
	boom := element.NewFunc("Boom", func(props ir.Object) (*element.Element, error) {
		return nil, assert.AnError
	})
	s := New(doc,
		WithClock(NewClockAt(10)),
		WithJournal(j),
		WithLogger(testutil.Logger()),
		WithPassIDs(testutil.NewSequentialPassIDs("pass")),
	)

	s.Render(element.H("p", nil, "a"), doc.Root())
	s.Render(element.C(boom, nil), doc.Root())
	s.Render(element.H("p", nil, "b"), doc.Root())
	err := s.Flush(context.Background())
	require.Error(t, err)

	passes, failures := j.Passes(), j.Failures()
	require.Len(t, passes, 2)
	require.Len(t, failures, 1)
	assert.Equal(t, int64(11), passes[0].Seq)
	assert.Equal(t, int64(12), failures[0].Seq)
	assert.Equal(t, int64(13), passes[1].Seq)
	assert.Equal(t, int64(13), s.Clock().Current())
}
