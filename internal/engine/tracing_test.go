package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
	"github.com/roach88/reconciler/internal/testutil"
)

// recordingTracer keeps every span it starts.
type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordedSpan
}

func (rt *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	sp := &recordedSpan{name: name}
	rt.spans = append(rt.spans, sp)
	return ctx, sp
}

type recordedSpan struct {
	noop.Span
	name   string
	events []string
	status codes.Code
	desc   string
	ended  bool
}

func (s *recordedSpan) AddEvent(name string, _ ...trace.EventOption) { s.events = append(s.events, name) }

func (s *recordedSpan) SetStatus(code codes.Code, desc string) { s.status, s.desc = code, desc }

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestScheduler_SpanPerCommittedPass(t *testing.T) {
	rt := &recordingTracer{}
	s, doc, _ := newTestScheduler(t, WithTracer(rt))

	s.Render(items("A"), doc.Root())
	flush(t, s)
	s.Render(items("A", "B"), doc.Root())
	flush(t, s)

	require.Len(t, rt.spans, 2)
	for _, sp := range rt.spans {
		assert.Equal(t, "reconcile.pass", sp.name)
		assert.Equal(t, codes.Ok, sp.status)
		assert.True(t, sp.ended)
	}
}

func TestScheduler_SpanRecordsYieldAndFailure(t *testing.T) {
	rt := &recordingTracer{}
	s, doc, _ := newTestScheduler(t, WithTracer(rt))

	broken := element.NewFunc("Broken", func(ir.Object) (*element.Element, error) {
		return nil, errors.New("no data")
	})
	s.Render(element.H("div", nil, element.H("p", nil, "x"), element.C(broken, nil)), doc.Root())

	// One unit, then yield.
	require.NoError(t, s.PerformWork(context.Background(), testutil.NewBudget(1)))
	err := s.Flush(context.Background())
	require.Error(t, err)

	require.Len(t, rt.spans, 1)
	sp := rt.spans[0]
	assert.Contains(t, sp.events, "yield")
	assert.Equal(t, codes.Error, sp.status)
	assert.Equal(t, string(ErrCodeRenderFailed), sp.desc)
	assert.True(t, sp.ended)
}
