package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/fiber"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// DefaultSlice is the grant size Run uses when none is configured.
const DefaultSlice = 5 * time.Millisecond

// tracerName identifies this package's spans.
const tracerName = "github.com/roach88/reconciler/internal/engine"

// Journal observes pass outcomes. Implemented by store.Store.
type Journal interface {
	RecordPass(ctx context.Context, rec ir.PassRecord) error
	RecordFailure(ctx context.Context, rec ir.FailureRecord) error
}

// Scheduler is the cooperative reconciliation scheduler.
//
// Requests (root renders and component updates) are queued FIFO and turned
// into passes one at a time. A pass is built across as many grants as it
// needs and committed in the grant that finishes it; the host sees either
// all of a pass's effects or none of them. The scheduler holds at most one
// pass: either the work pointer (being built) or the pending-commit slot
// (being applied), never both.
//
// Committed graphs are kept per container. A later pass for the same
// container diffs against that graph; passes for different containers are
// independent but still serialized through the one queue.
//
// Thread-safety model:
//   - Render() and Instance.RequestUpdate(): safe from any goroutine
//   - PerformWork(), Flush(), Run(): one goroutine at a time
//
// The host is only touched from the goroutine granting work.
type Scheduler struct {
	host  host.Host
	queue *requestQueue
	roots map[host.Node]*fiber.Graph

	// work is the pass being built; pendingCommit is a finished pass being
	// committed. Never both set.
	work          *activePass
	pendingCommit *activePass

	clock    *Clock
	ids      PassIDGenerator
	journal  Journal
	tracer   trace.Tracer
	logger   *slog.Logger
	slice    time.Duration
	maxUnits int

	last *ir.PassRecord
}

// activePass is the work pointer: a pass plus its bookkeeping.
//
// The id is assigned when the pass starts, the seq only when it commits or
// fails, so seq order is completion order.
type activePass struct {
	id    string
	req   Request
	pass  *fiber.Pass
	quota *UnitQuota
	span  trace.Span

	// seeded is the committed unit holding the request's delta.
	seeded *fiber.Unit
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSlice sets the grant size used by Run.
func WithSlice(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.slice = d
	}
}

// WithMaxUnits sets the per-pass unit quota.
//
// Default: 100000 units (DefaultMaxUnits). Zero disables the quota.
func WithMaxUnits(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxUnits = n
	}
}

// WithPassIDs sets the pass id generator. Default: UUIDv7Generator.
func WithPassIDs(g PassIDGenerator) SchedulerOption {
	return func(s *Scheduler) {
		s.ids = g
	}
}

// WithClock sets the logical pass clock, e.g. to continue numbering after
// the last journaled pass.
func WithClock(c *Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithJournal records every committed and failed pass.
func WithJournal(j Journal) SchedulerOption {
	return func(s *Scheduler) {
		s.journal = j
	}
}

// WithTracer emits one span per pass. Default: a no-op tracer.
func WithTracer(t trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = t
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates an idle scheduler: empty queue, no work pointer.
func New(h host.Host, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		host:     h,
		queue:    newRequestQueue(),
		roots:    make(map[host.Node]*fiber.Graph),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		tracer:   noop.NewTracerProvider().Tracer(tracerName),
		logger:   slog.Default(),
		slice:    DefaultSlice,
		maxUnits: DefaultMaxUnits,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Render queues a root-level request to render el into container.
// Returns false if the scheduler has been stopped.
//
// Panics if container is nil or not comparable.
func (s *Scheduler) Render(el *element.Element, container host.Node) bool {
	if container == nil {
		panic("engine: Render into nil container")
	}
	if !reflect.TypeOf(container).Comparable() {
		panic(fmt.Sprintf("engine: container of type %T is not comparable", container))
	}
	return s.queue.Enqueue(Request{
		Origin:    OriginRoot,
		Container: container,
		Element:   el,
	})
}

// enqueueUpdate is the sink every instance built by this scheduler uses.
func (s *Scheduler) enqueueUpdate(inst *fiber.Instance, delta ir.Object) {
	if !s.queue.Enqueue(Request{Origin: OriginComponent, Instance: inst, Delta: delta}) {
		s.logger.Debug("update request after stop", "component", inst.Def().Name())
	}
}

// Idle reports whether there is no pass in flight and nothing queued.
func (s *Scheduler) Idle() bool {
	return s.work == nil && s.pendingCommit == nil && s.queue.Len() == 0
}

// InFlight reports whether a pass has been started and not yet committed.
func (s *Scheduler) InFlight() bool {
	return s.work != nil
}

// Pending returns the number of queued requests.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Committed returns the committed graph for container, or nil.
func (s *Scheduler) Committed(container host.Node) *fiber.Graph {
	return s.roots[container]
}

// LastPass returns the record of the most recently committed pass.
func (s *Scheduler) LastPass() (ir.PassRecord, bool) {
	if s.last == nil {
		return ir.PassRecord{}, false
	}
	return *s.last, true
}

// Clock returns the logical pass clock.
func (s *Scheduler) Clock() *Clock {
	return s.clock
}

// PerformWork is one grant. It starts a pass from the next queued request
// if none is in flight, processes units while the deadline leaves more
// than EnoughTime, and commits if the graph is finished.
//
// A returned *RuntimeError means the pass failed and was discarded; the
// scheduler stays usable. A context error means the grant ended early and
// the pass will resume on the next grant.
func (s *Scheduler) PerformWork(ctx context.Context, deadline Deadline) error {
	if s.work == nil {
		s.startNext(ctx)
		if s.work == nil {
			return nil
		}
	}

	ap := s.work
	for !ap.pass.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if deadline.TimeRemaining() <= EnoughTime {
			s.logger.Debug("pass yielded", "pass", ap.id, "units", ap.pass.Steps())
			ap.span.AddEvent("yield", trace.WithAttributes(attribute.Int("units", ap.pass.Steps())))
			return nil
		}
		if err := ap.quota.Check(ap.id); err != nil {
			return s.fail(ctx, NewQuotaError(ap.id, err))
		}
		if err := ap.pass.Step(); err != nil {
			return s.fail(ctx, newRenderError(ap.id, err))
		}
	}

	s.pendingCommit, s.work = ap, nil
	return s.commit(ctx)
}

// Flush grants unlimited time until the scheduler is idle. Failed passes
// do not stop the flush; their errors are joined into the result.
func (s *Scheduler) Flush(ctx context.Context) error {
	var errs []error
	for !s.Idle() {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := s.PerformWork(ctx, Unlimited); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run is the long-lived loop: it waits for requests and grants itself
// Slice-sized deadlines until idle, yielding between grants.
// Blocks until the context is cancelled or Stop is called.
//
// Failed passes are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	slice := max(s.slice, 2*EnoughTime)
	s.logger.Info("scheduler starting", "slice", slice, "max_units", s.maxUnits)

	for {
		if !s.Idle() {
			err := s.PerformWork(ctx, Slice(slice))
			if err != nil && ctx.Err() != nil {
				s.logger.Info("scheduler stopping: context cancelled")
				s.queue.Close()
				return ctx.Err()
			}
			// Let enqueuers and the host run between grants.
			runtime.Gosched()
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case _, ok := <-s.queue.Wait():
			// The signal channel closes with the queue; drain what is
			// left before returning.
			if !ok && s.Idle() {
				s.logger.Info("scheduler stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the request queue. Run returns once in-flight and queued
// work has been processed.
func (s *Scheduler) Stop() {
	s.queue.Close()
}

// startNext dequeues requests until one seeds a pass. Requests that cannot
// start (an instance unmounted since it asked) are logged and dropped; they
// do not consume a seq.
func (s *Scheduler) startNext(ctx context.Context) {
	for {
		req, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		ap, err := s.begin(ctx, req)
		if err != nil {
			s.logger.Warn("dropping update request", "origin", req.Origin, "error", err)
			continue
		}
		s.work = ap
		return
	}
}

// begin builds the pass for one request.
//
// A component request merges its delta into the instance's committed unit
// and starts a pass from the container root with no new element. The
// builder then re-renders that component and clones every untouched
// subtree, so the pass costs about as much as one rooted at the component.
func (s *Scheduler) begin(ctx context.Context, req Request) (*activePass, error) {
	ap := &activePass{req: req, quota: NewUnitQuota(s.maxUnits)}

	switch req.Origin {
	case OriginRoot:
		ap.pass = fiber.NewPass(s.roots[req.Container], req.Container, req.Element, s.enqueueUpdate)

	case OriginComponent:
		container, idx, ok := req.Instance.Location()
		prev := s.roots[container]
		if !ok || prev == nil || int(idx) >= prev.Len() || prev.At(idx).Instance != req.Instance {
			return nil, &RuntimeError{
				Code:      ErrCodeUnknownInstance,
				Message:   "instance is not mounted",
				Component: req.Instance.Def().Name(),
			}
		}
		u := prev.At(idx)
		u.PendingDelta = u.PendingDelta.Merge(req.Delta)
		ap.seeded = u
		ap.pass = fiber.NewPass(prev, container, nil, s.enqueueUpdate)

	default:
		return nil, fmt.Errorf("unknown request origin: %d", req.Origin)
	}

	ap.id = s.ids.Generate()
	_, ap.span = s.tracer.Start(ctx, "reconcile.pass", trace.WithAttributes(
		attribute.String("pass.id", ap.id),
		attribute.String("pass.origin", req.Origin.String()),
	))
	s.logger.Debug("pass started", "pass", ap.id, "origin", req.Origin, "component", requestComponent(req))
	return ap, nil
}

// fail discards the work pointer's pass. Nothing reaches the host.
//
// The failure still takes a seq, so the journal interleaves failures and
// commits in the order they happened. A delta seeded by a component request
// is dropped with the pass.
func (s *Scheduler) fail(ctx context.Context, rerr *RuntimeError) error {
	ap := s.work
	s.work = nil
	if ap.seeded != nil {
		ap.seeded.PendingDelta = nil
	}
	seq := s.clock.Next()

	ap.span.RecordError(rerr)
	ap.span.SetStatus(codes.Error, string(rerr.Code))
	ap.span.End()

	s.logger.Error("pass failed",
		"pass", ap.id,
		"seq", seq,
		"code", rerr.Code,
		"component", rerr.Component,
		"path", rerr.Path,
		"error", rerr.Err,
	)

	if s.journal != nil {
		rec := ir.FailureRecord{
			ID:        ap.id,
			Seq:       seq,
			Origin:    ap.req.Origin.String(),
			Component: requestComponent(ap.req),
			Code:      string(rerr.Code),
			Message:   rerr.Message,
		}
		if err := s.journal.RecordFailure(ctx, rec); err != nil {
			s.logger.Warn("journal write failed", "pass", ap.id, "error", err)
		}
	}
	return rerr
}

// commit applies the pending pass's effect list, then makes its graph the
// committed one. Clears the pending-commit slot before returning.
//
// Commit never fails: the effects were validated while building, and a
// journal write error is logged rather than returned because the host has
// already changed.
func (s *Scheduler) commit(ctx context.Context) error {
	ap := s.pendingCommit
	defer func() { s.pendingCommit = nil }()

	g := ap.pass.Graph()
	c := &committer{host: s.host, graph: g, prev: ap.pass.Prev()}
	effects := ap.pass.Effects()
	records := make([]ir.EffectRecord, 0, len(effects))
	for _, e := range effects {
		records = append(records, c.apply(e))
	}

	g.Finalize()
	s.roots[g.Container] = g

	treeHash, err := ir.TreeHash(g.Describe())
	if err != nil {
		// Only reachable with a property value outside the ir model.
		s.logger.Warn("tree hash failed", "pass", ap.id, "error", err)
	}

	rec := ir.PassRecord{
		ID:        ap.id,
		Seq:       s.clock.Next(),
		Origin:    ap.req.Origin.String(),
		Component: requestComponent(ap.req),
		Units:     ap.pass.Steps(),
		TreeHash:  treeHash,
		Effects:   records,
	}
	s.last = &rec

	ap.span.SetAttributes(
		attribute.Int64("pass.seq", rec.Seq),
		attribute.Int("pass.units", rec.Units),
		attribute.Int("pass.effects", len(records)),
	)
	ap.span.SetStatus(codes.Ok, "")
	ap.span.End()

	s.logger.Info("pass committed",
		"pass", rec.ID,
		"seq", rec.Seq,
		"origin", rec.Origin,
		"units", rec.Units,
		"effects", len(records),
	)

	if s.journal != nil {
		if err := s.journal.RecordPass(ctx, rec); err != nil {
			s.logger.Warn("journal write failed", "pass", rec.ID, "error", err)
		}
	}
	return nil
}

// requestComponent names the component behind a request, "" for root
// renders.
func requestComponent(req Request) string {
	if req.Instance == nil {
		return ""
	}
	return req.Instance.Def().Name()
}
