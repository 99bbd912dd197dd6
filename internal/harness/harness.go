package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/reconciler/internal/catalog"
	"github.com/roach88/reconciler/internal/compiler"
	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/engine"
	"github.com/roach88/reconciler/internal/fiber"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
	"github.com/roach88/reconciler/internal/store"
	"github.com/roach88/reconciler/internal/testutil"
)

// Harness is the scenario execution engine. It drives a real scheduler
// over an in-memory document with deterministic pass ids and unit-budget
// grants.
type Harness struct {
	doc      *host.Document
	sched    *engine.Scheduler
	store    *store.Store
	compiler *compiler.Compiler
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh document and in-memory journal.
//
// Execution flow:
//  1. Create fresh in-memory journal and document
//  2. Compile, render and flush the initial tree (if any)
//  3. Execute steps in order
//  4. Read the journal and evaluate assertions
//
// Returns an error only when the scenario itself is broken (a tree that
// does not compile, an unknown component instance). Unexpected pass
// failures and assertion mismatches are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	doc := host.NewDocument()
	h := &Harness{
		doc:   doc,
		store: st,
		sched: engine.New(doc,
			engine.WithLogger(testutil.Logger()), // Suppress logs in scenarios
			engine.WithPassIDs(testutil.NewSequentialPassIDs("")),
			engine.WithJournal(st),
		),
		compiler: compiler.New(catalog.Registry(), nil),
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.setup(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if result.Passes, err = st.ListPasses(ctx); err != nil {
		return nil, fmt.Errorf("failed to read passes: %w", err)
	}
	if result.Failures, err = st.ListFailures(ctx); err != nil {
		return nil, fmt.Errorf("failed to read failures: %w", err)
	}
	result.Dump = doc.Dump()

	actx := &AssertionContext{Doc: doc}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// setup renders and flushes the initial tree.
func (h *Harness) setup(ctx context.Context, scenario *Scenario, result *Result) error {
	var (
		el  *element.Element
		err error
	)
	switch {
	case scenario.TreeFile != "":
		el, err = h.compiler.CompileFile(scenario.TreeFile)
	case scenario.Tree != nil:
		el, err = h.compiler.CompileMap(scenario.Tree)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	h.sched.Render(el, h.doc.Root())
	if err := h.sched.Flush(ctx); err != nil {
		result.AddError(fmt.Sprintf("initial render failed: %v", err))
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	switch {
	case step.Render != nil:
		el, err := h.compiler.CompileMap(step.Render)
		if err != nil {
			return err
		}
		h.sched.Render(el, h.doc.Root())
		return nil

	case step.Flush:
		checkStepError(step, h.sched.Flush(ctx), result)
		return nil

	case step.Grant > 0:
		checkStepError(step, h.sched.PerformWork(ctx, testutil.NewBudget(step.Grant)), result)
		return nil

	case step.Dispatch != nil:
		return h.dispatch(step.Dispatch)

	case step.Update != nil:
		return h.update(step.Update)
	}
	return errors.New("step has no action")
}

// checkStepError compares a grant's outcome with the step's expect_error.
func checkStepError(step Step, err error, result *Result) {
	var rerr *engine.RuntimeError
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("unexpected pass failure: %v", err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("expected %s, but the step succeeded", step.ExpectError))
	case step.ExpectError != "" && !errors.As(err, &rerr):
		result.AddError(fmt.Sprintf("expected %s, got %v", step.ExpectError, err))
	case step.ExpectError != "" && string(rerr.Code) != step.ExpectError:
		result.AddError(fmt.Sprintf("expected %s, got %s", step.ExpectError, rerr.Code))
	}
}

func (h *Harness) dispatch(d *DispatchStep) error {
	path, err := host.ParsePath(d.Path)
	if err != nil {
		return err
	}
	n, err := h.doc.Find(path...)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	payload, err := ir.ObjectFromAny(d.Payload)
	if err != nil {
		return fmt.Errorf("dispatch payload: %w", err)
	}
	if h.doc.Dispatch(n, d.Event, payload) == 0 {
		return fmt.Errorf("dispatch: no %s listener at %s", d.Event, d.Path)
	}
	return nil
}

func (h *Harness) update(u *UpdateStep) error {
	inst := findInstance(h.sched.Committed(h.doc.Root()), u.Component, u.Index)
	if inst == nil {
		return fmt.Errorf("update: no mounted %s instance at index %d", u.Component, u.Index)
	}
	delta, err := ir.ObjectFromAny(u.Delta)
	if err != nil {
		return fmt.Errorf("update delta: %w", err)
	}
	inst.RequestUpdate(delta)
	return nil
}

// findInstance returns the index-th instance of the named component in
// pre-order, or nil.
func findInstance(g *fiber.Graph, name string, index int) *fiber.Instance {
	if g == nil {
		return nil
	}
	var found *fiber.Instance
	seen := 0
	g.Walk(g.Root(), func(_ fiber.Index, u *fiber.Unit) bool {
		if found != nil {
			return false
		}
		if u.Instance != nil && u.Kind.String() == name {
			if seen == index {
				found = u.Instance
				return false
			}
			seen++
		}
		return true
	})
	return found
}
