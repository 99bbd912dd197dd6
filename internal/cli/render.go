package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reconciler/internal/config"
	"github.com/roach88/reconciler/internal/engine"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
	"github.com/roach88/reconciler/internal/store"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Config   string
	Database string
	Slice    time.Duration
	MaxUnits int

	// PassIDs overrides the pass id generator (for testing).
	PassIDs engine.PassIDGenerator
}

// RenderResult is the JSON payload of a successful render.
type RenderResult struct {
	Pass     ir.PassRecord `json:"pass"`
	Dump     string        `json:"dump"`
	Document *host.DocNode `json:"document"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	return newRenderCommand(&RenderOptions{RootOptions: rootOpts})
}

func newRenderCommand(opts *RenderOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <tree.cue|dir>",
		Short: "Render a CUE tree into a fresh host document",
		Long: `Compile a CUE tree and render it with the cooperative scheduler. Work is
granted in slices (--slice) until the pass commits; the resulting host
document is printed.

With --db (or journal.path in the config file) the committed pass is
appended to a SQLite journal. Sequence numbers continue from the last
entry in an existing journal.

Examples:
  reconciler render testdata/scenarios/stories.cue
  reconciler render --db ./journal.db --slice 2ms app.cue
  reconciler render --config reconciler.toml app.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to TOML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides journal.path)")
	cmd.Flags().DurationVar(&opts.Slice, "slice", config.DefaultSlice, "grant length per slice")
	cmd.Flags().IntVar(&opts.MaxUnits, "max-units", config.DefaultMaxUnits, "per-pass unit quota (0 disables)")

	return cmd
}

// settings merges the config file with explicitly set flags.
func (opts *RenderOptions) settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("slice") {
		cfg.Scheduler.Slice.Duration = opts.Slice
	}
	if flags.Changed("max-units") {
		cfg.Scheduler.MaxUnits = opts.MaxUnits
	}
	if flags.Changed("db") {
		cfg.Journal.Path = opts.Database
	}
	return cfg, cfg.Validate()
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	cfg, err := opts.settings(cmd)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	el, err := compileTree(formatter, path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := &recorder{}
	clock := engine.NewClock()
	if cfg.Journal.Path != "" {
		st, err := store.Open(cfg.Journal.Path)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "opening journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		last, err := st.LastSeq(ctx)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "reading journal", err)
		}
		clock = engine.NewClockAt(last)
		rec.next = st
		formatter.VerboseLog("Journal %s at seq %d", cfg.Journal.Path, last)
	}

	schedOpts := []engine.SchedulerOption{
		engine.WithSlice(cfg.Scheduler.Slice.Duration),
		engine.WithMaxUnits(cfg.Scheduler.MaxUnits),
		engine.WithClock(clock),
		engine.WithJournal(rec),
		engine.WithLogger(logger),
	}
	if opts.PassIDs != nil {
		schedOpts = append(schedOpts, engine.WithPassIDs(opts.PassIDs))
	}

	doc := host.NewDocument()
	sched := engine.New(doc, schedOpts...)
	sched.Render(el, doc.Root())
	// Run drains the queued render, then returns.
	sched.Stop()
	if err := sched.Run(ctx); err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "render interrupted", err)
	}

	if err := rec.err(); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "writing journal", err)
	}
	if failures := rec.failureRecords(); len(failures) > 0 {
		f := failures[0]
		_ = formatter.Error(ErrCodePassFailed, fmt.Sprintf("pass %s failed: %s: %s", f.ID, f.Code, f.Message), f)
		return NewExitError(ExitFailure, fmt.Sprintf("pass %s failed: %s", f.ID, f.Code))
	}

	pass, ok := sched.LastPass()
	if !ok {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "no pass committed", nil)
	}

	if formatter.JSON() {
		return formatter.Success(RenderResult{Pass: pass, Dump: doc.Dump(), Document: doc.Root()})
	}
	counts := pass.CountEffects()
	fmt.Fprintf(formatter.Writer, "✓ Pass %s seq=%d: %d unit(s), %d insert, %d update, %d delete\n\n",
		pass.ID, pass.Seq, pass.Units, counts["insert"], counts["update"], counts["delete"])
	fmt.Fprint(formatter.Writer, doc.Dump())
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// recorder collects pass outcomes for the command and forwards them to
// the SQLite journal when one is open.
type recorder struct {
	next engine.Journal

	mu       sync.Mutex
	failures []ir.FailureRecord
	writeErr error
}

var _ engine.Journal = (*recorder)(nil)
var _ engine.Journal = (*store.Store)(nil)

func (r *recorder) RecordPass(ctx context.Context, rec ir.PassRecord) error {
	return r.forward(func(j engine.Journal) error { return j.RecordPass(ctx, rec) })
}

func (r *recorder) RecordFailure(ctx context.Context, rec ir.FailureRecord) error {
	r.mu.Lock()
	r.failures = append(r.failures, rec)
	r.mu.Unlock()
	return r.forward(func(j engine.Journal) error { return j.RecordFailure(ctx, rec) })
}

func (r *recorder) forward(write func(engine.Journal) error) error {
	if r.next == nil {
		return nil
	}
	err := write(r.next)
	if err != nil {
		r.mu.Lock()
		if r.writeErr == nil {
			r.writeErr = err
		}
		r.mu.Unlock()
	}
	return err
}

func (r *recorder) failureRecords() []ir.FailureRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.FailureRecord(nil), r.failures...)
}

func (r *recorder) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeErr
}
