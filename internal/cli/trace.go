package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reconciler/internal/ir"
	"github.com/roach88/reconciler/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Pass      string // optional - show one pass in detail
	Origin    string // timeline filters
	Component string
	Tag       string
}

// filter builds the journal predicate for the timeline flags. Returns nil
// when no filter flag is set.
func (opts *TraceOptions) filter() store.Predicate {
	var preds []store.Predicate
	if opts.Origin != "" {
		preds = append(preds, store.Equals{Field: "origin", Value: opts.Origin})
	}
	if opts.Component != "" {
		preds = append(preds, store.Equals{Field: "component", Value: opts.Component})
	}
	if opts.Tag != "" {
		preds = append(preds, store.HasEffect{Tag: opts.Tag})
	}
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	return store.And{Predicates: preds}
}

// keepFailure applies the timeline filters to a failed pass. Failures
// have no effects, so a tag filter excludes them all.
func (opts *TraceOptions) keepFailure(f ir.FailureRecord) bool {
	if opts.Tag != "" {
		return false
	}
	if opts.Origin != "" && f.Origin != opts.Origin {
		return false
	}
	return opts.Component == "" || f.Component == opts.Component
}

// TraceEvent is one journal entry in the timeline.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Type      string `json:"type"` // "pass" or "failure"
	ID        string `json:"id"`
	Origin    string `json:"origin"`
	Component string `json:"component,omitempty"`
	Effects   int    `json:"effects,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// TraceStats summarizes the journal.
type TraceStats struct {
	Passes   int            `json:"passes"`
	Failures int            `json:"failures"`
	Effects  map[string]int `json:"effects"`
	LastSeq  int64          `json:"last_seq"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the commit journal",
		Long: `Read the SQLite commit journal written by render.

Without --pass, prints the timeline of committed and failed passes in
sequence order with per-tag effect totals for the whole journal. The
timeline can be narrowed with --origin, --component and --tag (passes
that applied at least one effect with that tag). With --pass, prints the
effects of one pass in commit order.

Examples:
  reconciler trace --db ./journal.db
  reconciler trace --db ./journal.db --component Story --tag update
  reconciler trace --db ./journal.db --pass 0192f0c4-...
  reconciler trace --db ./journal.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "pass id to show in detail")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "only passes with this origin (root|component)")
	cmd.Flags().StringVar(&opts.Component, "component", "", "only passes requested by this component")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only passes with an effect of this tag (insert|update|delete)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	// Open would create an empty journal.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("journal not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "opening journal", err)
	}
	defer st.Close()

	if opts.Pass != "" {
		return tracePass(ctx, formatter, st, opts.Pass)
	}

	result, err := buildTrace(ctx, st, opts)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "reading journal", err)
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result, opts.filter() != nil)
}

func buildTrace(ctx context.Context, st *store.Store, opts *TraceOptions) (TraceResult, error) {
	passes, err := st.QueryPasses(ctx, opts.filter())
	if err != nil {
		return TraceResult{}, err
	}
	failures, err := st.ListFailures(ctx)
	if err != nil {
		return TraceResult{}, err
	}
	counts, err := st.EffectCounts(ctx)
	if err != nil {
		return TraceResult{}, err
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		return TraceResult{}, err
	}

	timeline := make([]TraceEvent, 0, len(passes)+len(failures))
	for _, p := range passes {
		timeline = append(timeline, TraceEvent{
			Seq: p.Seq, Type: "pass", ID: p.ID,
			Origin: p.Origin, Component: p.Component,
			Effects: len(p.Effects),
		})
	}
	kept := 0
	for _, f := range failures {
		if !opts.keepFailure(f) {
			continue
		}
		kept++
		timeline = append(timeline, TraceEvent{
			Seq: f.Seq, Type: "failure", ID: f.ID,
			Origin: f.Origin, Component: f.Component,
			Code: f.Code, Message: f.Message,
		})
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		if timeline[i].Seq != timeline[j].Seq {
			return timeline[i].Seq < timeline[j].Seq
		}
		return timeline[i].ID < timeline[j].ID
	})

	return TraceResult{
		Timeline: timeline,
		Stats: TraceStats{
			Passes:   len(passes),
			Failures: kept,
			Effects:  counts,
			LastSeq:  last,
		},
	}, nil
}

func outputTraceText(formatter *OutputFormatter, result TraceResult, filtered bool) error {
	w := formatter.Writer
	if len(result.Timeline) == 0 {
		if filtered {
			fmt.Fprintln(w, "No matching entries.")
		} else {
			fmt.Fprintln(w, "Journal is empty.")
		}
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		who := e.Origin
		if e.Component != "" {
			who += " " + e.Component
		}
		switch e.Type {
		case "failure":
			fmt.Fprintf(w, "  [%d] ✗ %s (%s) %s: %s\n", e.Seq, e.ID, who, e.Code, e.Message)
		default:
			fmt.Fprintf(w, "  [%d] ✓ %s (%s) %d effect(s)\n", e.Seq, e.ID, who, e.Effects)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d pass(es), %d failure(s), last seq %d\n",
		result.Stats.Passes, result.Stats.Failures, result.Stats.LastSeq)
	tags := make([]string, 0, len(result.Stats.Effects))
	for tag := range result.Stats.Effects {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s: %d\n", tag, result.Stats.Effects[tag])
	}
	return nil
}

func tracePass(ctx context.Context, formatter *OutputFormatter, st *store.Store, id string) error {
	pass, err := st.ReadPass(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.fail(ExitFailure, ErrCodePassNotFound, fmt.Sprintf("no pass %q in journal", id), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "reading pass", err)
	}

	if formatter.JSON() {
		return formatter.Success(pass)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Pass %s seq=%d origin=%s", pass.ID, pass.Seq, pass.Origin)
	if pass.Component != "" {
		fmt.Fprintf(w, " component=%s", pass.Component)
	}
	fmt.Fprintf(w, "\n  units: %d\n  tree: %s\n\nEffects:\n", pass.Units, pass.TreeHash)
	for _, e := range pass.Effects {
		fmt.Fprintf(w, "  %s\n", effectLine(e))
	}
	return nil
}

func effectLine(e ir.EffectRecord) string {
	line := fmt.Sprintf("%-6s %s %q", e.Tag, e.Kind, e.Path)
	if len(e.Keys) > 0 {
		line += " [" + strings.Join(e.Keys, " ") + "]"
	}
	return line
}
