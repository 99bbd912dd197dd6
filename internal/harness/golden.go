package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result deterministically: every pass and failure in
// seq order with its effect list, followed by the final host dump.
// Tree hashes and unit counts are left out so snapshots stay readable.
//
//	scenario: counter_click
//	pass pass-1 seq=1 origin=root
//	  insert span 0/0/0
//	failure pass-2 seq=2 origin=component component=Counter RENDER_FAILED
//	dump:
//	<#root>
//	  ...
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	passes, failures := result.Passes, result.Failures
	for len(passes) > 0 || len(failures) > 0 {
		if len(failures) == 0 || (len(passes) > 0 && passes[0].Seq < failures[0].Seq) {
			p := passes[0]
			passes = passes[1:]
			fmt.Fprintf(&b, "pass %s seq=%d origin=%s", p.ID, p.Seq, p.Origin)
			if p.Component != "" {
				fmt.Fprintf(&b, " component=%s", p.Component)
			}
			b.WriteByte('\n')
			for _, e := range p.Effects {
				fmt.Fprintf(&b, "  %s %s %s", e.Tag, e.Kind, e.Path)
				if len(e.Keys) > 0 {
					fmt.Fprintf(&b, " [%s]", strings.Join(e.Keys, " "))
				}
				b.WriteByte('\n')
			}
			continue
		}
		f := failures[0]
		failures = failures[1:]
		fmt.Fprintf(&b, "failure %s seq=%d origin=%s", f.ID, f.Seq, f.Origin)
		if f.Component != "" {
			fmt.Fprintf(&b, " component=%s", f.Component)
		}
		fmt.Fprintf(&b, " %s\n", f.Code)
	}

	b.WriteString("dump:\n")
	b.WriteString(result.Dump)
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass and Errors as well.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
