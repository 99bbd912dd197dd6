package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the committed passes to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Passes   []ir.PassRecord // Committed passes for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Passes) > 0 {
		fmt.Fprintf(&buf, "\nPasses:\n")
		for _, p := range e.Passes {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", p.Seq, p.ID, p.Origin, effectLines(p))
		}
	}

	return buf.String()
}

// effectLines renders a pass's effects as "tag path" strings.
func effectLines(p ir.PassRecord) []string {
	out := make([]string, len(p.Effects))
	for i, e := range p.Effects {
		out[i] = e.Tag + " " + e.Path
	}
	return out
}

// selectPass returns the pass at a 1-based position, 0 meaning the last.
func selectPass(result *Result, pos int) (ir.PassRecord, error) {
	if pos == 0 {
		if p, ok := result.LastPass(); ok {
			return p, nil
		}
		return ir.PassRecord{}, fmt.Errorf("no committed passes")
	}
	if pos > len(result.Passes) {
		return ir.PassRecord{}, fmt.Errorf("pass %d requested, %d committed", pos, len(result.Passes))
	}
	return result.Passes[pos-1], nil
}

func assertPassCount(result *Result, a Assertion) error {
	if len(result.Passes) != a.Count {
		return &AssertionError{
			Type:     AssertPassCount,
			Expected: fmt.Sprintf("%d committed passes", a.Count),
			Actual:   fmt.Sprintf("%d committed passes", len(result.Passes)),
			Passes:   result.Passes,
		}
	}
	return nil
}

func assertFailureCount(result *Result, a Assertion) error {
	if len(result.Failures) != a.Count {
		return &AssertionError{
			Type:     AssertFailureCount,
			Expected: fmt.Sprintf("%d failed passes", a.Count),
			Actual:   fmt.Sprintf("%d failed passes", len(result.Failures)),
		}
	}
	return nil
}

func assertEffectCount(result *Result, a Assertion) error {
	p, err := selectPass(result, a.Pass)
	if err != nil {
		return &AssertionError{Type: AssertEffectCount, Expected: fmt.Sprintf("%d %s effects", a.Count, a.Tag), Actual: err.Error()}
	}
	if got := p.CountEffects()[a.Tag]; got != a.Count {
		return &AssertionError{
			Type:     AssertEffectCount,
			Expected: fmt.Sprintf("%d %s effects in %s", a.Count, a.Tag, p.ID),
			Actual:   fmt.Sprintf("%d", got),
			Passes:   result.Passes,
		}
	}
	return nil
}

func assertEffectOrder(result *Result, a Assertion) error {
	p, err := selectPass(result, a.Pass)
	if err != nil {
		return &AssertionError{Type: AssertEffectOrder, Expected: fmt.Sprintf("%v", a.Effects), Actual: err.Error()}
	}
	got := effectLines(p)
	want := a.Effects
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertEffectOrder,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
			Passes:   result.Passes,
		}
	}
	return nil
}

func assertTextAt(doc *host.Document, a Assertion) error {
	path, err := host.ParsePath(a.Path)
	if err != nil {
		return err
	}
	n, err := doc.Find(path...)
	if err != nil {
		return &AssertionError{Type: AssertTextAt, Expected: fmt.Sprintf("%q at %s", a.Text, a.Path), Actual: err.Error()}
	}
	if !n.IsText() {
		return &AssertionError{Type: AssertTextAt, Expected: fmt.Sprintf("text node at %s", a.Path), Actual: fmt.Sprintf("<%s>", n.Tag)}
	}
	if n.Text != a.Text {
		return &AssertionError{Type: AssertTextAt, Expected: fmt.Sprintf("%q at %s", a.Text, a.Path), Actual: fmt.Sprintf("%q", n.Text)}
	}
	return nil
}

func assertDumpContains(result *Result, a Assertion) error {
	if !strings.Contains(result.Dump, a.Text) {
		return &AssertionError{
			Type:     AssertDumpContains,
			Expected: fmt.Sprintf("dump containing %q", a.Text),
			Actual:   result.Dump,
		}
	}
	return nil
}

func assertFailure(result *Result, a Assertion) error {
	codes := make([]string, len(result.Failures))
	for i, f := range result.Failures {
		if f.Code == a.Code {
			return nil
		}
		codes[i] = f.Code
	}
	return &AssertionError{
		Type:     AssertFailure,
		Expected: fmt.Sprintf("a failed pass with code %s", a.Code),
		Actual:   fmt.Sprintf("failure codes %v", codes),
	}
}

func assertSameTree(result *Result, a Assertion) error {
	first, err := selectPass(result, a.Passes[0])
	if err != nil {
		return &AssertionError{Type: AssertSameTree, Expected: "two committed passes", Actual: err.Error()}
	}
	second, err := selectPass(result, a.Passes[1])
	if err != nil {
		return &AssertionError{Type: AssertSameTree, Expected: "two committed passes", Actual: err.Error()}
	}
	if first.TreeHash != second.TreeHash {
		return &AssertionError{
			Type:     AssertSameTree,
			Expected: fmt.Sprintf("%s and %s to hash alike", first.ID, second.ID),
			Actual:   fmt.Sprintf("%s != %s", first.TreeHash, second.TreeHash),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Doc *host.Document
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the host document for text_at assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPassCount:
			err = assertPassCount(result, assertion)
		case AssertFailureCount:
			err = assertFailureCount(result, assertion)
		case AssertEffectCount:
			err = assertEffectCount(result, assertion)
		case AssertEffectOrder:
			err = assertEffectOrder(result, assertion)
		case AssertTextAt:
			if actx == nil || actx.Doc == nil {
				err = fmt.Errorf("assertion[%d]: text_at requires a host document", i)
			} else {
				err = assertTextAt(actx.Doc, assertion)
			}
		case AssertDumpContains:
			err = assertDumpContains(result, assertion)
		case AssertFailure:
			err = assertFailure(result, assertion)
		case AssertSameTree:
			if len(assertion.Passes) != 2 {
				err = fmt.Errorf("assertion[%d]: same_tree needs two passes", i)
			} else {
				err = assertSameTree(result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
