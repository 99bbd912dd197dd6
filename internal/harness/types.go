package harness

import "github.com/roach88/reconciler/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// holds.
	Pass bool `json:"pass"`

	// Passes are the committed passes in journal order.
	Passes []ir.PassRecord `json:"passes"`

	// Failures are the failed passes in journal order.
	Failures []ir.FailureRecord `json:"failures"`

	// Dump is the final host document.
	Dump string `json:"dump"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Passes:   []ir.PassRecord{},
		Failures: []ir.FailureRecord{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// LastPass returns the most recent committed pass.
func (r *Result) LastPass() (ir.PassRecord, bool) {
	if len(r.Passes) == 0 {
		return ir.PassRecord{}, false
	}
	return r.Passes[len(r.Passes)-1], true
}
