package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reconciler/internal/catalog"
	"github.com/roach88/reconciler/internal/compiler"
)

// ValidationError is one error in the validate output.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Pos     string `json:"pos,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool               `json:"valid"`
	Errors   []ValidationError  `json:"errors"`
	Warnings []compiler.Warning `json:"warnings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <tree.cue|dir>",
		Short: "Check a CUE tree without rendering it",
		Long: `Check a CUE tree document against the built-in component catalog.

Unlike compile, validate reports every error in the document instead of
stopping at the first one, and lints the tree for suspicious properties.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadTree(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, path)

	res := compiler.New(catalog.Registry(), nil).ValidateValue(loaded.Tree)
	out := ValidationResult{
		Valid:    res.OK(),
		Errors:   make([]ValidationError, 0, len(res.Errors)),
		Warnings: res.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []compiler.Warning{}
	}
	for _, e := range res.Errors {
		ve := ValidationError{Code: e.Code, Field: e.Field, Message: e.Message}
		if e.Pos.IsValid() {
			ve.Pos = fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
		}
		out.Errors = append(out.Errors, ve)
	}

	if formatter.JSON() {
		if out.Valid {
			return formatter.Success(out)
		}
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   out,
			Error: &CLIError{
				Code:    out.Errors[0].Code,
				Message: fmt.Sprintf("validation failed with %d error(s)", len(out.Errors)),
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(out.Errors)))
	}

	w := formatter.Writer
	for _, wa := range out.Warnings {
		fmt.Fprintf(w, "warning %s: %s: %s\n", wa.Code, wa.Field, wa.Message)
	}
	if out.Valid {
		fmt.Fprintln(w, "✓ Tree is valid")
		return nil
	}

	fmt.Fprintf(w, "✗ Validation failed with %d error(s)\n\n", len(out.Errors))
	for _, e := range out.Errors {
		if e.Pos != "" {
			fmt.Fprintln(w, e.Pos)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(out.Errors)))
}
