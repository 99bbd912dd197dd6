package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reconciler/internal/catalog"
	"github.com/roach88/reconciler/internal/compiler"
	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the lowered element tree and its hash.
type CompilationResult struct {
	Hash string          `json:"hash"`
	Tree json.RawMessage `json:"tree"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <tree.cue|dir>",
		Short: "Compile a CUE tree to its canonical element description",
		Long: `Compile a CUE tree document against the built-in component catalog and
print the element tree as canonical JSON, together with its tree hash.

Examples:
  reconciler compile testdata/scenarios/stories.cue
  reconciler compile ./app -o tree.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	el, err := compileTree(formatter, path)
	if err != nil {
		return err
	}

	result, err := describe(el)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "describing tree", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, indentJSON(result.Tree), 0o644); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %s (hash %s)\n\n", path, result.Hash)
	fmt.Fprintln(formatter.Writer, string(indentJSON(result.Tree)))
	return nil
}

// compileTree loads and compiles path with the catalog registry, reporting
// failures through formatter.
func compileTree(formatter *OutputFormatter, path string) (*element.Element, error) {
	loaded, err := LoadTree(path)
	if err != nil {
		return nil, outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, path)

	el, err := compiler.New(catalog.Registry(), nil).CompileValue(loaded.Tree)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			_ = formatter.Error(ce.Code, ce.Error(), nil)
			return nil, WrapExitError(ExitFailure, "compilation failed", err)
		}
		return nil, formatter.fail(ExitFailure, ErrCodeGeneric, "compilation failed", err)
	}
	return el, nil
}

func outputLoadError(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		_ = formatter.Error(le.Code, le.Error(), nil)
		exit := ExitCommandError
		if le.Code == ErrCodeBuildFailed {
			exit = ExitFailure
		}
		return WrapExitError(exit, "loading tree", err)
	}
	return formatter.fail(ExitCommandError, ErrCodeGeneric, "loading tree", err)
}

func describe(el *element.Element) (*CompilationResult, error) {
	desc := el.Describe()
	hash, err := ir.TreeHash(desc)
	if err != nil {
		return nil, err
	}
	data, err := ir.MarshalCanonical(desc)
	if err != nil {
		return nil, err
	}
	return &CompilationResult{Hash: hash, Tree: data}, nil
}

func indentJSON(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return data
	}
	return buf.Bytes()
}
