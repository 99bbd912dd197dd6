package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/reconciler/internal/diff"
	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
)

// Compile error codes (E200-E299)
const (
	ErrCUE              = "E200" // CUE parse or evaluation error
	ErrMissingKind      = "E201" // node has no kind
	ErrUnknownComponent = "E202" // upper-case kind not in the registry
	ErrInvalidProps     = "E203" // props is not a struct, or holds children
	ErrInvalidValue     = "E204" // unsupported property value (floats)
	ErrUnknownHandler   = "E205" // $handler reference not registered
	ErrInvalidChild     = "E206" // child is not a node
	ErrUnknownField     = "E207" // node field other than kind/props/children
	ErrEmptyTree        = "E208" // the document renders nothing
)

// Warning codes (W200-W299)
const (
	WarnEventNotHandler = "W201" // on* property holding a plain value
	WarnStyleNotStruct  = "W202" // style property that is not a struct
	WarnIgnoredChildren = "W203" // children on a component that does not render them
)

// Warning is a non-fatal finding. The tree still compiles.
type Warning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of validating a document.
type Result struct {
	Errors   []*CompileError `json:"errors"`
	Warnings []Warning       `json:"warnings"`
}

// OK reports whether the document compiles.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// ValidateValue checks a CUE tree, returning every error (does not fail
// fast) and lint warnings for the compiled tree.
func (c *Compiler) ValidateValue(v cue.Value) Result {
	raw, err := decodeValue(v)
	if err != nil {
		return Result{Errors: []*CompileError{asCompileError(err)}}
	}
	res := c.ValidateMap(raw)
	for i := range res.Errors {
		res.Errors[i] = withPosition(v, res.Errors[i])
	}
	return res
}

// ValidateMap checks a decoded tree.
func (c *Compiler) ValidateMap(raw any) Result {
	w := &walker{compiler: c}
	el := w.node(nil, raw)
	res := Result{Errors: w.errs, Warnings: []Warning{}}
	if res.Errors == nil {
		res.Errors = []*CompileError{}
	}
	if len(w.errs) == 0 && el == nil {
		res.Errors = append(res.Errors, &CompileError{Field: TreeField, Code: ErrEmptyTree, Message: "tree renders nothing"})
	}
	if el != nil && len(w.errs) == 0 {
		res.Warnings = lint(TreeField, el, res.Warnings)
	}
	return res
}

// lint walks a compiled tree for properties and children that will be
// ignored.
func lint(path string, el *element.Element, out []Warning) []Warning {
	if el.Kind.IsComponent() && len(el.Children) > 0 && !element.AcceptsChildren(el.Kind.Component) {
		out = append(out, Warning{
			Field:   path + ".children",
			Code:    WarnIgnoredChildren,
			Message: fmt.Sprintf("%s does not render children; %d child(ren) ignored", el.Kind, len(el.Children)),
		})
	}
	if !el.Kind.IsComponent() {
		for _, key := range el.Props.SortedKeys() {
			val := el.Props[key]
			field := path + ".props." + key
			if diff.IsEvent(key) {
				if _, ok := val.(*ir.Handler); !ok {
					out = append(out, Warning{
						Field:   field,
						Code:    WarnEventNotHandler,
						Message: fmt.Sprintf("%s is an event property but holds %s; the listener is ignored", key, ir.Text(val)),
					})
				}
			}
			if key == diff.StyleProp {
				if _, ok := val.(ir.Object); !ok {
					out = append(out, Warning{
						Field:   field,
						Code:    WarnStyleNotStruct,
						Message: "style must be a struct; it is treated as empty",
					})
				}
			}
		}
	}
	for i, c := range el.Children {
		out = lint(fmt.Sprintf("%s.children[%d]", path, i), c, out)
	}
	return out
}

func asCompileError(err error) *CompileError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompileError{Field: "cue", Code: ErrCUE, Message: err.Error()}
}
