package compiler

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
)

// TreeField is the top-level field holding the element tree in a document.
// Documents without it are compiled as a tree themselves.
const TreeField = "tree"

// HandlerKey marks a property value as a handler reference:
//
//	onClick: {"$handler": "like"}
const HandlerKey = "$handler"

// Compiler turns declarative tree documents into elements.
//
// A tree node is either a literal (string, int, bool) that becomes a text
// element, null/false which is dropped, or a struct:
//
//	{
//		kind:     "ul" | "Counter"   // host tag or registered component
//		props:    {...}              // optional
//		children: [...]              // optional, list or single node
//	}
//
// Kinds starting with an upper-case letter name components and must be
// registered. All other kinds are host tags.
type Compiler struct {
	registry *element.Registry
	handlers map[string]*ir.Handler
}

// New creates a compiler resolving components from reg. handlers may be nil.
func New(reg *element.Registry, handlers map[string]*ir.Handler) *Compiler {
	return &Compiler{registry: reg, handlers: handlers}
}

// CompileFile compiles the CUE document at path.
func (c *Compiler) CompileFile(path string) (*element.Element, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return c.CompileSource(path, src)
}

// CompileSource compiles CUE source text. filename is used in positions.
func (c *Compiler) CompileSource(filename string, src []byte) (*element.Element, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return c.CompileValue(TreeValue(v))
}

// TreeValue returns the document's tree field, or v when it has none.
func TreeValue(v cue.Value) cue.Value {
	if t := v.LookupPath(cue.ParsePath(TreeField)); t.Exists() {
		return t
	}
	return v
}

// CompileValue compiles a CUE value. Errors carry the CUE position of the
// offending field.
func (c *Compiler) CompileValue(v cue.Value) (*element.Element, error) {
	raw, err := decodeValue(v)
	if err != nil {
		return nil, err
	}
	el, err := c.CompileMap(raw)
	var cerr *CompileError
	if errors.As(err, &cerr) {
		return nil, withPosition(v, cerr)
	}
	return el, err
}

// CompileMap compiles a decoded document (YAML or JSON).
func (c *Compiler) CompileMap(raw any) (*element.Element, error) {
	w := &walker{compiler: c, failFast: true}
	el := w.node(nil, raw)
	if len(w.errs) > 0 {
		return nil, w.errs[0]
	}
	if el == nil {
		return nil, &CompileError{Field: "tree", Code: ErrEmptyTree, Message: "tree renders nothing"}
	}
	return el, nil
}

func decodeValue(v cue.Value) (any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	var raw any
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}
	return raw, nil
}

// walker compiles one document, collecting errors with their field paths.
type walker struct {
	compiler *Compiler
	failFast bool
	errs     []*CompileError
}

// segment is a field name (string) or list index (int).
type segment any

func (w *walker) fail(path []segment, code, format string, args ...any) {
	w.errs = append(w.errs, &CompileError{
		Field:    fieldPath(path),
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		segments: append([]segment(nil), path...),
	})
}

func (w *walker) stopped() bool {
	return w.failFast && len(w.errs) > 0
}

func (w *walker) node(path []segment, raw any) *element.Element {
	if w.stopped() {
		return nil
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		if !v {
			return nil
		}
		return element.Text(v)
	case map[string]any:
		return w.structNode(path, v)
	case []any:
		w.fail(path, ErrInvalidChild, "a node cannot be a list; use children")
		return nil
	default:
		val, err := ir.FromAny(v)
		if err != nil {
			w.fail(path, ErrInvalidValue, "%v", err)
			return nil
		}
		return element.Text(val)
	}
}

func (w *walker) structNode(path []segment, m map[string]any) *element.Element {
	for _, key := range sortedKeys(m) {
		switch key {
		case "kind", "props", "children":
		default:
			w.fail(append(path, key), ErrUnknownField, "unknown node field %q", key)
		}
	}

	kind, ok := w.kind(path, m["kind"])
	if !ok {
		return nil
	}

	props := ir.Object{}
	if raw, ok := m["props"]; ok && raw != nil {
		pm, isMap := raw.(map[string]any)
		if !isMap {
			w.fail(append(path, "props"), ErrInvalidProps, "props must be a struct, got %T", raw)
			return nil
		}
		props = w.props(append(path, "props"), pm)
	}

	var children []any
	switch raw := m["children"].(type) {
	case nil:
	case []any:
		for i, c := range raw {
			if el := w.node(append(path, "children", i), c); el != nil {
				children = append(children, el)
			}
		}
	default:
		if el := w.node(append(path, "children"), raw); el != nil {
			children = append(children, el)
		}
	}

	if w.stopped() {
		return nil
	}
	return element.Create(kind, props, children...)
}

func (w *walker) kind(path []segment, raw any) (element.Kind, bool) {
	name, ok := raw.(string)
	if !ok || name == "" {
		w.fail(append(path, "kind"), ErrMissingKind, "kind is required and must be a non-empty string")
		return element.Kind{}, false
	}
	if def, ok := w.compiler.registry.Lookup(name); ok {
		return element.Of(def), true
	}
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsUpper(r) {
		w.fail(append(path, "kind"), ErrUnknownComponent, "unknown component %q", name)
		return element.Kind{}, false
	}
	return element.Tag(name), true
}

func (w *walker) props(path []segment, m map[string]any) ir.Object {
	out := make(ir.Object, len(m))
	for _, key := range sortedKeys(m) {
		raw := m[key]
		if key == "children" {
			w.fail(append(path, key), ErrInvalidProps, "children belong on the node, not in props")
			continue
		}
		if v, ok := w.value(append(path, key), raw); ok {
			out[key] = v
		}
	}
	return out
}

func (w *walker) value(path []segment, raw any) (ir.Value, bool) {
	switch v := raw.(type) {
	case map[string]any:
		if ref, ok := v[HandlerKey]; ok && len(v) == 1 {
			return w.handler(path, ref)
		}
		obj := make(ir.Object, len(v))
		for _, k := range sortedKeys(v) {
			conv, ok := w.value(append(path, k), v[k])
			if !ok {
				return nil, false
			}
			obj[k] = conv
		}
		return obj, true
	case []any:
		arr := make(ir.Array, len(v))
		for i, elem := range v {
			conv, ok := w.value(append(path, i), elem)
			if !ok {
				return nil, false
			}
			arr[i] = conv
		}
		return arr, true
	default:
		val, err := ir.FromAny(v)
		if err != nil {
			w.fail(path, ErrInvalidValue, "%v", err)
			return nil, false
		}
		return val, true
	}
}

func (w *walker) handler(path []segment, ref any) (ir.Value, bool) {
	name, _ := ref.(string)
	h, ok := w.compiler.handlers[name]
	if !ok {
		w.fail(append(path, HandlerKey), ErrUnknownHandler, "unknown handler %q", name)
		return nil, false
	}
	return h, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fieldPath renders segments as tree.children[1].props.id.
func fieldPath(path []segment) string {
	var b strings.Builder
	b.WriteString(TreeField)
	for _, s := range path {
		switch v := s.(type) {
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		case string:
			b.WriteString("." + v)
		}
	}
	return b.String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Code    string
	Message string
	Pos     token.Pos

	segments []segment
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// withPosition resolves the error's field path against v. The deepest
// existing ancestor supplies the position.
func withPosition(v cue.Value, err *CompileError) *CompileError {
	sels := make([]cue.Selector, 0, len(err.segments))
	for _, s := range err.segments {
		switch x := s.(type) {
		case int:
			sels = append(sels, cue.Index(x))
		case string:
			sels = append(sels, cue.Str(x))
		}
	}
	for n := len(sels); n >= 0; n-- {
		if f := v.LookupPath(cue.MakePath(sels[:n]...)); f.Exists() && f.Pos().IsValid() {
			err.Pos = f.Pos()
			break
		}
	}
	return err
}

// CUEError converts a CUE load or evaluation error into a CompileError
// carrying the first reported position.
func CUEError(err error) *CompileError {
	return asCompileError(formatCUEError(err))
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Code:    ErrCUE,
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
