package compiler

import (
	"fmt"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
)

func TestValidateCollectsAllErrors(t *testing.T) {
	v := cuecontext.New().CompileString(`
		kind: "ul"
		children: [
			{kind: "Missing"},
			{props: {}},
			{kind: "li", props: width: 2.5},
		]
	`)
	require.NoError(t, v.Err())

	res := testCompiler().ValidateValue(v)
	require.False(t, res.OK())

	var codes []string
	for _, e := range res.Errors {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{ErrUnknownComponent, ErrMissingKind, ErrInvalidValue}, codes)
	for _, e := range res.Errors {
		assert.True(t, e.Pos.IsValid(), "%s should carry a position", e.Field)
	}
}

func TestValidateWarnings(t *testing.T) {
	res := testCompiler().ValidateMap(map[string]any{
		"kind": "div",
		"children": []any{
			map[string]any{"kind": "button", "props": map[string]any{"onClick": "like"}},
			map[string]any{"kind": "p", "props": map[string]any{"style": "color: red"}},
		},
	})
	require.True(t, res.OK())
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, WarnEventNotHandler, res.Warnings[0].Code)
	assert.Equal(t, "tree.children[0].props.onClick", res.Warnings[0].Field)
	assert.Equal(t, WarnStyleNotStruct, res.Warnings[1].Code)
}

func TestValidateClean(t *testing.T) {
	res := testCompiler().ValidateMap(map[string]any{"kind": "p", "children": []any{"ok"}})
	assert.True(t, res.OK())
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateEmptyTree(t *testing.T) {
	res := testCompiler().ValidateMap(false)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrEmptyTree, res.Errors[0].Code)
}

func TestValidateWarnsOnIgnoredComponentChildren(t *testing.T) {
	frame := element.NewContainer("Frame", nil,
		func(_, _ ir.Object, children []*element.Element, _ element.Updater) (*element.Element, error) {
			return element.H("section", nil, children), nil
		})
	c := New(element.NewRegistry(greeting, frame), nil)

	res := c.ValidateMap(map[string]any{
		"kind": "div",
		"children": []any{
			map[string]any{"kind": "Greeting", "children": []any{"dropped"}},
			map[string]any{"kind": "Frame", "children": []any{"kept"}},
		},
	})
	require.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnIgnoredChildren, res.Warnings[0].Code)
	assert.Equal(t, "tree.children[0].children", res.Warnings[0].Field)
}

func TestAsCompileErrorUnwraps(t *testing.T) {
	inner := &CompileError{Field: "tree.kind", Code: ErrMissingKind, Message: "missing"}
	assert.Same(t, inner, asCompileError(fmt.Errorf("loading: %w", inner)))

	plain := asCompileError(fmt.Errorf("boom"))
	assert.Equal(t, ErrCUE, plain.Code)
	assert.Equal(t, "boom", plain.Message)
}
