package element

import (
	"fmt"

	"github.com/roach88/reconciler/internal/ir"
)

// TextKind is the host tag used for text leaves.
const TextKind = "TEXT ELEMENT"

// NodeValueProp carries the text of a TextKind element.
const NodeValueProp = "nodeValue"

// Kind identifies what an element renders into: a host tag or a component.
// Exactly one of Tag and Component is set.
type Kind struct {
	Tag       string
	Component Component
}

// Tag returns a host kind.
func Tag(name string) Kind {
	return Kind{Tag: name}
}

// Of returns a component kind.
func Of(c Component) Kind {
	return Kind{Component: c}
}

// IsComponent reports whether the kind names a component definition.
func (k Kind) IsComponent() bool {
	return k.Component != nil
}

// IsText reports whether the kind is the text leaf kind.
func (k Kind) IsText() bool {
	return k.Component == nil && k.Tag == TextKind
}

// Same reports whether two kinds are interchangeable at one tree position.
// Tags compare by name, components by definition identity.
func (k Kind) Same(other Kind) bool {
	if k.IsComponent() || other.IsComponent() {
		return k.Component == other.Component
	}
	return k.Tag == other.Tag
}

// String returns the tag, or the component's name.
func (k Kind) String() string {
	if k.IsComponent() {
		return k.Component.Name()
	}
	return k.Tag
}

// Element is an immutable tree node description.
type Element struct {
	Kind     Kind
	Props    ir.Object
	Children []*Element
}

// Create builds an element. Children may be *Element, Element, []any
// (flattened), ir.Value or Go literals; literals become text elements and
// nil/false are dropped. Unknown properties are forwarded verbatim.
func Create(kind Kind, props ir.Object, children ...any) *Element {
	p := props.Clone()
	delete(p, "children")
	return &Element{
		Kind:     kind,
		Props:    p,
		Children: normalizeChildren(children),
	}
}

// H is shorthand for Create with a host tag.
func H(tag string, props ir.Object, children ...any) *Element {
	return Create(Tag(tag), props, children...)
}

// C is shorthand for Create with a component kind.
func C(c Component, props ir.Object, children ...any) *Element {
	return Create(Of(c), props, children...)
}

// Text builds a text leaf.
func Text(v any) *Element {
	return &Element{
		Kind:  Tag(TextKind),
		Props: ir.Object{NodeValueProp: textValue(v)},
	}
}

func normalizeChildren(raw []any) []*Element {
	out := make([]*Element, 0, len(raw))
	for _, c := range raw {
		out = appendChild(out, c)
	}
	return out
}

func appendChild(out []*Element, c any) []*Element {
	switch v := c.(type) {
	case nil:
		return out
	case *Element:
		if v == nil {
			return out
		}
		return append(out, v)
	case Element:
		el := v
		return append(out, &el)
	case []*Element:
		for _, el := range v {
			out = appendChild(out, el)
		}
		return out
	case []any:
		for _, el := range v {
			out = appendChild(out, el)
		}
		return out
	case bool:
		if !v {
			return out
		}
		return append(out, Text(v))
	case ir.Bool:
		if !v {
			return out
		}
		return append(out, Text(v))
	case ir.Null:
		return out
	default:
		return append(out, Text(v))
	}
}

// textValue turns a literal child into the string stored in nodeValue.
func textValue(v any) ir.Value {
	switch val := v.(type) {
	case ir.String:
		return val
	case string:
		return ir.String(val)
	case ir.Value:
		return ir.String(ir.Text(val))
	case fmt.Stringer:
		return ir.String(val.String())
	default:
		return ir.String(fmt.Sprint(val))
	}
}

// IsText reports whether the element is a text leaf.
func (e *Element) IsText() bool {
	return e.Kind.IsText()
}

// TextValue returns the text of a text leaf.
func (e *Element) TextValue() string {
	return ir.Text(e.Props.Get(NodeValueProp))
}

// Equal reports whether two elements describe the same tree: same kind,
// Equal properties and pairwise Equal children.
func Equal(a, b *Element) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if !a.Kind.Same(b.Kind) || !ir.ObjectsEqual(a.Props, b.Props) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Describe lowers the element tree to an ir.Object for hashing and dumps.
func (e *Element) Describe() ir.Object {
	children := make(ir.Array, len(e.Children))
	for i, c := range e.Children {
		children[i] = c.Describe()
	}
	return ir.Object{
		"kind":     ir.String(e.Kind.String()),
		"props":    e.Props.Clone(),
		"children": children,
	}
}
