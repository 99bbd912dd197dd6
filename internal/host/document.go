package host

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/reconciler/internal/ir"
)

// TextAttribute is the attribute that carries a text node's content.
const TextAttribute = "nodeValue"

// DocNode is a node of a Document.
type DocNode struct {
	Tag       string // empty for text nodes
	Text      string
	Attrs     ir.Object
	Style     ir.Object
	Listeners map[string][]*ir.Handler
	Children  []*DocNode
	Parent    *DocNode
}

// IsText reports whether the node is a text node.
func (n *DocNode) IsText() bool {
	return n.Tag == ""
}

// Document is an in-memory Host. It counts every mutation so callers can
// verify that nothing touched the tree.
//
// Document is not safe for concurrent use.
type Document struct {
	root      *DocNode
	mutations int
	ops       []string
}

var _ Host = (*Document)(nil)

// NewDocument creates a document with an empty container root tagged "#root".
func NewDocument() *Document {
	return &Document{root: newElement("#root")}
}

// Root returns the container node.
func (d *Document) Root() *DocNode {
	return d.root
}

// Mutations returns the number of host operations applied so far.
func (d *Document) Mutations() int {
	return d.mutations
}

// Ops returns a log of the host operations applied so far.
func (d *Document) Ops() []string {
	return append([]string(nil), d.ops...)
}

// ResetOps clears the operation log. The mutation counter keeps counting.
func (d *Document) ResetOps() {
	d.ops = nil
}

func newElement(tag string) *DocNode {
	return &DocNode{
		Tag:       tag,
		Attrs:     ir.Object{},
		Style:     ir.Object{},
		Listeners: map[string][]*ir.Handler{},
	}
}

func (d *Document) record(format string, args ...any) {
	d.mutations++
	d.ops = append(d.ops, fmt.Sprintf(format, args...))
}

func (d *Document) node(n Node) *DocNode {
	dn, ok := n.(*DocNode)
	if !ok || dn == nil {
		panic(fmt.Sprintf("host: foreign node %T", n))
	}
	return dn
}

// CreateElement implements Host.
func (d *Document) CreateElement(tag string) Node {
	d.record("create %s", tag)
	return newElement(tag)
}

// CreateText implements Host.
func (d *Document) CreateText() Node {
	d.record("create text")
	return newElement("")
}

// SetAttribute implements Host. On text nodes nodeValue sets the text.
func (d *Document) SetAttribute(n Node, name string, v ir.Value) {
	dn := d.node(n)
	d.record("set %s.%s=%s", label(dn), name, ir.Text(v))
	if dn.IsText() && name == TextAttribute {
		dn.Text = ir.Text(v)
		return
	}
	dn.Attrs[name] = v
}

// RemoveAttribute implements Host.
func (d *Document) RemoveAttribute(n Node, name string) {
	dn := d.node(n)
	d.record("unset %s.%s", label(dn), name)
	if dn.IsText() && name == TextAttribute {
		dn.Text = ""
		return
	}
	delete(dn.Attrs, name)
}

// SetStyle implements Host.
func (d *Document) SetStyle(n Node, key string, v ir.Value) {
	dn := d.node(n)
	d.record("style %s.%s=%s", label(dn), key, ir.Text(v))
	dn.Style[key] = v
}

// RemoveStyle implements Host.
func (d *Document) RemoveStyle(n Node, key string) {
	dn := d.node(n)
	d.record("unstyle %s.%s", label(dn), key)
	delete(dn.Style, key)
}

// AddListener implements Host. Values that are not handlers are ignored.
func (d *Document) AddListener(n Node, event string, handler ir.Value) {
	dn := d.node(n)
	h, ok := handler.(*ir.Handler)
	if !ok {
		return
	}
	d.record("listen %s.%s", label(dn), event)
	dn.Listeners[event] = append(dn.Listeners[event], h)
}

// RemoveListener implements Host.
func (d *Document) RemoveListener(n Node, event string, handler ir.Value) {
	dn := d.node(n)
	h, ok := handler.(*ir.Handler)
	if !ok {
		return
	}
	d.record("unlisten %s.%s", label(dn), event)
	hs := dn.Listeners[event]
	for i, cur := range hs {
		if cur == h {
			dn.Listeners[event] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(dn.Listeners[event]) == 0 {
		delete(dn.Listeners, event)
	}
}

// AppendChild implements Host. A child already attached elsewhere is moved.
func (d *Document) AppendChild(parent, child Node) {
	p, c := d.node(parent), d.node(child)
	d.record("append %s>%s", label(p), label(c))
	if c.Parent != nil {
		detach(c.Parent, c)
	}
	c.Parent = p
	p.Children = append(p.Children, c)
}

// RemoveChild implements Host. Removing a non-child is a no-op.
func (d *Document) RemoveChild(parent, child Node) {
	p, c := d.node(parent), d.node(child)
	d.record("remove %s>%s", label(p), label(c))
	if detach(p, c) {
		c.Parent = nil
	}
}

func detach(p, c *DocNode) bool {
	for i, cur := range p.Children {
		if cur == c {
			p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
			return true
		}
	}
	return false
}

func label(n *DocNode) string {
	if n.IsText() {
		return "#text"
	}
	return n.Tag
}

// Find walks child indices from the root.
func (d *Document) Find(path ...int) (*DocNode, error) {
	cur := d.root
	for depth, idx := range path {
		if idx < 0 || idx >= len(cur.Children) {
			return nil, fmt.Errorf("path %v: index %d out of range at depth %d", path, idx, depth)
		}
		cur = cur.Children[idx]
	}
	return cur, nil
}

// ParsePath parses a slash-separated child index path such as "0/1/0".
// The empty path addresses the root.
func ParsePath(s string) ([]int, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

// Dispatch invokes every handler registered for event on n, in
// registration order. Returns the number of handlers invoked.
func (d *Document) Dispatch(n *DocNode, event string, payload ir.Object) int {
	hs := append([]*ir.Handler(nil), n.Listeners[event]...)
	for _, h := range hs {
		h.Invoke(payload)
	}
	return len(hs)
}

// Dump renders the tree as indented text, one node per line:
//
//	<ul id="list">
//	  <li @click=like style="color:red">
//	    "text"
func (d *Document) Dump() string {
	var b strings.Builder
	dumpNode(&b, d.root, 0)
	return b.String()
}

// String implements fmt.Stringer.
func (d *Document) String() string {
	return d.Dump()
}

func dumpNode(b *strings.Builder, n *DocNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if n.IsText() {
		b.WriteString(strconv.Quote(n.Text))
		b.WriteByte('\n')
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, k := range n.Attrs.SortedKeys() {
		fmt.Fprintf(b, " %s=%s", k, strconv.Quote(ir.Text(n.Attrs[k])))
	}
	events := make([]string, 0, len(n.Listeners))
	for ev := range n.Listeners {
		events = append(events, ev)
	}
	sort.Strings(events)
	for _, ev := range events {
		for _, h := range n.Listeners[ev] {
			fmt.Fprintf(b, " @%s=%s", ev, h.Name())
		}
	}
	if len(n.Style) > 0 {
		parts := make([]string, 0, len(n.Style))
		for _, k := range n.Style.SortedKeys() {
			parts = append(parts, k+":"+ir.Text(n.Style[k]))
		}
		fmt.Fprintf(b, " style=%s", strconv.Quote(strings.Join(parts, ";")))
	}
	b.WriteString(">\n")
	for _, c := range n.Children {
		dumpNode(b, c, depth+1)
	}
}

// MarshalJSON renders the subtree rooted at n.
func (n *DocNode) MarshalJSON() ([]byte, error) {
	type jsonNode struct {
		Tag       string              `json:"tag,omitempty"`
		Text      *string             `json:"text,omitempty"`
		Attrs     ir.Object           `json:"attrs,omitempty"`
		Style     ir.Object           `json:"style,omitempty"`
		Listeners map[string][]string `json:"listeners,omitempty"`
		Children  []*DocNode          `json:"children,omitempty"`
	}
	out := jsonNode{Tag: n.Tag, Children: n.Children}
	if n.IsText() {
		text := n.Text
		out.Text = &text
	}
	if len(n.Attrs) > 0 {
		out.Attrs = n.Attrs
	}
	if len(n.Style) > 0 {
		out.Style = n.Style
	}
	if len(n.Listeners) > 0 {
		out.Listeners = make(map[string][]string, len(n.Listeners))
		for ev, hs := range n.Listeners {
			for _, h := range hs {
				out.Listeners[ev] = append(out.Listeners[ev], h.Name())
			}
		}
	}
	return json.Marshal(out)
}
