package fiber

import (
	"fmt"

	"github.com/roach88/reconciler/internal/diff"
	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// Index addresses a Unit inside one Graph.
type Index int32

// None is the absent index.
const None Index = -1

// RootKind is the kind of every graph's root unit.
const RootKind = "#root"

// EffectTag classifies the mutation a unit requires at commit.
type EffectTag uint8

const (
	// NoEffect marks cloned units and the root.
	NoEffect EffectTag = iota
	// Insert marks a unit with no alternate.
	Insert
	// Update marks a unit matched to an alternate of the same kind.
	Update
	// Delete marks an alternate with no matching new element.
	Delete
)

// String returns the lower-case tag name used in logs and journals.
func (t EffectTag) String() string {
	switch t {
	case NoEffect:
		return "none"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("EffectTag(%d)", t)
	}
}

// Effect is one entry of an effect list.
// Delete entries index the previous Graph; the others index the new one.
type Effect struct {
	Tag   EffectTag
	Index Index
}

// Unit is one tree position during one pass.
//
// A unit is created by its parent's BeginWork, begun once and completed
// once. Alternate links it to the unit it replaces in the committed graph;
// a unit with no alternate is new and tagged Insert. Links are indices, not
// pointers, so a finished Graph can be kept as the next pass's alternate
// without chasing stale references.
type Unit struct {
	Kind    element.Kind
	Props   ir.Object
	Element *element.Element

	// Node is the host node, set for host units once committed.
	// Component units never own one; the root holds the container.
	Node host.Node

	// Instance and State are set for component units.
	Instance     *Instance
	State        ir.Object
	PendingDelta ir.Object

	Parent    Index
	Child     Index
	Sibling   Index
	Alternate Index

	Tag     EffectTag
	Diff    diff.PropDiff // set for updates that entered the effect list
	Effects []Effect      // folded effects, moved into the parent on completion
}

// IsHost reports whether the unit owns (or will own) a host node.
func (u *Unit) IsHost() bool {
	return u.Parent != None && !u.Kind.IsComponent()
}

// Graph is the unit arena for one pass. Units[0] is the root.
//
// Units are appended in the order they are created, which is depth-first
// because a parent's children are created when the parent is begun. A
// Graph is written only by its own Pass and, once, by the committer
// (Node fields and Finalize). After that it is the read-only alternate of
// the next pass for the same container.
type Graph struct {
	Container host.Node
	Units     []Unit
}

// Root returns the index of the root unit.
func (g *Graph) Root() Index {
	return 0
}

// Len returns the number of units.
func (g *Graph) Len() int {
	return len(g.Units)
}

// At returns the unit at i. The pointer is invalidated by the next add.
func (g *Graph) At(i Index) *Unit {
	return &g.Units[i]
}

func (g *Graph) add(u Unit) Index {
	u.Child = None
	u.Sibling = None
	g.Units = append(g.Units, u)
	return Index(len(g.Units) - 1)
}

// Children returns the child indices of i in sibling order.
func (g *Graph) Children(i Index) []Index {
	var out []Index
	for c := g.Units[i].Child; c != None; c = g.Units[c].Sibling {
		out = append(out, c)
	}
	return out
}

// Walk visits the subtree rooted at i in pre-order. Returning false from fn
// skips the unit's children.
func (g *Graph) Walk(i Index, fn func(Index, *Unit) bool) {
	if !fn(i, &g.Units[i]) {
		return
	}
	for c := g.Units[i].Child; c != None; c = g.Units[c].Sibling {
		g.Walk(c, fn)
	}
}

// HostParent returns the nearest ancestor of i that owns a host node.
// The root counts: it holds the container.
func (g *Graph) HostParent(i Index) Index {
	for p := g.Units[i].Parent; p != None; p = g.Units[p].Parent {
		if g.Units[p].Parent == None || !g.Units[p].Kind.IsComponent() {
			return p
		}
	}
	return None
}

// Path returns the child-position path from the root to i, e.g. "0/2/1".
func (g *Graph) Path(i Index) string {
	var rev []int
	for cur := i; g.Units[cur].Parent != None; cur = g.Units[cur].Parent {
		pos := 0
		for c := g.Units[g.Units[cur].Parent].Child; c != cur; c = g.Units[c].Sibling {
			pos++
		}
		rev = append(rev, pos)
	}
	out := make([]byte, 0, 2*len(rev))
	for k := len(rev) - 1; k >= 0; k-- {
		if len(out) > 0 {
			out = append(out, '/')
		}
		out = fmt.Appendf(out, "%d", rev[k])
	}
	return string(out)
}

// Describe renders the unit tree as an ir.Object of kind, props and
// children. Component units carry their state.
func (g *Graph) Describe() ir.Object {
	return g.describe(g.Root())
}

func (g *Graph) describe(i Index) ir.Object {
	u := &g.Units[i]
	kind := u.Kind.String()
	if u.Parent == None {
		kind = RootKind
	}
	obj := ir.Object{
		"kind":  ir.String(kind),
		"props": u.Props.Clone(),
	}
	if u.Kind.IsComponent() && u.State != nil {
		obj["state"] = u.State.Clone()
	}
	children := ir.Array{}
	for c := u.Child; c != None; c = g.Units[c].Sibling {
		children = append(children, g.describe(c))
	}
	obj["children"] = children
	return obj
}

// Finalize prepares a committed graph to serve as the next pass's
// alternate: it binds every component instance to its unit and drops
// per-pass bookkeeping, including Alternate links into the discarded
// graph.
func (g *Graph) Finalize() {
	for i := range g.Units {
		u := &g.Units[i]
		u.Alternate = None
		u.Effects = nil
		u.Diff = diff.PropDiff{}
		u.PendingDelta = nil
		if u.Instance != nil {
			u.Instance.bind(g.Container, Index(i), u)
		}
	}
}

// Unmount marks every instance in the subtree rooted at i as unmounted.
func (g *Graph) Unmount(i Index) {
	g.Walk(i, func(_ Index, u *Unit) bool {
		if u.Instance != nil {
			u.Instance.unmount()
		}
		return true
	})
}
