package fiber

import (
	"fmt"

	"github.com/roach88/reconciler/internal/diff"
	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// RenderError reports a component render that failed or panicked.
type RenderError struct {
	Component string
	Path      string
	Panic     any // recovered value, nil for returned errors
	Err       error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("render %s at %q panicked: %v", e.Component, e.Path, e.Panic)
	}
	return fmt.Sprintf("render %s at %q: %v", e.Component, e.Path, e.Err)
}

// Unwrap returns the render error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Pass builds one work graph. It is resumable: Step processes exactly one
// unit, and the pass can be abandoned between any two steps without
// side effects on the committed graph or the host.
//
// The committed graph is read, never written. Units copy what they keep
// from their alternate (node, instance, state, pending delta), so dropping
// a half-built pass needs no cleanup. The one shared mutable object is the
// Instance, whose state only changes when the committer finalizes the
// graph.
//
// A Pass is not safe for concurrent use; the scheduler drives it from one
// goroutine.
type Pass struct {
	graph *Graph
	prev  *Graph
	sink  Sink
	next  Index // unit the next Step begins, None when done
	steps int
}

// NewPass starts a pass for container. prev is the committed graph, or nil
// on first render. root is the new top-level element; nil re-renders the
// previous top-level element, which is how component-scoped requests start.
func NewPass(prev *Graph, container host.Node, root *element.Element, sink Sink) *Pass {
	var rootEl *element.Element
	alt := None
	if prev != nil {
		alt = prev.Root()
		rootEl = prev.Units[alt].Element
	}
	if root != nil {
		rootEl = &element.Element{
			Kind:     element.Tag(RootKind),
			Children: []*element.Element{root},
		}
	}
	if rootEl == nil {
		rootEl = &element.Element{Kind: element.Tag(RootKind)}
	}

	g := &Graph{Container: container}
	g.Units = append(g.Units, Unit{
		Kind:      element.Tag(RootKind),
		Props:     rootEl.Props,
		Element:   rootEl,
		Node:      container,
		Parent:    None,
		Child:     None,
		Sibling:   None,
		Alternate: alt,
	})
	return &Pass{graph: g, prev: prev, sink: sink, next: g.Root()}
}

// Graph returns the graph under construction.
func (p *Pass) Graph() *Graph { return p.graph }

// Prev returns the committed graph this pass diffs against, or nil.
func (p *Pass) Prev() *Graph { return p.prev }

// Done reports whether every unit has been processed.
func (p *Pass) Done() bool { return p.next == None }

// Steps returns the number of units processed so far.
func (p *Pass) Steps() int { return p.steps }

// Effects returns the root's effect list. Only meaningful once Done.
func (p *Pass) Effects() []Effect {
	return p.graph.Units[p.graph.Root()].Effects
}

// Step performs one unit of work: begin the current unit, then either
// descend to its first child or complete units upward until a sibling is
// found. Calling Step on a finished pass is a no-op.
func (p *Pass) Step() error {
	if p.next == None {
		return nil
	}
	cur := p.next
	p.steps++
	if err := p.BeginWork(cur); err != nil {
		return err
	}
	if child := p.graph.Units[cur].Child; child != None {
		p.next = child
		return nil
	}
	for u := cur; u != None; {
		p.CompleteWork(u)
		if sib := p.graph.Units[u].Sibling; sib != None {
			p.next = sib
			return nil
		}
		u = p.graph.Units[u].Parent
	}
	p.next = None
	return nil
}

// BeginWork builds the children of unit i. Host and text units reconcile
// the children their element describes; component units render first.
func (p *Pass) BeginWork(i Index) error {
	u := &p.graph.Units[i]
	if u.Parent != None && u.Kind.IsComponent() {
		return p.updateComponent(i)
	}
	return p.Reconcile(i, u.Element.Children)
}

// updateComponent renders the component at i and reconciles its output.
//
// A mounted instance whose element is structurally unchanged and which has
// no pending delta is not rendered: its committed children are cloned by
// reference instead. A pending delta is merged into the state here and
// cleared from the unit, so a failed pass loses it together with
// everything else it built.
func (p *Pass) updateComponent(i Index) error {
	u := &p.graph.Units[i]
	inst := u.Instance
	if inst == nil {
		inst = NewInstance(u.Kind.Component, u.Props, p.sink)
		u.Instance = inst
	} else if u.PendingDelta == nil && element.Equal(u.Element, inst.element) {
		u.State = inst.state
		p.cloneChildren(i)
		return nil
	}

	state := inst.state
	if u.PendingDelta != nil {
		state = state.Merge(u.PendingDelta)
		u.PendingDelta = nil
	}
	u.State = state

	rendered, err := p.render(inst, u.Element, state, i)
	if err != nil {
		return err
	}
	var children []*element.Element
	if rendered != nil {
		children = []*element.Element{rendered}
	}
	return p.Reconcile(i, children)
}

// render calls the definition, handing over the element's children when it
// accepts them. Errors and panics become a RenderError carrying the unit
// path.
func (p *Pass) render(inst *Instance, from *element.Element, state ir.Object, i Index) (el *element.Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			el = nil
			err = &RenderError{
				Component: inst.def.Name(),
				Path:      p.graph.Path(i),
				Panic:     r,
				Err:       fmt.Errorf("panic: %v", r),
			}
		}
	}()
	if cr, ok := inst.def.(element.ChildrenRenderer); ok {
		el, err = cr.RenderChildren(from.Props, state, from.Children, inst)
	} else {
		el, err = inst.def.Render(from.Props, state, inst)
	}
	if err != nil {
		return nil, &RenderError{Component: inst.def.Name(), Path: p.graph.Path(i), Err: err}
	}
	return el, nil
}

// cloneChildren copies the alternate's children into the new graph by
// reference: same elements, nodes and instances, no effect tag.
func (p *Pass) cloneChildren(i Index) {
	alt := p.graph.Units[i].Alternate
	if alt == None || p.prev == nil {
		return
	}
	prevSibling := None
	for old := p.prev.Units[alt].Child; old != None; old = p.prev.Units[old].Sibling {
		o := &p.prev.Units[old]
		n := p.graph.add(Unit{
			Kind:         o.Kind,
			Props:        o.Props,
			Element:      o.Element,
			Node:         o.Node,
			Instance:     o.Instance,
			State:        o.State,
			PendingDelta: o.PendingDelta,
			Parent:       i,
			Alternate:    old,
			Tag:          NoEffect,
		})
		if prevSibling == None {
			p.graph.Units[i].Child = n
		} else {
			p.graph.Units[prevSibling].Sibling = n
		}
		prevSibling = n
	}
}

// Reconcile matches elems against the alternate's children by position
// and links the resulting units under i. Deletions are recorded on i's
// effect list immediately, ahead of anything its children contribute.
func (p *Pass) Reconcile(i Index, elems []*element.Element) error {
	old := None
	if alt := p.graph.Units[i].Alternate; alt != None && p.prev != nil {
		old = p.prev.Units[alt].Child
	}

	prevSibling := None
	for pos := 0; pos < len(elems) || old != None; pos++ {
		var el *element.Element
		if pos < len(elems) {
			el = elems[pos]
		}

		var o *Unit
		if old != None {
			o = &p.prev.Units[old]
		}
		same := o != nil && el != nil && o.Kind.Same(el.Kind)

		n := None
		switch {
		case same:
			n = p.graph.add(Unit{
				Kind:         o.Kind,
				Props:        el.Props,
				Element:      el,
				Node:         o.Node,
				Instance:     o.Instance,
				State:        o.State,
				PendingDelta: o.PendingDelta,
				Parent:       i,
				Alternate:    old,
				Tag:          Update,
			})
		case el != nil:
			n = p.graph.add(Unit{
				Kind:      el.Kind,
				Props:     el.Props,
				Element:   el,
				Parent:    i,
				Alternate: None,
				Tag:       Insert,
			})
		}
		if o != nil && !same {
			p.graph.Units[i].Effects = append(p.graph.Units[i].Effects, Effect{Tag: Delete, Index: old})
		}
		if o != nil {
			old = o.Sibling
		}

		if n != None {
			if prevSibling == None {
				p.graph.Units[i].Child = n
			} else {
				p.graph.Units[prevSibling].Sibling = n
			}
			prevSibling = n
		}
	}
	return nil
}

// CompleteWork folds unit i's effects, then i itself when it needs a host
// mutation, into its parent's list. An update enters the list only when
// its property diff is non-empty; component units never enter it.
//
// The diff is computed here rather than at commit because list membership
// depends on it. The committer applies the stored Diff unchanged.
func (p *Pass) CompleteWork(i Index) {
	u := &p.graph.Units[i]
	if u.Parent == None {
		return
	}
	parent := &p.graph.Units[u.Parent]
	parent.Effects = append(parent.Effects, u.Effects...)
	u.Effects = nil

	if u.Kind.IsComponent() {
		return
	}
	switch u.Tag {
	case Insert:
		parent.Effects = append(parent.Effects, Effect{Tag: Insert, Index: i})
	case Update:
		var prevProps ir.Object
		if u.Alternate != None && p.prev != nil {
			prevProps = p.prev.Units[u.Alternate].Props
		}
		d := diff.Props(prevProps, u.Props)
		if !d.Empty() {
			u.Diff = d
			parent.Effects = append(parent.Effects, Effect{Tag: Update, Index: i})
		}
	}
}
