package fiber

import (
	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// Sink receives update requests from component instances.
type Sink func(inst *Instance, delta ir.Object)

// Instance is a live component bound to one tree position.
//
// Props, State and the rendered element only change when a pass commits;
// a failed pass leaves the instance as it was.
type Instance struct {
	def  element.Component
	sink Sink

	props   ir.Object
	state   ir.Object
	element *element.Element

	container host.Node
	unit      Index
	mounted   bool
	unmounted bool
}

var _ element.Updater = (*Instance)(nil)

// NewInstance constructs an unmounted instance with the definition's
// initial state.
func NewInstance(def element.Component, props ir.Object, sink Sink) *Instance {
	return &Instance{
		def:   def,
		sink:  sink,
		props: props,
		state: def.InitialState(props),
		unit:  None,
	}
}

// Def returns the component definition.
func (i *Instance) Def() element.Component { return i.def }

// Props returns the committed properties.
func (i *Instance) Props() ir.Object { return i.props }

// State returns the committed state.
func (i *Instance) State() ir.Object { return i.state }

// Mounted reports whether the instance is part of the committed tree.
func (i *Instance) Mounted() bool {
	return i.mounted && !i.unmounted
}

// Unmounted reports whether the instance's subtree has been deleted.
func (i *Instance) Unmounted() bool {
	return i.unmounted
}

// Location returns the container and the committed unit the instance is
// bound to. ok is false until the instance's first pass commits, and
// after it is unmounted.
func (i *Instance) Location() (container host.Node, unit Index, ok bool) {
	if !i.Mounted() {
		return nil, None, false
	}
	return i.container, i.unit, true
}

// RequestUpdate queues a state change. It never applies synchronously.
func (i *Instance) RequestUpdate(delta ir.Object) {
	if i.sink == nil {
		return
	}
	i.sink(i, delta.Clone())
}

func (i *Instance) bind(container host.Node, idx Index, u *Unit) {
	i.container = container
	i.unit = idx
	i.props = u.Props
	i.state = u.State
	i.element = u.Element
	i.mounted = true
}

func (i *Instance) unmount() {
	i.unmounted = true
	i.unit = None
}
