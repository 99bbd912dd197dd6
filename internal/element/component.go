package element

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/reconciler/internal/ir"
)

// ErrUnimplemented is returned by Base.Render: the component definition did
// not provide its own render capability.
var ErrUnimplemented = errors.New("render capability not implemented")

// Updater lets a component instance request a state change.
// The change is applied on a later pass, never synchronously.
type Updater interface {
	RequestUpdate(delta ir.Object)
}

// Component is a component definition.
//
// Definitions must be comparable (use pointer types): element kinds compare
// components by identity.
type Component interface {
	// Name identifies the definition in dumps, logs and registries.
	Name() string

	// InitialState returns the state of a freshly constructed instance.
	// Stateless definitions return nil.
	InitialState(props ir.Object) ir.Object

	// Render describes the instance's subtree for the given properties and
	// state. self requests later updates for this instance.
	Render(props, state ir.Object, self Updater) (*Element, error)
}

// ChildrenRenderer is implemented by definitions that render the children
// of the element that created them. The builder calls RenderChildren
// instead of Render for such definitions; a component element whose
// definition does not implement it has its children ignored.
type ChildrenRenderer interface {
	RenderChildren(props, state ir.Object, children []*Element, self Updater) (*Element, error)
}

// AcceptsChildren reports whether c renders the children it is given.
func AcceptsChildren(c Component) bool {
	_, ok := c.(ChildrenRenderer)
	return ok
}

// Base is an embeddable definition with no render capability.
type Base struct {
	DefName string
}

// Name returns the definition name.
func (b *Base) Name() string {
	return b.DefName
}

// InitialState returns an empty state.
func (b *Base) InitialState(ir.Object) ir.Object {
	return ir.Object{}
}

// Render always fails with ErrUnimplemented.
func (b *Base) Render(ir.Object, ir.Object, Updater) (*Element, error) {
	return nil, fmt.Errorf("component %s: %w", b.DefName, ErrUnimplemented)
}

// RenderFunc renders a stateless component from its properties.
type RenderFunc func(props ir.Object) (*Element, error)

// Func is a stateless component: a pure function of its properties.
type Func struct {
	name string
	fn   RenderFunc
}

// NewFunc creates a stateless component definition.
func NewFunc(name string, fn RenderFunc) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the definition name.
func (f *Func) Name() string { return f.name }

// InitialState returns nil: stateless components hold no state.
func (f *Func) InitialState(ir.Object) ir.Object { return nil }

// Render invokes the render function.
func (f *Func) Render(props, _ ir.Object, _ Updater) (*Element, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("component %s: %w", f.name, ErrUnimplemented)
	}
	return f.fn(props)
}

// ClassRender renders a stateful component.
type ClassRender func(props, state ir.Object, self Updater) (*Element, error)

// Class is a stateful component definition.
type Class struct {
	name   string
	init   func(props ir.Object) ir.Object
	render ClassRender
}

// NewClass creates a stateful component definition. init may be nil.
func NewClass(name string, init func(props ir.Object) ir.Object, render ClassRender) *Class {
	return &Class{name: name, init: init, render: render}
}

// Name returns the definition name.
func (c *Class) Name() string { return c.name }

// InitialState returns the configured initial state, or an empty state.
func (c *Class) InitialState(props ir.Object) ir.Object {
	if c.init == nil {
		return ir.Object{}
	}
	return c.init(props)
}

// Render invokes the render function.
func (c *Class) Render(props, state ir.Object, self Updater) (*Element, error) {
	if c.render == nil {
		return nil, fmt.Errorf("component %s: %w", c.name, ErrUnimplemented)
	}
	return c.render(props, state, self)
}

// ContainerRender renders a stateful component around its children.
type ContainerRender func(props, state ir.Object, children []*Element, self Updater) (*Element, error)

// Container is a stateful definition that wraps the children of its
// element. Children are part of the element, so a change to them
// re-renders the container like a change to its properties.
type Container struct {
	name   string
	init   func(props ir.Object) ir.Object
	render ContainerRender
}

// NewContainer creates a container definition. init may be nil.
func NewContainer(name string, init func(props ir.Object) ir.Object, render ContainerRender) *Container {
	return &Container{name: name, init: init, render: render}
}

// Name returns the definition name.
func (c *Container) Name() string { return c.name }

// InitialState returns the configured initial state, or an empty state.
func (c *Container) InitialState(props ir.Object) ir.Object {
	if c.init == nil {
		return ir.Object{}
	}
	return c.init(props)
}

// Render renders the container with no children.
func (c *Container) Render(props, state ir.Object, self Updater) (*Element, error) {
	return c.RenderChildren(props, state, nil, self)
}

// RenderChildren invokes the render function.
func (c *Container) RenderChildren(props, state ir.Object, children []*Element, self Updater) (*Element, error) {
	if c.render == nil {
		return nil, fmt.Errorf("component %s: %w", c.name, ErrUnimplemented)
	}
	return c.render(props, state, children, self)
}

// Registry resolves component definitions by name for declarative input.
type Registry struct {
	defs map[string]Component
}

// NewRegistry creates a registry holding the given definitions.
func NewRegistry(defs ...Component) *Registry {
	r := &Registry{defs: make(map[string]Component, len(defs))}
	for _, d := range defs {
		r.defs[d.Name()] = d
	}
	return r
}

// Register adds a definition, replacing any with the same name.
func (r *Registry) Register(c Component) {
	r.defs[c.Name()] = c
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Component, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.defs[name]
	return c, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
