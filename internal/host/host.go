// Package host defines the output-node capabilities the committer drives,
// and provides Document, an in-memory implementation.
//
// The reconciler never inspects host nodes. It creates them, sets
// attributes, styles and listeners on them, and links them together through
// the Host interface.
package host

import "github.com/roach88/reconciler/internal/ir"

// Node is an opaque output-node handle owned by a Host.
//
// Handles must be comparable: the scheduler keys its committed trees by
// container node, so a slice or map handle cannot serve as a container.
// Use pointers, as Document does.
type Node any

// Host owns the real output tree. Every method mutates it.
//
// Implementations may panic when handed a Node they did not create; that is
// a programming error, not a runtime condition.
type Host interface {
	CreateElement(tag string) Node
	CreateText() Node

	SetAttribute(n Node, name string, v ir.Value)
	RemoveAttribute(n Node, name string)

	SetStyle(n Node, key string, v ir.Value)
	RemoveStyle(n Node, key string)

	AddListener(n Node, event string, handler ir.Value)
	RemoveListener(n Node, event string, handler ir.Value)

	AppendChild(parent, child Node)
	RemoveChild(parent, child Node)
}
