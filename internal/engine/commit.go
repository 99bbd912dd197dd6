package engine

import (
	"github.com/roach88/reconciler/internal/diff"
	"github.com/roach88/reconciler/internal/fiber"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// committer applies one pass's effect list to the host.
//
// Host nodes are created here, never during the build, so an abandoned
// pass leaves no trace on the host.
//
// Effects are applied strictly in list order. The list is post-order, so a
// parent's node is normally created by its first inserted child through
// ensureNode and attached by its own insert later. Delete effects index the
// committed graph; insert and update effects index the new one. A committer
// lives for one commit and is used from the granting goroutine only.
type committer struct {
	host  host.Host
	graph *fiber.Graph // new graph: insert and update effects
	prev  *fiber.Graph // committed graph: delete effects
}

// apply performs one effect and describes it for the journal.
func (c *committer) apply(e fiber.Effect) ir.EffectRecord {
	switch e.Tag {
	case fiber.Insert:
		return c.insert(e.Index)
	case fiber.Update:
		return c.update(e.Index)
	default:
		return c.delete(e.Index)
	}
}

// insert attaches the unit's node to its nearest host ancestor.
//
// The node is always appended. Positional matching means a new unit only
// lands before an existing sibling when a kind changed mid-list, and that
// case moves the replacement to the end of the host parent.
func (c *committer) insert(i fiber.Index) ir.EffectRecord {
	node := c.ensureNode(i)
	parent := c.ensureNode(c.graph.HostParent(i))
	c.host.AppendChild(parent, node)
	return ir.EffectRecord{
		Tag:  fiber.Insert.String(),
		Kind: c.graph.At(i).Kind.String(),
		Path: c.graph.Path(i),
	}
}

// update applies the diff the builder stored on the unit. The node was
// carried over from the alternate; ensureNode only creates one when the
// alternate never reached the host.
func (c *committer) update(i fiber.Index) ir.EffectRecord {
	node := c.ensureNode(i)
	u := c.graph.At(i)
	applyDiff(c.host, node, u.Diff)
	return ir.EffectRecord{
		Tag:  fiber.Update.String(),
		Kind: u.Kind.String(),
		Path: c.graph.Path(i),
		Keys: diffKeys(u.Diff),
	}
}

// delete detaches every host node at the top of the removed subtree,
// looking through component units, and unmounts the subtree's instances.
//
// Only the topmost host nodes are removed from the parent; their
// descendants leave with them. Unmounted instances drop later update
// requests instead of writing into a graph that is gone.
func (c *committer) delete(i fiber.Index) ir.EffectRecord {
	parent := c.prev.At(c.prev.HostParent(i)).Node
	c.prev.Walk(i, func(_ fiber.Index, u *fiber.Unit) bool {
		if u.Kind.IsComponent() {
			return true
		}
		if u.Node != nil {
			c.host.RemoveChild(parent, u.Node)
		}
		return false
	})
	c.prev.Unmount(i)
	return ir.EffectRecord{
		Tag:  fiber.Delete.String(),
		Kind: c.prev.At(i).Kind.String(),
		Path: c.prev.Path(i),
	}
}

// ensureNode returns the unit's host node, creating it with its full
// property set on first use.
func (c *committer) ensureNode(i fiber.Index) host.Node {
	u := c.graph.At(i)
	if u.Node != nil {
		return u.Node
	}
	if u.Kind.IsText() {
		u.Node = c.host.CreateText()
	} else {
		u.Node = c.host.CreateElement(u.Kind.Tag)
	}
	applyDiff(c.host, u.Node, diff.Props(nil, u.Props))
	return u.Node
}

// applyDiff mutates one node. Old handlers are detached before any
// attribute or style changes, new handlers attached last.
func applyDiff(h host.Host, n host.Node, d diff.PropDiff) {
	for _, e := range d.Listeners.Removed {
		h.RemoveListener(n, diff.EventType(e.Key), e.Old)
	}
	for _, e := range d.Listeners.Changed {
		h.RemoveListener(n, diff.EventType(e.Key), e.Old)
	}

	for _, e := range d.Attributes.Removed {
		h.RemoveAttribute(n, e.Key)
	}
	for _, e := range d.Attributes.Changed {
		h.SetAttribute(n, e.Key, e.New)
	}
	for _, e := range d.Attributes.Added {
		h.SetAttribute(n, e.Key, e.New)
	}

	for _, e := range d.Style.Changed {
		h.SetStyle(n, e.Key, e.New)
	}
	for _, e := range d.Style.Added {
		h.SetStyle(n, e.Key, e.New)
	}
	for _, e := range d.Style.Removed {
		h.RemoveStyle(n, e.Key)
	}

	for _, e := range d.Listeners.Changed {
		h.AddListener(n, diff.EventType(e.Key), e.New)
	}
	for _, e := range d.Listeners.Added {
		h.AddListener(n, diff.EventType(e.Key), e.New)
	}
}

// diffKeys lists the touched property names in journal form: attributes,
// then listeners, then style keys prefixed with "style.".
func diffKeys(d diff.PropDiff) []string {
	keys := append(d.Attributes.Keys(), d.Listeners.Keys()...)
	for _, k := range d.Style.Keys() {
		keys = append(keys, diff.StyleProp+"."+k)
	}
	return keys
}
