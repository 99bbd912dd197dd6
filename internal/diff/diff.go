// Package diff computes property changes between two renders of one node.
//
// Props splits a node's properties into three groups: event listeners (keys
// with the "on" prefix), style (the nested "style" object) and plain
// attributes (everything else except "children"). Each group gets a
// three-way Delta: removed, changed and added keys. The result is a pure
// function of its inputs.
package diff

import (
	"strings"

	"github.com/roach88/reconciler/internal/ir"
)

// StyleProp is the property holding the nested style map.
const StyleProp = "style"

// Entry is one key in a Delta. Old is unset for additions, New for removals.
type Entry struct {
	Key string
	Old ir.Value
	New ir.Value
}

// Delta is the three-way difference between two key sets.
//
// INVARIANT: Removed, Changed and Added are pairwise disjoint by key and
// each is sorted in RFC 8785 key order.
type Delta struct {
	Removed []Entry // present before, absent now
	Changed []Entry // present in both with different values
	Added   []Entry // absent before, present now
}

// Empty reports whether the delta has no entries.
func (d Delta) Empty() bool {
	return len(d.Removed) == 0 && len(d.Changed) == 0 && len(d.Added) == 0
}

// Len returns the total number of entries.
func (d Delta) Len() int {
	return len(d.Removed) + len(d.Changed) + len(d.Added)
}

// Keys returns every key touched by the delta.
func (d Delta) Keys() []string {
	keys := make([]string, 0, d.Len())
	for _, group := range [][]Entry{d.Removed, d.Changed, d.Added} {
		for _, e := range group {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// PropDiff is the full property difference for one node.
type PropDiff struct {
	Attributes Delta
	Listeners  Delta
	Style      Delta
}

// Empty reports whether nothing changed.
func (p PropDiff) Empty() bool {
	return p.Attributes.Empty() && p.Listeners.Empty() && p.Style.Empty()
}

// IsEvent reports whether a property name is an event listener key.
func IsEvent(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "on")
}

// EventType returns the host event type for a listener key ("onClick" → "click").
func EventType(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "on"))
}

// IsAttribute reports whether a property name is a plain attribute.
func IsAttribute(name string) bool {
	return !IsEvent(name) && name != "children" && name != StyleProp
}

// Props computes the difference between two property sets.
// Either input may be nil.
func Props(prev, next ir.Object) PropDiff {
	return PropDiff{
		Attributes: Keys(filter(prev, IsAttribute), filter(next, IsAttribute)),
		Listeners:  Keys(filter(prev, IsEvent), filter(next, IsEvent)),
		Style:      Keys(style(prev), style(next)),
	}
}

// Keys computes the three-way difference between two flat maps.
func Keys(prev, next ir.Object) Delta {
	var d Delta
	for _, k := range prev.SortedKeys() {
		nv, ok := next[k]
		switch {
		case !ok:
			d.Removed = append(d.Removed, Entry{Key: k, Old: prev[k]})
		case !ir.Equal(prev[k], nv):
			d.Changed = append(d.Changed, Entry{Key: k, Old: prev[k], New: nv})
		}
	}
	for _, k := range next.SortedKeys() {
		if _, ok := prev[k]; !ok {
			d.Added = append(d.Added, Entry{Key: k, New: next[k]})
		}
	}
	return d
}

func filter(props ir.Object, keep func(string) bool) ir.Object {
	out := make(ir.Object, len(props))
	for k, v := range props {
		if keep(k) {
			out[k] = v
		}
	}
	return out
}

// style returns the nested style map; non-object styles count as empty.
func style(props ir.Object) ir.Object {
	if s, ok := props.Get(StyleProp).(ir.Object); ok {
		return s
	}
	return ir.Object{}
}
