// Package element implements the declarative element model.
//
// An Element is an immutable description of one tree node: a Kind (either a
// host tag such as "div" or a Component definition), a property set and an
// ordered list of children. Elements are created fresh on every render and
// never mutated after Create returns.
//
// Literal children (strings, numbers, booleans, ir values) are wrapped as
// text elements of kind TextKind carrying the literal in the "nodeValue"
// property. nil and false children are dropped.
package element
