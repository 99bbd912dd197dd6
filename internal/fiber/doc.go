// Package fiber holds the work-unit arena and the unit-tree builder.
//
// A reconciliation pass builds a fresh Graph of work units, one per tree
// position, by comparing the new element tree against the previously
// committed Graph. Units reference each other by Index: Parent, Child and
// Sibling index the same Graph, Alternate indexes the previous one. No unit
// owns another, so the structure has no ownership cycles.
//
// ARCHITECTURE:
//
// A Pass walks the new Graph depth-first, one unit per Step:
//  1. BeginWork: render a component, or take a host unit's children, then
//     match them positionally against the alternate's children.
//  2. If the unit has a child, descend.
//  3. Otherwise CompleteWork folds the unit's effects into its parent and
//     moves to the next sibling, climbing toward the root as needed.
//
// The root's folded effect list is the committer's input. The builder never
// touches host nodes and never mutates the committed Graph.
package fiber
