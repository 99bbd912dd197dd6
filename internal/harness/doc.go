// Package harness runs reconciliation scenarios against the real scheduler.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: story_like
//	description: "Liking a story updates only that story"
//	tree:                      # initial tree, rendered and flushed first
//	  kind: StoryList
//	  props:
//	    stories: [{name: intro, url: "#intro"}]
//	tree_file: stories.cue     # alternative to tree: a CUE document
//	steps:
//	  - dispatch: {path: "0/1/0/0", event: click}
//	  - grant: 3               # one grant admitting three units
//	  - flush: true            # grants until idle
//	  - update: {component: Counter, delta: {count: 3}}
//	  - render: {kind: p, children: [done]}
//	  - flush: true
//	    expect_error: RENDER_FAILED
//	assertions:
//	  - type: pass_count
//	    count: 2
//	  - type: effect_count
//	    tag: update
//	    count: 2
//	  - type: text_at
//	    path: "0/1/0/0/0"
//	    text: "1"
//
// Component kinds resolve against the built-in catalog.
//
// # Assertion Types
//
//   - pass_count: number of committed passes
//   - failure_count: number of failed passes
//   - effect_count: effects with a tag in one pass (default: the last)
//   - effect_order: the exact "tag path" list of one pass
//   - text_at: the text of the host node at a path below the container
//   - dump_contains: a substring of the host dump
//   - failure: a failed pass with the given code
//   - same_tree: two passes produced the same tree hash
//
// # Deterministic Testing
//
// Every scenario runs in a fresh document with sequential pass ids
// (pass-1, pass-2, ...), a fresh logical clock and an in-memory SQLite
// journal. Grants are unit budgets (testutil.Budget), never wall-clock
// time, so yield points and golden output are identical across runs.
package harness
