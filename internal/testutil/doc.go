// Package testutil provides deterministic stand-ins for tests: unit-counted
// deadlines, sequential pass ids, an in-memory journal and a silent logger.
package testutil
