package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/reconciler/internal/ir"
)

// Predicate filters journaled passes.
//
// This is a sealed interface: only Equals, And and HasEffect implement it.
// Predicates compile to a parameterized WHERE clause; values are never
// interpolated into the SQL text.
type Predicate interface {
	predicateNode()
}

// Equals matches a pass column against a literal.
// Field is one of "id", "origin" or "component".
type Equals struct {
	Field string
	Value string
}

// And matches when every predicate matches. It must not be empty.
type And struct {
	Predicates []Predicate
}

// HasEffect matches passes that applied at least one effect with Tag.
// Kind, when set, also restricts the effect's kind.
type HasEffect struct {
	Tag  string
	Kind string
}

func (Equals) predicateNode()    {}
func (And) predicateNode()       {}
func (HasEffect) predicateNode() {}

// passColumns are the fields Equals may reference.
var passColumns = map[string]string{
	"id":        "id",
	"origin":    "origin",
	"component": "component",
}

// compilePredicate renders p as a SQL boolean expression over passes.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		col, ok := passColumns[pred.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown pass field %q", pred.Field)
		}
		return col + " = ?", []any{pred.Value}, nil

	case HasEffect:
		if pred.Tag == "" {
			return "", nil, fmt.Errorf("HasEffect requires a tag")
		}
		sql := "EXISTS (SELECT 1 FROM effects e WHERE e.pass_id = passes.id AND e.tag = ?"
		params := []any{pred.Tag}
		if pred.Kind != "" {
			sql += " AND e.kind = ?"
			params = append(params, pred.Kind)
		}
		return sql + ")", params, nil

	case And:
		if len(pred.Predicates) == 0 {
			return "", nil, fmt.Errorf("empty And predicate")
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for i, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, fmt.Errorf("And[%d]: %w", i, err)
			}
			parts = append(parts, "("+sql+")")
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil

	case nil:
		return "", nil, fmt.Errorf("nil predicate")

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compilePassQuery builds the SELECT for QueryPasses. Every query carries
// the journal's deterministic ORDER BY.
func compilePassQuery(filter Predicate) (string, []any, error) {
	sql := "SELECT id, seq, origin, component, units, tree_hash FROM passes"
	var params []any
	if filter != nil {
		where, p, err := compilePredicate(filter)
		if err != nil {
			return "", nil, err
		}
		sql += " WHERE " + where
		params = p
	}
	return sql + " ORDER BY seq ASC, id COLLATE BINARY ASC", params, nil
}

// QueryPasses returns the passes matching filter, with their effects.
// A nil filter matches every pass.
// Ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryPasses(ctx context.Context, filter Predicate) ([]ir.PassRecord, error) {
	query, params, err := compilePassQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []ir.PassRecord{}
	for rows.Next() {
		rec, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}

	for i := range passes {
		effects, err := s.readEffects(ctx, passes[i].ID)
		if err != nil {
			return nil, err
		}
		passes[i].Effects = effects
	}
	return passes, nil
}
