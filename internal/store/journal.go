package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/reconciler/internal/ir"
)

// RecordPass appends a committed pass and its effects in one transaction.
// Uses ON CONFLICT(id) DO NOTHING: recording the same pass twice is a no-op.
func (s *Store) RecordPass(ctx context.Context, rec ir.PassRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record pass: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO passes (id, seq, origin, component, units, tree_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Seq, rec.Origin, rec.Component, rec.Units, rec.TreeHash)
	if err != nil {
		return fmt.Errorf("record pass: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record pass: rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}

	for pos, e := range rec.Effects {
		keys, err := marshalKeys(e.Keys)
		if err != nil {
			return fmt.Errorf("record pass: effect %d: %w", pos, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO effects (pass_id, position, tag, kind, path, keys)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ID, pos, e.Tag, e.Kind, e.Path, keys); err != nil {
			return fmt.Errorf("record pass: effect %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record pass: commit: %w", err)
	}
	return nil
}

// RecordFailure appends a failed pass.
func (s *Store) RecordFailure(ctx context.Context, rec ir.FailureRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failures (id, seq, origin, component, code, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Seq, rec.Origin, rec.Component, rec.Code, rec.Message)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// ListPasses returns every committed pass with its effects.
// Ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListPasses(ctx context.Context) ([]ir.PassRecord, error) {
	return s.QueryPasses(ctx, nil)
}

// ReadPass retrieves one pass with its effects.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPass(ctx context.Context, id string) (ir.PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, origin, component, units, tree_hash
		FROM passes
		WHERE id = ?
	`, id)
	rec, err := scanPass(row)
	if err != nil {
		return ir.PassRecord{}, err
	}
	rec.Effects, err = s.readEffects(ctx, id)
	if err != nil {
		return ir.PassRecord{}, err
	}
	return rec, nil
}

// ListFailures returns every failed pass.
// Ordered by seq ASC, id ASC COLLATE BINARY.
func (s *Store) ListFailures(ctx context.Context) ([]ir.FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, origin, component, code, message
		FROM failures
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []ir.FailureRecord{}
	for rows.Next() {
		var f ir.FailureRecord
		if err := rows.Scan(&f.ID, &f.Seq, &f.Origin, &f.Component, &f.Code, &f.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// LastSeq returns the highest seq recorded in either table, or 0.
// The scheduler's clock resumes from it (engine.NewClockAt).
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM passes
			UNION ALL
			SELECT seq FROM failures
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// EffectCounts returns the number of journaled effects per tag.
func (s *Store) EffectCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) FROM effects GROUP BY tag ORDER BY tag
	`)
	if err != nil {
		return nil, fmt.Errorf("query effect counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, fmt.Errorf("scan effect count: %w", err)
		}
		counts[tag] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effect counts: %w", err)
	}
	return counts, nil
}

func (s *Store) readEffects(ctx context.Context, passID string) ([]ir.EffectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, kind, path, keys
		FROM effects
		WHERE pass_id = ?
		ORDER BY position ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query effects: %w", err)
	}
	defer rows.Close()

	effects := []ir.EffectRecord{}
	for rows.Next() {
		var e ir.EffectRecord
		var keys string
		if err := rows.Scan(&e.Tag, &e.Kind, &e.Path, &keys); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		if e.Keys, err = unmarshalKeys(keys); err != nil {
			return nil, err
		}
		effects = append(effects, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effects: %w", err)
	}
	return effects, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (ir.PassRecord, error) {
	var rec ir.PassRecord
	err := row.Scan(&rec.ID, &rec.Seq, &rec.Origin, &rec.Component, &rec.Units, &rec.TreeHash)
	if err == sql.ErrNoRows {
		return ir.PassRecord{}, err
	}
	if err != nil {
		return ir.PassRecord{}, fmt.Errorf("scan pass: %w", err)
	}
	return rec, nil
}
