package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/reconciler/internal/ir"
)

func testPass(id string, seq int64, effects ...ir.EffectRecord) ir.PassRecord {
	return ir.PassRecord{
		ID:       id,
		Seq:      seq,
		Origin:   "root",
		Units:    4,
		TreeHash: "tree-" + id,
		Effects:  effects,
	}
}

func TestRecordPass_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testPass("pass-1", 1,
		ir.EffectRecord{Tag: "delete", Kind: "li", Path: "0/0/2"},
		ir.EffectRecord{Tag: "update", Kind: "TEXT ELEMENT", Path: "0/0/0/0", Keys: []string{"nodeValue"}},
		ir.EffectRecord{Tag: "insert", Kind: "li", Path: "0/0/3"},
	)
	rec.Origin = "component"
	rec.Component = "Counter"

	if err := s.RecordPass(ctx, rec); err != nil {
		t.Fatalf("RecordPass() failed: %v", err)
	}

	got, err := s.ReadPass(ctx, "pass-1")
	if err != nil {
		t.Fatalf("ReadPass() failed: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("ReadPass() = %+v, want %+v", got, rec)
	}
}

func TestRecordPass_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testPass("pass-1", 1, ir.EffectRecord{Tag: "insert", Kind: "ul", Path: "0/0"})
	for i := 0; i < 2; i++ {
		if err := s.RecordPass(ctx, rec); err != nil {
			t.Fatalf("RecordPass() attempt %d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM effects").Scan(&count); err != nil {
		t.Fatalf("count effects: %v", err)
	}
	if count != 1 {
		t.Errorf("effects = %d, want 1", count)
	}
}

func TestRecordPass_NoEffects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.RecordPass(ctx, testPass("pass-1", 1)); err != nil {
		t.Fatalf("RecordPass() failed: %v", err)
	}
	got, err := s.ReadPass(ctx, "pass-1")
	if err != nil {
		t.Fatalf("ReadPass() failed: %v", err)
	}
	if got.Effects == nil || len(got.Effects) != 0 {
		t.Errorf("Effects = %#v, want empty non-nil slice", got.Effects)
	}
}

func TestReadPass_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadPass(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadPass() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListPasses_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Inserted out of order; same seq breaks ties by id.
	for _, rec := range []ir.PassRecord{
		testPass("c", 3),
		testPass("b", 1),
		testPass("a", 1),
		testPass("d", 2, ir.EffectRecord{Tag: "insert", Kind: "p", Path: "0/0"}),
	} {
		if err := s.RecordPass(ctx, rec); err != nil {
			t.Fatalf("RecordPass(%s) failed: %v", rec.ID, err)
		}
	}

	passes, err := s.ListPasses(ctx)
	if err != nil {
		t.Fatalf("ListPasses() failed: %v", err)
	}
	var ids []string
	for _, p := range passes {
		ids = append(ids, p.ID)
	}
	want := []string{"a", "b", "d", "c"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListPasses() ids = %v, want %v", ids, want)
	}
	if len(passes[2].Effects) != 1 {
		t.Errorf("pass d effects = %d, want 1", len(passes[2].Effects))
	}
}

func TestListPasses_Empty(t *testing.T) {
	s := createTestStore(t)

	passes, err := s.ListPasses(context.Background())
	if err != nil {
		t.Fatalf("ListPasses() failed: %v", err)
	}
	if passes == nil || len(passes) != 0 {
		t.Errorf("ListPasses() = %#v, want empty non-nil slice", passes)
	}
}

func TestRecordFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := []ir.FailureRecord{
		{ID: "pass-1", Seq: 1, Origin: "root", Code: "RENDER_FAILED", Message: "boom"},
		{ID: "pass-2", Seq: 2, Origin: "component", Component: "Story", Code: "RENDER_PANIC", Message: "nil map"},
	}
	for _, f := range want {
		if err := s.RecordFailure(ctx, f); err != nil {
			t.Fatalf("RecordFailure(%s) failed: %v", f.ID, err)
		}
	}
	// Duplicate ids are ignored.
	if err := s.RecordFailure(ctx, want[0]); err != nil {
		t.Fatalf("duplicate RecordFailure() failed: %v", err)
	}

	got, err := s.ListFailures(ctx)
	if err != nil {
		t.Fatalf("ListFailures() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFailures() = %+v, want %+v", got, want)
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() on empty journal = %d, want 0", seq)
	}

	if err := s.RecordPass(ctx, testPass("pass-1", 4)); err != nil {
		t.Fatalf("RecordPass() failed: %v", err)
	}
	if err := s.RecordFailure(ctx, ir.FailureRecord{ID: "pass-2", Seq: 7, Origin: "root", Code: "RENDER_FAILED"}); err != nil {
		t.Fatalf("RecordFailure() failed: %v", err)
	}

	seq, err = s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("LastSeq() = %d, want 7", seq)
	}
}

func TestEffectCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.RecordPass(ctx, testPass("pass-1", 1,
		ir.EffectRecord{Tag: "insert", Kind: "ul", Path: "0/0"},
		ir.EffectRecord{Tag: "insert", Kind: "li", Path: "0/0/0"},
	)); err != nil {
		t.Fatalf("RecordPass() failed: %v", err)
	}
	if err := s.RecordPass(ctx, testPass("pass-2", 2,
		ir.EffectRecord{Tag: "delete", Kind: "li", Path: "0/0/0"},
		ir.EffectRecord{Tag: "update", Kind: "ul", Path: "0/0", Keys: []string{"id"}},
	)); err != nil {
		t.Fatalf("RecordPass() failed: %v", err)
	}

	got, err := s.EffectCounts(ctx)
	if err != nil {
		t.Fatalf("EffectCounts() failed: %v", err)
	}
	want := map[string]int{"insert": 2, "update": 1, "delete": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EffectCounts() = %v, want %v", got, want)
	}
}

func TestMarshalKeys(t *testing.T) {
	data, err := marshalKeys([]string{"style.color", "id"})
	if err != nil {
		t.Fatalf("marshalKeys() failed: %v", err)
	}
	if data != `["style.color","id"]` {
		t.Errorf("marshalKeys() = %s", data)
	}

	empty, err := marshalKeys(nil)
	if err != nil {
		t.Fatalf("marshalKeys(nil) failed: %v", err)
	}
	if empty != "[]" {
		t.Errorf("marshalKeys(nil) = %s, want []", empty)
	}

	keys, err := unmarshalKeys(data)
	if err != nil {
		t.Fatalf("unmarshalKeys() failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"style.color", "id"}) {
		t.Errorf("unmarshalKeys() = %v", keys)
	}

	if _, err := unmarshalKeys("{"); err == nil {
		t.Error("unmarshalKeys() should reject malformed JSON")
	}
}
