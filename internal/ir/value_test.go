package ir

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
	var _ Value = NewHandler("click", nil)
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{
		"zebra":  String("z"),
		"apple":  String("a"),
		"banana": String("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestCompareKeys_UTF16Order(t *testing.T) {
	// U+FF61 is a single UTF-16 unit; U+1F600 is a surrogate pair starting 0xD83D.
	// UTF-8 byte order puts the emoji last, UTF-16 order puts it first.
	assert.Equal(t, -1, CompareKeys("\U0001F600", "\uFF61"))
	assert.Equal(t, 0, CompareKeys("a", "a"))
	assert.Equal(t, -1, CompareKeys("a", "aa"))
}

func TestObjectMerge_DoesNotMutate(t *testing.T) {
	base := Object{"count": Int(0), "label": String("x")}
	merged := base.Merge(Object{"count": Int(1)})

	assert.Equal(t, Int(0), base["count"])
	assert.Equal(t, Int(1), merged["count"])
	assert.Equal(t, String("x"), merged["label"])
}

func TestEqual(t *testing.T) {
	h1 := NewHandler("click", nil)
	h2 := NewHandler("click", nil)

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", String("a"), String("a"), true},
		{"different string", String("a"), String("b"), false},
		{"string vs int", String("1"), Int(1), false},
		{"nil vs null", nil, Null{}, true},
		{"null vs string", Null{}, String(""), false},
		{"same handler", h1, h1, true},
		{"distinct handlers with same name", h1, h2, false},
		{"nested object", Object{"a": Array{Int(1)}}, Object{"a": Array{Int(1)}}, true},
		{"nested object differs", Object{"a": Array{Int(1)}}, Object{"a": Array{Int(2)}}, false},
		{"array length", Array{Int(1)}, Array{Int(1), Int(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal must be symmetric")
		})
	}
}

func TestObjectsEqual_NilEqualsEmpty(t *testing.T) {
	assert.True(t, ObjectsEqual(nil, Object{}))
	assert.False(t, ObjectsEqual(nil, Object{"a": Int(1)}))
}

func TestFromAny(t *testing.T) {
	got, err := FromAny(map[string]any{
		"name":  "story",
		"likes": 3,
		"big":   big.NewInt(7),
		"whole": float64(2),
		"tags":  []any{"a", true},
		"num":   json.Number("12"),
		"none":  nil,
	})
	require.NoError(t, err)

	assert.Equal(t, Object{
		"name":  String("story"),
		"likes": Int(3),
		"big":   Int(7),
		"whole": Int(2),
		"tags":  Array{String("a"), Bool(true)},
		"num":   Int(12),
		"none":  Null{},
	}, got)
}

func TestFromAny_RejectsFractionalFloat(t *testing.T) {
	_, err := FromAny(map[string]any{"opacity": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestText(t *testing.T) {
	assert.Equal(t, "hi", Text(String("hi")))
	assert.Equal(t, "42", Text(Int(42)))
	assert.Equal(t, "true", Text(Bool(true)))
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "<like>", Text(NewHandler("like", nil)))
	assert.Equal(t, `{"a":1}`, Text(Object{"a": Int(1)}))
}

func TestHandlerInvoke(t *testing.T) {
	var got Object
	h := NewHandler("click", func(evt Object) { got = evt })
	h.Invoke(Object{"x": Int(1)})
	assert.Equal(t, Object{"x": Int(1)}, got)

	var nilHandler *Handler
	assert.NotPanics(t, func() { nilHandler.Invoke(nil) })
}
