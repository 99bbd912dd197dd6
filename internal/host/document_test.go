package host

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reconciler/internal/ir"
)

func buildList(d *Document) (ul, li *DocNode) {
	ul = d.CreateElement("ul").(*DocNode)
	d.SetAttribute(ul, "id", ir.String("list"))
	li = d.CreateElement("li").(*DocNode)
	txt := d.CreateText()
	d.SetAttribute(txt, TextAttribute, ir.String("A"))
	d.AppendChild(li, txt)
	d.AppendChild(ul, li)
	d.AppendChild(d.Root(), ul)
	return ul, li
}

func TestDocument_Dump(t *testing.T) {
	d := NewDocument()
	_, li := buildList(d)
	d.SetStyle(li, "color", ir.String("red"))
	d.SetStyle(li, "margin", ir.Int(1))
	d.AddListener(li, "click", ir.NewHandler("like", func(ir.Object) {}))

	want := "<#root>\n" +
		"  <ul id=\"list\">\n" +
		"    <li @click=like style=\"color:red;margin:1\">\n" +
		"      \"A\"\n"
	assert.Equal(t, want, d.Dump())
}

func TestDocument_MutationCounter(t *testing.T) {
	d := NewDocument()
	assert.Zero(t, d.Mutations())

	buildList(d)
	assert.Equal(t, 7, d.Mutations())
	assert.Len(t, d.Ops(), 7)
	assert.Equal(t, "create ul", d.Ops()[0])

	d.ResetOps()
	assert.Empty(t, d.Ops())
	assert.Equal(t, 7, d.Mutations())
}

func TestDocument_TextNodeValue(t *testing.T) {
	d := NewDocument()
	n := d.CreateText().(*DocNode)
	d.SetAttribute(n, TextAttribute, ir.Int(3))
	assert.Equal(t, "3", n.Text)
	assert.Empty(t, n.Attrs)

	d.RemoveAttribute(n, TextAttribute)
	assert.Equal(t, "", n.Text)
}

func TestDocument_RemoveAttributeAndStyle(t *testing.T) {
	d := NewDocument()
	n := d.CreateElement("div").(*DocNode)
	d.SetAttribute(n, "title", ir.String("x"))
	d.SetStyle(n, "color", ir.String("red"))

	d.RemoveAttribute(n, "title")
	d.RemoveStyle(n, "color")
	assert.Empty(t, n.Attrs)
	assert.Empty(t, n.Style)
}

func TestDocument_AppendMovesAndRemove(t *testing.T) {
	d := NewDocument()
	a := d.CreateElement("a").(*DocNode)
	b := d.CreateElement("b").(*DocNode)
	c := d.CreateElement("c").(*DocNode)
	d.AppendChild(a, c)
	d.AppendChild(b, c)

	assert.Empty(t, a.Children)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, c.Parent)

	d.RemoveChild(a, c) // not a child of a
	assert.Same(t, b, c.Parent)

	d.RemoveChild(b, c)
	assert.Empty(t, b.Children)
	assert.Nil(t, c.Parent)
}

func TestDocument_Listeners(t *testing.T) {
	d := NewDocument()
	n := d.CreateElement("button").(*DocNode)

	var got []string
	h1 := ir.NewHandler("first", func(p ir.Object) { got = append(got, "first:"+ir.Text(p["n"])) })
	h2 := ir.NewHandler("second", func(ir.Object) { got = append(got, "second") })
	d.AddListener(n, "click", h1)
	d.AddListener(n, "click", h2)
	d.AddListener(n, "click", ir.String("not a handler"))

	invoked := d.Dispatch(n, "click", ir.Object{"n": ir.Int(1)})
	assert.Equal(t, 2, invoked)
	assert.Equal(t, []string{"first:1", "second"}, got)

	d.RemoveListener(n, "click", h1)
	got = nil
	d.Dispatch(n, "click", nil)
	assert.Equal(t, []string{"second"}, got)

	d.RemoveListener(n, "click", h2)
	assert.NotContains(t, n.Listeners, "click")
	assert.Zero(t, d.Dispatch(n, "click", nil))
}

func TestDocument_Find(t *testing.T) {
	d := NewDocument()
	ul, li := buildList(d)

	got, err := d.Find(0)
	require.NoError(t, err)
	assert.Same(t, ul, got)

	got, err = d.Find(0, 0)
	require.NoError(t, err)
	assert.Same(t, li, got)

	root, err := d.Find()
	require.NoError(t, err)
	assert.Same(t, d.Root(), root)

	_, err = d.Find(0, 3)
	assert.ErrorContains(t, err, "out of range at depth 1")
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"/", nil, false},
		{"0", []int{0}, false},
		{"0/2/1", []int{0, 2, 1}, false},
		{"/1/", []int{1}, false},
		{"a/1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePath(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestDocument_ForeignNodePanics(t *testing.T) {
	d := NewDocument()
	assert.Panics(t, func() { d.SetAttribute("nope", "x", ir.Null{}) })
}

func TestDocNode_MarshalJSON(t *testing.T) {
	d := NewDocument()
	buildList(d)
	ul, err := d.Find(0)
	require.NoError(t, err)

	b, err := ul.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"ul","attrs":{"id":"list"},"children":[{"tag":"li","children":[{"text":"A"}]}]}`, string(b))
}
