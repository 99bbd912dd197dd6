package fiber

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
)

// run drives a pass to completion and returns its committed-ready graph.
func run(t *testing.T, p *Pass) *Graph {
	t.Helper()
	for !p.Done() {
		require.NoError(t, p.Step())
	}
	return p.Graph()
}

// commit stands in for the committer: the graph becomes the next alternate.
func commit(g *Graph) *Graph {
	g.Finalize()
	return g
}

type effectView struct {
	Tag  string
	Path string
}

func viewEffects(p *Pass) []effectView {
	out := make([]effectView, 0, len(p.Effects()))
	for _, e := range p.Effects() {
		g := p.Graph()
		if e.Tag == Delete {
			g = p.Prev()
		}
		out = append(out, effectView{Tag: e.Tag.String(), Path: g.Path(e.Index)})
	}
	return out
}

func list(ids ...string) *element.Element {
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = element.H("li", ir.Object{"id": ir.String(id)})
	}
	return element.H("ul", nil, items...)
}

func TestPass_FirstRenderTagsEveryUnitInsert(t *testing.T) {
	tree := element.H("div", ir.Object{"id": ir.String("app")},
		element.H("h1", nil, "title"),
		element.H("ul", nil, element.H("li", nil, "a"), element.H("li", nil, "b")),
	)
	p := NewPass(nil, nil, tree, nil)
	g := run(t, p)

	for i := 1; i < g.Len(); i++ {
		assert.Equal(t, Insert, g.Units[i].Tag, "unit %s", g.Path(Index(i)))
	}
	assert.Equal(t, NoEffect, g.Units[g.Root()].Tag)

	// Post-order: every child is inserted before its parent.
	assert.Equal(t, []effectView{
		{"insert", "0/0/0"},
		{"insert", "0/0"},
		{"insert", "0/1/0/0"},
		{"insert", "0/1/0"},
		{"insert", "0/1/1/0"},
		{"insert", "0/1/1"},
		{"insert", "0/1"},
		{"insert", "0"},
	}, viewEffects(p))
	assert.Equal(t, g.Len(), p.Steps())
}

func TestPass_IdenticalTreesProduceNoEffects(t *testing.T) {
	build := func() *element.Element {
		return element.H("div", ir.Object{"style": ir.Object{"color": ir.String("red")}},
			element.H("span", ir.Object{"title": ir.String("x")}, "hello", 42),
		)
	}
	g1 := commit(run(t, NewPass(nil, nil, build(), nil)))

	p := NewPass(g1, nil, build(), nil)
	g2 := run(t, p)

	assert.Empty(t, p.Effects())
	for i := 1; i < g2.Len(); i++ {
		u := g2.Units[i]
		assert.Equal(t, Update, u.Tag)
		assert.True(t, u.Diff.Empty())
	}
}

func TestPass_AppendToListInsertsOnlyNewItem(t *testing.T) {
	g1 := commit(run(t, NewPass(nil, nil, list("A", "B"), nil)))

	p := NewPass(g1, nil, list("A", "B", "C"), nil)
	run(t, p)

	assert.Equal(t, []effectView{{"insert", "0/2"}}, viewEffects(p))
}

func TestPass_KindChangeDeletesBeforeInserting(t *testing.T) {
	g1 := commit(run(t, NewPass(nil, nil, element.H("div", nil, element.H("p", nil), element.H("span", nil)), nil)))

	p := NewPass(g1, nil, element.H("div", nil, element.H("p", nil), element.H("em", nil)), nil)
	run(t, p)

	assert.Equal(t, []effectView{
		{"delete", "0/1"},
		{"insert", "0/1"},
	}, viewEffects(p))
}

func TestPass_ShrinkDeletesTrailingChildren(t *testing.T) {
	g1 := commit(run(t, NewPass(nil, nil, list("A", "B", "C"), nil)))

	p := NewPass(g1, nil, list("A"), nil)
	g2 := run(t, p)

	assert.Equal(t, []effectView{
		{"delete", "0/1"},
		{"delete", "0/2"},
	}, viewEffects(p))
	assert.Len(t, g2.Children(g2.Units[g2.Root()].Child), 1)
}

func TestPass_PositionalMatchingOnReorder(t *testing.T) {
	g1 := commit(run(t, NewPass(nil, nil, element.H("div", nil, element.H("a", nil), element.H("b", nil)), nil)))

	p := NewPass(g1, nil, element.H("div", nil, element.H("b", nil), element.H("a", nil)), nil)
	run(t, p)

	assert.Equal(t, []effectView{
		{"delete", "0/0"},
		{"delete", "0/1"},
		{"insert", "0/0"},
		{"insert", "0/1"},
	}, viewEffects(p))
}

func TestPass_AttributeChangeIsSingleUpdate(t *testing.T) {
	g1 := commit(run(t, NewPass(nil, nil, list("A", "B"), nil)))

	p := NewPass(g1, nil, list("A", "Z"), nil)
	g2 := run(t, p)

	require.Equal(t, []effectView{{"update", "0/1"}}, viewEffects(p))
	u := g2.Units[p.Effects()[0].Index]
	require.Len(t, u.Diff.Attributes.Changed, 1)
	assert.Equal(t, "id", u.Diff.Attributes.Changed[0].Key)
}

func newCounter(renders *int) *element.Class {
	return element.NewClass("Counter",
		func(ir.Object) ir.Object { return ir.Object{"count": ir.Int(0)} },
		func(_, state ir.Object, _ element.Updater) (*element.Element, error) {
			*renders++
			return element.H("span", nil, state["count"]), nil
		})
}

func TestPass_StructuralReuseSkipsRender(t *testing.T) {
	renders := 0
	counter := newCounter(&renders)

	g1 := commit(run(t, NewPass(nil, nil, element.C(counter, ir.Object{"label": ir.String("n")}), nil)))
	require.Equal(t, 1, renders)
	comp1 := g1.Units[g1.Root()].Child

	// Component-scoped pass with nothing pending.
	p := NewPass(g1, nil, nil, nil)
	g2 := run(t, p)
	assert.Equal(t, 1, renders)
	assert.Empty(t, p.Effects())

	comp2 := g2.Units[g2.Root()].Child
	child1 := g1.Units[comp1].Child
	child2 := g2.Units[comp2].Child
	assert.Same(t, g1.Units[child1].Element, g2.Units[child2].Element)
	assert.Equal(t, NoEffect, g2.Units[child2].Tag)
	assert.Same(t, g1.Units[comp1].Instance, g2.Units[comp2].Instance)

	// A structurally equal element with fresh pointers is still reused.
	g2 = commit(g2)
	run(t, NewPass(g2, nil, element.C(counter, ir.Object{"label": ir.String("n")}), nil))
	assert.Equal(t, 1, renders)
}

func TestPass_ChangedPropsRerender(t *testing.T) {
	renders := 0
	counter := newCounter(&renders)

	g1 := commit(run(t, NewPass(nil, nil, element.C(counter, ir.Object{"label": ir.String("a")}), nil)))
	run(t, NewPass(g1, nil, element.C(counter, ir.Object{"label": ir.String("b")}), nil))
	assert.Equal(t, 2, renders)
}

func TestPass_PendingDeltaRerendersWithMergedState(t *testing.T) {
	renders := 0
	g1 := commit(run(t, NewPass(nil, nil, element.C(newCounter(&renders), nil), nil)))
	comp := g1.Units[g1.Root()].Child
	inst := g1.Units[comp].Instance
	require.True(t, inst.Mounted())

	g1.Units[comp].PendingDelta = ir.Object{"count": ir.Int(1)}
	p := NewPass(g1, nil, nil, nil)
	g2 := run(t, p)

	assert.Equal(t, 2, renders)
	require.Equal(t, []effectView{{"update", "0/0/0"}}, viewEffects(p))
	u := g2.Units[p.Effects()[0].Index]
	assert.Equal(t, ir.String("1"), u.Diff.Attributes.Changed[0].New)

	// State moves to the instance only when the graph commits.
	assert.Equal(t, ir.Int(0), inst.State()["count"])
	commit(g2)
	assert.Equal(t, ir.Int(1), inst.State()["count"])
	assert.Nil(t, g2.Units[g2.Units[g2.Root()].Child].PendingDelta)
}

func TestPass_ComponentUnitsNeverEnterEffectList(t *testing.T) {
	wrapper := element.NewFunc("Wrapper", func(props ir.Object) (*element.Element, error) {
		return element.H("section", props), nil
	})
	p := NewPass(nil, nil, element.C(wrapper, ir.Object{"id": ir.String("s")}), nil)
	run(t, p)

	assert.Equal(t, []effectView{{"insert", "0/0"}}, viewEffects(p))
}

func TestPass_DeleteComponentRecordedAtComponent(t *testing.T) {
	wrapper := element.NewFunc("Wrapper", func(ir.Object) (*element.Element, error) {
		return element.H("section", nil, element.H("p", nil)), nil
	})
	g1 := commit(run(t, NewPass(nil, nil, element.H("main", nil, element.C(wrapper, nil)), nil)))

	p := NewPass(g1, nil, element.H("main", nil), nil)
	run(t, p)

	require.Len(t, p.Effects(), 1)
	del := p.Effects()[0]
	assert.Equal(t, Delete, del.Tag)
	assert.True(t, g1.Units[del.Index].Kind.IsComponent())
}

func TestPass_RenderErrors(t *testing.T) {
	t.Run("unimplemented", func(t *testing.T) {
		abstract := &element.Base{DefName: "Abstract"}
		p := NewPass(nil, nil, element.H("div", nil, element.C(abstract, nil)), nil)

		var err error
		for !p.Done() && err == nil {
			err = p.Step()
		}
		require.Error(t, err)
		assert.ErrorIs(t, err, element.ErrUnimplemented)

		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "Abstract", re.Component)
		assert.Equal(t, "0/0", re.Path)
		assert.Nil(t, re.Panic)
	})

	t.Run("panic", func(t *testing.T) {
		bomb := element.NewFunc("Bomb", func(ir.Object) (*element.Element, error) {
			panic("boom")
		})
		p := NewPass(nil, nil, element.C(bomb, nil), nil)

		var err error
		for !p.Done() && err == nil {
			err = p.Step()
		}
		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "boom", re.Panic)
		assert.Contains(t, err.Error(), "panicked")
	})
}

func TestPass_ComponentRenderingNothing(t *testing.T) {
	empty := element.NewFunc("Empty", func(ir.Object) (*element.Element, error) { return nil, nil })
	p := NewPass(nil, nil, element.C(empty, nil), nil)
	g := run(t, p)

	assert.Empty(t, p.Effects())
	assert.Equal(t, None, g.Units[g.Units[g.Root()].Child].Child)
}

func TestInstance_RequestUpdateGoesToSink(t *testing.T) {
	type call struct {
		inst  *Instance
		delta ir.Object
	}
	var calls []call
	sink := func(inst *Instance, delta ir.Object) { calls = append(calls, call{inst, delta}) }

	inst := NewInstance(newCounter(new(int)), nil, sink)
	assert.False(t, inst.Mounted())
	_, _, ok := inst.Location()
	assert.False(t, ok)

	delta := ir.Object{"count": ir.Int(5)}
	inst.RequestUpdate(delta)
	delta["count"] = ir.Int(6)

	require.Len(t, calls, 1)
	assert.Same(t, inst, calls[0].inst)
	assert.Equal(t, ir.Int(5), calls[0].delta["count"])
	assert.Equal(t, ir.Int(0), inst.State()["count"])
}

func TestGraph_UnmountMarksSubtree(t *testing.T) {
	renders := 0
	g := commit(run(t, NewPass(nil, nil, element.H("div", nil, element.C(newCounter(&renders), nil)), nil)))
	div := g.Units[g.Root()].Child
	inst := g.Units[g.Units[div].Child].Instance
	require.True(t, inst.Mounted())

	g.Unmount(div)
	assert.True(t, inst.Unmounted())
	assert.False(t, inst.Mounted())
	_, _, ok := inst.Location()
	assert.False(t, ok)
}

func TestGraph_DescribeAndHostParent(t *testing.T) {
	wrapper := element.NewFunc("Wrapper", func(ir.Object) (*element.Element, error) {
		return element.H("p", nil, "x"), nil
	})
	g := run(t, NewPass(nil, nil, element.H("div", nil, element.C(wrapper, nil)), nil))

	div := g.Units[g.Root()].Child
	comp := g.Units[div].Child
	p := g.Units[comp].Child
	assert.Equal(t, div, g.HostParent(p))
	assert.Equal(t, g.Root(), g.HostParent(div))
	assert.Equal(t, "0/0/0", g.Path(p))

	d := g.Describe()
	assert.Equal(t, ir.String(RootKind), d["kind"])
	divObj := d["children"].(ir.Array)[0].(ir.Object)
	assert.Equal(t, ir.String("div"), divObj["kind"])
	compObj := divObj["children"].(ir.Array)[0].(ir.Object)
	assert.Equal(t, ir.String("Wrapper"), compObj["kind"])
}

func newFrame(renders *int) *element.Container {
	return element.NewContainer("Frame", nil,
		func(_, _ ir.Object, children []*element.Element, _ element.Updater) (*element.Element, error) {
			*renders++
			return element.H("section", nil, children), nil
		})
}

func TestPass_ContainerRendersItsChildren(t *testing.T) {
	renders := 0
	frame := newFrame(&renders)

	p := NewPass(nil, nil, element.C(frame, nil, element.H("b", nil, "x")), nil)
	g := run(t, p)

	assert.Equal(t, 1, renders)
	assert.Equal(t, []effectView{
		{"insert", "0/0/0/0"},
		{"insert", "0/0/0"},
		{"insert", "0/0"},
	}, viewEffects(p))
	b := g.Units[g.Units[g.Units[g.Units[g.Root()].Child].Child].Child]
	assert.Equal(t, "b", b.Kind.String())
}

func TestPass_ChangedChildrenRerenderContainer(t *testing.T) {
	renders := 0
	frame := newFrame(&renders)

	g1 := commit(run(t, NewPass(nil, nil, element.C(frame, nil, element.H("b", nil, "x")), nil)))

	p := NewPass(g1, nil, element.C(frame, nil, element.H("b", nil, "y")), nil)
	g2 := commit(run(t, p))
	assert.Equal(t, 2, renders)
	assert.Equal(t, []effectView{{"update", "0/0/0/0"}}, viewEffects(p))

	// Equal children reuse the rendered subtree.
	p = NewPass(g2, nil, element.C(frame, nil, element.H("b", nil, "y")), nil)
	run(t, p)
	assert.Equal(t, 2, renders)
	assert.Empty(t, p.Effects())
}
