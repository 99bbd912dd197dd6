// Package catalog holds the built-in demo components: a click counter and
// the stories app (a list of stories, each with its own like counter).
package catalog

import (
	"fmt"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/ir"
)

// DefaultTitle heads a StoryList without a title property.
const DefaultTitle = "Stories"

// Counter renders its count and a button that increments it.
//
//	props: start (int, optional)
//	state: count
var Counter = element.NewClass("Counter", counterState, renderCounter)

// Story renders one story with a like button and a link.
//
//	props: name, url, likes (initial likes, optional)
//	state: likes
var Story = element.NewClass("Story", storyState, renderStory)

// StoryList renders a title and one Story per entry of its stories property.
//
//	props: title (optional), stories ([{name, url, likes?}])
var StoryList = element.NewFunc("StoryList", renderStoryList)

// Panel frames its children under a heading that collapses them when
// clicked.
//
//	props: title
//	state: open (initially true)
var Panel = element.NewContainer("Panel", panelState, renderPanel)

// Registry returns a registry holding every catalog component.
func Registry() *element.Registry {
	return element.NewRegistry(Counter, Panel, Story, StoryList)
}

func counterState(props ir.Object) ir.Object {
	return ir.Object{"count": intProp(props, "start")}
}

func renderCounter(_, state ir.Object, self element.Updater) (*element.Element, error) {
	count := intProp(state, "count")
	inc := ir.NewHandler("increment", func(ir.Object) {
		self.RequestUpdate(ir.Object{"count": count + 1})
	})
	return element.H("div", ir.Object{"class": ir.String("counter")},
		element.H("span", nil, count),
		element.H("button", ir.Object{"onClick": inc}, "+"),
	), nil
}

func panelState(ir.Object) ir.Object {
	return ir.Object{"open": ir.Bool(true)}
}

func renderPanel(props, state ir.Object, children []*element.Element, self element.Updater) (*element.Element, error) {
	open := state.Get("open") != ir.Bool(false)
	toggle := ir.NewHandler("toggle", func(ir.Object) {
		self.RequestUpdate(ir.Object{"open": ir.Bool(!open)})
	})
	body := []any{element.H("h2", ir.Object{"onClick": toggle}, props.Get("title"))}
	if open {
		body = append(body, children)
	}
	return element.H("section", ir.Object{"class": ir.String("panel")}, body...), nil
}

func storyState(props ir.Object) ir.Object {
	return ir.Object{"likes": intProp(props, "likes")}
}

func renderStory(props, state ir.Object, self element.Updater) (*element.Element, error) {
	likes := intProp(state, "likes")
	like := ir.NewHandler("like", func(ir.Object) {
		self.RequestUpdate(ir.Object{"likes": likes + 1})
	})
	return element.H("li", nil,
		element.H("button", ir.Object{"onClick": like},
			likes,
			element.H("b", nil, "❤"),
		),
		element.H("a", link(props), props.Get("name")),
	), nil
}

func renderStoryList(props ir.Object) (*element.Element, error) {
	title := props.Get("title")
	if _, ok := title.(ir.String); !ok {
		title = ir.String(DefaultTitle)
	}

	var stories ir.Array
	switch v := props.Get("stories").(type) {
	case nil, ir.Null:
	case ir.Array:
		stories = v
	default:
		return nil, fmt.Errorf("stories must be a list, got %s", ir.Text(v))
	}

	items := make([]any, 0, len(stories))
	for i, s := range stories {
		story, ok := s.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("stories[%d] must be a struct", i)
		}
		items = append(items, element.C(Story, story))
	}
	return element.H("div", nil,
		element.H("h1", nil, title),
		element.H("ul", nil, items...),
	), nil
}

func link(props ir.Object) ir.Object {
	if url, ok := props.Get("url").(ir.String); ok {
		return ir.Object{"href": url}
	}
	return nil
}

func intProp(obj ir.Object, key string) ir.Int {
	if n, ok := obj.Get(key).(ir.Int); ok {
		return n
	}
	return 0
}
