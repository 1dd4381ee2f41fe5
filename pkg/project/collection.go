package project

import (
	"fmt"
	"slices"

	"github.com/lddmodder/brickedit/internal/observer"
)

// ElementCollection is the type-erased view of a Collection used by
// traversal and history replay.
type ElementCollection interface {
	// Owner is the owning element, or nil for project-rooted collections.
	Owner() Element
	Project() *PartProject
	Kind() ElementKind
	Len() int
	Elements() []Element
	IndexOfElement(e Element) int
	InsertElement(i int, e Element)
	RemoveElement(e Element) bool
	Clear()
}

// member constrains collection items to comparable element pointers.
type member interface {
	comparable
	Element
}

// Collection is an ordered list of elements exclusively owned by a project
// or an element. Every mutation updates the members' back-references and
// raises one CollectionChangedEvent; the attached project sees the event
// before the collection's own subscribers.
type Collection[T member] struct {
	kind    ElementKind
	owner   Element
	project *PartProject
	items   []T
	subs    observer.List[CollectionChangedEvent]
}

func newProjectCollection[T member](p *PartProject, kind ElementKind) *Collection[T] {
	return &Collection[T]{kind: kind, project: p}
}

func newElementCollection[T member](owner Element, kind ElementKind) *Collection[T] {
	return &Collection[T]{kind: kind, owner: owner}
}

func (c *Collection[T]) Owner() Element    { return c.owner }
func (c *Collection[T]) Kind() ElementKind { return c.kind }
func (c *Collection[T]) Len() int          { return len(c.items) }

// Project returns the project the collection is attached to, if any.
func (c *Collection[T]) Project() *PartProject {
	if c.project != nil {
		return c.project
	}
	if c.owner != nil {
		return c.owner.Base().Project()
	}
	return nil
}

// At returns the i-th item.
func (c *Collection[T]) At(i int) T { return c.items[i] }

// Items returns a copy of the items.
func (c *Collection[T]) Items() []T { return slices.Clone(c.items) }

func (c *Collection[T]) Elements() []Element {
	out := make([]Element, len(c.items))
	for i, it := range c.items {
		out[i] = it
	}
	return out
}

func (c *Collection[T]) IndexOf(item T) int   { return slices.Index(c.items, item) }
func (c *Collection[T]) Contains(item T) bool { return c.IndexOf(item) >= 0 }
func (c *Collection[T]) Subscribe(fn func(CollectionChangedEvent)) func() {
	return c.subs.Add(fn)
}

// Add appends item.
func (c *Collection[T]) Add(item T) {
	c.Insert(len(c.items), item)
}

// Insert places item at index i.
func (c *Collection[T]) Insert(i int, item T) {
	c.items = slices.Insert(c.items, i, item)
	c.attach(item)
	c.notify(ActionAdd, []Element{item}, []int{i})
}

// AddRange appends items and raises a single Add event listing all of them.
func (c *Collection[T]) AddRange(items ...T) {
	if len(items) == 0 {
		return
	}
	start := len(c.items)
	c.items = append(c.items, items...)
	elems := make([]Element, len(items))
	idx := make([]int, len(items))
	for i, it := range items {
		c.attach(it)
		elems[i] = it
		idx[i] = start + i
	}
	c.notify(ActionAdd, elems, idx)
}

// RemoveAt removes the item at index i.
func (c *Collection[T]) RemoveAt(i int) {
	item := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	c.detach(item)
	c.notify(ActionRemove, []Element{item}, []int{i})
}

// Remove removes item and reports whether it was present.
func (c *Collection[T]) Remove(item T) bool {
	i := c.IndexOf(item)
	if i < 0 {
		return false
	}
	c.RemoveAt(i)
	return true
}

// Clear removes every item with one Remove event. Clearing an empty
// collection raises nothing.
func (c *Collection[T]) Clear() {
	if len(c.items) == 0 {
		return
	}
	removed := c.items
	c.items = nil
	elems := make([]Element, len(removed))
	idx := make([]int, len(removed))
	for i, it := range removed {
		c.detach(it)
		elems[i] = it
		idx[i] = i
	}
	c.notify(ActionRemove, elems, idx)
}

func (c *Collection[T]) IndexOfElement(e Element) int {
	t, ok := e.(T)
	if !ok {
		return -1
	}
	return c.IndexOf(t)
}

// InsertElement is Insert for callers holding an Element. It panics if e is
// not of the collection's item type.
func (c *Collection[T]) InsertElement(i int, e Element) {
	t, ok := e.(T)
	if !ok {
		panic(fmt.Sprintf("project: %T does not belong in a %s collection", e, c.kind))
	}
	if i > len(c.items) {
		i = len(c.items)
	}
	c.Insert(i, t)
}

func (c *Collection[T]) RemoveElement(e Element) bool {
	t, ok := e.(T)
	return ok && c.Remove(t)
}

func (c *Collection[T]) attach(item T) {
	b := item.Base()
	if c.owner != nil {
		b.parent, b.project = c.owner, nil
	} else {
		b.parent, b.project = nil, c.project
	}
}

func (c *Collection[T]) detach(item T) {
	b := item.Base()
	b.parent, b.project = nil, nil
}

func (c *Collection[T]) notify(action CollectionAction, elems []Element, idx []int) {
	ev := CollectionChangedEvent{Collection: c, Action: action, Elements: elems, Indices: idx}
	if p := c.Project(); p != nil {
		if p.loading {
			return
		}
		p.onCollectionChanged(ev)
	}
	c.subs.Emit(ev)
}
