// Package observer provides ordered callback lists for the editing model.
// Lists are not safe for concurrent use.
package observer

import "slices"

type entry[F any] struct {
	id int
	fn F
}

type registry[F any] struct {
	next    int
	entries []entry[F]
}

func (r *registry[F]) add(fn F) func() {
	r.next++
	id := r.next
	r.entries = append(r.entries, entry[F]{id: id, fn: fn})
	return func() {
		r.entries = slices.DeleteFunc(r.entries, func(e entry[F]) bool { return e.id == id })
	}
}

// snapshot lets callbacks unsubscribe while a list is being emitted.
func (r *registry[F]) snapshot() []entry[F] { return slices.Clone(r.entries) }

// List holds callbacks taking an event value.
type List[E any] struct {
	r registry[func(E)]
}

// Add registers fn and returns a func that removes it.
func (l *List[E]) Add(fn func(E)) (remove func()) { return l.r.add(fn) }

// Emit calls every callback in registration order.
func (l *List[E]) Emit(e E) {
	for _, x := range l.r.snapshot() {
		x.fn(e)
	}
}

func (l *List[E]) Len() int { return len(l.r.entries) }

// Hooks holds parameterless callbacks.
type Hooks struct {
	r registry[func()]
}

func (h *Hooks) Add(fn func()) (remove func()) { return h.r.add(fn) }

func (h *Hooks) Emit() {
	for _, x := range h.r.snapshot() {
		x.fn()
	}
}

func (h *Hooks) Len() int { return len(h.r.entries) }
