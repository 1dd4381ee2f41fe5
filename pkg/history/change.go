package history

import "github.com/lddmodder/brickedit/pkg/project"

// change is one reversible mutation.
type change interface {
	undo()
	redo()
}

// collectionChange reverses an add or remove. Indices are ascending, so
// reinserting in order restores every element to its recorded position.
type collectionChange struct {
	ev project.CollectionChangedEvent
}

func (c collectionChange) insert() {
	for i, e := range c.ev.Elements {
		c.ev.Collection.InsertElement(c.ev.Indices[i], e)
	}
}

func (c collectionChange) remove() {
	for i := len(c.ev.Elements) - 1; i >= 0; i-- {
		c.ev.Collection.RemoveElement(c.ev.Elements[i])
	}
}

func (c collectionChange) undo() {
	if c.ev.Action == project.ActionAdd {
		c.remove()
	} else {
		c.insert()
	}
}

func (c collectionChange) redo() {
	if c.ev.Action == project.ActionAdd {
		c.insert()
	} else {
		c.remove()
	}
}

type propertyChange struct {
	ev project.PropertyChangedEvent
}

func (c propertyChange) undo() { c.ev.Assign(c.ev.Old) }
func (c propertyChange) redo() { c.ev.Assign(c.ev.New) }

// entry is one undo step.
type entry struct {
	id      int64
	changes []change
}

func (e *entry) undo() {
	for i := len(e.changes) - 1; i >= 0; i-- {
		e.changes[i].undo()
	}
}

func (e *entry) redo() {
	for _, c := range e.changes {
		c.redo()
	}
}
