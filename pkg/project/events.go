package project

// CollectionAction is the kind of collection mutation.
type CollectionAction int

const (
	ActionAdd CollectionAction = iota
	ActionRemove
)

func (a CollectionAction) String() string {
	if a == ActionAdd {
		return "add"
	}
	return "remove"
}

// CollectionChangedEvent describes one logical collection mutation. Indices
// holds the position of each element: after insertion for ActionAdd, before
// removal for ActionRemove. Indices are ascending.
type CollectionChangedEvent struct {
	Collection ElementCollection
	Action     CollectionAction
	Elements   []Element
	Indices    []int
}

// PropertyChangedEvent describes a scalar property change. Element is nil
// for project metadata.
type PropertyChangedEvent struct {
	Project  *PartProject
	Element  Element
	Property string
	Old      any
	New      any

	assign func(v any)
}

// Assign sets the property to v (typically Old or New) through the same
// notifying setter that raised the event.
func (e PropertyChangedEvent) Assign(v any) {
	if e.assign != nil {
		e.assign(v)
	}
}

// SetProperty assigns v to *field and, when the value changes and e is
// attached to a project, raises ElementPropertyChanged.
func SetProperty[T comparable](e Element, prop string, field *T, v T) bool {
	old := *field
	if old == v {
		return false
	}
	*field = v
	if p := e.Base().Project(); p != nil {
		p.onPropertyChanged(PropertyChangedEvent{
			Project:  p,
			Element:  e,
			Property: prop,
			Old:      old,
			New:      v,
			assign:   func(x any) { SetProperty(e, prop, field, x.(T)) },
		})
	}
	return true
}

// SetProjectProperty is SetProperty for project metadata fields.
func SetProjectProperty[T comparable](p *PartProject, prop string, field *T, v T) bool {
	old := *field
	if old == v {
		return false
	}
	*field = v
	p.onPropertyChanged(PropertyChangedEvent{
		Project:  p,
		Property: prop,
		Old:      old,
		New:      v,
		assign:   func(x any) { SetProjectProperty(p, prop, field, x.(T)) },
	})
	return true
}

// SetName renames e with notification.
func SetName(e Element, name string) bool {
	return SetProperty(e, "Name", &e.Base().Name, name)
}
