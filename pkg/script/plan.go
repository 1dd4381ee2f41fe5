package script

import (
	"errors"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"

	"github.com/lddmodder/brickedit/pkg/project"
)

// Batcher groups changes into one undo step. *editor.Manager and
// *history.Manager satisfy it.
type Batcher interface {
	StartBatchChanges()
	EndBatchChanges()
}

// Plan is the ordered list of edits a script produced. A plan holds no
// project elements; each Apply builds fresh ones.
type Plan struct {
	edits []edit
}

type edit interface {
	String() string
	check(p *project.PartProject, st *checkState) error
	apply(p *project.PartProject)
}

// checkState tracks IDs claimed by earlier edits of the same plan.
type checkState struct {
	surfaces map[int]bool
	bones    map[int]bool
}

func newCheckState(p *project.PartProject) *checkState {
	st := &checkState{surfaces: make(map[int]bool), bones: make(map[int]bool)}
	for _, s := range p.Surfaces.Items() {
		st.surfaces[s.SurfaceID] = true
	}
	for _, b := range p.Bones.Items() {
		st.bones[b.BoneID] = true
	}
	return st
}

func (pl *Plan) add(e edit) { pl.edits = append(pl.edits, e) }

// pending returns the edits not absorbed by a bone.
func (pl *Plan) pending() []edit {
	return lo.Reject(pl.edits, func(e edit, _ int) bool {
		c, ok := e.(claimable)
		return ok && c.isClaimed()
	})
}

// Len returns the number of top-level edits.
func (pl *Plan) Len() int { return len(pl.pending()) }

// Describe lists the edits in application order.
func (pl *Plan) Describe() []string {
	return lo.Map(pl.pending(), func(e edit, _ int) string { return e.String() })
}

// Apply checks every edit against p, then performs them inside one batch
// of b (which may be nil). Nothing is changed when a check fails.
func (pl *Plan) Apply(p *project.PartProject, b Batcher) error {
	if p == nil {
		return errors.New("script: apply to nil project")
	}
	edits := pl.pending()
	st := newCheckState(p)
	for i, e := range edits {
		if err := e.check(p, st); err != nil {
			return fmt.Errorf("script: edit %d (%s): %w", i+1, e, err)
		}
	}
	if b != nil {
		b.StartBatchChanges()
		defer b.EndBatchChanges()
	}
	for _, e := range edits {
		e.apply(p)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Edits
// ----------------------------------------------------------------------------

type setPartID struct{ id int }

func (e setPartID) String() string { return fmt.Sprintf("set part ID %d", e.id) }

func (e setPartID) check(*project.PartProject, *checkState) error {
	if e.id <= 0 {
		return fmt.Errorf("part ID must be positive, got %d", e.id)
	}
	return nil
}

func (e setPartID) apply(p *project.PartProject) {
	project.SetProjectProperty(p, "PartID", &p.PartID, e.id)
}

type setDescription struct{ text string }

func (e setDescription) String() string { return fmt.Sprintf("set description %q", e.text) }

func (setDescription) check(*project.PartProject, *checkState) error { return nil }

func (e setDescription) apply(p *project.PartProject) {
	project.SetProjectProperty(p, "Description", &p.Description, e.text)
}

type addSurface struct {
	id       int
	material int
}

func (e addSurface) String() string { return fmt.Sprintf("add surface %d", e.id) }

func (e addSurface) check(_ *project.PartProject, st *checkState) error {
	if e.id < 0 {
		return fmt.Errorf("surface ID must not be negative, got %d", e.id)
	}
	if st.surfaces[e.id] {
		return fmt.Errorf("surface %d already exists", e.id)
	}
	st.surfaces[e.id] = true
	return nil
}

func (e addSurface) apply(p *project.PartProject) {
	p.Surfaces.Add(project.NewSurface(e.id, e.material))
}

// claimable edits can be absorbed by an enclosing bone.
type claimable interface {
	claim() error
	isClaimed() bool
}

type claimFlag struct{ claimed bool }

func (c *claimFlag) isClaimed() bool { return c.claimed }

func (c *claimFlag) claim() error {
	if c.claimed {
		return errors.New("already attached to a bone")
	}
	c.claimed = true
	return nil
}

type addConnection struct {
	claimFlag
	connType  project.ConnectorType
	subType   int
	transform project.ItemTransform
	length    float64
	width     int
	height    int
	fieldData string
}

func (e *addConnection) String() string { return fmt.Sprintf("add %s connection", e.connType) }

func (e *addConnection) check(*project.PartProject, *checkState) error {
	if e.connType == project.ConnectorCustom2DField && (e.width <= 0 || e.height <= 0) {
		return errors.New("a Custom2DField connection needs a positive width and height")
	}
	return nil
}

func (e *addConnection) build() *project.PartConnection {
	c := project.NewConnection(e.connType)
	c.SubType = e.subType
	c.Transform = e.transform
	c.Length = e.length
	c.Width, c.Height = e.width, e.height
	c.FieldData = e.fieldData
	return c
}

func (e *addConnection) apply(p *project.PartProject) { p.Connections.Add(e.build()) }

type addCollision struct {
	claimFlag
	collType  project.CollisionType
	size      v3.Vec // box half extents
	radius    float64
	transform project.ItemTransform
}

func (e *addCollision) String() string { return fmt.Sprintf("add %s collision", e.collType) }

func (e *addCollision) check(*project.PartProject, *checkState) error {
	switch e.collType {
	case project.CollisionBox:
		s := e.size
		if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
			return fmt.Errorf("box size must be positive, got %v", s)
		}
	case project.CollisionSphere:
		if e.radius <= 0 {
			return fmt.Errorf("sphere radius must be positive, got %v", e.radius)
		}
	}
	return nil
}

func (e *addCollision) build() *project.PartCollision {
	var c *project.PartCollision
	if e.collType == project.CollisionSphere {
		c = project.NewSphereCollision(e.radius)
	} else {
		c = project.NewBoxCollision(e.size)
	}
	c.Transform = e.transform
	return c
}

func (e *addCollision) apply(p *project.PartProject) { p.Collisions.Add(e.build()) }

type addBone struct {
	id          int
	transform   project.ItemTransform
	connections []*addConnection
	collisions  []*addCollision
}

func (e *addBone) String() string { return fmt.Sprintf("add bone %d", e.id) }

func (e *addBone) check(p *project.PartProject, st *checkState) error {
	if st.bones[e.id] {
		return fmt.Errorf("bone %d already exists", e.id)
	}
	st.bones[e.id] = true
	for _, c := range e.connections {
		if err := c.check(p, st); err != nil {
			return err
		}
	}
	for _, c := range e.collisions {
		if err := c.check(p, st); err != nil {
			return err
		}
	}
	return nil
}

func (e *addBone) apply(p *project.PartProject) {
	b := project.NewBone(e.id)
	b.Transform = e.transform
	for _, c := range e.connections {
		b.Connections.Add(c.build())
	}
	for _, c := range e.collisions {
		b.Collisions.Add(c.build())
	}
	p.Bones.Add(b)
}
