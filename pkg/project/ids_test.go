package project

import (
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

func assertUnique(t *testing.T, p *PartProject) {
	t.Helper()
	ids := make(map[string]Element)
	names := make(map[ElementKind]map[string]bool)
	for _, e := range p.AllElements() {
		b := e.Base()
		if !idPattern.MatchString(b.ID) {
			t.Errorf("%s has malformed ID %q", e.Kind(), b.ID)
		}
		if other, dup := ids[b.ID]; dup {
			t.Errorf("ID %q shared by %s and %s", b.ID, other.Kind(), e.Kind())
		}
		ids[b.ID] = e
		if b.Name == "" {
			t.Errorf("%s %s has no name", e.Kind(), b.ID)
		}
		if names[e.Kind()] == nil {
			names[e.Kind()] = make(map[string]bool)
		}
		if names[e.Kind()][b.Name] {
			t.Errorf("%s name %q is duplicated", e.Kind(), b.Name)
		}
		names[e.Kind()][b.Name] = true
	}
}

func TestAddedElementsGetUniqueIDsAndNames(t *testing.T) {
	p := sampleProject(t)
	assertUnique(t, p)

	// Colliding ID and name on insertion.
	dup := NewConnection(ConnectorSlider)
	dup.ID = p.Connections.At(0).ID
	dup.Name = p.Connections.At(0).Name
	p.Connections.Add(dup)
	if dup.ID == p.Connections.At(0).ID {
		t.Error("colliding ID should be replaced")
	}
	if dup.Name == p.Connections.At(0).Name {
		t.Error("colliding name should be replaced")
	}
	assertUnique(t, p)
}

func TestExistingIDsAndNamesKept(t *testing.T) {
	p := New()
	c := NewConnection(ConnectorFixed)
	c.ID = "deadbeef"
	c.Name = "Anchor"
	p.Connections.Add(c)
	if c.ID != "deadbeef" || c.Name != "Anchor" {
		t.Errorf("got %q / %q, want the original ID and name", c.ID, c.Name)
	}
}

func TestBoneConnectionsShareNameCategory(t *testing.T) {
	p := New()
	p.Connections.Add(NewConnection(ConnectorAxel))
	bone := NewBone(0)
	bone.Connections.Add(NewConnection(ConnectorBall))
	p.Bones.Add(bone)
	if p.Connections.At(0).Name == bone.Connections.At(0).Name {
		t.Error("bone and project connections must not share a name")
	}
}

func TestNamesNotReusedAfterDelete(t *testing.T) {
	p := New()
	for range 3 {
		p.Collisions.Add(NewSphereCollision(1))
	}
	last := p.Collisions.At(2)
	if last.Name != "Collision3" {
		t.Fatalf("third collision named %q, want Collision3", last.Name)
	}
	p.Collisions.Remove(last)

	next := NewSphereCollision(1)
	p.Collisions.Add(next)
	if next.Name != "Collision4" {
		t.Errorf("new collision named %q, want Collision4", next.Name)
	}
}

func TestNameNumbering(t *testing.T) {
	p := New()
	c := NewConnection(ConnectorAxel)
	c.Name = "Connection7"
	p.Connections.Add(c)
	next := NewConnection(ConnectorAxel)
	p.Connections.Add(next)
	if next.Name != "Connection8" {
		t.Errorf("got %q, want Connection8", next.Name)
	}

	tests := []struct {
		name string
		n    int
		ok   bool
	}{
		{"Connection1", 1, true},
		{"Connection12", 12, true},
		{"Connection", 0, false},
		{"Connection0", 0, false},
		{"Connection-3", 0, false},
		{"Collision3", 0, false},
		{"Connection3a", 0, false},
	}
	for _, tc := range tests {
		n, ok := nameNumber(KindConnection, tc.name)
		if n != tc.n || ok != tc.ok {
			t.Errorf("nameNumber(%q) = %d, %v; want %d, %v", tc.name, n, ok, tc.n, tc.ok)
		}
	}
}

func TestDeterministicIDs(t *testing.T) {
	a := DeterministicID(3001, 0)
	if a != DeterministicID(3001, 0) {
		t.Fatal("deterministic ID is not stable")
	}
	if a == DeterministicID(3001, 1) || a == DeterministicID(3002, 0) {
		t.Error("different seeds should give different IDs")
	}
	if !idPattern.MatchString(a) || !idPattern.MatchString(RandomID()) {
		t.Error("IDs must be 8 lowercase hex characters")
	}
}

func TestGenerateElementIDsReplacesDuplicates(t *testing.T) {
	build := func() *PartProject {
		p := New()
		p.PartID = 42
		p.loading = true
		for range 3 {
			c := NewConnection(ConnectorAxel)
			c.ID = "same"
			p.Connections.Add(c)
		}
		p.Collisions.Add(NewSphereCollision(1))
		p.loading = false
		return p
	}

	p := build()
	p.GenerateElementIDs(true)
	if p.Connections.At(0).ID != "same" {
		t.Error("first holder should keep its ID")
	}
	assertIDsUnique(t, p)

	q := build()
	q.GenerateElementIDs(true)
	for i, e := range p.AllElements() {
		if q.AllElements()[i].Base().ID != e.Base().ID {
			t.Errorf("element %d: deterministic IDs differ between runs", i)
		}
	}
}

func TestGenerateElementIDsSkipsTakenSeeds(t *testing.T) {
	p := New()
	p.PartID = 7
	p.loading = true
	// Pre-claim the first deterministic ID so the generator must advance.
	taken := NewConnection(ConnectorAxel)
	taken.ID = DeterministicID(7, 0)
	p.Connections.Add(taken)
	p.Collisions.Add(NewSphereCollision(1))
	p.loading = false

	p.GenerateElementIDs(true)
	if got := p.Collisions.At(0).ID; got != DeterministicID(7, 1) {
		t.Errorf("got %q, want the second seed %q", got, DeterministicID(7, 1))
	}
}

func assertIDsUnique(t *testing.T, p *PartProject) {
	t.Helper()
	seen := make(map[string]bool)
	for _, e := range p.AllElements() {
		id := e.Base().ID
		if id == "" || seen[id] {
			t.Errorf("ID %q is empty or duplicated", id)
		}
		seen[id] = true
	}
}
