package project

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// idLength is the number of hex characters in an element ID.
const idLength = 8

// shortID truncates a UUID to an element ID.
func shortID(u uuid.UUID) string {
	return hex.EncodeToString(u[:idLength/2])
}

// DeterministicID derives an element ID from a part ID and a counter, so
// that re-importing the same LDD part yields the same IDs.
func DeterministicID(partID, n int) string {
	return shortID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d_%d", partID, n))))
}

// RandomID returns a fresh random element ID.
func RandomID() string {
	return shortID(uuid.New())
}

// GenerateElementIDs gives every element without an ID, or whose ID
// duplicates an earlier element's, a new one. The first holder of an ID in
// traversal order keeps it. Deterministic IDs are seeded with the part ID
// and a counter that advances on every attempt.
func (p *PartProject) GenerateElementIDs(deterministic bool) {
	all := p.AllElements()
	taken := make(map[string]bool, len(all))
	for _, e := range all {
		if id := e.Base().ID; id != "" {
			taken[id] = true
		}
	}

	seen := make(map[string]bool, len(all))
	n := 0
	next := func() string {
		if deterministic {
			id := DeterministicID(p.PartID, n)
			n++
			return id
		}
		return RandomID()
	}

	for _, e := range all {
		b := e.Base()
		if b.ID != "" && !seen[b.ID] {
			seen[b.ID] = true
			continue
		}
		id := next()
		for taken[id] {
			id = next()
		}
		b.ID = id
		taken[id] = true
		seen[id] = true
	}
}

// assignIDs gives each of the newly added elements a random ID when it has
// none or collides with an element already in the project.
func (p *PartProject) assignIDs(added []Element) {
	isAdded := make(map[Element]bool, len(added))
	for _, e := range added {
		isAdded[e] = true
	}
	taken := make(map[string]bool)
	for _, e := range p.AllElements() {
		if id := e.Base().ID; id != "" && !isAdded[e] {
			taken[id] = true
		}
	}
	for _, e := range added {
		b := e.Base()
		for b.ID == "" || taken[b.ID] {
			b.ID = RandomID()
		}
		taken[b.ID] = true
	}
}

// ----------------------------------------------------------------------------
// Names
// ----------------------------------------------------------------------------

// nameNumber parses a generated name of the form {Label}{N}.
func nameNumber(k ElementKind, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, k.Label())
	if !ok || rest == "" || rest[0] == '+' || rest[0] == '-' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// GenerateElementNames names every unnamed or duplicate-named element. As
// with IDs, the first holder of a name in traversal order keeps it.
func (p *PartProject) GenerateElementNames() {
	for _, k := range AllKinds {
		p.nameKind(k, p.ElementsOfKind(k))
	}
}

func (p *PartProject) assignNames(added []Element) {
	for _, k := range AllKinds {
		var group []Element
		for _, e := range added {
			if e.Kind() == k {
				group = append(group, e)
			}
		}
		if len(group) > 0 {
			p.nameKind(k, group)
		}
	}
}

// nameKind assigns {Label}{N} names to targets of kind k that are unnamed or
// collide with another element of that kind. N starts above the highest
// number in use and above every number handed out earlier in the session,
// so deleted names are not reused.
func (p *PartProject) nameKind(k ElementKind, targets []Element) {
	isTarget := make(map[Element]bool, len(targets))
	for _, e := range targets {
		isTarget[e] = true
	}

	high := p.nameHighs[k]
	taken := make(map[string]bool)
	for _, e := range p.ElementsOfKind(k) {
		name := e.Base().Name
		if n, ok := nameNumber(k, name); ok && n > high {
			high = n
		}
		if name != "" && !isTarget[e] {
			taken[name] = true
		}
	}

	for _, e := range targets {
		b := e.Base()
		if b.Name == "" || taken[b.Name] {
			for {
				high++
				if name := k.Label() + strconv.Itoa(high); !taken[name] {
					b.Name = name
					break
				}
			}
		}
		taken[b.Name] = true
	}
	p.nameHighs[k] = high
}
