package lddenv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Transform is LDD's angle/axis/translation placement. Angle is in degrees.
type Transform struct {
	Angle       float64
	Axis        v3.Vec
	Translation v3.Vec
}

// Category is a platform or main group annotation.
type Category struct {
	ID   int
	Name string
}

// Physics mirrors the PhysicsAttributes element.
type Physics struct {
	InertiaTensor [9]float64
	CenterOfMass  v3.Vec
	Mass          float64
	FrictionType  int
}

// Collision is a Box (Size holds half-extents) or Sphere volume.
type Collision struct {
	Shape     string
	Size      v3.Vec
	Radius    float64
	Transform Transform
}

// Connector is one Connectivity child. Type is the element name, e.g.
// "Custom2DField" or "Axel".
type Connector struct {
	Type      string
	SubType   int
	Length    float64
	Width     int
	Height    int
	FieldData string
	Transform Transform
}

// FlexBone is one bone of a flexible part.
type FlexBone struct {
	ID         int
	Transform  Transform
	Collisions []Collision
	Connectors []Connector
}

// Primitive is the subset of an LDD primitive descriptor the editor uses.
type Primitive struct {
	PartID             int
	Name               string
	Aliases            []int
	Platform           *Category
	MainGroup          *Category
	PartVersion        int
	VersionMajor       int
	VersionMinor       int
	Physics            *Physics
	Bounding           *sdf.Box3
	GeometryBounding   *sdf.Box3
	DefaultOrientation *Transform
	Collisions         []Collision
	Connectors         []Connector
	FlexBones          []FlexBone
	// SurfaceMaterials is the decoration sub-material lookup table; entry
	// i belongs to surface i+1.
	SurfaceMaterials []int
}

// SurfaceMaterialIndex returns the material index of a surface. The main
// surface is always 0.
func (p *Primitive) SurfaceMaterialIndex(surfaceID int) int {
	if surfaceID <= 0 || surfaceID > len(p.SurfaceMaterials) {
		return 0
	}
	return p.SurfaceMaterials[surfaceID-1]
}

// ----------------------------------------------------------------------------
// XML shapes
// ----------------------------------------------------------------------------

type primitiveXML struct {
	XMLName            xml.Name      `xml:"LEGOPrimitive"`
	VersionMajor       int           `xml:"versionMajor,attr"`
	VersionMinor       int           `xml:"versionMinor,attr"`
	Annotations        []nodeXML     `xml:"Annotations>Annotation"`
	Collision          containerXML  `xml:"Collision"`
	Connectivity       containerXML  `xml:"Connectivity"`
	Flex               []boneXML     `xml:"Flex>Bone"`
	PhysicsAttributes  *nodeXML      `xml:"PhysicsAttributes"`
	Bounding           *containerXML `xml:"Bounding"`
	GeometryBounding   *containerXML `xml:"GeometryBounding"`
	Decoration         *nodeXML      `xml:"Decoration"`
	DefaultOrientation *nodeXML      `xml:"DefaultOrientation"`
}

// nodeXML captures any element with its attributes and text.
type nodeXML struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
}

type containerXML struct {
	Nodes []nodeXML `xml:",any"`
}

type boneXML struct {
	Attrs        []xml.Attr   `xml:",any,attr"`
	Collision    containerXML `xml:"Collision"`
	Connectivity containerXML `xml:"Connectivity"`
}

type attrs map[string]string

func attrMap(list []xml.Attr) attrs {
	m := make(attrs, len(list))
	for _, a := range list {
		m[a.Name.Local] = a.Value
	}
	return m
}

func (n nodeXML) attrs() attrs { return attrMap(n.Attrs) }

func (a attrs) float(key string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(a[key]), 64)
	return f
}

func (a attrs) int(key string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(a[key]))
	return n
}

func (a attrs) transform() Transform {
	return Transform{
		Angle:       a.float("angle"),
		Axis:        v3.Vec{X: a.float("ax"), Y: a.float("ay"), Z: a.float("az")},
		Translation: v3.Vec{X: a.float("tx"), Y: a.float("ty"), Z: a.float("tz")},
	}
}

func parseFloatList(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func parseIntList(s, sep string) []int {
	var out []int
	for _, part := range strings.Split(s, sep) {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parseCollisions(c containerXML) []Collision {
	var out []Collision
	for _, n := range c.Nodes {
		a := n.attrs()
		switch n.XMLName.Local {
		case "Box":
			out = append(out, Collision{
				Shape:     "Box",
				Size:      v3.Vec{X: a.float("sX"), Y: a.float("sY"), Z: a.float("sZ")},
				Transform: a.transform(),
			})
		case "Sphere":
			out = append(out, Collision{Shape: "Sphere", Radius: a.float("radius"), Transform: a.transform()})
		}
	}
	return out
}

func parseConnectors(c containerXML) []Connector {
	var out []Connector
	for _, n := range c.Nodes {
		a := n.attrs()
		out = append(out, Connector{
			Type:      n.XMLName.Local,
			SubType:   a.int("type"),
			Length:    a.float("length"),
			Width:     a.int("width"),
			Height:    a.int("height"),
			FieldData: strings.TrimSpace(n.Text),
			Transform: a.transform(),
		})
	}
	return out
}

func parseAABB(c *containerXML) *sdf.Box3 {
	if c == nil {
		return nil
	}
	for _, n := range c.Nodes {
		if n.XMLName.Local != "AABB" {
			continue
		}
		a := n.attrs()
		return &sdf.Box3{
			Min: v3.Vec{X: a.float("minX"), Y: a.float("minY"), Z: a.float("minZ")},
			Max: v3.Vec{X: a.float("maxX"), Y: a.float("maxY"), Z: a.float("maxZ")},
		}
	}
	return nil
}

// ReadPrimitive parses an LDD primitive descriptor.
func ReadPrimitive(r io.Reader, partID int) (*Primitive, error) {
	var doc primitiveXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("lddenv: parse primitive %d: %w", partID, err)
	}

	p := &Primitive{
		PartID:       partID,
		PartVersion:  1,
		VersionMajor: doc.VersionMajor,
		VersionMinor: doc.VersionMinor,
	}
	ann := make(attrs)
	for _, n := range doc.Annotations {
		for k, v := range n.attrs() {
			ann[k] = v
		}
	}
	p.Name = ann["designname"]
	p.Aliases = parseIntList(ann["aliases"], ";")
	if v := ann.int("version"); v > 0 {
		p.PartVersion = v
	}
	if _, ok := ann["platformid"]; ok {
		p.Platform = &Category{ID: ann.int("platformid"), Name: ann["platformname"]}
	}
	if _, ok := ann["maingroupid"]; ok {
		p.MainGroup = &Category{ID: ann.int("maingroupid"), Name: ann["maingroupname"]}
	}

	if n := doc.PhysicsAttributes; n != nil {
		a := n.attrs()
		ph := &Physics{Mass: a.float("mass"), FrictionType: a.int("frictionType")}
		copy(ph.InertiaTensor[:], parseFloatList(a["inertiaTensor"]))
		if com := parseFloatList(a["centerOfMass"]); len(com) == 3 {
			ph.CenterOfMass = v3.Vec{X: com[0], Y: com[1], Z: com[2]}
		}
		p.Physics = ph
	}
	p.Bounding = parseAABB(doc.Bounding)
	p.GeometryBounding = parseAABB(doc.GeometryBounding)
	if n := doc.DefaultOrientation; n != nil {
		t := n.attrs().transform()
		p.DefaultOrientation = &t
	}
	if n := doc.Decoration; n != nil {
		p.SurfaceMaterials = parseIntList(n.attrs()["subMaterialRedirectLookupTable"], ",")
	}

	p.Collisions = parseCollisions(doc.Collision)
	p.Connectors = parseConnectors(doc.Connectivity)
	for _, b := range doc.Flex {
		a := attrMap(b.Attrs)
		p.FlexBones = append(p.FlexBones, FlexBone{
			ID:         a.int("boneId"),
			Transform:  a.transform(),
			Collisions: parseCollisions(b.Collision),
			Connectors: parseConnectors(b.Connectivity),
		})
	}
	return p, nil
}
