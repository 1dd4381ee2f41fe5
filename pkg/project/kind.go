package project

// ElementKind enumerates the concrete element categories. Name uniqueness
// and name generation are scoped per kind.
type ElementKind int

const (
	KindSurface    ElementKind = iota // renderable surface layer
	KindComponent                     // surface component (model or culling)
	KindConnection                    // connector
	KindCollision                     // collision volume
	KindBone                          // flex bone
	KindMesh                          // mesh pool entry
	KindMeshRef                       // component link to a pool mesh
)

// AllKinds lists every kind in generation order.
var AllKinds = []ElementKind{
	KindSurface, KindComponent, KindConnection, KindCollision,
	KindBone, KindMesh, KindMeshRef,
}

type kindInfo struct {
	name  string
	label string // name-generation prefix
	image string // UI image key
}

var kindTable = map[ElementKind]kindInfo{
	KindSurface:    {"surface", "Surface", "Surface"},
	KindComponent:  {"component", "Component", "Model"},
	KindConnection: {"connection", "Connection", "Connection"},
	KindCollision:  {"collision", "Collision", "Collision"},
	KindBone:       {"bone", "Bone", "Bone"},
	KindMesh:       {"mesh", "Mesh", "Mesh"},
	KindMeshRef:    {"meshref", "MeshRef", "Mesh"},
}

func (k ElementKind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return "unknown"
}

// Label returns the prefix used for generated names, e.g. "Connection".
func (k ElementKind) Label() string {
	return kindTable[k].label
}

// ImageKey returns the navigation image key for an element. Surfaces,
// components, connections and collisions are refined by their sub-type.
func ImageKey(e Element) string {
	switch el := e.(type) {
	case *PartSurface:
		if el.SurfaceID == 0 {
			return "Surface_Main"
		}
		return "Surface_Decoration"
	case *SurfaceComponent:
		return "Model_" + el.ComponentType.String()
	case *PartConnection:
		return "Connection_" + el.ConnectorType.String()
	case *PartCollision:
		return "Collision_" + el.CollisionType.String()
	}
	return kindTable[e.Kind()].image
}
