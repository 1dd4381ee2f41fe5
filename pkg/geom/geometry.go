package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BoneWeight binds a vertex to a flex bone.
type BoneWeight struct {
	BoneID int     `codec:"bone"`
	Weight float32 `codec:"weight"`
}

// Vertex is a single mesh vertex. TexCoord is nil for untextured meshes.
type Vertex struct {
	Position    v3.Vec
	Normal      v3.Vec
	TexCoord    *v2.Vec
	BoneWeights []BoneWeight
}

// Equal compares position, normal and texture coordinate.
func (v Vertex) Equal(o Vertex) bool {
	if v.Position != o.Position || v.Normal != o.Normal {
		return false
	}
	if (v.TexCoord == nil) != (o.TexCoord == nil) {
		return false
	}
	return v.TexCoord == nil || *v.TexCoord == *o.TexCoord
}

// Geometry is an indexed triangle mesh.
type Geometry struct {
	Vertices []Vertex
	Indices  []int // 3 per triangle
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Vertices)
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// IsEmpty returns true if the geometry has no vertices.
func (g *Geometry) IsEmpty() bool {
	return g == nil || len(g.Vertices) == 0
}

// IsTextured reports whether every vertex carries a texture coordinate.
func (g *Geometry) IsTextured() bool {
	if g.IsEmpty() {
		return false
	}
	for _, v := range g.Vertices {
		if v.TexCoord == nil {
			return false
		}
	}
	return true
}

// IsFlexible reports whether any vertex is weighted to a bone.
func (g *Geometry) IsFlexible() bool {
	for _, v := range g.Vertices {
		if len(v.BoneWeights) > 0 {
			return true
		}
	}
	return false
}

// Bounds returns the axis-aligned bounding box of all vertex positions.
// An empty geometry yields the zero box.
func (g *Geometry) Bounds() sdf.Box3 {
	if g.IsEmpty() {
		return sdf.Box3{}
	}
	mn := v3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
	mx := v3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64}
	for _, v := range g.Vertices {
		mn = mn.Min(v.Position)
		mx = mx.Max(v.Position)
	}
	return sdf.Box3{Min: mn, Max: mx}
}

// ComputeFaceNormals overwrites every vertex normal with the normal of the
// last triangle that references it. Degenerate triangles are skipped.
func (g *Geometry) ComputeFaceNormals() {
	for i := 0; i+2 < len(g.Indices); i += 3 {
		a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		tri := sdf.Triangle3{g.Vertices[a].Position, g.Vertices[b].Position, g.Vertices[c].Position}
		n := tri.Normal()
		if math.IsNaN(n.X) || n.Length() == 0 {
			continue
		}
		g.Vertices[a].Normal = n
		g.Vertices[b].Normal = n
		g.Vertices[c].Normal = n
	}
}

// Clone returns a deep copy.
func (g *Geometry) Clone() *Geometry {
	if g == nil {
		return nil
	}
	out := &Geometry{
		Vertices: make([]Vertex, len(g.Vertices)),
		Indices:  append([]int(nil), g.Indices...),
	}
	for i, v := range g.Vertices {
		nv := v
		if v.TexCoord != nil {
			tc := *v.TexCoord
			nv.TexCoord = &tc
		}
		nv.BoneWeights = append([]BoneWeight(nil), v.BoneWeights...)
		out.Vertices[i] = nv
	}
	return out
}

// FromFlat builds a geometry from flat buffers: 3 floats per vertex for
// positions and normals, 3 indices per triangle.
func FromFlat(vertices, normals []float32, indices []uint32) *Geometry {
	n := len(vertices) / 3
	g := &Geometry{
		Vertices: make([]Vertex, n),
		Indices:  make([]int, len(indices)),
	}
	for i := 0; i < n; i++ {
		g.Vertices[i].Position = v3.Vec{X: float64(vertices[i*3]), Y: float64(vertices[i*3+1]), Z: float64(vertices[i*3+2])}
		if len(normals) >= (i+1)*3 {
			g.Vertices[i].Normal = v3.Vec{X: float64(normals[i*3]), Y: float64(normals[i*3+1]), Z: float64(normals[i*3+2])}
		}
	}
	for i, idx := range indices {
		g.Indices[i] = int(idx)
	}
	return g
}

// Flat returns the geometry as flat render buffers.
func (g *Geometry) Flat() (vertices, normals []float32, indices []uint32) {
	vertices = make([]float32, 0, len(g.Vertices)*3)
	normals = make([]float32, 0, len(g.Vertices)*3)
	indices = make([]uint32, 0, len(g.Indices))
	for _, v := range g.Vertices {
		vertices = append(vertices, float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z))
		normals = append(normals, float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z))
	}
	for _, i := range g.Indices {
		indices = append(indices, uint32(i))
	}
	return vertices, normals, indices
}

// Subset returns the triangles of indices [start, start+count) as a new
// geometry holding only the vertices they use. Out-of-range bounds are
// clamped.
func (g *Geometry) Subset(start, count int) *Geometry {
	start = max(0, min(start, len(g.Indices)))
	end := max(start, min(start+count, len(g.Indices)))
	out := &Geometry{Indices: make([]int, 0, end-start)}
	remap := make(map[int]int)
	for _, idx := range g.Indices[start:end] {
		n, ok := remap[idx]
		if !ok {
			n = len(out.Vertices)
			remap[idx] = n
			out.Vertices = append(out.Vertices, g.Vertices[idx])
		}
		out.Indices = append(out.Indices, n)
	}
	return out.Clone()
}
