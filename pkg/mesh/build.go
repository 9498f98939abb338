package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// cubeCorner returns corner i of the box [min, max] in x + 2y + 4z order.
func cubeCorner(min, max r3.Vec, i int) r3.Vec {
	p := min
	if i&1 != 0 {
		p.X = max.X
	}
	if i&2 != 0 {
		p.Y = max.Y
	}
	if i&4 != 0 {
		p.Z = max.Z
	}
	return p
}

// BoxSurface returns the closed surface of the box [min, max] as six quads
// with outward normals over eight shared vertices.
func BoxSurface(min, max r3.Vec) *Mesh {
	m := New()
	for i := 0; i < 8; i++ {
		m.AddVertex(cubeCorner(min, max, i))
	}
	for _, f := range cellDescriptors[Hex].facets {
		m.AddFacet(f...)
	}
	return m
}

// HexBlock returns a volume mesh of n*n*n hex cells of edge size, with min as
// its lowest corner. Neighbouring cells share vertices.
func HexBlock(min r3.Vec, size float64, n int) *Mesh {
	m := New()
	id := func(i, j, k int) int { return i + (n+1)*(j+(n+1)*k) }
	for k := 0; k <= n; k++ {
		for j := 0; j <= n; j++ {
			for i := 0; i <= n; i++ {
				m.AddVertex(r3.Vec{
					X: min.X + float64(i)*size,
					Y: min.Y + float64(j)*size,
					Z: min.Z + float64(k)*size,
				})
			}
		}
	}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				var vs [8]int
				for c := range vs {
					vs[c] = id(i+c&1, j+(c>>1)&1, k+(c>>2)&1)
				}
				m.AddCell(Hex, vs[:]...)
			}
		}
	}
	return m
}

// Tetrahedron returns a volume mesh holding the single tet abcd.
func Tetrahedron(a, b, c, d r3.Vec) *Mesh {
	m := New()
	for _, p := range []r3.Vec{a, b, c, d} {
		m.AddVertex(p)
	}
	m.AddCell(Tet, 0, 1, 2, 3)
	return m
}

// FromTriangles builds a triangle surface from a soup, sharing vertices whose
// coordinates are bit-identical.
func FromTriangles(tris [][3]r3.Vec) *Mesh {
	m := New()
	index := make(map[r3.Vec]int)
	for _, tri := range tris {
		var vs [3]int
		for i, p := range tri {
			v, ok := index[p]
			if !ok {
				v = m.AddVertex(p)
				index[p] = v
			}
			vs[i] = v
		}
		m.AddFacet(vs[:]...)
	}
	return m
}

// Append adds the vertices, facets and cells of other to m and returns the
// index of the first appended vertex. Attributes of other are not copied.
func (m *Mesh) Append(other *Mesh) int {
	off := m.CreateVertices(other.NbVertices())
	copy(m.points[off:], other.points)
	for f := 0; f < other.NbFacets(); f++ {
		vs := other.FacetVertices(f)
		for i := range vs {
			vs[i] += off
		}
		m.AddFacet(vs...)
	}
	for _, cell := range other.cells {
		vs := make([]int, len(cell.Vertices))
		for i, v := range cell.Vertices {
			vs[i] = v + off
		}
		m.AddCell(cell.Type, vs...)
	}
	return off
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d r3.Vec) {
	for i := range m.points {
		m.points[i] = r3.Add(m.points[i], d)
	}
}
