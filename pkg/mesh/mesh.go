// Package mesh defines the polygon mesh shared by the merge and inspection
// stages: points, variable-arity facets stored as a flat corner array,
// volumetric cells and typed attribute tables.
package mesh

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// NoIndex marks a missing vertex, facet or corner.
const NoIndex = -1

// Mesh is a mutable polygon mesh. Facet f owns the corners
// [FacetCornerBegin(f), FacetCornerEnd(f)); a corner doubles as the id of the
// half-edge leaving its vertex inside that facet.
//
// Indices are stable between mutations only. DeleteVertices and DeleteFacets
// compact the arrays and return the old-to-new mapping.
type Mesh struct {
	points   []r3.Vec
	corners  []int // corner -> vertex
	facetPtr []int // len == NbFacets()+1
	cells    []Cell

	VertexAttributes *Attributes
	FacetAttributes  *Attributes
	CornerAttributes *Attributes
	CellAttributes   *Attributes
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{
		facetPtr:         []int{0},
		VertexAttributes: newAttributes(),
		FacetAttributes:  newAttributes(),
		CornerAttributes: newAttributes(),
		CellAttributes:   newAttributes(),
	}
}

// ---------------------------------------------------------------------------
// Vertices
// ---------------------------------------------------------------------------

// NbVertices returns the number of vertices.
func (m *Mesh) NbVertices() int { return len(m.points) }

// Point returns the position of vertex v.
func (m *Mesh) Point(v int) r3.Vec { return m.points[v] }

// SetPoint moves vertex v to p.
func (m *Mesh) SetPoint(v int, p r3.Vec) { m.points[v] = p }

// Points returns the vertex positions. The slice is owned by the mesh.
func (m *Mesh) Points() []r3.Vec { return m.points }

// CreateVertices appends n vertices at the origin and returns the index of
// the first one.
func (m *Mesh) CreateVertices(n int) int {
	first := len(m.points)
	m.points = append(m.points, make([]r3.Vec, n)...)
	m.VertexAttributes.resize(len(m.points))
	return first
}

// AddVertex appends a vertex at p and returns its index.
func (m *Mesh) AddVertex(p r3.Vec) int {
	v := m.CreateVertices(1)
	m.points[v] = p
	return v
}

// DeleteVertices removes every vertex v with mask[v] set and returns the
// old-to-new vertex mapping (NoIndex for removed vertices). Facets and cells
// referencing a removed vertex are removed with it.
func (m *Mesh) DeleteVertices(mask []bool) []int {
	if len(mask) != len(m.points) {
		panic(fmt.Sprintf("mesh: DeleteVertices mask has %d entries for %d vertices", len(mask), len(m.points)))
	}
	old2new := make([]int, len(m.points))
	n := 0
	for v := range m.points {
		if mask[v] {
			old2new[v] = NoIndex
			continue
		}
		old2new[v] = n
		m.points[n] = m.points[v]
		n++
	}
	m.points = m.points[:n]
	m.VertexAttributes.compact(old2new, n)

	dead := make([]bool, m.NbFacets())
	anyDead := false
	for f := range dead {
		for c := m.facetPtr[f]; c < m.facetPtr[f+1]; c++ {
			nv := old2new[m.corners[c]]
			if nv == NoIndex {
				dead[f] = true
				anyDead = true
			}
			m.corners[c] = nv
		}
	}
	if anyDead {
		m.DeleteFacets(dead)
	}

	deadCells := make([]bool, len(m.cells))
	anyDead = false
	for c := range m.cells {
		for i, v := range m.cells[c].Vertices {
			nv := old2new[v]
			if nv == NoIndex {
				deadCells[c] = true
				anyDead = true
			}
			m.cells[c].Vertices[i] = nv
		}
	}
	if anyDead {
		m.DeleteCells(deadCells)
	}
	return old2new
}

// RemapVertices re-points every facet corner and cell vertex v to old2new[v].
// Vertices themselves are left in place.
func (m *Mesh) RemapVertices(old2new []int) {
	if len(old2new) != len(m.points) {
		panic(fmt.Sprintf("mesh: RemapVertices map has %d entries for %d vertices", len(old2new), len(m.points)))
	}
	for c, v := range m.corners {
		m.corners[c] = old2new[v]
	}
	for _, cell := range m.cells {
		for i, v := range cell.Vertices {
			cell.Vertices[i] = old2new[v]
		}
	}
}

// ---------------------------------------------------------------------------
// Facets and corners
// ---------------------------------------------------------------------------

// NbFacets returns the number of facets.
func (m *Mesh) NbFacets() int { return len(m.facetPtr) - 1 }

// NbCorners returns the arity of facet f.
func (m *Mesh) NbCorners(f int) int { return m.facetPtr[f+1] - m.facetPtr[f] }

// NbCornersTotal returns the number of facet corners over all facets.
func (m *Mesh) NbCornersTotal() int { return len(m.corners) }

// FacetCornerBegin returns the first corner of facet f.
func (m *Mesh) FacetCornerBegin(f int) int { return m.facetPtr[f] }

// FacetCornerEnd returns one past the last corner of facet f.
func (m *Mesh) FacetCornerEnd(f int) int { return m.facetPtr[f+1] }

// FacetVertex returns the vertex at local corner lc of facet f.
func (m *Mesh) FacetVertex(f, lc int) int { return m.corners[m.facetPtr[f]+lc] }

// SetFacetVertex sets the vertex at local corner lc of facet f.
func (m *Mesh) SetFacetVertex(f, lc, v int) { m.corners[m.facetPtr[f]+lc] = v }

// FacetVertices returns a copy of the vertices of facet f in corner order.
func (m *Mesh) FacetVertices(f int) []int {
	return slices.Clone(m.corners[m.facetPtr[f]:m.facetPtr[f+1]])
}

// CornerVertex returns the vertex of corner c.
func (m *Mesh) CornerVertex(c int) int { return m.corners[c] }

// CreateFacets appends n facets of nbCorners corners each, all referencing
// vertex 0, and returns the index of the first one.
func (m *Mesh) CreateFacets(n, nbCorners int) int {
	first := m.NbFacets()
	for i := 0; i < n; i++ {
		m.corners = append(m.corners, make([]int, nbCorners)...)
		m.facetPtr = append(m.facetPtr, len(m.corners))
	}
	m.FacetAttributes.resize(m.NbFacets())
	m.CornerAttributes.resize(len(m.corners))
	return first
}

// AddFacet appends a facet with the given vertices and returns its index.
func (m *Mesh) AddFacet(vertices ...int) int {
	f := m.CreateFacets(1, len(vertices))
	copy(m.corners[m.facetPtr[f]:], vertices)
	return f
}

// ReverseFacet flips the winding of facet f, keeping its first corner.
func (m *Mesh) ReverseFacet(f int) {
	cs := m.corners[m.facetPtr[f]+1 : m.facetPtr[f+1]]
	slices.Reverse(cs)
}

// DeleteFacets removes every facet f with mask[f] set, together with its
// corners, and returns the old-to-new facet mapping.
func (m *Mesh) DeleteFacets(mask []bool) []int {
	if len(mask) != m.NbFacets() {
		panic(fmt.Sprintf("mesh: DeleteFacets mask has %d entries for %d facets", len(mask), m.NbFacets()))
	}
	old2new := make([]int, m.NbFacets())
	cornerOld2new := make([]int, len(m.corners))
	corners := make([]int, 0, len(m.corners))
	ptr := []int{0}
	for f := range old2new {
		if mask[f] {
			old2new[f] = NoIndex
			for c := m.facetPtr[f]; c < m.facetPtr[f+1]; c++ {
				cornerOld2new[c] = NoIndex
			}
			continue
		}
		old2new[f] = len(ptr) - 1
		for c := m.facetPtr[f]; c < m.facetPtr[f+1]; c++ {
			cornerOld2new[c] = len(corners)
			corners = append(corners, m.corners[c])
		}
		ptr = append(ptr, len(corners))
	}
	m.corners = corners
	m.facetPtr = ptr
	m.FacetAttributes.compact(old2new, m.NbFacets())
	m.CornerAttributes.compact(cornerOld2new, len(m.corners))
	return old2new
}

// ClearFacets removes all facets.
func (m *Mesh) ClearFacets() {
	m.corners = nil
	m.facetPtr = []int{0}
	m.FacetAttributes.resize(0)
	m.CornerAttributes.resize(0)
}

// Copy returns a deep copy of m, attributes included.
func (m *Mesh) Copy() *Mesh {
	c := &Mesh{
		points:           slices.Clone(m.points),
		corners:          slices.Clone(m.corners),
		facetPtr:         slices.Clone(m.facetPtr),
		cells:            make([]Cell, len(m.cells)),
		VertexAttributes: m.VertexAttributes.clone(),
		FacetAttributes:  m.FacetAttributes.clone(),
		CornerAttributes: m.CornerAttributes.clone(),
		CellAttributes:   m.CellAttributes.clone(),
	}
	for i, cell := range m.cells {
		c.cells[i] = Cell{Type: cell.Type, Vertices: slices.Clone(cell.Vertices)}
	}
	return c
}

// IsEmpty returns true if the mesh has no vertices.
func (m *Mesh) IsEmpty() bool {
	return len(m.points) == 0
}
