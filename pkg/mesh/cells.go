package mesh

import (
	"fmt"
	"slices"
)

// CellType identifies the shape of a volumetric cell.
type CellType int

const (
	Tet CellType = iota
	Hex
	Prism
	Pyramid
)

func (t CellType) String() string {
	switch t {
	case Tet:
		return "tet"
	case Hex:
		return "hex"
	case Prism:
		return "prism"
	case Pyramid:
		return "pyramid"
	default:
		return fmt.Sprintf("CellType(%d)", int(t))
	}
}

// cellDescriptor gives the local facets of a cell type, each listed so that
// its normal points out of the cell.
type cellDescriptor struct {
	nbVertices int
	facets     [][]int
}

// Hex vertices follow the x + 2y + 4z ordering of the unit cube corners.
// Prisms are two stacked triangles (0,1,2 below 3,4,5), pyramids a quad base
// (0,1,2,3) under apex 4. Tets with positive volume have 3 on the positive
// side of (0,1,2).
var cellDescriptors = map[CellType]cellDescriptor{
	Tet: {4, [][]int{
		{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2},
	}},
	Hex: {8, [][]int{
		{0, 4, 6, 2}, {1, 3, 7, 5},
		{0, 1, 5, 4}, {2, 6, 7, 3},
		{0, 2, 3, 1}, {4, 5, 7, 6},
	}},
	Prism: {6, [][]int{
		{0, 2, 1}, {3, 4, 5},
		{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5},
	}},
	Pyramid: {5, [][]int{
		{0, 3, 2, 1},
		{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4},
	}},
}

// Cell is a volumetric element.
type Cell struct {
	Type     CellType
	Vertices []int
}

// NbFacets returns the number of local facets of the cell.
func (c Cell) NbFacets() int {
	return len(cellDescriptors[c.Type].facets)
}

// FacetVertices returns the vertices of local facet lf, oriented outward.
func (c Cell) FacetVertices(lf int) []int {
	local := cellDescriptors[c.Type].facets[lf]
	vs := make([]int, len(local))
	for i, lv := range local {
		vs[i] = c.Vertices[lv]
	}
	return vs
}

// NbCells returns the number of cells.
func (m *Mesh) NbCells() int { return len(m.cells) }

// Cell returns cell c. The vertex slice is owned by the mesh.
func (m *Mesh) Cell(c int) Cell { return m.cells[c] }

// AddCell appends a cell and returns its index. It panics if the vertex count
// does not match the cell type.
func (m *Mesh) AddCell(t CellType, vertices ...int) int {
	d, ok := cellDescriptors[t]
	if !ok {
		panic(fmt.Sprintf("mesh: unknown cell type %v", t))
	}
	if len(vertices) != d.nbVertices {
		panic(fmt.Sprintf("mesh: %v cell needs %d vertices, got %d", t, d.nbVertices, len(vertices)))
	}
	m.cells = append(m.cells, Cell{Type: t, Vertices: slices.Clone(vertices)})
	m.CellAttributes.resize(len(m.cells))
	return len(m.cells) - 1
}

// DeleteCells removes every cell c with mask[c] set and returns the old-to-new
// cell mapping.
func (m *Mesh) DeleteCells(mask []bool) []int {
	old2new := make([]int, len(m.cells))
	n := 0
	for c := range m.cells {
		if mask[c] {
			old2new[c] = NoIndex
			continue
		}
		old2new[c] = n
		m.cells[n] = m.cells[c]
		n++
	}
	m.cells = m.cells[:n]
	m.CellAttributes.compact(old2new, n)
	return old2new
}

// ClearCells removes all cells.
func (m *Mesh) ClearCells() {
	m.cells = nil
	m.CellAttributes.resize(0)
}

// faceKey is the sorted vertex set of a cell facet, padded with NoIndex.
type faceKey [4]int

func makeFaceKey(vs []int) faceKey {
	k := faceKey{NoIndex, NoIndex, NoIndex, NoIndex}
	copy(k[:], vs)
	slices.Sort(k[:len(vs)])
	return k
}

// ComputeBorders appends, as surface facets, every cell facet that is not
// shared with another cell. Facets keep the outward orientation of the cell
// they belong to. It returns the number of facets added.
func (m *Mesh) ComputeBorders() int {
	count := make(map[faceKey]int)
	for _, cell := range m.cells {
		for lf := 0; lf < cell.NbFacets(); lf++ {
			count[makeFaceKey(cell.FacetVertices(lf))]++
		}
	}
	added := 0
	for _, cell := range m.cells {
		for lf := 0; lf < cell.NbFacets(); lf++ {
			vs := cell.FacetVertices(lf)
			if count[makeFaceKey(vs)] == 1 {
				m.AddFacet(vs...)
				added++
			}
		}
	}
	return added
}
