package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FacetCentroid returns the average of the vertex positions of facet f.
func (m *Mesh) FacetCentroid(f int) r3.Vec {
	var sum r3.Vec
	n := m.NbCorners(f)
	if n == 0 {
		return sum
	}
	w := 1 / float64(n)
	for c := m.facetPtr[f]; c < m.facetPtr[f+1]; c++ {
		sum = r3.Add(sum, r3.Scale(w, m.points[m.corners[c]]))
	}
	return sum
}

// AverageEdgeLength returns the mean length of the facet edges, or 0 for a
// mesh without facets.
func (m *Mesh) AverageEdgeLength() float64 {
	var sum float64
	var n int
	for f := 0; f < m.NbFacets(); f++ {
		nc := m.NbCorners(f)
		for lc := 0; lc < nc; lc++ {
			a := m.FacetVertex(f, lc)
			b := m.FacetVertex(f, (lc+1)%nc)
			sum += r3.Norm(r3.Sub(m.points[b], m.points[a]))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CellAverageEdgeLength returns the mean length of the cell edges, or 0 for a
// mesh without cells. Edges shared by two local facets are counted twice,
// which leaves the mean unchanged.
func (m *Mesh) CellAverageEdgeLength() float64 {
	var sum float64
	var n int
	for _, cell := range m.cells {
		for lf := 0; lf < cell.NbFacets(); lf++ {
			vs := cell.FacetVertices(lf)
			for i := range vs {
				sum += r3.Norm(r3.Sub(m.points[vs[(i+1)%len(vs)]], m.points[vs[i]]))
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CharacteristicLength is the scale used to derive merge tolerances: the
// average cell edge length when the mesh has cells, the average facet edge
// length otherwise.
func (m *Mesh) CharacteristicLength() float64 {
	if len(m.cells) > 0 {
		return m.CellAverageEdgeLength()
	}
	return m.AverageEdgeLength()
}

// BoundingBox returns the axis-aligned bounds of the vertices.
func (m *Mesh) BoundingBox() r3.Box {
	if len(m.points) == 0 {
		return r3.Box{}
	}
	inf := math.Inf(1)
	b := r3.Box{Min: r3.Vec{X: inf, Y: inf, Z: inf}, Max: r3.Vec{X: -inf, Y: -inf, Z: -inf}}
	for _, p := range m.points {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// TetVolume returns the signed volume of tetrahedron abcd; positive when d
// lies on the side of triangle abc its normal points to.
func TetVolume(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(d, a), r3.Cross(r3.Sub(b, a), r3.Sub(c, a))) / 6
}

// HexVolume returns the volume of a hex given its corners in x + 2y + 4z
// order, as the sum of six tetrahedra sharing the 0-7 diagonal.
func HexVolume(p [8]r3.Vec) float64 {
	return TetVolume(p[0], p[3], p[2], p[6]) +
		TetVolume(p[0], p[7], p[3], p[6]) +
		TetVolume(p[0], p[7], p[6], p[4]) +
		TetVolume(p[0], p[1], p[3], p[7]) +
		TetVolume(p[0], p[1], p[7], p[5]) +
		TetVolume(p[0], p[5], p[7], p[4])
}
