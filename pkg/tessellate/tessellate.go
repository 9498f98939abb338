// Package tessellate splits the polygonal facets of a mesh into triangles.
// Each facet is projected on the plane of its Newell normal and ear-clipped;
// facets that cannot be clipped fall back to a fan.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/hexcavity/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangulate returns a copy of m whose facets are all triangles, along with
// the index of the source facet of every triangle. Vertices and vertex
// attributes are kept; cells are dropped. Triangles keep the winding of
// their facet.
func Triangulate(m *mesh.Mesh) (*mesh.Mesh, []int, error) {
	if m == nil {
		return nil, nil, fmt.Errorf("tessellate: nil mesh")
	}
	out := m.Copy()
	out.ClearFacets()
	out.ClearCells()

	var facetOf []int
	for f := 0; f < m.NbFacets(); f++ {
		vs := m.FacetVertices(f)
		if len(vs) < 3 {
			return nil, nil, fmt.Errorf("tessellate: facet %d has %d corners", f, len(vs))
		}
		pts := make([]r3.Vec, len(vs))
		for i, v := range vs {
			pts[i] = m.Point(v)
		}
		for _, tri := range Polygon(pts) {
			out.AddFacet(vs[tri[0]], vs[tri[1]], vs[tri[2]])
			facetOf = append(facetOf, f)
		}
	}
	return out, facetOf, nil
}

// Polygon triangulates a planar polygon given by its corners in order and
// returns triangles as local corner indices. A polygon of n >= 3 corners
// always yields n-2 triangles.
func Polygon(pts []r3.Vec) [][3]int {
	n := len(pts)
	if n < 3 {
		return nil
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}
	}

	normal := Newell(pts)
	if r3.Norm2(normal) == 0 {
		return fan(n)
	}
	u, v, sign := projection(normal)
	proj := make([][2]float64, n)
	for i, p := range pts {
		proj[i] = [2]float64{u(p), v(p)}
	}

	ring := make([]int, n)
	for i := range ring {
		ring[i] = i
	}
	var tris [][3]int
	for len(ring) > 3 {
		ear := findEar(proj, ring, sign)
		if ear < 0 {
			// Self-overlapping outline: finish with a fan over what is left.
			for i := 1; i+1 < len(ring); i++ {
				tris = append(tris, [3]int{ring[0], ring[i], ring[i+1]})
			}
			return tris
		}
		k := len(ring)
		prev, next := ring[(ear+k-1)%k], ring[(ear+1)%k]
		tris = append(tris, [3]int{prev, ring[ear], next})
		ring = append(ring[:ear], ring[ear+1:]...)
	}
	return append(tris, [3]int{ring[0], ring[1], ring[2]})
}

// Newell returns the Newell normal of a polygon: twice its vector area.
func Newell(pts []r3.Vec) r3.Vec {
	var n r3.Vec
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n
}

func fan(n int) [][3]int {
	tris := make([][3]int, 0, n-2)
	for i := 1; i+1 < n; i++ {
		tris = append(tris, [3]int{0, i, i + 1})
	}
	return tris
}

// projection drops the dominant axis of normal. The two remaining axes are
// taken in cyclic order so a polygon winding counter-clockwise around normal
// projects with the orientation given by sign.
func projection(normal r3.Vec) (u, v func(r3.Vec) float64, sign float64) {
	ax, ay, az := math.Abs(normal.X), math.Abs(normal.Y), math.Abs(normal.Z)
	switch {
	case ax >= ay && ax >= az:
		return func(p r3.Vec) float64 { return p.Y }, func(p r3.Vec) float64 { return p.Z }, math.Copysign(1, normal.X)
	case ay >= az:
		return func(p r3.Vec) float64 { return p.Z }, func(p r3.Vec) float64 { return p.X }, math.Copysign(1, normal.Y)
	default:
		return func(p r3.Vec) float64 { return p.X }, func(p r3.Vec) float64 { return p.Y }, math.Copysign(1, normal.Z)
	}
}

func orient(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// findEar returns the position in ring of a convex corner whose triangle
// holds no other corner, or -1.
func findEar(proj [][2]float64, ring []int, sign float64) int {
	k := len(ring)
	for i := range ring {
		a, b, c := proj[ring[(i+k-1)%k]], proj[ring[i]], proj[ring[(i+1)%k]]
		if sign*orient(a, b, c) <= 0 {
			continue
		}
		ear := true
		for j := range ring {
			if j == i || j == (i+k-1)%k || j == (i+1)%k {
				continue
			}
			p := proj[ring[j]]
			if p == a || p == b || p == c {
				continue
			}
			if sign*orient(a, b, p) >= 0 && sign*orient(b, c, p) >= 0 && sign*orient(c, a, p) >= 0 {
				ear = false
				break
			}
		}
		if ear {
			return i
		}
	}
	return -1
}
