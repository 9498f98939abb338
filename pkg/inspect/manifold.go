package inspect

import (
	"github.com/chazu/hexcavity/pkg/mesh"
)

// IsManifold reports whether the facets of m form a manifold surface without
// boundary. On failure the message names the first violation and where it
// was found. A mesh without facets is manifold.
func IsManifold(m *mesh.Mesh) (bool, string) {
	if d := CheckManifold(m); d != nil {
		return false, d.Message
	}
	return true, ""
}

// CheckManifold runs the manifold checks in order and returns the first
// defect, or nil. The checks are:
//
//  1. no facet has two consecutive corners on the same vertex;
//  2. every half-edge has exactly one opposite;
//  3. no two half-edges of a vertex fan share a destination;
//  4. rotating around each vertex reaches all of its corners.
//
// The mesh and its attributes are left untouched.
func CheckManifold(m *mesh.Mesh) *Defect {
	if m.NbFacets() == 0 {
		return nil
	}
	if d := checkDuplicatedCorners(m); d != nil {
		return d
	}

	fec := mesh.NewConnectivity(m)
	c, err := countOpposites(fec)
	if err != nil {
		return corrupt(err)
	}
	if c.zero > 0 {
		d := newDefect(UnmatchedHalfEdge, "surface has half-edges without opposite, nb= %d", c.zero)
		d.Count = c.zero
		d.Corner = c.firstZero
		d.Facet = fec.Facet(c.firstZero)
		d.Vertex = fec.Org(c.firstZero)
		return d
	}
	if c.multiple > 0 {
		d := newDefect(UnmatchedHalfEdge, "surface has half-edges with more than one opposite, nb= %d", c.multiple)
		d.Count = c.multiple
		d.Corner = c.firstMultiple
		d.Facet = fec.Facet(c.firstMultiple)
		d.Vertex = fec.Org(c.firstMultiple)
		return d
	}
	if c.duplicated > 0 {
		d := newDefect(DuplicatedEdge, "half-edge appears in more than one facet, nb= %d", c.duplicated)
		d.Count = c.duplicated
		d.Corner = c.firstDuplicated
		d.Facet = fec.Facet(c.firstDuplicated)
		d.Vertex = fec.Org(c.firstDuplicated)
		return d
	}

	val := fec.Valence()
	for h := 0; h < fec.NbCorners(); h++ {
		n, err := fec.FanSize(h)
		if err != nil {
			return corrupt(err)
		}
		if v := fec.Org(h); n != val[v] {
			d := newDefect(NonManifoldVertex, "vertex %d is non manifold (fan of %d corners, %d referencing)", v, n, val[v])
			d.Vertex = v
			d.Corner = h
			d.Facet = fec.Facet(h)
			d.Count = val[v] - n
			return d
		}
	}
	return nil
}

func checkDuplicatedCorners(m *mesh.Mesh) *Defect {
	for f := 0; f < m.NbFacets(); f++ {
		n := m.NbCorners(f)
		for lc := 0; lc < n; lc++ {
			v := m.FacetVertex(f, lc)
			if v == m.FacetVertex(f, (lc+1)%n) {
				d := newDefect(DegenerateFacet, "duplicated corner detected on facet %d, local corner %d, vertex %d", f, lc, v)
				d.Facet = f
				d.Corner = lc
				d.Vertex = v
				d.Count = 1
				return d
			}
		}
	}
	return nil
}

func corrupt(err error) *Defect {
	return newDefect(CorruptConnectivity, "%v", err)
}

// oppositeCounts holds the per-corner opposite and duplicate counters of a
// surface, with the first offending half-edge of each category.
type oppositeCounts struct {
	nbOpp []int // opposites found per half-edge
	nbOcc []int // other half-edges of the fan with the same destination

	zero, multiple, duplicated                int
	firstZero, firstMultiple, firstDuplicated int
}

// countOpposites circulates the corners around the origin of every half-edge
// h. A corner c of that ring closes an opposite when Prev(c) goes from
// Dest(h) to Org(h), and duplicates h when it has the same destination.
func countOpposites(fec *mesh.Connectivity) (oppositeCounts, error) {
	nc := fec.NbCorners()
	c := oppositeCounts{
		nbOpp:           make([]int, nc),
		nbOcc:           make([]int, nc),
		firstZero:       mesh.NoIndex,
		firstMultiple:   mesh.NoIndex,
		firstDuplicated: mesh.NoIndex,
	}
	for h := 0; h < nc; h++ {
		err := fec.CirculateC2C(h, func(cir int) bool {
			cand := fec.Prev(cir)
			if fec.Org(cand) == fec.Dest(h) && fec.Dest(cand) == fec.Org(h) {
				c.nbOpp[h]++
				if c.nbOpp[h] > 1 {
					c.multiple++
					if c.firstMultiple == mesh.NoIndex {
						c.firstMultiple = h
					}
				}
			}
			if cir != h && fec.Dest(cir) == fec.Dest(h) {
				c.nbOcc[h]++
				c.duplicated++
				if c.firstDuplicated == mesh.NoIndex {
					c.firstDuplicated = h
				}
			}
			return true
		})
		if err != nil {
			return c, err
		}
		if c.nbOpp[h] == 0 {
			c.zero++
			if c.firstZero == mesh.NoIndex {
				c.firstZero = h
			}
		}
	}
	return c, nil
}
