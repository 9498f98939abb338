package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptConnectivity is returned when a circulation does not come
	// back to its starting corner within the total number of corners.
	ErrCorruptConnectivity = errors.New("mesh: corrupt half-edge connectivity")

	// ErrOpenFan is returned when a fan rotation reaches a half-edge without
	// opposite.
	ErrOpenFan = errors.New("mesh: vertex fan is open")
)

// Connectivity is a half-edge view of the facets of a mesh. Every corner h is
// the half-edge from Org(h) to Dest(h) inside Facet(h). All links are corner
// indices into flat tables built once; the view is not updated when the mesh
// changes.
type Connectivity struct {
	m     *Mesh
	facet []int // corner -> facet
	next  []int // corner -> next corner in its facet
	prev  []int // corner -> previous corner in its facet
	c2c   []int // corner -> next corner with the same origin
	v2c   []int // vertex -> first corner with that origin
	opp   []int // corner -> first opposite corner
}

// NewConnectivity builds the half-edge view of m.
func NewConnectivity(m *Mesh) *Connectivity {
	nc := m.NbCornersTotal()
	fec := &Connectivity{
		m:     m,
		facet: make([]int, nc),
		next:  make([]int, nc),
		prev:  make([]int, nc),
		c2c:   make([]int, nc),
		v2c:   make([]int, m.NbVertices()),
		opp:   make([]int, nc),
	}

	for f := 0; f < m.NbFacets(); f++ {
		b, e := m.FacetCornerBegin(f), m.FacetCornerEnd(f)
		for c := b; c < e; c++ {
			fec.facet[c] = f
			fec.next[c] = c + 1
			fec.prev[c] = c - 1
		}
		if e > b {
			fec.next[e-1] = b
			fec.prev[b] = e - 1
		}
	}

	last := make([]int, m.NbVertices())
	for v := range fec.v2c {
		fec.v2c[v] = NoIndex
		last[v] = NoIndex
	}
	for c := 0; c < nc; c++ {
		v := m.CornerVertex(c)
		if fec.v2c[v] == NoIndex {
			fec.v2c[v] = c
		} else {
			fec.c2c[last[v]] = c
		}
		last[v] = c
	}
	for v, c := range last {
		if c != NoIndex {
			fec.c2c[c] = fec.v2c[v]
		}
	}

	for h := 0; h < nc; h++ {
		fec.opp[h] = NoIndex
		org, dest := fec.Org(h), fec.Dest(h)
		cir := fec.v2c[dest]
		for {
			if fec.Dest(cir) == org {
				fec.opp[h] = cir
				break
			}
			cir = fec.c2c[cir]
			if cir == fec.v2c[dest] {
				break
			}
		}
	}
	return fec
}

// Mesh returns the mesh the view was built from.
func (fec *Connectivity) Mesh() *Mesh { return fec.m }

// NbCorners returns the number of half-edges.
func (fec *Connectivity) NbCorners() int { return len(fec.next) }

// Org returns the origin vertex of half-edge h.
func (fec *Connectivity) Org(h int) int { return fec.m.CornerVertex(h) }

// Dest returns the destination vertex of half-edge h.
func (fec *Connectivity) Dest(h int) int { return fec.m.CornerVertex(fec.next[h]) }

// Next returns the half-edge following h in its facet.
func (fec *Connectivity) Next(h int) int { return fec.next[h] }

// Prev returns the half-edge preceding h in its facet.
func (fec *Connectivity) Prev(h int) int { return fec.prev[h] }

// Facet returns the facet owning half-edge h.
func (fec *Connectivity) Facet(h int) int { return fec.facet[h] }

// C2C returns the next corner, in corner order, sharing the origin of h. The
// list is cyclic and covers every corner of the vertex.
func (fec *Connectivity) C2C(h int) int { return fec.c2c[h] }

// VertexCorner returns one corner whose origin is v, or NoIndex for a vertex
// no facet references.
func (fec *Connectivity) VertexCorner(v int) int { return fec.v2c[v] }

// Opposite returns the first half-edge going from Dest(h) to Org(h), or
// NoIndex when there is none.
func (fec *Connectivity) Opposite(h int) int { return fec.opp[h] }

// NextAroundVertex rotates h around its origin to the half-edge of the
// neighbouring facet, or NoIndex when the edge before h has no opposite.
func (fec *Connectivity) NextAroundVertex(h int) int {
	return fec.opp[fec.prev[h]]
}

// CirculateC2C calls fn for every corner sharing the origin of h, starting
// with h, until fn returns false.
func (fec *Connectivity) CirculateC2C(h int, fn func(c int) bool) error {
	cir := h
	for steps := 0; ; steps++ {
		if steps > len(fec.c2c) {
			return fmt.Errorf("%w: corner ring of %d does not close", ErrCorruptConnectivity, h)
		}
		if !fn(cir) {
			return nil
		}
		cir = fec.c2c[cir]
		if cir == h {
			return nil
		}
	}
}

// FanSize counts the half-edges met by rotating around the origin of h with
// NextAroundVertex until h comes back.
func (fec *Connectivity) FanSize(h int) (int, error) {
	n := 0
	cir := h
	for {
		n++
		if n > len(fec.next) {
			return n, fmt.Errorf("%w: fan of corner %d does not close", ErrCorruptConnectivity, h)
		}
		cir = fec.NextAroundVertex(cir)
		if cir == NoIndex {
			return n, fmt.Errorf("%w: at corner %d (vertex %d)", ErrOpenFan, h, fec.Org(h))
		}
		if cir == h {
			return n, nil
		}
	}
}

// Valence returns, for every vertex, the number of facet corners referencing
// it.
func (fec *Connectivity) Valence() []int {
	val := make([]int, fec.m.NbVertices())
	for c := 0; c < fec.m.NbCornersTotal(); c++ {
		val[fec.m.CornerVertex(c)]++
	}
	return val
}
