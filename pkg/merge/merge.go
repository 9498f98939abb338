// Package merge glues the boundary of a volume mesh into a surface mesh:
// the boundary is appended with reversed winding, exactly coincident vertices
// are welded, and facet pairs that cancel out are removed.
package merge

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/spatial"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// FacetTolerance scales the characteristic edge length of the volume into
// the centroid colocation tolerance.
const FacetTolerance = 1e-3

// AmbiguousGroup is a set of colocated facets that is not a clean
// cancelling pair. Such groups are reported and left in place.
type AmbiguousGroup struct {
	Facets []int
	Reason string
}

// Report summarises one Merge call.
type Report struct {
	AddedVertices   int
	AddedFacets     int
	WeldedVertices  int
	CancelledFacets int
	Ambiguous       []AmbiguousGroup
	Eps             float64

	// Connectivity is the half-edge view of the merged surface. It is nil
	// when the merge was a no-op.
	Connectivity *mesh.Connectivity
}

// Merge appends the boundary of volume to base, in place. The boundary is
// taken from the cells of volume when it has any, from its facets otherwise;
// an empty boundary makes the call a no-op. volume is never modified.
func Merge(base, volume *mesh.Mesh) (Report, error) {
	var r Report
	if base == nil || volume == nil {
		return r, errors.New("merge: nil mesh")
	}

	border := boundary(volume)
	if border.NbFacets() == 0 {
		return r, nil
	}
	r.Eps = FacetTolerance * volume.CharacteristicLength()

	offV := base.CreateVertices(border.NbVertices())
	for v := 0; v < border.NbVertices(); v++ {
		base.SetPoint(offV+v, border.Point(v))
	}
	for f := 0; f < border.NbFacets(); f++ {
		vs := border.FacetVertices(f)
		slices.Reverse(vs)
		for i := range vs {
			vs[i] += offV
		}
		base.AddFacet(vs...)
	}
	r.AddedVertices = border.NbVertices()
	r.AddedFacets = border.NbFacets()

	r.WeldedVertices = WeldVertices(base, offV)
	r.CancelledFacets, r.Ambiguous = RemoveDuplicateFacets(base, r.Eps)
	r.Connectivity = mesh.NewConnectivity(base)
	return r, nil
}

// boundary returns the surface to glue: the borders of the cells on a copy
// when volume has cells, volume itself otherwise.
func boundary(volume *mesh.Mesh) *mesh.Mesh {
	if volume.NbCells() == 0 {
		return volume
	}
	b := volume.Copy()
	b.ClearFacets()
	b.ComputeBorders()
	return b
}

// WeldVertices merges every vertex v >= firstNew into the vertex below
// firstNew it coincides with exactly (squared distance 0). Facet corners and
// cell vertices are re-pointed and the merged vertices deleted. Near-coincident vertices are
// kept distinct. It returns the number of deleted vertices.
func WeldVertices(m *mesh.Mesh, firstNew int) int {
	if firstNew <= 0 || firstNew >= m.NbVertices() {
		return 0
	}
	idx := spatial.NewPointIndex(m.Points()[:firstNew])

	old2new := make([]int, m.NbVertices())
	for v := range old2new {
		old2new[v] = v
	}
	welded := 0
	for v := firstNew; v < m.NbVertices(); v++ {
		p := m.Point(v)
		nearest, ok := idx.Nearest(p)
		if !ok {
			continue
		}
		if r3.Norm2(r3.Sub(p, m.Point(nearest))) == 0 {
			old2new[v] = nearest
			welded++
		}
	}
	if welded == 0 {
		return 0
	}

	m.RemapVertices(old2new)
	mask := make([]bool, m.NbVertices())
	for v, nv := range old2new {
		mask[v] = nv != v
	}
	m.DeleteVertices(mask)
	return welded
}

// RemoveDuplicateFacets colocates facet centroids within eps and deletes
// every group made of exactly two facets with the same arity and the same
// vertex set. Other groups of two or more facets are returned as ambiguous
// and logged. It returns the number of deleted facets.
func RemoveDuplicateFacets(m *mesh.Mesh, eps float64) (int, []AmbiguousGroup) {
	nf := m.NbFacets()
	if nf < 2 {
		return 0, nil
	}
	centroids := make([]r3.Vec, nf)
	for f := range centroids {
		centroids[f] = m.FacetCentroid(f)
	}
	rep := spatial.Colocate(centroids, eps)

	groups := lo.GroupBy(lo.Range(nf), func(f int) int { return rep[f] })
	reps := lo.Keys(groups)
	slices.Sort(reps)

	mask := make([]bool, nf)
	removed := 0
	var ambiguous []AmbiguousGroup
	for _, key := range reps {
		g := groups[key]
		if len(g) < 2 {
			continue
		}
		if reason := cancellingPair(m, g); reason != "" {
			ambiguous = append(ambiguous, AmbiguousGroup{Facets: g, Reason: reason})
			log.Printf("merge: colocated facets %v left in place: %s", g, reason)
			continue
		}
		mask[g[0]] = true
		mask[g[1]] = true
		removed += 2
	}
	if removed > 0 {
		m.DeleteFacets(mask)
	}
	return removed, ambiguous
}

// cancellingPair returns "" when g is two facets with the same arity and
// vertex set, and the reason it is not otherwise.
func cancellingPair(m *mesh.Mesh, g []int) string {
	if len(g) != 2 {
		return fmt.Sprintf("group of %d facets", len(g))
	}
	a, b := g[0], g[1]
	if m.NbCorners(a) != m.NbCorners(b) {
		return fmt.Sprintf("corner counts differ (%d vs %d)", m.NbCorners(a), m.NbCorners(b))
	}
	va, vb := m.FacetVertices(a), m.FacetVertices(b)
	slices.Sort(va)
	slices.Sort(vb)
	if !slices.Equal(va, vb) {
		return "vertex sets differ"
	}
	return ""
}
