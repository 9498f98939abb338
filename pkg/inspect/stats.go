package inspect

import (
	"errors"
	"fmt"
	"log"

	"github.com/chazu/hexcavity/pkg/mesh"
)

// Stats gathers the manifold counters of a surface without stopping at the
// first failure.
type Stats struct {
	NbFacets int
	// Arity is the common corner count of all facets, 0 when it varies.
	Arity int

	DuplicatedCorners   int
	ZeroOpposite        int
	OneOpposite         int
	MultipleOpposite    int
	DuplicatedEdges     int
	NonManifoldVertices []int
}

// Clean reports whether no counter flags a defect.
func (s Stats) Clean() bool {
	return s.DuplicatedCorners == 0 && s.ZeroOpposite == 0 && s.MultipleOpposite == 0 &&
		s.DuplicatedEdges == 0 && len(s.NonManifoldVertices) == 0
}

func (s Stats) String() string {
	arity := "mixed"
	if s.Arity > 0 {
		arity = fmt.Sprintf("%d-gons", s.Arity)
	}
	return fmt.Sprintf("%d facets (%s), %d duplicated corners, half-edges with 0/1/2+ opposites: %d/%d/%d, %d duplicated edges, %d non manifold vertices",
		s.NbFacets, arity, s.DuplicatedCorners, s.ZeroOpposite, s.OneOpposite, s.MultipleOpposite,
		s.DuplicatedEdges, len(s.NonManifoldVertices))
}

// FacetStats computes the manifold counters of the facets of m and logs the
// summary. A vertex is non manifold when one of its half-edges is not matched
// by exactly one opposite, duplicates another, or starts a fan that does not
// reach every corner of the vertex.
func FacetStats(m *mesh.Mesh) (Stats, error) {
	s := Stats{NbFacets: m.NbFacets()}
	if s.NbFacets == 0 {
		return s, nil
	}

	s.Arity = m.NbCorners(0)
	for f := 0; f < m.NbFacets(); f++ {
		n := m.NbCorners(f)
		if n != s.Arity {
			s.Arity = 0
		}
		for lc := 0; lc < n; lc++ {
			if m.FacetVertex(f, lc) == m.FacetVertex(f, (lc+1)%n) {
				s.DuplicatedCorners++
			}
		}
	}

	fec := mesh.NewConnectivity(m)
	c, err := countOpposites(fec)
	if err != nil {
		return s, fmt.Errorf("inspect: facet stats: %w", err)
	}
	s.ZeroOpposite = c.zero
	s.MultipleOpposite = c.multiple
	s.DuplicatedEdges = c.duplicated

	nonManifold := make([]bool, m.NbVertices())
	val := fec.Valence()
	for h := 0; h < fec.NbCorners(); h++ {
		v := fec.Org(h)
		if c.nbOpp[h] == 1 {
			s.OneOpposite++
		}
		if c.nbOpp[h] != 1 || c.nbOcc[h] != 0 {
			nonManifold[v] = true
			continue
		}
		// Open fans are expected around boundary vertices, which are already
		// flagged through their unmatched half-edges.
		n, err := fec.FanSize(h)
		if errors.Is(err, mesh.ErrCorruptConnectivity) {
			return s, fmt.Errorf("inspect: facet stats: %w", err)
		}
		if err != nil || n != val[v] {
			nonManifold[v] = true
		}
	}
	for v, bad := range nonManifold {
		if bad {
			s.NonManifoldVertices = append(s.NonManifoldVertices, v)
		}
	}

	log.Printf("inspect: %s", s)
	return s, nil
}
