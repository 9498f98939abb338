package inspect

import (
	"errors"
	"log"
	"slices"

	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/tessellate"
	"github.com/chazu/hexcavity/pkg/tetra"
	"github.com/samber/lo"
)

// IsAcceptableForTetrahedralization triangulates a copy of the surface m and
// hands it to oracle. When the oracle rejects the input, the defect lists the
// facets of m the offending triangles came from, and each is logged. m is
// never modified.
func IsAcceptableForTetrahedralization(m *mesh.Mesh, oracle tetra.Tetrahedralizer) (bool, *Defect) {
	tris, facetOf, err := tessellate.Triangulate(m)
	if err != nil {
		d := newDefect(TetrahedralizationRejected, "%v", err)
		return false, d
	}
	err = oracle.Tetrahedralize(tris)
	if err == nil {
		return true, nil
	}

	var inv *tetra.InvalidInputError
	if !errors.As(err, &inv) {
		return false, newDefect(TetrahedralizationRejected, "tetrahedralizer failed: %v", err)
	}
	facets := lo.Uniq(lo.Map(inv.InvalidFacets, func(t int, _ int) int { return facetOf[t] }))
	slices.Sort(facets)
	for _, f := range facets {
		log.Printf("inspect: invalid facet %d (%d corners)", f, m.NbCorners(f))
	}
	d := newDefect(TetrahedralizationRejected, "tetrahedralizer rejected %d facets", len(facets))
	d.Facets = facets
	d.Count = len(facets)
	if len(facets) > 0 {
		d.Facet = facets[0]
	}
	return false, d
}

// VolumeIsAcceptableForTetrahedralization runs IsAcceptableForTetrahedralization
// on the border of the cells of m, computed on a copy.
func VolumeIsAcceptableForTetrahedralization(m *mesh.Mesh, oracle tetra.Tetrahedralizer) (bool, *Defect) {
	return IsAcceptableForTetrahedralization(border(m), oracle)
}

// VolumeBoundaryIsManifold reports whether the border of the cells of m is a
// manifold surface. m is never modified.
func VolumeBoundaryIsManifold(m *mesh.Mesh) (bool, string) {
	return IsManifold(border(m))
}

// border returns a facet-only copy of m holding the border of its cells.
func border(m *mesh.Mesh) *mesh.Mesh {
	b := m.Copy()
	b.ClearFacets()
	b.ComputeBorders()
	b.ClearCells()
	return b
}
