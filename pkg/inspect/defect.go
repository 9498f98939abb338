// Package inspect certifies polygon meshes before they are handed to the
// volumetric stages: manifoldness of surfaces and volume borders, acceptance
// by a tetrahedralizer, cell orientation and hex-dominance statistics.
//
// Checks report defects as values. Nothing here panics on a bad mesh and
// nothing repairs one.
package inspect

import (
	"fmt"

	"github.com/chazu/hexcavity/pkg/mesh"
)

// Kind classifies a defect.
type Kind string

const (
	DegenerateFacet            Kind = "DEGENERATE_FACET"
	UnmatchedHalfEdge          Kind = "UNMATCHED_HALF_EDGE"
	DuplicatedEdge             Kind = "DUPLICATED_EDGE"
	NonManifoldVertex          Kind = "NON_MANIFOLD_VERTEX"
	TetrahedralizationRejected Kind = "TETRAHEDRALIZATION_REJECTED"
	AmbiguousMergeGroup        Kind = "AMBIGUOUS_MERGE_GROUP"
	CorruptConnectivity        Kind = "CORRUPT_CONNECTIVITY"
)

// Defect describes the first violation found by a check. Location fields are
// mesh.NoIndex when they do not apply.
type Defect struct {
	Kind    Kind
	Message string
	Facet   int
	Corner  int // local corner for DegenerateFacet, half-edge otherwise
	Vertex  int
	Count   int
	Facets  []int
}

func newDefect(kind Kind, format string, args ...any) *Defect {
	return &Defect{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Facet:   mesh.NoIndex,
		Corner:  mesh.NoIndex,
		Vertex:  mesh.NoIndex,
	}
}

func (d *Defect) Error() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Ambiguous reports a group of colocated facets that a merge left in place.
func Ambiguous(facets []int, reason string) *Defect {
	d := newDefect(AmbiguousMergeGroup, "%d colocated facets: %s", len(facets), reason)
	d.Facets = append([]int(nil), facets...)
	d.Count = len(facets)
	if len(facets) > 0 {
		d.Facet = facets[0]
	}
	return d
}
