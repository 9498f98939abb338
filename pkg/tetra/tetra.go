// Package tetra defines the tetrahedralizer oracle used to certify that a
// closed triangulated surface can bound a tetrahedral mesh, and a pure-Go
// checker implementing it.
package tetra

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tetrahedralizer accepts or rejects a triangulated surface as the boundary
// of a tetrahedral mesh. Rejections caused by the input itself are reported
// as *InvalidInputError.
type Tetrahedralizer interface {
	Tetrahedralize(surface Surface) error
}

// Surface is the read-only view of a triangle mesh a Tetrahedralizer needs.
// *mesh.Mesh satisfies it.
type Surface interface {
	NbVertices() int
	Point(v int) r3.Vec
	NbFacets() int
	NbCorners(f int) int
	FacetVertex(f, lc int) int
}

// InvalidInputError lists the triangles that made the input unacceptable.
type InvalidInputError struct {
	InvalidFacets []int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("tetra: invalid input, %d facets rejected: %v", len(e.InvalidFacets), e.InvalidFacets)
}
