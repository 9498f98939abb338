package tetra_test

import (
	"errors"
	"testing"

	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/tessellate"
	"github.com/chazu/hexcavity/pkg/tetra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func triangulated(t *testing.T, m *mesh.Mesh) *mesh.Mesh {
	t.Helper()
	tris, _, err := tessellate.Triangulate(m)
	require.NoError(t, err)
	return tris
}

func TestCheckerAcceptsBox(t *testing.T) {
	box := triangulated(t, mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3}))
	assert.NoError(t, tetra.NewChecker().Tetrahedralize(box))
}

func TestCheckerAcceptsEmptySurface(t *testing.T) {
	assert.NoError(t, tetra.NewChecker().Tetrahedralize(mesh.New()))
}

func TestCheckerRejectsQuads(t *testing.T) {
	err := tetra.NewChecker().Tetrahedralize(mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}))
	require.Error(t, err)
	var inv *tetra.InvalidInputError
	assert.False(t, errors.As(err, &inv), "a non-triangle facet is a usage error")
}

func TestCheckerRejectsCrossingBoxes(t *testing.T) {
	m := mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2})
	m.Append(mesh.BoxSurface(r3.Vec{X: 1, Y: 0.5, Z: 0.7}, r3.Vec{X: 3, Y: 2.5, Z: 2.7}))

	err := tetra.NewChecker().Tetrahedralize(triangulated(t, m))
	var inv *tetra.InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.NotEmpty(t, inv.InvalidFacets)
	assert.IsIncreasing(t, inv.InvalidFacets)
}

func TestCheckerRejectsDuplicatedTriangle(t *testing.T) {
	m := triangulated(t, mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}))
	// Same vertices, opposite winding.
	vs := m.FacetVertices(0)
	m.AddFacet(vs[2], vs[1], vs[0])

	err := tetra.NewChecker().Tetrahedralize(m)
	var inv *tetra.InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, []int{0, 12}, inv.InvalidFacets)
}

func TestCheckerRejectsDegenerateTriangle(t *testing.T) {
	m := triangulated(t, mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}))
	a := m.AddVertex(r3.Vec{X: 5})
	b := m.AddVertex(r3.Vec{X: 6})
	c := m.AddVertex(r3.Vec{X: 7})
	m.AddFacet(a, b, c)

	err := tetra.NewChecker().Tetrahedralize(m)
	var inv *tetra.InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, []int{12}, inv.InvalidFacets)
	assert.Contains(t, inv.Error(), "1 facets rejected")
}

func TestCheckerAllowsTouchingAtVertex(t *testing.T) {
	m := mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	m.Append(mesh.BoxSurface(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 2, Y: 2, Z: 2}))
	assert.NoError(t, tetra.NewChecker().Tetrahedralize(triangulated(t, m)))
}
