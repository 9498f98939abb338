package merge

import (
	"testing"

	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitCubeSurface(x float64) *mesh.Mesh {
	return mesh.BoxSurface(r3.Vec{X: x}, r3.Vec{X: x + 1, Y: 1, Z: 1})
}

func TestMergeGluedCubesCancelSharedFace(t *testing.T) {
	base := unitCubeSurface(0)
	volume := mesh.HexBlock(r3.Vec{X: 1}, 1, 1)

	r, err := Merge(base, volume)
	require.NoError(t, err)

	assert.Equal(t, 12, base.NbVertices(), "8 + 8 vertices minus 4 welded")
	assert.Equal(t, 10, base.NbFacets(), "6 + 6 facets minus the cancelling pair")
	assert.Equal(t, 8, r.AddedVertices)
	assert.Equal(t, 6, r.AddedFacets)
	assert.Equal(t, 4, r.WeldedVertices)
	assert.Equal(t, 2, r.CancelledFacets)
	assert.Empty(t, r.Ambiguous)
	assert.InDelta(t, 1e-3, r.Eps, 1e-12)
	require.NotNil(t, r.Connectivity)
	assert.Equal(t, base.NbCornersTotal(), r.Connectivity.NbCorners())

	// No facet may sit on the glued plane x == 1 anymore.
	for f := 0; f < base.NbFacets(); f++ {
		c := base.FacetCentroid(f)
		if c.X == 1 && c.Y == 0.5 && c.Z == 0.5 {
			t.Errorf("facet %d still lies on the shared face", f)
		}
	}
}

func TestMergeReversesVolumeBoundary(t *testing.T) {
	base := mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 3, Y: 3, Z: 3})
	volume := mesh.HexBlock(r3.Vec{X: 1, Y: 1, Z: 1}, 1, 1)

	r, err := Merge(base, volume)
	require.NoError(t, err)
	assert.Equal(t, 0, r.WeldedVertices)
	assert.Equal(t, 0, r.CancelledFacets)
	require.Equal(t, 12, base.NbFacets())

	// The appended facets must face the inside of the hex block.
	center := r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}
	for f := 6; f < base.NbFacets(); f++ {
		a := base.Point(base.FacetVertex(f, 0))
		b := base.Point(base.FacetVertex(f, 1))
		c := base.Point(base.FacetVertex(f, 2))
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, b))
		assert.Less(t, r3.Dot(n, r3.Sub(base.FacetCentroid(f), center)), 0.0, "facet %d", f)
	}
}

func TestMergeEmptyBoundaryIsNoop(t *testing.T) {
	base := unitCubeSurface(0)
	r, err := Merge(base, mesh.New())
	require.NoError(t, err)
	assert.Equal(t, 8, base.NbVertices())
	assert.Equal(t, 6, base.NbFacets())
	assert.Nil(t, r.Connectivity)
}

func TestMergeNilMesh(t *testing.T) {
	_, err := Merge(nil, mesh.New())
	assert.Error(t, err)
}

func TestMergeDoesNotTouchVolume(t *testing.T) {
	volume := mesh.HexBlock(r3.Vec{X: 1}, 1, 1)
	_, err := Merge(unitCubeSurface(0), volume)
	require.NoError(t, err)
	assert.Equal(t, 0, volume.NbFacets())
	assert.Equal(t, 1, volume.NbCells())
}

func TestMergeKeepsSurvivingAttributes(t *testing.T) {
	base := unitCubeSurface(0)
	tag, err := mesh.Bind[int](base.FacetAttributes, "chart")
	require.NoError(t, err)
	for f := 0; f < base.NbFacets(); f++ {
		tag.Set(f, f+1)
	}

	_, err = Merge(base, mesh.HexBlock(r3.Vec{X: 1}, 1, 1))
	require.NoError(t, err)

	// Facet 1 of the cube (x == 1) cancelled; the others keep their tags in
	// order, appended facets carry the zero value.
	assert.Equal(t, []int{1, 3, 4, 5, 6, 0, 0, 0, 0, 0}, tag.Values)
}

func TestWeldVerticesIdempotent(t *testing.T) {
	m := unitCubeSurface(0)
	first := m.Append(unitCubeSurface(1))
	// A hairline offset on one shared corner survives welding.
	m.SetPoint(first, r3.Vec{X: 1 + 1e-12})

	n := WeldVertices(m, first)
	assert.Equal(t, 3, n)
	after := m.NbVertices()
	assert.Equal(t, 13, after)

	assert.Equal(t, 0, WeldVertices(m, first))
	assert.Equal(t, after, m.NbVertices())
}

func TestWeldVerticesKeepsCells(t *testing.T) {
	m := mesh.HexBlock(r3.Vec{}, 1, 1)
	first := m.Append(mesh.HexBlock(r3.Vec{X: 1}, 1, 1))

	require.Equal(t, 4, WeldVertices(m, first))
	assert.Equal(t, 12, m.NbVertices())
	require.Equal(t, 2, m.NbCells())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, m.Cell(0).Vertices)
	// The x == 1 face of the second hex now uses the vertices of the first.
	assert.Equal(t, []int{1, 8, 3, 9, 5, 10, 7, 11}, m.Cell(1).Vertices)
	assert.Equal(t, 10, m.Copy().ComputeBorders(), "the shared face is interior")
}

func TestWeldVerticesKeepsNearDuplicates(t *testing.T) {
	m := mesh.New()
	m.AddVertex(r3.Vec{X: 1})
	m.AddVertex(r3.Vec{X: 1 + 1e-15})
	m.AddFacet(0, 1, 0)
	assert.Equal(t, 0, WeldVertices(m, 1))
	assert.Equal(t, 2, m.NbVertices())
}

func TestRemoveDuplicateFacetsAmbiguousGroups(t *testing.T) {
	// A triangle whose centroid matches the x == 0 face.
	m2 := unitCubeSurface(0)
	a := m2.AddVertex(r3.Vec{X: 0, Y: 0.5, Z: 0})
	b := m2.AddVertex(r3.Vec{X: 0, Y: 0, Z: 1})
	c := m2.AddVertex(r3.Vec{X: 0, Y: 1, Z: 0.5})
	m2.AddFacet(a, b, c)
	n, amb := RemoveDuplicateFacets(m2, 1e-9)
	assert.Equal(t, 0, n)
	require.Len(t, amb, 1)
	assert.Equal(t, []int{0, 6}, amb[0].Facets)
	assert.Contains(t, amb[0].Reason, "corner counts differ")
	assert.Equal(t, 7, m2.NbFacets())

	// Three copies of the same face form a group that is not a pair.
	m3 := unitCubeSurface(0)
	m3.AddFacet(m3.FacetVertices(0)...)
	m3.AddFacet(m3.FacetVertices(0)...)
	n, amb = RemoveDuplicateFacets(m3, 1e-9)
	assert.Equal(t, 0, n)
	require.Len(t, amb, 1)
	assert.Equal(t, "group of 3 facets", amb[0].Reason)
}

func TestRemoveDuplicateFacetsVertexSetMismatch(t *testing.T) {
	m := unitCubeSurface(0)
	// Four new vertices at the corners of the x == 0 face: same centroid,
	// same arity, different vertex indices.
	var vs []int
	for _, v := range m.FacetVertices(0) {
		vs = append(vs, m.AddVertex(m.Point(v)))
	}
	m.AddFacet(vs...)
	n, amb := RemoveDuplicateFacets(m, 1e-9)
	assert.Equal(t, 0, n)
	require.Len(t, amb, 1)
	assert.Equal(t, "vertex sets differ", amb[0].Reason)
}
