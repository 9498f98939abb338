package pipeline

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/chazu/hexcavity/pkg/inspect"
	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/tetra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func valueOf(s Summary, name string) (float64, bool) {
	for _, v := range s.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

func TestCavityGluedCubes(t *testing.T) {
	quad := mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	hexes := mesh.HexBlock(r3.Vec{X: 1}, 1, 1)

	res, err := Cavity(quad, hexes, tetra.NewChecker())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 10, res.Cavity.NbFacets())
	assert.Equal(t, 2, res.Merge.CancelledFacets)
	assert.Empty(t, res.Ambiguous)
	assert.Empty(t, res.Log.Failure())
	assert.Equal(t, 6, quad.NbFacets(), "input surface must not change")
	assert.Equal(t, 1, hexes.NbCells())

	s := res.Log.Summary()
	v, ok := valueOf(s, "cancelled_facets")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, _ = valueOf(s, "nb_hex")
	assert.Equal(t, 1.0, v)
}

func TestCavityRejectedSurface(t *testing.T) {
	quad := mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2})
	hexes := mesh.HexBlock(r3.Vec{X: 1, Y: 0.5, Z: 0.7}, 2, 1)

	res, err := Cavity(quad, hexes, tetra.NewChecker())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStageFailed))

	var d *inspect.Defect
	require.True(t, errors.As(err, &d))
	assert.Equal(t, inspect.TetrahedralizationRejected, d.Kind)
	assert.NotEmpty(t, d.Facets)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "cavity", se.Stage)

	require.NotNil(t, res)
	assert.Equal(t, 12, res.Cavity.NbFacets())
	assert.NotEmpty(t, res.Log.Failure())
}

func TestCavityEmptyInputs(t *testing.T) {
	res, err := Cavity(mesh.New(), mesh.New(), tetra.NewChecker())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cavity.NbFacets())
}

func TestCavityUsageErrors(t *testing.T) {
	_, err := Cavity(nil, mesh.New(), tetra.NewChecker())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStageFailed))

	_, err = Cavity(mesh.New(), mesh.New(), nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStageFailed))
}

func TestCavityRunIDs(t *testing.T) {
	a, err := Cavity(mesh.New(), mesh.New(), tetra.NewChecker())
	require.NoError(t, err)
	b, err := Cavity(mesh.New(), mesh.New(), tetra.NewChecker())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: "cavity"}
	assert.Equal(t, "pipeline: cavity failed", err.Error())
	assert.ErrorIs(t, err, ErrStageFailed)
}

// tick returns a clock advancing one second per call.
func tick() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestStepLogTimings(t *testing.T) {
	l := newStepLogWithClock(tick())
	l.Step("load")           // t=1
	l.BeginSection("cavity") // t=2
	l.Step("merge")          // t=3
	l.Step("check")          // t=4
	l.EndSection()           // t=5
	l.Value("nb_hex", 12)
	l.Fail("rejected")

	s := l.Summary() // t=6
	require.Len(t, s.Steps, 4)
	want := []StepTiming{
		{Name: "load", Depth: 0, Seconds: 1},
		{Name: "cavity", Depth: 0, Section: true, Seconds: 3},
		{Name: "merge", Depth: 1, Seconds: 1},
		{Name: "check", Depth: 1, Seconds: 1},
	}
	assert.Equal(t, want, s.Steps)
	assert.Equal(t, 4.0, s.Total)
	assert.Equal(t, []NamedValue{{Name: "nb_hex", Value: 12}}, s.Values)
	assert.Equal(t, "rejected", l.Failure())
}

func TestStepLogReport(t *testing.T) {
	l := newStepLogWithClock(tick())
	l.BeginSection("cavity")
	l.Step("merge")
	l.Value("cancelled_facets", 2)

	var buf bytes.Buffer
	require.NoError(t, l.Report(&buf, 0))
	out := buf.String()
	assert.Contains(t, out, "====>  cavity")
	assert.NotContains(t, out, "merge", "depth 1 is below the requested depth")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "2 \tcancelled_facets")

	buf.Reset()
	require.NoError(t, l.Report(&buf, -1))
	assert.NotContains(t, buf.String(), "TIMING SUMMARY")
}

func TestInspect(t *testing.T) {
	d, err := Inspect(mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}))
	require.NoError(t, err)
	assert.True(t, d.Manifold)
	assert.Nil(t, d.Defect)
	assert.True(t, d.Stats.Clean())

	open := mesh.BoxSurface(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	open.DeleteFacets([]bool{false, false, false, false, false, true})
	d, err = Inspect(open)
	require.NoError(t, err)
	assert.False(t, d.Manifold)
	require.NotNil(t, d.Defect)
	assert.Equal(t, inspect.UnmatchedHalfEdge, d.Defect.Kind)
	assert.Equal(t, 4, d.Stats.ZeroOpposite)
}
