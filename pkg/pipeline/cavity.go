// Package pipeline runs the surface stages of the hex-dominant meshing
// pipeline on meshes built by the caller. The Cavity stage glues the border
// of the hexahedra into the quad-dominant surface and certifies the result
// before it would be handed to a tetrahedral mesher.
package pipeline

import (
	"errors"
	"fmt"
	"log"

	"github.com/chazu/hexcavity/pkg/inspect"
	"github.com/chazu/hexcavity/pkg/merge"
	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/tetra"
	"github.com/google/uuid"
)

// ErrStageFailed marks a stage that ended without a usable result. The run
// itself is not broken: the caller decides whether to continue.
var ErrStageFailed = errors.New("pipeline: stage failed")

// StageError reports a failed stage and the defect that stopped it.
type StageError struct {
	Stage  string
	Defect *inspect.Defect
}

func (e *StageError) Error() string {
	if e.Defect == nil {
		return fmt.Sprintf("pipeline: %s failed", e.Stage)
	}
	return fmt.Sprintf("pipeline: %s failed: %s", e.Stage, e.Defect.Message)
}

// Unwrap exposes ErrStageFailed and the defect to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	errs := []error{ErrStageFailed}
	if e.Defect != nil {
		errs = append(errs, e.Defect)
	}
	return errs
}

// CavityResult is the outcome of a Cavity run.
type CavityResult struct {
	RunID uuid.UUID
	// Cavity is the merged surface; it is set even when the stage fails so
	// the caller can inspect it.
	Cavity *mesh.Mesh
	Merge  merge.Report
	// Ambiguous holds one defect per colocated facet group the merge kept.
	Ambiguous []*inspect.Defect
	Log       *StepLog
}

// Cavity copies quadDominant, merges the border of hexahedra into the copy
// and checks that oracle accepts the merged surface. Neither input is
// modified. A rejected surface yields the result together with a
// *StageError wrapping ErrStageFailed; other errors leave the result nil.
func Cavity(quadDominant, hexahedra *mesh.Mesh, oracle tetra.Tetrahedralizer) (*CavityResult, error) {
	return CavityWithLog(quadDominant, hexahedra, oracle, NewStepLog())
}

// CavityWithLog is Cavity recording its steps in steps.
func CavityWithLog(quadDominant, hexahedra *mesh.Mesh, oracle tetra.Tetrahedralizer, steps *StepLog) (*CavityResult, error) {
	if quadDominant == nil || hexahedra == nil {
		return nil, errors.New("pipeline: cavity: nil mesh")
	}
	if oracle == nil {
		return nil, errors.New("pipeline: cavity: nil tetrahedralizer")
	}

	res := &CavityResult{RunID: uuid.New(), Log: steps}
	steps.BeginSection("cavity")
	defer steps.EndSection()

	res.Cavity = quadDominant.Copy()
	steps.Step("merge hex boundary and quadtri")
	report, err := merge.Merge(res.Cavity, hexahedra)
	if err != nil {
		return nil, fmt.Errorf("pipeline: cavity: %w", err)
	}
	res.Merge = report
	for _, g := range report.Ambiguous {
		res.Ambiguous = append(res.Ambiguous, inspect.Ambiguous(g.Facets, g.Reason))
	}
	steps.Value("nb_hex", float64(hexahedra.NbCells()))
	steps.Value("welded_vertices", float64(report.WeldedVertices))
	steps.Value("cancelled_facets", float64(report.CancelledFacets))
	steps.Value("ambiguous_groups", float64(len(report.Ambiguous)))
	steps.Value("cavity_facets", float64(res.Cavity.NbFacets()))

	if res.Cavity.NbFacets() == 0 {
		return res, nil
	}
	steps.Step("surface is tetgenifiable")
	if ok, d := inspect.IsAcceptableForTetrahedralization(res.Cavity, oracle); !ok {
		steps.Fail(d.Message)
		log.Printf("pipeline: run %s: cavity rejected: %s", res.RunID, d.Message)
		return res, &StageError{Stage: "cavity", Defect: d}
	}
	return res, nil
}

// Diagnosis bundles the checks run on a surface by Inspect.
type Diagnosis struct {
	Manifold bool            `json:"manifold"`
	Defect   *inspect.Defect `json:"defect,omitempty"`
	Stats    inspect.Stats   `json:"stats"`
}

// Inspect runs the manifold check and the manifold counters on surface.
func Inspect(surface *mesh.Mesh) (Diagnosis, error) {
	var d Diagnosis
	d.Defect = inspect.CheckManifold(surface)
	d.Manifold = d.Defect == nil
	stats, err := inspect.FacetStats(surface)
	if err != nil {
		return d, fmt.Errorf("pipeline: inspect: %w", err)
	}
	d.Stats = stats
	return d, nil
}
