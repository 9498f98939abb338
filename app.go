package main

import (
	"log"

	"github.com/chazu/hexcavity/pkg/engine"
	"github.com/chazu/hexcavity/pkg/inspect"
	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/pipeline"
	"github.com/chazu/hexcavity/pkg/tessellate"
)

// colorPalette assigns distinct display colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates scene scripts and reports on the meshes they bind.
type App struct {
	engine *engine.Engine
}

// MeshData is the JSON form of one named mesh: its counts, the result of
// the surface checks and a triangulation for display. Volume meshes are
// checked and drawn through the border of their cells.
type MeshData struct {
	Name     string          `json:"name"`
	Color    string          `json:"color"`
	Vertices int             `json:"nbVertices"`
	Facets   int             `json:"nbFacets"`
	Cells    int             `json:"nbCells"`
	Manifold bool            `json:"manifold"`
	Defect   *inspect.Defect `json:"defect,omitempty"`
	Stats    *inspect.Stats  `json:"stats,omitempty"`

	// Cell statistics, set for volume meshes only.
	NbHexProp    float64 `json:"nbHexProp,omitempty"`
	VolHexProp   float64 `json:"volHexProp,omitempty"`
	InvertedCell int     `json:"invertedCell"` // first inverted tet, -1 if none

	Positions []float32 `json:"positions"`
	Indices   []uint32  `json:"indices"`
}

// EvalErrorData is the JSON form of a script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Result is everything one evaluation produced.
type Result struct {
	Meshes      []MeshData          `json:"meshes"`
	Errors      []EvalErrorData     `json:"errors"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
	Log         pipeline.Summary    `json:"log"`
}

// NewApp creates a new App.
func NewApp() *App {
	return &App{engine: engine.NewEngine()}
}

// Evaluate runs source and describes the resulting scene. Script errors and
// fatal errors both land in Errors; the other fields are then empty.
func (a *App) Evaluate(source string) Result {
	result := Result{
		Meshes:      []MeshData{},
		Errors:      []EvalErrorData{},
		Diagnostics: []engine.Diagnostic{},
	}

	scene, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	for i, name := range scene.Names() {
		md, err := describe(name, scene.Lookup(name))
		if err != nil {
			log.Printf("describe %s: %v", name, err)
			result.Errors = append(result.Errors, EvalErrorData{Message: name + ": " + err.Error()})
			continue
		}
		md.Color = colorPalette[i%len(colorPalette)]
		result.Meshes = append(result.Meshes, md)
	}
	result.Diagnostics = append(result.Diagnostics, scene.Diagnostics...)
	result.Log = scene.Log.Summary()
	return result
}

func describe(name string, m *mesh.Mesh) (MeshData, error) {
	md := MeshData{
		Name:     name,
		Vertices: m.NbVertices(),
		Facets:   m.NbFacets(),
		Cells:    m.NbCells(),

		InvertedCell: mesh.NoIndex,
	}

	surface := m
	if m.NbCells() > 0 {
		md.NbHexProp, md.VolHexProp = inspect.HexVolumeFraction(m)
		_, md.InvertedCell = inspect.HasNegativeCellVolume(m.Copy())
		surface = m.Copy()
		surface.ClearFacets()
		surface.ComputeBorders()
		surface.ClearCells()
	}

	diag, err := pipeline.Inspect(surface)
	if err != nil {
		return md, err
	}
	md.Manifold, md.Defect, md.Stats = diag.Manifold, diag.Defect, &diag.Stats

	tris, _, err := tessellate.Triangulate(surface)
	if err != nil {
		return md, err
	}
	md.Positions = make([]float32, 0, 3*tris.NbVertices())
	for v := 0; v < tris.NbVertices(); v++ {
		p := tris.Point(v)
		md.Positions = append(md.Positions, float32(p.X), float32(p.Y), float32(p.Z))
	}
	md.Indices = make([]uint32, 0, 3*tris.NbFacets())
	for f := 0; f < tris.NbFacets(); f++ {
		for lc := 0; lc < 3; lc++ {
			md.Indices = append(md.Indices, uint32(tris.FacetVertex(f, lc)))
		}
	}
	return md, nil
}
