package engine

import (
	"github.com/chazu/hexcavity/pkg/inspect"
	"github.com/chazu/hexcavity/pkg/mesh"
	"github.com/chazu/hexcavity/pkg/pipeline"
)

// Diagnostic is a non-fatal finding of a check run by a script, such as a
// surface rejected by the tetrahedralizer.
type Diagnostic struct {
	Op      string          `json:"op"`
	Mesh    string          `json:"mesh,omitempty"`
	Message string          `json:"message"`
	Defect  *inspect.Defect `json:"defect,omitempty"`
}

// Scene is the output of a script: the meshes it named with defmesh, the
// diagnostics of the checks it ran and the step log of its pipeline stages.
type Scene struct {
	meshes      map[string]*mesh.Mesh
	order       []string
	Diagnostics []Diagnostic
	Log         *pipeline.StepLog
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{
		meshes: make(map[string]*mesh.Mesh),
		Log:    pipeline.NewStepLog(),
	}
}

// Define binds name to m, replacing any previous binding.
func (s *Scene) Define(name string, m *mesh.Mesh) {
	if _, ok := s.meshes[name]; !ok {
		s.order = append(s.order, name)
	}
	s.meshes[name] = m
}

// Lookup returns the mesh bound to name, or nil.
func (s *Scene) Lookup(name string) *mesh.Mesh {
	return s.meshes[name]
}

// Names returns the bound names in definition order.
func (s *Scene) Names() []string {
	return append([]string(nil), s.order...)
}

// MeshCount returns the number of bound meshes.
func (s *Scene) MeshCount() int { return len(s.meshes) }

func (s *Scene) diagnose(op, meshName string, d *inspect.Defect) {
	s.Diagnostics = append(s.Diagnostics, Diagnostic{Op: op, Mesh: meshName, Message: d.Error(), Defect: d})
}
