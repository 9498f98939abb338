package kernel

import (
	"fmt"

	"github.com/chazu/hexcavity/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// SurfaceFromTriangles builds a surface from a triangle soup. Corners with
// bit-identical coordinates share a vertex, and triangles that collapse onto
// fewer than three vertices are dropped.
func SurfaceFromTriangles(tris [][3]r3.Vec) *mesh.Mesh {
	kept := tris[:0:0]
	for _, t := range tris {
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			continue
		}
		kept = append(kept, t)
	}
	return mesh.FromTriangles(kept)
}

// SurfaceFromIndexed builds a surface from an indexed triangle list with
// numProp floats per vertex, the first three being the position.
func SurfaceFromIndexed(props []float32, numProp int, indices []uint32) (*mesh.Mesh, error) {
	if numProp < 3 {
		return nil, fmt.Errorf("kernel: %d properties per vertex, want at least 3", numProp)
	}
	if len(props)%numProp != 0 {
		return nil, fmt.Errorf("kernel: %d vertex properties is not a multiple of %d", len(props), numProp)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("kernel: %d indices is not a multiple of 3", len(indices))
	}
	m := mesh.New()
	nv := len(props) / numProp
	for i := 0; i < nv; i++ {
		base := i * numProp
		m.AddVertex(r3.Vec{X: float64(props[base]), Y: float64(props[base+1]), Z: float64(props[base+2])})
	}
	for t := 0; t < len(indices); t += 3 {
		a, b, c := int(indices[t]), int(indices[t+1]), int(indices[t+2])
		if a >= nv || b >= nv || c >= nv {
			return nil, fmt.Errorf("kernel: triangle %d references vertex out of range", t/3)
		}
		m.AddFacet(a, b, c)
	}
	return m, nil
}
