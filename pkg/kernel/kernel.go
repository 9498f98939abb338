// Package kernel defines the abstract geometry kernel interface used to
// produce closed surfaces for the cavity pipeline. Implementations (sdfx,
// manifold) provide solid modeling and boolean operations behind this
// interface, so scripts and tests can swap backends.
package kernel

import (
	"github.com/chazu/hexcavity/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() r3.Box
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(min, max r3.Vec) Solid
	Sphere(center r3.Vec, radius float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, d r3.Vec) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToSurface tessellates the boundary of s into a triangle surface with
	// shared vertices and outward facets.
	ToSurface(s Solid) (*mesh.Mesh, error)
}
