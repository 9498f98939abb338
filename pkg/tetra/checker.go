package tetra

import (
	"fmt"
	"log"
	"math"
	"slices"

	"github.com/chazu/hexcavity/pkg/spatial"
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultTolerance is the default Checker tolerance, relative to the
// bounding box diagonal of the surface.
const DefaultTolerance = 1e-9

// Checker is a Tetrahedralizer that only validates its input, the way a
// constrained Delaunay mesher would before inserting the boundary. A surface
// is rejected when it holds a triangle that is flat, a triangle repeated on
// the same three vertices, or two triangles that cross each other.
type Checker struct {
	// Tolerance is relative to the bounding box diagonal of the surface.
	Tolerance float64
	// Verbose logs every rejected triangle.
	Verbose bool
}

// NewChecker returns a Checker with DefaultTolerance.
func NewChecker() *Checker {
	return &Checker{Tolerance: DefaultTolerance}
}

// triangle is a surface triangle stored in the broad-phase tree.
type triangle struct {
	index int
	v     [3]int
	p     [3]r3.Vec
	rect  rtreego.Rect
}

func (t *triangle) Bounds() rtreego.Rect { return t.rect }

func (t *triangle) shares(o *triangle) int {
	n := 0
	for _, a := range t.v {
		if slices.Contains(o.v[:], a) {
			n++
		}
	}
	return n
}

// Tetrahedralize validates surface. It returns an error when a facet is not a
// triangle, and an *InvalidInputError listing the offending triangles in
// ascending order when the surface is rejected.
func (c *Checker) Tetrahedralize(surface Surface) error {
	nf := surface.NbFacets()
	if nf == 0 {
		return nil
	}
	points := make([]r3.Vec, surface.NbVertices())
	for v := range points {
		points[v] = surface.Point(v)
	}
	eps := c.Tolerance * spatial.Diagonal(points)

	tris := make([]*triangle, nf)
	for f := 0; f < nf; f++ {
		if n := surface.NbCorners(f); n != 3 {
			return fmt.Errorf("tetra: facet %d has %d corners, want 3", f, n)
		}
		t := &triangle{index: f}
		for lc := 0; lc < 3; lc++ {
			t.v[lc] = surface.FacetVertex(f, lc)
			t.p[lc] = points[t.v[lc]]
		}
		rect, err := boundsOf(t.p, eps)
		if err != nil {
			return fmt.Errorf("tetra: facet %d: %w", f, err)
		}
		t.rect = rect
		tris[f] = t
	}

	invalid := make(map[int]bool)
	reject := func(f int, reason string) {
		if !invalid[f] && c.Verbose {
			log.Printf("tetra: rejecting facet %d: %s", f, reason)
		}
		invalid[f] = true
	}

	seen := make(map[[3]int]int, nf)
	for _, t := range tris {
		area := r3.Norm(r3.Cross(r3.Sub(t.p[1], t.p[0]), r3.Sub(t.p[2], t.p[0])))
		if t.v[0] == t.v[1] || t.v[1] == t.v[2] || t.v[2] == t.v[0] || area <= eps*eps {
			reject(t.index, "degenerate triangle")
			continue
		}
		key := t.v
		slices.Sort(key[:])
		if other, ok := seen[key]; ok {
			reject(other, "duplicated triangle")
			reject(t.index, "duplicated triangle")
			continue
		}
		seen[key] = t.index
	}

	objs := make([]rtreego.Spatial, nf)
	for i, t := range tris {
		objs[i] = t
	}
	tree := rtreego.NewTree(3, 8, 32, objs...)
	for _, t := range tris {
		if invalid[t.index] {
			continue
		}
		for _, obj := range tree.SearchIntersect(t.rect) {
			o := obj.(*triangle)
			if o.index <= t.index || invalid[o.index] || t.shares(o) >= 2 {
				continue
			}
			if trianglesCross(t.p, o.p) {
				reject(t.index, fmt.Sprintf("intersects facet %d", o.index))
				reject(o.index, fmt.Sprintf("intersects facet %d", t.index))
			}
		}
	}

	if len(invalid) == 0 {
		return nil
	}
	facets := make([]int, 0, len(invalid))
	for f := range invalid {
		facets = append(facets, f)
	}
	slices.Sort(facets)
	return &InvalidInputError{InvalidFacets: facets}
}

func boundsOf(p [3]r3.Vec, eps float64) (rtreego.Rect, error) {
	lo := rtreego.Point{
		math.Min(p[0].X, math.Min(p[1].X, p[2].X)) - eps,
		math.Min(p[0].Y, math.Min(p[1].Y, p[2].Y)) - eps,
		math.Min(p[0].Z, math.Min(p[1].Z, p[2].Z)) - eps,
	}
	hi := rtreego.Point{
		math.Max(p[0].X, math.Max(p[1].X, p[2].X)) + eps,
		math.Max(p[0].Y, math.Max(p[1].Y, p[2].Y)) + eps,
		math.Max(p[0].Z, math.Max(p[1].Z, p[2].Z)) + eps,
	}
	// rtreego wants positive extents.
	for i := range hi {
		if hi[i] <= lo[i] {
			hi[i] = math.Nextafter(lo[i], math.Inf(1))
		}
	}
	return rtreego.NewRectFromPoints(lo, hi)
}

// trianglesCross reports whether an edge of one triangle pierces the interior
// of the other. Contacts on edges or corners do not count, which lets
// triangles sharing a vertex touch there.
func trianglesCross(a, b [3]r3.Vec) bool {
	for i := 0; i < 3; i++ {
		if segmentPierces(a[i], a[(i+1)%3], b) || segmentPierces(b[i], b[(i+1)%3], a) {
			return true
		}
	}
	return false
}

// relEps bounds barycentric and segment parameters away from the boundary.
const relEps = 1e-12

// segmentPierces runs Moller-Trumbore on segment pq against triangle t and
// reports a hit strictly inside both.
func segmentPierces(p, q r3.Vec, t [3]r3.Vec) bool {
	dir := r3.Sub(q, p)
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	h := r3.Cross(dir, e2)
	det := r3.Dot(e1, h)
	if math.Abs(det) <= relEps*r3.Norm(dir)*r3.Norm(e1)*r3.Norm(e2) {
		// Coplanar or parallel.
		return false
	}
	inv := 1 / det
	s := r3.Sub(p, t[0])
	u := inv * r3.Dot(s, h)
	if u <= relEps || u >= 1-relEps {
		return false
	}
	qv := r3.Cross(s, e1)
	v := inv * r3.Dot(dir, qv)
	if v <= relEps || u+v >= 1-relEps {
		return false
	}
	w := inv * r3.Dot(e2, qv)
	return w > relEps && w < 1-relEps
}
