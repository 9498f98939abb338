// Package spatial provides the point queries used by vertex welding and
// facet colocation, backed by an R-tree.
package spatial

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

// R-tree branching factors.
const (
	minChildren = 8
	maxChildren = 32
)

// indexedPoint is a point stored in the tree together with its index in the
// caller's point set.
type indexedPoint struct {
	p     r3.Vec
	index int
}

func (ip *indexedPoint) Bounds() rtreego.Rect {
	return toPoint(ip.p).ToRect(0)
}

func toPoint(p r3.Vec) rtreego.Point {
	return rtreego.Point{p.X, p.Y, p.Z}
}

// PointIndex answers nearest-neighbour and radius queries over a fixed set of
// points. It is built once and never updated.
type PointIndex struct {
	tree   *rtreego.Rtree
	points []r3.Vec
}

// NewPointIndex indexes points. Query results refer to positions in points.
func NewPointIndex(points []r3.Vec) *PointIndex {
	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = &indexedPoint{p: p, index: i}
	}
	return &PointIndex{
		tree:   rtreego.NewTree(3, minChildren, maxChildren, objs...),
		points: points,
	}
}

// Len returns the number of indexed points.
func (idx *PointIndex) Len() int { return len(idx.points) }

// Nearest returns the index of the indexed point closest to p. The second
// result is false when the index is empty.
func (idx *PointIndex) Nearest(p r3.Vec) (int, bool) {
	if len(idx.points) == 0 {
		return -1, false
	}
	obj := idx.tree.NearestNeighbor(toPoint(p))
	if obj == nil {
		return -1, false
	}
	return obj.(*indexedPoint).index, true
}

// Within returns the indices of all indexed points at distance at most r from
// p, in ascending order.
func (idx *PointIndex) Within(p r3.Vec, r float64) []int {
	var out []int
	for _, obj := range idx.tree.SearchIntersect(toPoint(p).ToRect(r)) {
		ip := obj.(*indexedPoint)
		if r3.Norm2(r3.Sub(ip.p, p)) <= r*r {
			out = append(out, ip.index)
		}
	}
	slices.Sort(out)
	return out
}

// Colocate clusters points lying within eps of one another. The result maps
// every point to the smallest index of its cluster; representatives map to
// themselves. Clusters are transitive: a point within eps of two clusters
// merges them.
func Colocate(points []r3.Vec, eps float64) []int {
	parent := make([]int, len(points))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	idx := NewPointIndex(points)
	for i, p := range points {
		for _, j := range idx.Within(p, eps) {
			if j >= i {
				continue
			}
			ri, rj := find(i), find(j)
			if ri > rj {
				ri, rj = rj, ri
			}
			parent[rj] = ri
		}
	}

	old2new := make([]int, len(points))
	for i := range old2new {
		old2new[i] = find(i)
	}
	return old2new
}

// Diagonal returns the length of the bounding box diagonal of points.
func Diagonal(points []r3.Vec) float64 {
	if len(points) == 0 {
		return 0
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return r3.Norm(r3.Sub(hi, lo))
}
