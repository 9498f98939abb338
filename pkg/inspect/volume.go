package inspect

import (
	"github.com/chazu/hexcavity/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// SignedVolumeAttribute is the cell attribute HasNegativeCellVolume tags the
// first inverted tetrahedron in.
const SignedVolumeAttribute = "signed_volume"

// HasNegativeCellVolume reports whether some tetrahedron of m is inverted
// and returns the first one, or mesh.NoIndex. The scan stops there and tags
// that cell in the signed_volume cell attribute with (B-A)x(C-A).(D-A), six
// times its signed volume. Cells other than tetrahedra are skipped.
func HasNegativeCellVolume(m *mesh.Mesh) (bool, int) {
	for c := 0; c < m.NbCells(); c++ {
		cell := m.Cell(c)
		if cell.Type != mesh.Tet {
			continue
		}
		a := m.Point(cell.Vertices[0])
		vol := r3.Dot(
			r3.Cross(r3.Sub(m.Point(cell.Vertices[1]), a), r3.Sub(m.Point(cell.Vertices[2]), a)),
			r3.Sub(m.Point(cell.Vertices[3]), a))
		if vol >= 0 {
			continue
		}
		// A same-named attribute of another type is left alone.
		if tag, err := mesh.Bind[float64](m.CellAttributes, SignedVolumeAttribute); err == nil {
			tag.Set(c, vol)
		}
		return true, c
	}
	return false, mesh.NoIndex
}

// HexVolumeFraction returns the share of hexahedra among the tetrahedra and
// hexahedra of m, by count and by volume. Other cell types are ignored. Both
// values are 0 for a mesh with neither.
func HexVolumeFraction(m *mesh.Mesh) (nbHexProp, volHexProp float64) {
	var nbTet, nbHex int
	var volTet, volHex float64
	for c := 0; c < m.NbCells(); c++ {
		cell := m.Cell(c)
		switch cell.Type {
		case mesh.Tet:
			nbTet++
			volTet += mesh.TetVolume(
				m.Point(cell.Vertices[0]), m.Point(cell.Vertices[1]),
				m.Point(cell.Vertices[2]), m.Point(cell.Vertices[3]))
		case mesh.Hex:
			nbHex++
			var p [8]r3.Vec
			for i := range p {
				p[i] = m.Point(cell.Vertices[i])
			}
			volHex += mesh.HexVolume(p)
		}
	}
	if nbTet+nbHex == 0 {
		return 0, 0
	}
	nbHexProp = float64(nbHex) / float64(nbTet+nbHex)
	if total := volTet + volHex; total != 0 {
		volHexProp = volHex / total
	}
	return nbHexProp, volHexProp
}
