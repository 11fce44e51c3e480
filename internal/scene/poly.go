package scene

import (
	"errors"
	"fmt"
)

// PolyType is the primitive kind stored in the top two bits of a mesh's
// material id.
type PolyType uint8

const (
	PolyTriangles PolyType = 0
	PolyQuads     PolyType = 1
	PolyStripsA   PolyType = 2
	PolyStripsB   PolyType = 3
)

func (t PolyType) String() string {
	switch t {
	case PolyTriangles:
		return "Triangles"
	case PolyQuads:
		return "Quads"
	case PolyStripsA:
		return "StripsA"
	case PolyStripsB:
		return "StripsB"
	}
	return fmt.Sprintf("PolyType(%d)", uint8(t))
}

// VerticesPerPoly returns the fixed vertex count for triangles and quads,
// or 0 for strips.
func (t PolyType) VerticesPerPoly() int {
	switch t {
	case PolyTriangles:
		return 3
	case PolyQuads:
		return 4
	}
	return 0
}

// MaxStripLength is the largest vertex count a strip header can hold.
const MaxStripLength = 0x7FFF

const stripReversed = 0x8000

// ErrStripTooLong is returned when encoding a strip longer than
// MaxStripLength.
var ErrStripTooLong = errors.New("scene: strip has too many vertices")

// Poly is one primitive of a mesh: *Triangle, *Quad or *Strip.
type Poly interface {
	// Indices returns the vertex indices in stored order.
	Indices() []uint16
}

type Triangle struct {
	V [3]uint16
}

type Quad struct {
	V [4]uint16
}

// Strip is a triangle strip. Reversed flips the winding of its first
// triangle.
type Strip struct {
	Reversed bool
	V        []uint16
}

func (p *Triangle) Indices() []uint16 { return p.V[:] }
func (p *Quad) Indices() []uint16     { return p.V[:] }
func (p *Strip) Indices() []uint16    { return p.V }

// Header packs the vertex count and direction bit.
func (p *Strip) Header() (uint16, error) {
	if len(p.V) > MaxStripLength {
		return 0, fmt.Errorf("%w: %d > %d", ErrStripTooLong, len(p.V), MaxStripLength)
	}
	h := uint16(len(p.V))
	if p.Reversed {
		h |= stripReversed
	}
	return h, nil
}

// Words encodes the strip as its on-disk 16-bit sequence.
func (p *Strip) Words() ([]uint16, error) {
	h, err := p.Header()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, len(p.V)+1)
	out = append(out, h)
	return append(out, p.V...), nil
}

// SplitStripHeader unpacks a strip header word.
func SplitStripHeader(h uint16) (count int, reversed bool) {
	return int(h &^ stripReversed), h&stripReversed != 0
}

// DecodeStrip reads one strip from the front of words and returns it with
// the number of words consumed.
func DecodeStrip(words []uint16) (*Strip, int, error) {
	if len(words) == 0 {
		return nil, 0, errors.New("scene: empty strip")
	}
	n, rev := SplitStripHeader(words[0])
	if len(words) < n+1 {
		return nil, 0, fmt.Errorf("scene: strip wants %d indices, %d available", n, len(words)-1)
	}
	v := make([]uint16, n)
	copy(v, words[1:n+1])
	return &Strip{Reversed: rev, V: v}, n + 1, nil
}

// VertexCount sums the indices over polys. It sizes the per-vertex arrays
// of a mesh.
func VertexCount(polys []Poly) int {
	n := 0
	for _, p := range polys {
		n += len(p.Indices())
	}
	return n
}

// Triangles expands polys into a triangle list with consistent winding.
func Triangles(polys []Poly) [][3]uint16 {
	var out [][3]uint16
	for _, p := range polys {
		switch p := p.(type) {
		case *Triangle:
			out = append(out, p.V)
		case *Quad:
			out = append(out, [3]uint16{p.V[0], p.V[1], p.V[2]}, [3]uint16{p.V[2], p.V[1], p.V[3]})
		case *Strip:
			flip := p.Reversed
			for i := 2; i < len(p.V); i++ {
				a, b, c := p.V[i-2], p.V[i-1], p.V[i]
				if flip {
					a, b = b, a
				}
				out = append(out, [3]uint16{a, b, c})
				flip = !flip
			}
		}
	}
	return out
}
