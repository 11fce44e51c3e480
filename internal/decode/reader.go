// Package decode turns raw image bytes into scene entities. A Reader
// memoizes every entity by address so that shared and cyclic references
// come back as the same Go value.
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"sadx-decompiler/internal/peimage"
	"sadx-decompiler/internal/scene"
	"sadx-decompiler/internal/vmem"
)

// FormatError reports structurally invalid data at an address.
type FormatError struct {
	Address uint32
	Msg     string
}

func (e *FormatError) Error() string { return "decode: " + e.Msg }

func (e *FormatError) Unwrap() error { return peimage.ErrFormat }

// Reader decodes entities from one image. It is not safe for concurrent
// use.
type Reader struct {
	space *vmem.Space
	known map[uint32]scene.Named
	buf   [4]byte
	err   error
}

// New returns a Reader over img's address space.
func New(img *peimage.Image) *Reader {
	return NewFromSpace(img.Space())
}

// NewFromSpace returns a Reader over an arbitrary address space.
func NewFromSpace(space *vmem.Space) *Reader {
	return &Reader{space: space, known: make(map[uint32]scene.Named)}
}

// KnownObject returns the entity previously decoded at addr, or nil.
func (r *Reader) KnownObject(addr uint32) scene.Named {
	return r.known[addr]
}

// KnownCount returns the number of memoized entities.
func (r *Reader) KnownCount() int { return len(r.known) }

func defaultName(prefix string, addr uint32) string {
	return fmt.Sprintf("%s%08X", prefix, addr)
}

// take returns and clears the sticky error so one failed top-level read
// does not poison the next.
func (r *Reader) take() error {
	err := r.err
	r.err = nil
	return err
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// extract implements the memoization protocol shared by every entity
// kind. Address 0 is nil. A cached entity of the right type is returned
// as is; otherwise the cursor moves to addr, alloc creates the entity,
// which is cached before fill runs so that cycles resolve to it, and the
// cursor is restored afterwards.
func extract[T scene.Named](r *Reader, addr uint32, alloc func() T, fill func(T)) T {
	var zero T
	if addr == 0 || r.err != nil {
		return zero
	}
	if v, ok := r.known[addr].(T); ok {
		return v
	}
	prev, hadPrev := r.known[addr]

	saved := r.space.Pos()
	r.space.Seek(addr)
	defer r.space.Seek(saved)

	v := alloc()
	r.known[addr] = v
	fill(v)
	if r.err != nil {
		if hadPrev {
			r.known[addr] = prev
		} else {
			delete(r.known, addr)
		}
		return zero
	}
	return v
}

func (r *Reader) read(n int) []byte {
	if r.err != nil {
		return nil
	}
	if _, err := io.ReadFull(r.space, r.buf[:n]); err != nil {
		r.fail(err)
		return nil
	}
	return r.buf[:n]
}

func (r *Reader) u8() uint8 {
	b := r.read(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) u16() uint16 {
	b := r.read(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) u32() uint32 {
	b := r.read(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) i16() int16   { return int16(r.u16()) }
func (r *Reader) i32() int32   { return int32(r.u32()) }
func (r *Reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *Reader) vector3() scene.Vector3 {
	x := r.f32()
	y := r.f32()
	z := r.f32()
	return scene.Vector3{X: x, Y: y, Z: z}
}

func (r *Reader) rotation3() scene.Rotation3 {
	x := r.i32()
	y := r.i32()
	z := r.i32()
	return scene.Rotation3{X: x, Y: y, Z: z}
}

// count converts a signed on-disk count, rejecting negatives.
func (r *Reader) count(v int32, what string) int {
	if v < 0 {
		r.fail(&FormatError{
			Address: r.space.Pos(),
			Msg:     fmt.Sprintf("negative %s count %d @ 0x%08X", what, v, r.space.Pos()),
		})
		return 0
	}
	return int(v)
}

// array decodes a fixed-size collection whose elements are read in place.
func array[T any](r *Reader, addr uint32, n int, prefix string, elem func(i int) T) *scene.Collection[T] {
	return extract(r, addr,
		func() *scene.Collection[T] { return scene.NewCollection[T](defaultName(prefix, addr), nil) },
		func(c *scene.Collection[T]) {
			// Elements take at least a byte each; a larger count fails on
			// the read that crosses the section end.
			size := n
			if left := r.space.Remaining(addr); uint64(size) > uint64(left) {
				size = int(left)
			}
			items := make([]T, 0, size)
			for i := 0; i < n && r.err == nil; i++ {
				items = append(items, elem(i))
			}
			c.Items = items
		})
}

// pointerArray decodes n little-endian pointers at addr and resolves each
// with item.
func pointerArray[T any](r *Reader, addr uint32, n int, prefix string, item func(i int, ptr uint32) T) *scene.Collection[T] {
	return array(r, addr, n, prefix, func(i int) T {
		return item(i, r.u32())
	})
}
