// Package petest lays out minimal 32-bit PE images in memory for tests.
package petest

import (
	"encoding/binary"
	"math"
)

// File offsets of the headers Bytes writes.
const (
	PEHeaderOffset       = 0x40
	FileHeaderOffset     = PEHeaderOffset + 4
	OptionalHeaderOffset = FileHeaderOffset + 20
	SectionTableOffset   = OptionalHeaderOffset + 224

	fileAlign    = 0x200
	sectionAlign = 0x1000
)

type section struct {
	name  string
	rva   uint32
	vsize uint32
	raw   []byte
}

type export struct {
	name string
	addr uint32
}

// Builder accumulates sections and exports. The export directory gets a
// section of its own, placed after the highest section added.
type Builder struct {
	ImageBase uint32
	DLLName   string
	sections  []section
	exports   []export
}

// New returns a Builder for an image preferring to load at imageBase.
func New(imageBase uint32) *Builder {
	return &Builder{ImageBase: imageBase, DLLName: "test.dll"}
}

// Section maps raw at rva with the given virtual size. A vsize smaller than
// len(raw) hides the excess bytes.
func (b *Builder) Section(name string, rva, vsize uint32, raw []byte) *Builder {
	b.sections = append(b.sections, section{name: name, rva: rva, vsize: vsize, raw: raw})
	return b
}

// Export adds a named export resolving to the absolute address addr.
func (b *Builder) Export(name string, addr uint32) *Builder {
	b.exports = append(b.exports, export{name: name, addr: addr})
	return b
}

// Bytes renders the image file.
func (b *Builder) Bytes() []byte {
	secs := append([]section(nil), b.sections...)

	var edataRVA, edataSize uint32
	if len(b.exports) > 0 {
		for _, s := range secs {
			end := alignUp(s.rva+max(s.vsize, uint32(len(s.raw))), sectionAlign)
			edataRVA = max(edataRVA, end)
		}
		edataRVA = max(edataRVA, sectionAlign)
		edata := b.exportData(edataRVA)
		edataSize = uint32(len(edata))
		secs = append(secs, section{name: ".edata", rva: edataRVA, vsize: edataSize, raw: edata})
	}

	headerEnd := alignUp(uint32(SectionTableOffset+40*len(secs)), fileAlign)
	rawOffsets := make([]uint32, len(secs))
	total := headerEnd
	for i, s := range secs {
		rawOffsets[i] = total
		total += alignUp(uint32(len(s.raw)), fileAlign)
	}

	out := make([]byte, total)
	binary.LittleEndian.PutUint16(out[0:], 0x5A4D)
	binary.LittleEndian.PutUint32(out[0x3C:], PEHeaderOffset)
	copy(out[PEHeaderOffset:], "PE\x00\x00")

	fh := out[FileHeaderOffset:]
	binary.LittleEndian.PutUint16(fh[0:], 0x014C)
	binary.LittleEndian.PutUint16(fh[2:], uint16(len(secs)))
	binary.LittleEndian.PutUint16(fh[16:], 224)
	binary.LittleEndian.PutUint16(fh[18:], 0x2102)

	oh := out[OptionalHeaderOffset:]
	binary.LittleEndian.PutUint16(oh[0:], 0x10B)
	binary.LittleEndian.PutUint32(oh[28:], b.ImageBase)
	binary.LittleEndian.PutUint32(oh[32:], sectionAlign)
	binary.LittleEndian.PutUint32(oh[36:], fileAlign)
	binary.LittleEndian.PutUint32(oh[60:], headerEnd)
	binary.LittleEndian.PutUint32(oh[92:], 16)
	binary.LittleEndian.PutUint32(oh[96:], edataRVA)
	binary.LittleEndian.PutUint32(oh[100:], edataSize)

	var imageEnd uint32 = sectionAlign
	for i, s := range secs {
		sh := out[SectionTableOffset+40*i:]
		copy(sh[0:8], s.name)
		binary.LittleEndian.PutUint32(sh[8:], s.vsize)
		binary.LittleEndian.PutUint32(sh[12:], s.rva)
		binary.LittleEndian.PutUint32(sh[16:], uint32(len(s.raw)))
		binary.LittleEndian.PutUint32(sh[20:], rawOffsets[i])
		binary.LittleEndian.PutUint32(sh[36:], 0xC0000040)
		copy(out[rawOffsets[i]:], s.raw)
		imageEnd = max(imageEnd, alignUp(s.rva+s.vsize, sectionAlign))
	}
	binary.LittleEndian.PutUint32(oh[56:], imageEnd)
	return out
}

func (b *Builder) exportData(rva uint32) []byte {
	n := uint32(len(b.exports))
	funcs := uint32(40)
	names := funcs + 4*n
	ords := names + 4*n
	strs := ords + 2*n

	blob := make([]byte, strs)
	blob = append(blob, b.DLLName...)
	blob = append(blob, 0)
	binary.LittleEndian.PutUint32(blob[12:], rva+strs)
	binary.LittleEndian.PutUint32(blob[16:], 1)
	binary.LittleEndian.PutUint32(blob[20:], n)
	binary.LittleEndian.PutUint32(blob[24:], n)
	binary.LittleEndian.PutUint32(blob[28:], rva+funcs)
	binary.LittleEndian.PutUint32(blob[32:], rva+names)
	binary.LittleEndian.PutUint32(blob[36:], rva+ords)

	for i, e := range b.exports {
		binary.LittleEndian.PutUint32(blob[funcs+4*uint32(i):], e.addr-b.ImageBase)
		binary.LittleEndian.PutUint32(blob[names+4*uint32(i):], rva+uint32(len(blob)))
		binary.LittleEndian.PutUint16(blob[ords+2*uint32(i):], uint16(i))
		blob = append(blob, e.name...)
		blob = append(blob, 0)
	}
	return blob
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// Blob is a little-endian scratch buffer for section contents. Setters
// return the receiver so layouts read top to bottom.
type Blob []byte

// NewBlob returns a zeroed Blob of size bytes.
func NewBlob(size int) Blob { return make(Blob, size) }

func (b Blob) U8(off int, v uint8) Blob {
	b[off] = v
	return b
}

func (b Blob) U16(off int, v uint16) Blob {
	binary.LittleEndian.PutUint16(b[off:], v)
	return b
}

func (b Blob) U32(off int, v uint32) Blob {
	binary.LittleEndian.PutUint32(b[off:], v)
	return b
}

func (b Blob) I32(off int, v int32) Blob {
	return b.U32(off, uint32(v))
}

func (b Blob) F32(off int, v float32) Blob {
	return b.U32(off, math.Float32bits(v))
}

// Vec3 writes three consecutive floats.
func (b Blob) Vec3(off int, x, y, z float32) Blob {
	return b.F32(off, x).F32(off+4, y).F32(off+8, z)
}
