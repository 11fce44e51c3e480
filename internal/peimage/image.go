// Package peimage reads 32-bit PE modules: headers, section layout and the
// named export table.
package peimage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/elliotchance/orderedmap"
	"golang.org/x/text/encoding/charmap"

	"sadx-decompiler/internal/vmem"
)

// ErrFormat marks a file that is not a usable 32-bit PE image.
var ErrFormat = errors.New("peimage: invalid image format")

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFormat}, args...)...)
}

// Export is one named entry of the export table.
type Export struct {
	Name    string
	Address uint32 // absolute, image base applied
}

// Image is a parsed module. It keeps the underlying reader for lazy reads
// through Space.
type Image struct {
	headers Headers
	space   *vmem.Space
	exports *orderedmap.OrderedMap // name -> uint32
	closer  io.Closer
}

// Open parses the file at path. Close releases it.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("peimage: open %s: %w", path, err)
	}
	img, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	img.closer = f
	return img, nil
}

// New parses an image from r. r must stay readable for the Image's
// lifetime.
func New(r io.ReaderAt) (*Image, error) {
	img := &Image{exports: orderedmap.NewOrderedMap()}
	if err := img.readHeaders(r); err != nil {
		return nil, err
	}

	secs := make([]vmem.Section, len(img.headers.Sections))
	for i := range img.headers.Sections {
		sh := &img.headers.Sections[i]
		secs[i] = vmem.Section{
			Name:           sh.SectionName(),
			VirtualAddress: sh.VirtualAddress,
			VirtualSize:    sh.VirtualSize,
			RawOffset:      sh.PointerToRawData,
			RawSize:        sh.SizeOfRawData,
		}
	}
	img.space = vmem.New(r, img.headers.Optional.ImageBase, secs)

	if err := img.readExports(); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *Image) readHeaders(r io.ReaderAt) error {
	h := &img.headers
	sr := io.NewSectionReader(r, 0, 1<<62)

	if err := unpack(sr, &h.DOS); err != nil {
		return formatErr("read DOS header: %v", err)
	}
	if h.DOS.Magic != dosSignature {
		return formatErr("bad DOS magic 0x%04X", h.DOS.Magic)
	}

	if _, err := sr.Seek(int64(h.DOS.Lfanew), io.SeekStart); err != nil {
		return formatErr("seek PE header: %v", err)
	}
	var sig uint32
	if err := binary.Read(sr, binary.LittleEndian, &sig); err != nil {
		return formatErr("read PE signature: %v", err)
	}
	if sig != peSignature {
		return formatErr("bad PE signature 0x%08X", sig)
	}

	if err := unpack(sr, &h.File); err != nil {
		return formatErr("read file header: %v", err)
	}
	if h.File.SizeOfOptionalHeader != OptionalHeader32Size {
		return formatErr("optional header is %d bytes, want %d",
			h.File.SizeOfOptionalHeader, OptionalHeader32Size)
	}

	if err := unpack(sr, &h.Optional); err != nil {
		return formatErr("read optional header: %v", err)
	}
	if h.Optional.Magic != pe32Magic {
		return formatErr("bad optional header magic 0x%04X", h.Optional.Magic)
	}
	for i := range h.DataDirectory {
		if err := unpack(sr, &h.DataDirectory[i]); err != nil {
			return formatErr("read data directory %d: %v", i, err)
		}
	}

	h.Sections = make([]SectionHeader, h.File.NumberOfSections)
	for i := range h.Sections {
		if err := unpack(sr, &h.Sections[i]); err != nil {
			return formatErr("read section header %d: %v", i, err)
		}
	}
	return nil
}

func (img *Image) readExports() error {
	dd := img.headers.DataDirectory[exportDirectoryIndex]
	if dd.VirtualAddress == 0 {
		return nil
	}
	base := img.ImageBase()
	sr := io.NewSectionReader(img.space, int64(base)+int64(dd.VirtualAddress), 40)

	dir := new(ExportDirectory)
	if err := unpack(sr, dir); err != nil {
		return formatErr("read export directory: %v", err)
	}
	img.headers.ExportDir = dir

	if err := img.checkTable(base+dir.AddressOfFunctions, dir.NumberOfFunctions, 4); err != nil {
		return formatErr("export address table: %v", err)
	}
	if err := img.checkTable(base+dir.AddressOfNames, dir.NumberOfNames, 4); err != nil {
		return formatErr("export name table: %v", err)
	}
	if err := img.checkTable(base+dir.AddressOfNameOrdinals, dir.NumberOfNames, 2); err != nil {
		return formatErr("export ordinal table: %v", err)
	}

	funcs := make([]uint32, dir.NumberOfFunctions)
	if err := img.readTable(base+dir.AddressOfFunctions, funcs); err != nil {
		return formatErr("read export address table: %v", err)
	}
	names := make([]uint32, dir.NumberOfNames)
	if err := img.readTable(base+dir.AddressOfNames, names); err != nil {
		return formatErr("read export name table: %v", err)
	}
	ords := make([]uint16, dir.NumberOfNames)
	if err := img.readTable(base+dir.AddressOfNameOrdinals, ords); err != nil {
		return formatErr("read export ordinal table: %v", err)
	}

	dec := charmap.Windows1252.NewDecoder()
	for i, nameRVA := range names {
		raw, err := img.space.ReadCString(base + nameRVA)
		if err != nil {
			return formatErr("read export name %d: %v", i, err)
		}
		name, err := dec.Bytes(raw)
		if err != nil {
			return formatErr("decode export name %d: %v", i, err)
		}
		ord := int(ords[i])
		if ord >= len(funcs) {
			return formatErr("export %q has ordinal %d beyond %d functions", name, ord, len(funcs))
		}
		img.exports.Set(string(name), base+funcs[ord])
	}
	return nil
}

// checkTable rejects a table of n entries at addr that would run past the
// end of its section.
func (img *Image) checkTable(addr, n, entrySize uint32) error {
	if n == 0 {
		return nil
	}
	if need, left := uint64(n)*uint64(entrySize), uint64(img.space.Remaining(addr)); need > left {
		return fmt.Errorf("%d entries need 0x%X bytes at 0x%08X, section has 0x%X", n, need, addr, left)
	}
	return nil
}

func (img *Image) readTable(addr uint32, data any) error {
	if binary.Size(data) == 0 {
		return nil
	}
	sr := io.NewSectionReader(img.space, int64(addr), int64(binary.Size(data)))
	return binary.Read(sr, binary.LittleEndian, data)
}

// Close releases the file opened by Open. It is a no-op for images built
// with New.
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	return img.closer.Close()
}

// ImageBase returns the preferred load address.
func (img *Image) ImageBase() uint32 { return img.headers.Optional.ImageBase }

// Space returns the virtual address space view of the image.
func (img *Image) Space() *vmem.Space { return img.space }

// Sections returns the section layout sorted by virtual address.
func (img *Image) Sections() []vmem.Section { return img.space.Sections() }

// Headers returns the raw headers as read from the file.
func (img *Image) Headers() *Headers { return &img.headers }

// Export returns the absolute address of the named export, or 0 when the
// module exports no such name.
func (img *Image) Export(name string) uint32 {
	v, ok := img.exports.Get(name)
	if !ok {
		return 0
	}
	return v.(uint32)
}

// Exports lists every named export in export-table order.
func (img *Image) Exports() []Export {
	out := make([]Export, 0, img.exports.Len())
	for el := img.exports.Front(); el != nil; el = el.Next() {
		out = append(out, Export{Name: el.Key.(string), Address: el.Value.(uint32)})
	}
	return out
}
