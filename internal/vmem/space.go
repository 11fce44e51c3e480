package vmem

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

var (
	// ErrOutOfRange is returned for addresses no section maps.
	ErrOutOfRange = errors.New("vmem: address outside every section")
	// ErrCrossesSection is returned when a read would run past the virtual
	// end of the section it starts in. Reads spanning two adjacent sections
	// are not stitched together.
	ErrCrossesSection = errors.New("vmem: read crosses the end of its section")
)

// AddressError records the failing read.
type AddressError struct {
	Address uint32
	Len     int
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("vmem: read of %d bytes at 0x%08X: %v", e.Len, e.Address, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// Section maps one run of file bytes into the image.
// VirtualAddress is relative to the image base.
type Section struct {
	Name           string
	VirtualAddress uint32
	VirtualSize    uint32
	RawOffset      uint32
	RawSize        uint32
}

// Space is a read-only view of a module as its loader would lay it out.
// Addresses are absolute (image base included). Space keeps a cursor so
// decoders can use it as an io.Reader; ReadAt ignores the cursor.
type Space struct {
	src      io.ReaderAt
	base     uint32
	sections []Section
	pos      uint32
}

// New returns a Space over src. Sections may be given in any order.
func New(src io.ReaderAt, imageBase uint32, sections []Section) *Space {
	sorted := make([]Section, len(sections))
	copy(sorted, sections)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VirtualAddress < sorted[j].VirtualAddress
	})
	return &Space{src: src, base: imageBase, sections: sorted}
}

// ImageBase returns the preferred load address.
func (s *Space) ImageBase() uint32 { return s.base }

// Sections returns the mapped sections ordered by virtual address.
func (s *Space) Sections() []Section {
	out := make([]Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// Pos returns the cursor address.
func (s *Space) Pos() uint32 { return s.pos }

// Seek moves the cursor to addr. It never fails; an unmapped address
// surfaces on the next Read.
func (s *Space) Seek(addr uint32) { s.pos = addr }

// Lookup returns the section containing addr.
func (s *Space) Lookup(addr uint32) (Section, bool) {
	a := uint64(addr)
	for _, sec := range s.sections {
		start := uint64(s.base) + uint64(sec.VirtualAddress)
		if a >= start && a < start+uint64(sec.VirtualSize) {
			return sec, true
		}
	}
	return Section{}, false
}

// Remaining returns the number of bytes from addr to the virtual end of
// its section, or 0 when addr is unmapped.
func (s *Space) Remaining(addr uint32) uint32 {
	sec, ok := s.Lookup(addr)
	if !ok {
		return 0
	}
	return uint32(uint64(s.base) + uint64(sec.VirtualAddress) + uint64(sec.VirtualSize) - uint64(addr))
}

// Read fills p from the cursor and advances it by len(p). Reads are all
// or nothing: on error the cursor does not move.
func (s *Space) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, int64(s.pos))
	if err != nil {
		return 0, err
	}
	s.pos += uint32(n)
	return n, nil
}

// ReadByte implements io.ByteReader.
func (s *Space) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadAt copies len(p) bytes at absolute address off. Bytes past the
// section's raw data but inside its virtual size read as zero.
func (s *Space) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > 0xFFFFFFFF {
		return 0, &AddressError{Address: uint32(off), Len: len(p), Err: ErrOutOfRange}
	}
	addr := uint32(off)
	sec, ok := s.Lookup(addr)
	if !ok {
		return 0, &AddressError{Address: addr, Len: len(p), Err: ErrOutOfRange}
	}
	rel := uint64(addr) - uint64(s.base) - uint64(sec.VirtualAddress)
	if rel+uint64(len(p)) > uint64(sec.VirtualSize) {
		return 0, &AddressError{Address: addr, Len: len(p), Err: ErrCrossesSection}
	}

	// Split the request into the file-backed prefix and the zero tail.
	fileBytes := 0
	if rel < uint64(sec.RawSize) {
		fileBytes = int(min(uint64(sec.RawSize)-rel, uint64(len(p))))
	}
	if fileBytes > 0 {
		n, err := s.src.ReadAt(p[:fileBytes], int64(sec.RawOffset)+int64(rel))
		if n < fileBytes {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, &AddressError{Address: addr, Len: len(p), Err: err}
		}
	}
	clear(p[fileBytes:])
	return len(p), nil
}

// ReadCString reads a NUL-terminated byte string starting at addr. The
// terminator is not included. The cursor is left untouched.
func (s *Space) ReadCString(addr uint32) ([]byte, error) {
	var out []byte
	var b [1]byte
	for a := addr; ; a++ {
		if _, err := s.ReadAt(b[:], int64(a)); err != nil {
			return nil, err
		}
		if b[0] == 0 {
			return out, nil
		}
		out = append(out, b[0])
		if a == 0xFFFFFFFF {
			return nil, &AddressError{Address: addr, Len: len(out), Err: ErrOutOfRange}
		}
	}
}
