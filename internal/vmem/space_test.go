package vmem

import (
	"bytes"
	"errors"
	"testing"
)

func testSpace() *Space {
	file := make([]byte, 0x40)
	for i := range file {
		file[i] = byte(i)
	}
	return New(bytes.NewReader(file), 0x400000, []Section{
		{Name: ".data", VirtualAddress: 0x2000, VirtualSize: 0x20, RawOffset: 0x20, RawSize: 0x10},
		{Name: ".text", VirtualAddress: 0x1000, VirtualSize: 0x10, RawOffset: 0x00, RawSize: 0x10},
	})
}

func TestReadAtFileBacked(t *testing.T) {
	s := testSpace()
	buf := make([]byte, 4)
	if _, err := s.ReadAt(buf, 0x401004); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{4, 5, 6, 7}) {
		t.Errorf("got %v", buf)
	}
}

func TestReadAtZeroFill(t *testing.T) {
	s := testSpace()
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	// Starts 2 bytes before the end of raw data in .data.
	if _, err := s.ReadAt(buf, 0x40200E); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x2E, 0x2F, 0, 0, 0, 0}
	if !bytes.Equal(buf, want) {
		t.Errorf("got %v, want %v", buf, want)
	}

	tail := []byte{0xAA, 0xAA}
	if _, err := s.ReadAt(tail, 0x40201E); err != nil {
		t.Fatal(err)
	}
	if tail[0] != 0 || tail[1] != 0 {
		t.Errorf("expected zero tail, got %v", tail)
	}
}

func TestReadAtOutOfRange(t *testing.T) {
	s := testSpace()
	for _, addr := range []int64{0, 0x400000, 0x401010, 0x402020, 0x500000} {
		_, err := s.ReadAt(make([]byte, 1), addr)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("0x%X: expected ErrOutOfRange, got %v", addr, err)
		}
	}
}

func TestReadAtCrossesSection(t *testing.T) {
	s := testSpace()
	_, err := s.ReadAt(make([]byte, 4), 0x40100E)
	if !errors.Is(err, ErrCrossesSection) {
		t.Fatalf("expected ErrCrossesSection, got %v", err)
	}
	var ae *AddressError
	if !errors.As(err, &ae) || ae.Address != 0x40100E || ae.Len != 4 {
		t.Errorf("unexpected error detail: %#v", err)
	}
	// Ending exactly at the virtual end is fine.
	if _, err := s.ReadAt(make([]byte, 2), 0x40100E); err != nil {
		t.Errorf("read up to section end: %v", err)
	}
}

func TestCursorRead(t *testing.T) {
	s := testSpace()
	s.Seek(0x401000)
	buf := make([]byte, 3)
	if _, err := s.Read(buf); err != nil {
		t.Fatal(err)
	}
	if s.Pos() != 0x401003 {
		t.Errorf("pos = 0x%X", s.Pos())
	}
	b, err := s.ReadByte()
	if err != nil || b != 3 {
		t.Errorf("ReadByte = %d, %v", b, err)
	}

	s.Seek(0x40100F)
	if _, err := s.Read(make([]byte, 2)); err == nil {
		t.Fatal("expected error")
	}
	if s.Pos() != 0x40100F {
		t.Errorf("failed read moved cursor to 0x%X", s.Pos())
	}
}

func TestReadCString(t *testing.T) {
	file := []byte("ab\x00cdef\x00")
	s := New(bytes.NewReader(file), 0x10000000, []Section{
		{Name: ".rdata", VirtualAddress: 0x1000, VirtualSize: 0x10, RawSize: uint32(len(file))},
	})
	got, err := s.ReadCString(0x10001003)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "cdef" {
		t.Errorf("got %q", got)
	}
	// Runs into the zero-filled tail.
	got, err = s.ReadCString(0x10001008)
	if err != nil || len(got) != 0 {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestLookupAndSections(t *testing.T) {
	s := testSpace()
	sec, ok := s.Lookup(0x402001)
	if !ok || sec.Name != ".data" {
		t.Errorf("Lookup = %+v, %v", sec, ok)
	}
	secs := s.Sections()
	if len(secs) != 2 || secs[0].Name != ".text" {
		t.Errorf("Sections not ordered: %+v", secs)
	}
}

func TestRemaining(t *testing.T) {
	s := testSpace()
	tests := []struct {
		addr uint32
		want uint32
	}{
		{0x401000, 0x10},
		{0x40100F, 1},
		{0x402008, 0x18},
		{0x401010, 0},
		{0x300000, 0},
	}
	for _, tt := range tests {
		if got := s.Remaining(tt.addr); got != tt.want {
			t.Errorf("Remaining(0x%X) = 0x%X, want 0x%X", tt.addr, got, tt.want)
		}
	}
}
