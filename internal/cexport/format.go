// Package cexport renders scene entities as C initializers matching the
// game's struct layouts.
package cexport

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sadx-decompiler/internal/scene"
)

// Linkage selects the storage class of an emitted array.
type Linkage int

const (
	Static Linkage = iota
	Extern
)

func (l Linkage) prefix() string {
	if l == Static {
		return "static "
	}
	return ""
}

// FormatFloat renders f as a C float literal that reads back to the same
// value: shortest round-trip digits, a ".0" when the digits alone would
// parse as an integer, and an "f" suffix.
func FormatFloat(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "NAN"
	case math.IsInf(float64(f), 1):
		return "INFINITY"
	case math.IsInf(float64(f), -1):
		return "-INFINITY"
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s + "f"
}

func hex32(v uint32) string { return fmt.Sprintf("0x%08X", v) }
func hex16(v uint16) string { return fmt.Sprintf("0x%04X", v) }
func hex8(v uint8) string   { return fmt.Sprintf("0x%02X", v) }

// FormatVector3 renders "{ x, y, z }".
func FormatVector3(v scene.Vector3) string {
	return "{ " + FormatFloat(v.X) + ", " + FormatFloat(v.Y) + ", " + FormatFloat(v.Z) + " }"
}

// FormatRotation3 renders "{ x, y, z }" in decimal.
func FormatRotation3(r scene.Rotation3) string {
	return fmt.Sprintf("{ %d, %d, %d }", r.X, r.Y, r.Z)
}

type flagName struct {
	bit  uint32
	name string
}

var objectFlagNames = []flagName{
	{scene.ObjectNoTranslate, "ObjectFlags_NoTranslate"},
	{scene.ObjectNoRotate, "ObjectFlags_NoRotate"},
	{scene.ObjectNoScale, "ObjectFlags_NoScale"},
	{scene.ObjectNoDraw, "ObjectFlags_NoDraw"},
	{scene.ObjectNoChildren, "ObjectFlags_NoChildren"},
	{scene.ObjectUseZYXRotation, "ObjectFlags_UseZYXRotation"},
	{scene.ObjectNoAnimate, "ObjectFlags_NoAnimate"},
	{scene.Object80, "ObjectFlags_80"},
}

var animFlagNames = []flagName{
	{uint32(scene.AnimHasPosition), "AnimHead2Flags_HasPosition"},
	{uint32(scene.AnimHasRotation), "AnimHead2Flags_HasRotation"},
	{uint32(scene.AnimHasScale), "AnimHead2Flags_HasScale"},
	{uint32(scene.Anim08), "AnimHead2Flags_08"},
	{uint32(scene.AnimHasVertex), "AnimHead2Flags_HasVertex"},
	{uint32(scene.AnimHasNormal), "AnimHead2Flags_HasNormal"},
}

func formatFlags(v uint32, names []flagName, rest func(uint32) string, none string) string {
	var parts []string
	var known uint32
	for _, f := range names {
		known |= f.bit
		if v&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	if left := v &^ known; left != 0 {
		parts = append(parts, rest(left))
	}
	if len(parts) == 0 {
		return none
	}
	return strings.Join(parts, " | ")
}

// FormatObjectFlags renders OBJECT flags as named constants. Bits above
// the low byte are kept as one hex literal.
func FormatObjectFlags(v uint32) string {
	return formatFlags(v, objectFlagNames, hex32, "ObjectFlags_None")
}

// FormatAnimHead2Flags renders motion flags as named constants.
func FormatAnimHead2Flags(v uint16) string {
	return formatFlags(uint32(v), animFlagNames, func(left uint32) string {
		return hex16(uint16(left))
	}, "AnimHead2Flags_None")
}

// ValidateName reports whether name is a C identifier.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
