// Package moddesc reads the XML description of which exports of a module
// to decompile and how large each exported array is.
package moddesc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// xmlModule matches the module description schema.
type xmlModule struct {
	Groups  []xmlGroup  `xml:"Group"`
	Attachs []xmlAttach `xml:"Attach"`
	Renames []xmlRename `xml:"Rename"`
}

type xmlGroup struct {
	Name      string        `xml:"Name,attr"`
	Materials []xmlMaterial `xml:"StandAloneMaterial"`
	Exports   []xmlExport   `xml:"Export"`
}

type xmlMaterial struct {
	Address string `xml:"Address,attr"`
	Count   string `xml:"Count,attr"`
}

type xmlExport struct {
	Name      string        `xml:"Name,attr"`
	Objects   *xmlCounted   `xml:"Objects"`
	Models    *xmlCounted   `xml:"Models"`
	Actions   *xmlCounted   `xml:"Actions"`
	Motions   *xmlMotions   `xml:"Motions"`
	Materials *xmlMaterials `xml:"Materials"`
	Points    *xmlPoints    `xml:"Points"`
}

type xmlCounted struct {
	Count string `xml:"Count,attr"`
}

type xmlMotions struct {
	Motions []xmlMotion `xml:"Motion"`
}

type xmlMotion struct {
	None   *struct{} `xml:"None"`
	Counts []string  `xml:"Count"`
}

type xmlMaterials struct {
	Materials []xmlCounted `xml:"Material"`
}

type xmlPoints struct {
	Counts []string `xml:"Vector3Count"`
}

type xmlAttach struct {
	Address               string `xml:"Address,attr"`
	OverrideMaterialCount string `xml:"OverrideMaterialCount,attr"`
}

type xmlRename struct {
	Address string `xml:"Address,attr"`
	NewName string `xml:"NewName,attr"`
}

// ParseFile reads and parses the description at path.
func ParseFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("moddesc: read %s: %w", path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("moddesc: parse %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a module description from r.
func Parse(r io.Reader) (*Module, error) {
	var doc xmlModule
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	m := &Module{}
	for _, g := range doc.Groups {
		group, err := convertGroup(g)
		if err != nil {
			return nil, err
		}
		m.Groups = append(m.Groups, group)
	}
	for i, a := range doc.Attachs {
		addr, err := ParseAddress(a.Address)
		if err != nil {
			return nil, fmt.Errorf("Attach %d: %w", i, err)
		}
		ov := AttachOverride{Address: addr}
		if strings.TrimSpace(a.OverrideMaterialCount) != "" {
			n, err := parseCount(a.OverrideMaterialCount)
			if err != nil {
				return nil, fmt.Errorf("Attach 0x%08X: OverrideMaterialCount: %w", addr, err)
			}
			ov.MaterialCount, ov.HasMaterialCount = n, true
		}
		m.Attachs = append(m.Attachs, ov)
	}
	for i, rn := range doc.Renames {
		addr, err := ParseAddress(rn.Address)
		if err != nil {
			return nil, fmt.Errorf("Rename %d: %w", i, err)
		}
		if rn.NewName == "" {
			return nil, fmt.Errorf("Rename 0x%08X: empty NewName", addr)
		}
		m.Renames = append(m.Renames, Rename{Address: addr, NewName: rn.NewName})
	}
	return m, nil
}

func convertGroup(g xmlGroup) (Group, error) {
	if g.Name == "" {
		return Group{}, errors.New("Group without Name")
	}
	out := Group{Name: g.Name}
	for i, sm := range g.Materials {
		addr, err := ParseAddress(sm.Address)
		if err != nil {
			return Group{}, fmt.Errorf("Group %s: StandAloneMaterial %d: %w", g.Name, i, err)
		}
		n, err := parseCount(sm.Count)
		if err != nil {
			return Group{}, fmt.Errorf("Group %s: StandAloneMaterial 0x%08X: %w", g.Name, addr, err)
		}
		out.StandAloneMaterials = append(out.StandAloneMaterials, MaterialRef{Address: addr, Count: n})
	}
	for _, e := range g.Exports {
		exp, err := convertExport(e)
		if err != nil {
			return Group{}, fmt.Errorf("Group %s: %w", g.Name, err)
		}
		out.Exports = append(out.Exports, exp)
	}
	return out, nil
}

func convertExport(e xmlExport) (Export, error) {
	if e.Name == "" {
		return Export{}, errors.New("Export without Name")
	}
	exp := Export{Name: e.Name}
	set := 0
	var err error

	if e.Objects != nil {
		set++
		exp.Kind = KindObjects
		exp.Count, err = parseCount(e.Objects.Count)
	}
	if e.Models != nil {
		set++
		exp.Kind = KindModels
		exp.Count, err = parseCount(e.Models.Count)
	}
	if e.Actions != nil {
		set++
		exp.Kind = KindActions
		exp.Count, err = parseCount(e.Actions.Count)
	}
	if e.Motions != nil {
		set++
		exp.Kind = KindMotions
		for _, mo := range e.Motions.Motions {
			if mo.None != nil {
				exp.MotionCounts = append(exp.MotionCounts, nil)
				continue
			}
			counts, cerr := parseCounts(mo.Counts)
			if cerr != nil {
				err = cerr
				break
			}
			exp.MotionCounts = append(exp.MotionCounts, counts)
		}
	}
	if e.Materials != nil {
		set++
		exp.Kind = KindMaterials
		for _, mc := range e.Materials.Materials {
			n, cerr := parseCount(mc.Count)
			if cerr != nil {
				err = cerr
				break
			}
			exp.ArrayCounts = append(exp.ArrayCounts, n)
		}
	}
	if e.Points != nil {
		set++
		exp.Kind = KindPoints
		exp.ArrayCounts, err = parseCounts(e.Points.Counts)
	}

	switch {
	case set == 0:
		return Export{}, fmt.Errorf("Export %s: no content element", e.Name)
	case set > 1:
		return Export{}, fmt.Errorf("Export %s: %d content elements, want one", e.Name, set)
	case err != nil:
		return Export{}, fmt.Errorf("Export %s: %w", e.Name, err)
	}
	return exp, nil
}

// ParseAddress parses a hexadecimal address with an optional 0x prefix.
func ParseAddress(s string) (uint32, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(v), nil
}

func parseCount(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return v, nil
}

func parseCounts(ss []string) ([]int, error) {
	out := make([]int, 0, len(ss))
	for _, s := range ss {
		n, err := parseCount(s)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
