package cexport

import (
	"fmt"
	"strconv"
	"strings"

	"sadx-decompiler/internal/scene"
)

const indent = "    "

// checkCollection validates the name and element count of c.
func checkCollection[T any](c *scene.Collection[T], kind string) error {
	if c == nil {
		return invalid(kind, "", ErrNilCollection)
	}
	if err := ValidateName(c.Name); err != nil {
		return invalid(kind, "Name", err)
	}
	if len(c.Items) == 0 {
		return invalid(c.Name, "", ErrEmptyCollection)
	}
	return nil
}

// ref renders name, or NULL when the referenced entity is absent.
func ref(n scene.Named, isNil bool, field, owner string) (string, error) {
	if isNil {
		return "NULL", nil
	}
	if err := ValidateName(n.GetName()); err != nil {
		return "", invalid(owner, field, err)
	}
	return n.GetName(), nil
}

func addrOf(n scene.Named, isNil bool, field, owner string) (string, error) {
	if isNil {
		return "NULL", nil
	}
	s, err := ref(n, false, field, owner)
	if err != nil {
		return "", err
	}
	return "&" + s, nil
}

func arraySize(n scene.Named, isNil bool, field, owner string) (string, error) {
	if isNil {
		return "0", nil
	}
	s, err := ref(n, false, field, owner)
	if err != nil {
		return "", err
	}
	return "ARRAYSIZE(" + s + ")", nil
}

// writeArray emits "<linkage><ctype> name[] =\n{\n<items>\n};\n".
func writeArray(b *strings.Builder, linkage Linkage, ctype, name string, items []string) {
	b.WriteString(linkage.prefix())
	b.WriteString(ctype)
	if !strings.HasSuffix(ctype, "*") {
		b.WriteString(" ")
	}
	b.WriteString(name)
	b.WriteString("[] =\n{\n")
	b.WriteString(strings.Join(items, ",\n"))
	b.WriteString("\n};\n")
}

func exportArray[T any](c *scene.Collection[T], kind string, linkage Linkage, ctype string, elem func(int, T) (string, error)) (string, error) {
	if err := checkCollection(c, kind); err != nil {
		return "", err
	}
	items := make([]string, len(c.Items))
	for i, v := range c.Items {
		s, err := elem(i, v)
		if err != nil {
			return "", err
		}
		items[i] = s
	}
	var b strings.Builder
	writeArray(&b, linkage, ctype, c.Name, items)
	return b.String(), nil
}

// ExportVector3Array renders a Vector3 array.
func ExportVector3Array(c *scene.Collection[scene.Vector3], linkage Linkage) (string, error) {
	return exportArray(c, "Vector3 array", linkage, "struct Vector3", func(_ int, v scene.Vector3) (string, error) {
		return indent + FormatVector3(v), nil
	})
}

// ExportMaterials renders a MATERIAL array.
func ExportMaterials(c *scene.Collection[scene.Material], linkage Linkage) (string, error) {
	return exportArray(c, "material array", linkage, "struct MATERIAL", func(_ int, m scene.Material) (string, error) {
		fields := []string{
			hex32(m.DiffuseColor),
			hex32(m.SpecularColor),
			FormatFloat(m.Unknown08),
			hex32(m.TextureID),
			hex16(m.Unknown10),
			hex8(m.Flags),
			hex8(m.Unknown13),
		}
		return indent + "{\n" + indent + indent + strings.Join(fields, ",\n"+indent+indent) + "\n" + indent + "}", nil
	})
}

var meshPolyTypes = [...]string{
	scene.PolyTriangles: "MeshPolyType_Triangles",
	scene.PolyQuads:     "MeshPolyType_Quads",
	scene.PolyStripsA:   "MeshPolyType_StripsA",
	scene.PolyStripsB:   "MeshPolyType_StripsB",
}

// ExportMeshes renders a MESH array.
func ExportMeshes(c *scene.Collection[scene.Mesh]) (string, error) {
	return exportArray(c, "mesh array", Static, "struct MESH", func(i int, m scene.Mesh) (string, error) {
		owner := fmt.Sprintf("%s[%d]", c.Name, i)
		if m.Polys.Len() > 0xFFFF {
			return "", invalid(owner, "Polys", fmt.Errorf("%w: %d polys", ErrCountOutOfRange, m.Polys.Len()))
		}
		polys, err := ref(m.Polys, m.Polys == nil, "Polys", owner)
		if err != nil {
			return "", err
		}
		pn, err := ref(m.PolyNormals, m.PolyNormals == nil, "PolyNormals", owner)
		if err != nil {
			return "", err
		}
		colors, err := ref(m.VertexColors, m.VertexColors == nil, "VertexColors", owner)
		if err != nil {
			return "", err
		}
		uv, err := ref(m.UV, m.UV == nil, "UV", owner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s{ %d | %s, %d, %s, %d, %s, %s, %s, %d }",
			indent, m.MaterialID(), meshPolyTypes[m.PolyType()], m.Polys.Len(), polys,
			m.PolyAttributes, pn, colors, uv, m.Null), nil
	})
}

// polyWords returns the 16-bit words a poly occupies in its array.
func polyWords(p scene.Poly) ([]uint16, error) {
	if s, ok := p.(*scene.Strip); ok {
		return s.Words()
	}
	return p.Indices(), nil
}

func polyKind(p scene.Poly) string {
	return fmt.Sprintf("%T", p)
}

func joinUints(vs []uint16) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ", ")
}

// ExportPolys renders a poly array as a flat unsigned short array. Every
// element must be of the same primitive kind.
func ExportPolys(c *scene.Collection[scene.Poly]) (string, error) {
	if err := checkPolys(c); err != nil {
		return "", err
	}
	return exportArray(c, "poly array", Static, "short unsigned int", func(i int, p scene.Poly) (string, error) {
		s, ok := p.(*scene.Strip)
		if !ok {
			return indent + joinUints(p.Indices()), nil
		}
		h, err := s.Header()
		if err != nil {
			return "", invalid(fmt.Sprintf("%s[%d]", c.Name, i), "V", fmt.Errorf("%w: %v", ErrCountOutOfRange, err))
		}
		head := indent + strconv.Itoa(len(s.V))
		if h&0x8000 != 0 {
			head += " | 0x8000"
		}
		if len(s.V) == 0 {
			return head, nil
		}
		return head + ",\n" + indent + joinUints(s.V), nil
	})
}

func checkPolys(c *scene.Collection[scene.Poly]) error {
	if err := checkCollection(c, "poly array"); err != nil {
		return err
	}
	kind := ""
	for i, p := range c.Items {
		if p == nil {
			return invalid(fmt.Sprintf("%s[%d]", c.Name, i), "", ErrNilElement)
		}
		if i == 0 {
			kind = polyKind(p)
		} else if polyKind(p) != kind {
			return invalid(c.Name, "", fmt.Errorf("%w: %s after %s", ErrNotHomogeneous, polyKind(p), kind))
		}
	}
	return nil
}

// polyWordCount is the C array length of a poly collection.
func polyWordCount(c *scene.Collection[scene.Poly]) int {
	n := 0
	for _, p := range c.Items {
		w, _ := polyWords(p)
		n += len(w)
	}
	return n
}

// ExportPolyNormals renders a PolyNormal array.
func ExportPolyNormals(c *scene.Collection[scene.PolyNormal]) (string, error) {
	return exportArray(c, "poly normal array", Static, "struct PolyNormal", func(_ int, p scene.PolyNormal) (string, error) {
		return indent + "{ " + FormatFloat(p.Unknown00) + ", " + FormatFloat(p.Unknown04) + " }", nil
	})
}

// ExportColors renders a vertex color array.
func ExportColors(c *scene.Collection[uint32]) (string, error) {
	return exportArray(c, "color array", Static, "unsigned int", func(_ int, v uint32) (string, error) {
		return indent + hex32(v), nil
	})
}

// ExportUVs renders a UV array.
func ExportUVs(c *scene.Collection[scene.UV]) (string, error) {
	return exportArray(c, "uv array", Static, "struct UV", func(_ int, uv scene.UV) (string, error) {
		return fmt.Sprintf("%s{ %d, %d }", indent, uv.U, uv.V), nil
	})
}

// ExportVector3Keys renders position or scale keys.
func ExportVector3Keys(c *scene.Collection[scene.Vector3AnimData]) (string, error) {
	return vector3KeysArray(c, Static)
}

func vector3KeysArray(c *scene.Collection[scene.Vector3AnimData], linkage Linkage) (string, error) {
	return exportArray(c, "Vector3AnimData array", linkage, "struct Vector3AnimData", func(_ int, k scene.Vector3AnimData) (string, error) {
		return fmt.Sprintf("%s{ %d, %s }", indent, k.Frame, FormatVector3(k.Vector)), nil
	})
}

// ExportRotation3Keys renders rotation keys.
func ExportRotation3Keys(c *scene.Collection[scene.Rotation3AnimData]) (string, error) {
	return rotation3KeysArray(c, Static)
}

func rotation3KeysArray(c *scene.Collection[scene.Rotation3AnimData], linkage Linkage) (string, error) {
	return exportArray(c, "Rotation3AnimData array", linkage, "struct Rotation3AnimData", func(_ int, k scene.Rotation3AnimData) (string, error) {
		return fmt.Sprintf("%s{ %d, %s }", indent, k.Frame, FormatRotation3(k.Rotation)), nil
	})
}

// ExportVector3ArrayKeys renders vertex or normal snapshot keys. With a
// tracker, snapshot arrays not yet defined are emitted ahead of the keys
// and the rest are declared extern.
func ExportVector3ArrayKeys(c *scene.Collection[scene.Vector3ArrayAnimData], t *Tracker) (string, error) {
	return vector3ArrayKeysArray(c, t, Static)
}

func vector3ArrayKeysArray(c *scene.Collection[scene.Vector3ArrayAnimData], t *Tracker, linkage Linkage) (string, error) {
	var deps strings.Builder
	body, err := exportArray(c, "Vector3ArrayAnimData array", linkage, "struct Vector3ArrayAnimData", func(i int, k scene.Vector3ArrayAnimData) (string, error) {
		name, err := ref(k.Vectors, k.Vectors == nil, "Vectors", fmt.Sprintf("%s[%d]", c.Name, i))
		if err != nil {
			return "", err
		}
		if t != nil && k.Vectors != nil {
			if err := vectorsDef(&deps, k.Vectors, t, linkage); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("%s{ %d, %s }", indent, k.Frame, name), nil
	})
	if err != nil {
		return "", err
	}
	return deps.String() + body, nil
}

// ExportAnimFrames renders a motion's per-node frame data. The collection
// must be non-empty and hold one frame layout only. With a tracker the
// key arrays each entry references are emitted ahead of it.
func ExportAnimFrames(c *scene.Collection[scene.AnimFrame], t *Tracker) (string, error) {
	return animFrames(c, t, Static)
}

// animFrames renders the frame array static; keys use keyLinkage.
func animFrames(c *scene.Collection[scene.AnimFrame], t *Tracker, keyLinkage Linkage) (string, error) {
	if err := checkFrames(c); err != nil {
		return "", err
	}
	var ctype string
	switch c.Items[0].(type) {
	case *scene.AnimFramePosRot:
		ctype = "struct AnimFrame_PosRot"
	case *scene.AnimFramePosRotScale:
		ctype = "struct AnimFrame_PosRotScale"
	case *scene.AnimFrameVertNrm:
		ctype = "struct AnimFrame_VertNrm"
	}

	var deps strings.Builder
	body, err := exportArray(c, "AnimFrame array", Static, ctype, func(i int, f scene.AnimFrame) (string, error) {
		owner := fmt.Sprintf("%s[%d]", c.Name, i)
		var refs []keyRef
		switch f := f.(type) {
		case *scene.AnimFramePosRot:
			refs = []keyRef{
				vector3Keys(f.Positions, "Positions"),
				rotation3Keys(f.Rotations, "Rotations"),
			}
		case *scene.AnimFramePosRotScale:
			refs = []keyRef{
				vector3Keys(f.Positions, "Positions"),
				rotation3Keys(f.Rotations, "Rotations"),
				vector3Keys(f.Scales, "Scales"),
			}
		case *scene.AnimFrameVertNrm:
			refs = []keyRef{
				vector3ArrayKeys(f.Vertices, "Vertices"),
				vector3ArrayKeys(f.Normals, "Normals"),
			}
		}
		names := make([]string, len(refs))
		sizes := make([]string, len(refs))
		for j, r := range refs {
			var err error
			if names[j], err = ref(r.named, r.isNil, r.field, owner); err != nil {
				return "", err
			}
			if sizes[j], err = arraySize(r.named, r.isNil, r.field, owner); err != nil {
				return "", err
			}
			if t != nil && !r.isNil {
				if err := r.define(&deps, t, keyLinkage); err != nil {
					return "", err
				}
			}
		}
		return indent + "{ " + strings.Join(append(names, sizes...), ", ") + " }", nil
	})
	if err != nil {
		return "", err
	}
	return deps.String() + body, nil
}

func checkFrames(c *scene.Collection[scene.AnimFrame]) error {
	if err := checkCollection(c, "AnimFrame array"); err != nil {
		return err
	}
	kind := ""
	for i, f := range c.Items {
		if f == nil {
			return invalid(fmt.Sprintf("%s[%d]", c.Name, i), "", ErrNilElement)
		}
		k := fmt.Sprintf("%T", f)
		if i == 0 {
			kind = k
		} else if k != kind {
			return invalid(c.Name, "", fmt.Errorf("%w: %s after %s", ErrNotHomogeneous, k, kind))
		}
	}
	return nil
}

// keyRef is one key array referenced from an AnimFrame entry.
type keyRef struct {
	named  scene.Named
	isNil  bool
	field  string
	define func(b *strings.Builder, t *Tracker, linkage Linkage) error
}

func vector3Keys(c *scene.Collection[scene.Vector3AnimData], field string) keyRef {
	return keyRef{named: c, isNil: c == nil, field: field, define: func(b *strings.Builder, t *Tracker, linkage Linkage) error {
		return defineOnce(b, t, c, "struct Vector3AnimData", c.Len(), func() (string, error) { return vector3KeysArray(c, linkage) })
	}}
}

func rotation3Keys(c *scene.Collection[scene.Rotation3AnimData], field string) keyRef {
	return keyRef{named: c, isNil: c == nil, field: field, define: func(b *strings.Builder, t *Tracker, linkage Linkage) error {
		return defineOnce(b, t, c, "struct Rotation3AnimData", c.Len(), func() (string, error) { return rotation3KeysArray(c, linkage) })
	}}
}

func vector3ArrayKeys(c *scene.Collection[scene.Vector3ArrayAnimData], field string) keyRef {
	return keyRef{named: c, isNil: c == nil, field: field, define: func(b *strings.Builder, t *Tracker, linkage Linkage) error {
		return defineOnce(b, t, c, "struct Vector3ArrayAnimData", c.Len(), func() (string, error) { return vector3ArrayKeysArray(c, t, linkage) })
	}}
}

// defineOnce writes the definition of an array the first time the tracker
// sees it, followed by a blank line, and an extern declaration otherwise.
func defineOnce(b *strings.Builder, t *Tracker, key scene.Named, ctype string, n int, def func() (string, error)) error {
	if err := ValidateName(key.GetName()); err != nil {
		return invalid(ctype, "Name", err)
	}
	if !t.add(key) {
		b.WriteString(ExternArray(ctype, key.GetName(), n))
		return nil
	}
	s, err := def()
	if err != nil {
		return err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return nil
}

func vectorsDef(b *strings.Builder, c *scene.Collection[scene.Vector3], t *Tracker, linkage Linkage) error {
	return defineOnce(b, t, c, "struct Vector3", c.Len(), func() (string, error) { return ExportVector3Array(c, linkage) })
}

// ExternArray declares an array defined elsewhere, keeping its length so
// ARRAYSIZE still works.
func ExternArray(ctype, name string, n int) string {
	return fmt.Sprintf("extern %s %s[%d];\n", ctype, name, n)
}

// ExternStruct declares a single struct defined elsewhere.
func ExternStruct(ctype, name string) string {
	return fmt.Sprintf("extern %s %s;\n", ctype, name)
}

// ExportAttach renders an ATTACH. materialCount, when non-negative,
// replaces the material count field.
func ExportAttach(a *scene.Attach, materialCount int) (string, error) {
	if a == nil {
		return "", invalid("ATTACH", "", ErrNilCollection)
	}
	if err := ValidateName(a.Name); err != nil {
		return "", invalid("ATTACH", "Name", err)
	}
	if a.Vertices != nil && a.Normals != nil && a.Vertices.Len() != a.Normals.Len() {
		return "", invalid(a.Name, "Normals", fmt.Errorf("%w: %d vertices, %d normals",
			ErrVertexNormalMismatch, a.Vertices.Len(), a.Normals.Len()))
	}
	verts, err := ref(a.Vertices, a.Vertices == nil, "Vertices", a.Name)
	if err != nil {
		return "", err
	}
	normals, err := ref(a.Normals, a.Normals == nil, "Normals", a.Name)
	if err != nil {
		return "", err
	}
	meshes, err := ref(a.Meshes, a.Meshes == nil, "Meshes", a.Name)
	if err != nil {
		return "", err
	}
	mats, err := ref(a.Materials, a.Materials == nil, "Materials", a.Name)
	if err != nil {
		return "", err
	}

	vertCount := "0"
	switch {
	case a.Vertices != nil:
		vertCount = "ARRAYSIZE(" + verts + ")"
	case a.Normals != nil:
		vertCount = "ARRAYSIZE(" + normals + ")"
	}
	meshCount, _ := arraySize(a.Meshes, a.Meshes == nil, "Meshes", a.Name)
	matCount, _ := arraySize(a.Materials, a.Materials == nil, "Materials", a.Name)
	if materialCount >= 0 {
		matCount = strconv.Itoa(materialCount)
	}

	fields := []string{
		verts,
		normals,
		vertCount,
		meshes,
		mats,
		meshCount,
		matCount,
		FormatVector3(a.Center),
		FormatFloat(a.Radius),
		strconv.Itoa(int(a.Null)),
	}
	return "struct ATTACH " + a.Name + " =\n{\n" + indent + strings.Join(fields, ",\n"+indent) + "\n};\n", nil
}

// ExportObject renders an OBJECT on one line.
func ExportObject(o *scene.Object) (string, error) {
	if o == nil {
		return "", invalid("OBJECT", "", ErrNilCollection)
	}
	if err := ValidateName(o.Name); err != nil {
		return "", invalid("OBJECT", "Name", err)
	}
	attach, err := addrOf(o.Attach, o.Attach == nil, "Attach", o.Name)
	if err != nil {
		return "", err
	}
	child, err := addrOf(o.Child, o.Child == nil, "Child", o.Name)
	if err != nil {
		return "", err
	}
	sibling, err := addrOf(o.Sibling, o.Sibling == nil, "Sibling", o.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("struct OBJECT %s = { %s, %s, %s, %s, %s, %s, %s };\n",
		o.Name, FormatObjectFlags(o.Flags), attach,
		FormatVector3(o.Position), FormatRotation3(o.Rotation), FormatVector3(o.Scale),
		child, sibling), nil
}

// ExportAnimHead renders an action.
func ExportAnimHead(a *scene.AnimHead) (string, error) {
	if a == nil {
		return "", invalid("AnimHead", "", ErrNilCollection)
	}
	if err := ValidateName(a.Name); err != nil {
		return "", invalid("AnimHead", "Name", err)
	}
	model, err := addrOf(a.Model, a.Model == nil, "Model", a.Name)
	if err != nil {
		return "", err
	}
	motion, err := addrOf(a.Motion, a.Motion == nil, "Motion", a.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("struct AnimHead %s = { %s, %s };\n", a.Name, model, motion), nil
}

// ExportAnimHead2 renders a motion header.
func ExportAnimHead2(m *scene.AnimHead2) (string, error) {
	if m == nil {
		return "", invalid("AnimHead2", "", ErrNilCollection)
	}
	if err := ValidateName(m.Name); err != nil {
		return "", invalid("AnimHead2", "Name", err)
	}
	frames, err := ref(m.FrameData, m.FrameData == nil, "FrameData", m.Name)
	if err != nil {
		return "", err
	}
	fields := []string{
		frames,
		strconv.Itoa(int(m.FrameCount)),
		FormatAnimHead2Flags(m.Flags),
		hex16(m.Unknown0A),
	}
	return "struct AnimHead2 " + m.Name + " =\n{\n" + indent + strings.Join(fields, ",\n"+indent) + "\n};\n", nil
}
