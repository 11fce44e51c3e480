package cexport

import (
	"fmt"
	"strings"

	"sadx-decompiler/internal/scene"
)

// MaterialCounts overrides the material count field of specific attaches.
type MaterialCounts map[*scene.Attach]int

func (m MaterialCounts) lookup(a *scene.Attach) int {
	if n, ok := m[a]; ok {
		return n
	}
	return -1
}

func exportPointers[T comparable](c *scene.Collection[T], kind, ctype string, amp bool) (string, error) {
	var zero T
	return exportArray(c, kind, Extern, "__declspec(dllexport) "+ctype+" *", func(i int, v T) (string, error) {
		if v == zero {
			return indent + "NULL", nil
		}
		n, ok := any(v).(scene.Named)
		if !ok {
			return "", invalid(c.Name, fmt.Sprintf("[%d]", i), fmt.Errorf("%T has no name", v))
		}
		name, err := ref(n, false, fmt.Sprintf("[%d]", i), c.Name)
		if err != nil {
			return "", err
		}
		if amp {
			name = "&" + name
		}
		return indent + name, nil
	})
}

// ExportObjectList renders an exported OBJECT pointer array.
func ExportObjectList(c *scene.Collection[*scene.Object]) (string, error) {
	return exportPointers(c, "object list", "struct OBJECT", true)
}

// ExportModelList renders an exported ATTACH pointer array.
func ExportModelList(c *scene.Collection[*scene.Attach]) (string, error) {
	return exportPointers(c, "model list", "struct ATTACH", true)
}

// ExportActionList renders an exported AnimHead pointer array.
func ExportActionList(c *scene.Collection[*scene.AnimHead]) (string, error) {
	return exportPointers(c, "action list", "struct AnimHead", true)
}

// ExportMotionList renders an exported AnimHead2 pointer array.
func ExportMotionList(c *scene.Collection[*scene.AnimHead2]) (string, error) {
	return exportPointers(c, "motion list", "struct AnimHead2", true)
}

// ExportMaterialList renders an exported array of MATERIAL arrays.
func ExportMaterialList(c *scene.Collection[*scene.Collection[scene.Material]]) (string, error) {
	return exportPointers(c, "material list", "struct MATERIAL", false)
}

// ExportPointList renders an exported array of Vector3 arrays.
func ExportPointList(c *scene.Collection[*scene.Collection[scene.Vector3]]) (string, error) {
	return exportPointers(c, "point list", "struct Vector3", false)
}

// The Tree functions emit an entity together with everything it
// references, dependencies first. Entities t has already seen are
// declared extern instead of being defined again.

// ExportObjectTree emits o, its attach and its child and sibling subtrees.
func ExportObjectTree(o *scene.Object, t *Tracker, counts MaterialCounts) (string, error) {
	var b strings.Builder
	err := objectTree(&b, o, t, counts)
	return b.String(), err
}

// ExportAttachTree emits a with its vertex, mesh and material arrays.
func ExportAttachTree(a *scene.Attach, t *Tracker, counts MaterialCounts) (string, error) {
	var b strings.Builder
	err := attachTree(&b, a, t, counts)
	return b.String(), err
}

// ExportAttachUnit emits a as the body of a translation unit of its own.
// Vertex, normal and material arrays already seen by t are declared
// extern; mesh data is always defined static in the unit. Unlike
// ExportAttachTree it does not consult t for a itself.
func ExportAttachUnit(a *scene.Attach, t *Tracker, counts MaterialCounts) (string, error) {
	if a == nil {
		return "", invalid("ATTACH", "", ErrNilCollection)
	}
	var b strings.Builder
	err := attachBody(&b, a, t, NewTracker(), counts)
	return b.String(), err
}

// ExportMotionUnit emits m as the body of a translation unit of its own.
// Key and snapshot arrays are tracked in shared and defined with external
// linkage, so units written later declare them extern; the frame data is
// always defined static in the unit. It does not consult shared for m
// itself.
func ExportMotionUnit(m *scene.AnimHead2, shared *Tracker) (string, error) {
	if m == nil {
		return "", invalid("AnimHead2", "", ErrNilCollection)
	}
	var b strings.Builder
	if m.FrameData != nil {
		s, err := animFrames(m.FrameData, shared, Extern)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		b.WriteString("\n")
	}
	s, err := ExportAnimHead2(m)
	if err != nil {
		return "", err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return b.String(), nil
}

// ExportActionTree emits a with its model hierarchy and motion.
func ExportActionTree(a *scene.AnimHead, t *Tracker, counts MaterialCounts) (string, error) {
	var b strings.Builder
	err := actionTree(&b, a, t, counts)
	return b.String(), err
}

// ExportObjectListTree emits every object hierarchy of c, then c.
func ExportObjectListTree(c *scene.Collection[*scene.Object], t *Tracker, counts MaterialCounts) (string, error) {
	return listTree(c, ExportObjectList, func(b *strings.Builder, o *scene.Object) error {
		return objectTree(b, o, t, counts)
	})
}

// ExportModelListTree emits every attach of c, then c.
func ExportModelListTree(c *scene.Collection[*scene.Attach], t *Tracker, counts MaterialCounts) (string, error) {
	return listTree(c, ExportModelList, func(b *strings.Builder, a *scene.Attach) error {
		return attachTree(b, a, t, counts)
	})
}

// ExportActionListTree emits every action of c, then c.
func ExportActionListTree(c *scene.Collection[*scene.AnimHead], t *Tracker, counts MaterialCounts) (string, error) {
	return listTree(c, ExportActionList, func(b *strings.Builder, a *scene.AnimHead) error {
		return actionTree(b, a, t, counts)
	})
}

// ExportMotionListTree emits every motion of c, then c.
func ExportMotionListTree(c *scene.Collection[*scene.AnimHead2], t *Tracker) (string, error) {
	return listTree(c, ExportMotionList, func(b *strings.Builder, m *scene.AnimHead2) error {
		return motionTree(b, m, t)
	})
}

// ExportMaterialListTree emits every material array of c, then c.
func ExportMaterialListTree(c *scene.Collection[*scene.Collection[scene.Material]], t *Tracker) (string, error) {
	return listTree(c, ExportMaterialList, func(b *strings.Builder, m *scene.Collection[scene.Material]) error {
		return materialsDef(b, m, t)
	})
}

// ExportPointListTree emits every Vector3 array of c, then c.
func ExportPointListTree(c *scene.Collection[*scene.Collection[scene.Vector3]], t *Tracker) (string, error) {
	return listTree(c, ExportPointList, func(b *strings.Builder, v *scene.Collection[scene.Vector3]) error {
		return vectorsDef(b, v, t, Extern)
	})
}

func listTree[T comparable](c *scene.Collection[T], list func(*scene.Collection[T]) (string, error), item func(*strings.Builder, T) error) (string, error) {
	if c == nil {
		return "", invalid("list", "", ErrNilCollection)
	}
	var b strings.Builder
	var zero T
	for _, v := range c.Items {
		if v == zero {
			continue
		}
		if err := item(&b, v); err != nil {
			return "", err
		}
	}
	s, err := list(c)
	if err != nil {
		return "", err
	}
	b.WriteString(s)
	return b.String(), nil
}

func externOnce(b *strings.Builder, ctype string, n scene.Named) error {
	if err := ValidateName(n.GetName()); err != nil {
		return invalid(ctype, "Name", err)
	}
	b.WriteString(ExternStruct(ctype, n.GetName()))
	return nil
}

func objectTree(b *strings.Builder, o *scene.Object, t *Tracker, counts MaterialCounts) error {
	if o == nil {
		return nil
	}
	if !t.AddObject(o) {
		return externOnce(b, "struct OBJECT", o)
	}
	if err := attachTree(b, o.Attach, t, counts); err != nil {
		return err
	}
	if err := objectTree(b, o.Child, t, counts); err != nil {
		return err
	}
	if err := objectTree(b, o.Sibling, t, counts); err != nil {
		return err
	}
	s, err := ExportObject(o)
	if err != nil {
		return err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return nil
}

func attachTree(b *strings.Builder, a *scene.Attach, t *Tracker, counts MaterialCounts) error {
	if a == nil {
		return nil
	}
	if !t.AddAttach(a) {
		return externOnce(b, "struct ATTACH", a)
	}
	return attachBody(b, a, t, t, counts)
}

// attachBody writes a and its arrays. Vertex, normal and material arrays
// are tracked in shared; the mesh array and the arrays its entries point at
// are tracked in local.
func attachBody(b *strings.Builder, a *scene.Attach, shared, local *Tracker, counts MaterialCounts) error {
	if a.Vertices != nil {
		if err := vectorsDef(b, a.Vertices, shared, Extern); err != nil {
			return err
		}
	}
	if a.Normals != nil {
		if err := vectorsDef(b, a.Normals, shared, Extern); err != nil {
			return err
		}
	}
	if a.Meshes != nil {
		for _, m := range a.Meshes.Items {
			if err := meshArrays(b, m, local); err != nil {
				return err
			}
		}
		if err := defineOnce(b, local, a.Meshes, "struct MESH", a.Meshes.Len(), func() (string, error) {
			return ExportMeshes(a.Meshes)
		}); err != nil {
			return err
		}
	}
	if a.Materials != nil {
		if err := materialsDef(b, a.Materials, shared); err != nil {
			return err
		}
	}
	s, err := ExportAttach(a, counts.lookup(a))
	if err != nil {
		return err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return nil
}

// meshArrays emits the per-mesh arrays a MESH entry points at.
func meshArrays(b *strings.Builder, m scene.Mesh, t *Tracker) error {
	if m.Polys != nil {
		if err := checkPolys(m.Polys); err != nil {
			return err
		}
		if err := defineOnce(b, t, m.Polys, "short unsigned int", polyWordCount(m.Polys), func() (string, error) {
			return ExportPolys(m.Polys)
		}); err != nil {
			return err
		}
	}
	if m.PolyNormals != nil {
		if err := defineOnce(b, t, m.PolyNormals, "struct PolyNormal", m.PolyNormals.Len(), func() (string, error) {
			return ExportPolyNormals(m.PolyNormals)
		}); err != nil {
			return err
		}
	}
	if m.VertexColors != nil {
		if err := defineOnce(b, t, m.VertexColors, "unsigned int", m.VertexColors.Len(), func() (string, error) {
			return ExportColors(m.VertexColors)
		}); err != nil {
			return err
		}
	}
	if m.UV != nil {
		if err := defineOnce(b, t, m.UV, "struct UV", m.UV.Len(), func() (string, error) {
			return ExportUVs(m.UV)
		}); err != nil {
			return err
		}
	}
	return nil
}

func materialsDef(b *strings.Builder, c *scene.Collection[scene.Material], t *Tracker) error {
	return defineOnce(b, t, c, "struct MATERIAL", c.Len(), func() (string, error) {
		return ExportMaterials(c, Extern)
	})
}

// FrameCType returns the C struct type of a frame data array.
func FrameCType(c *scene.Collection[scene.AnimFrame]) string {
	if c.Len() > 0 {
		switch c.Items[0].(type) {
		case *scene.AnimFramePosRotScale:
			return "struct AnimFrame_PosRotScale"
		case *scene.AnimFrameVertNrm:
			return "struct AnimFrame_VertNrm"
		}
	}
	return "struct AnimFrame_PosRot"
}

func motionTree(b *strings.Builder, m *scene.AnimHead2, t *Tracker) error {
	if m == nil {
		return nil
	}
	if !t.AddMotion(m) {
		return externOnce(b, "struct AnimHead2", m)
	}
	if m.FrameData != nil {
		if err := defineOnce(b, t, m.FrameData, FrameCType(m.FrameData), m.FrameData.Len(), func() (string, error) {
			return ExportAnimFrames(m.FrameData, t)
		}); err != nil {
			return err
		}
	}
	s, err := ExportAnimHead2(m)
	if err != nil {
		return err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return nil
}

func actionTree(b *strings.Builder, a *scene.AnimHead, t *Tracker, counts MaterialCounts) error {
	if a == nil {
		return nil
	}
	if !t.AddAction(a) {
		return externOnce(b, "struct AnimHead", a)
	}
	if err := objectTree(b, a.Model, t, counts); err != nil {
		return err
	}
	if err := motionTree(b, a.Motion, t); err != nil {
		return err
	}
	s, err := ExportAnimHead(a)
	if err != nil {
		return err
	}
	b.WriteString(s)
	b.WriteString("\n")
	return nil
}
