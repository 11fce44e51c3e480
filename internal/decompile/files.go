package decompile

import (
	"strings"

	"sadx-decompiler/internal/cexport"
	"sadx-decompiler/internal/scene"
)

// fileOutput writes one translation unit per top-level entity. The
// tracker spans the whole run, so an entity reachable from several groups
// is written once, into the first group that reaches it.
type fileOutput struct {
	w      *writer
	t      *cexport.Tracker
	counts cexport.MaterialCounts
	dir    string
}

func (s *session) writeFiles(w *writer) error {
	o := &fileOutput{w: w, t: cexport.NewTracker(), counts: s.counts}
	for _, g := range s.groups {
		s.log.Infoln("Writing group", g.name)
		o.dir = g.name
		if err := o.group(g); err != nil {
			return err
		}
	}
	return nil
}

func (o *fileOutput) group(g *group) error {
	for _, mats := range g.standalone {
		if err := o.standaloneMaterials(mats); err != nil {
			return err
		}
	}
	for _, c := range g.materials {
		if err := o.materialList(c); err != nil {
			return err
		}
	}
	for _, c := range g.points {
		if err := o.pointList(c); err != nil {
			return err
		}
	}
	for _, c := range g.objects {
		if err := o.objectList(c); err != nil {
			return err
		}
	}
	for _, c := range g.models {
		if err := o.modelList(c); err != nil {
			return err
		}
	}
	for _, c := range g.actions {
		if err := o.actionList(c); err != nil {
			return err
		}
	}
	for _, c := range g.motions {
		if err := o.motionList(c); err != nil {
			return err
		}
	}
	return nil
}

func (o *fileOutput) standaloneMaterials(mats *scene.Collection[scene.Material]) error {
	if !o.t.AddMaterials(mats) {
		return nil
	}
	s, err := cexport.ExportMaterials(mats, cexport.Extern)
	if err != nil {
		return err
	}
	b := o.w.file()
	b.WriteString("\n")
	b.WriteString(s)
	return o.w.write(o.dir, mats.Name, "materials", b.String())
}

func (o *fileOutput) materialList(c *scene.Collection[*scene.Collection[scene.Material]]) error {
	b := o.w.file()
	for _, mats := range c.Items {
		if mats == nil {
			continue
		}
		b.WriteString("\n")
		if !o.t.AddMaterials(mats) {
			b.WriteString(cexport.ExternArray("struct MATERIAL", mats.Name, mats.Len()))
			continue
		}
		s, err := cexport.ExportMaterials(mats, cexport.Extern)
		if err != nil {
			return err
		}
		b.WriteString(s)
	}
	return o.finishList(b, c.Name, "material list", func() (string, error) { return cexport.ExportMaterialList(c) })
}

func (o *fileOutput) pointList(c *scene.Collection[*scene.Collection[scene.Vector3]]) error {
	b := o.w.file()
	for _, pts := range c.Items {
		if pts == nil {
			continue
		}
		b.WriteString("\n")
		if !o.t.AddVectors(pts) {
			b.WriteString(cexport.ExternArray("struct Vector3", pts.Name, pts.Len()))
			continue
		}
		s, err := cexport.ExportVector3Array(pts, cexport.Extern)
		if err != nil {
			return err
		}
		b.WriteString(s)
	}
	return o.finishList(b, c.Name, "point list", func() (string, error) { return cexport.ExportPointList(c) })
}

func (o *fileOutput) objectList(c *scene.Collection[*scene.Object]) error {
	b := o.w.file()
	b.WriteString("\n")
	for _, obj := range c.Items {
		if obj != nil {
			b.WriteString(cexport.ExternStruct("struct OBJECT", obj.Name))
		}
	}
	if err := o.finishList(b, c.Name, "object list", func() (string, error) { return cexport.ExportObjectList(c) }); err != nil {
		return err
	}
	for _, obj := range c.Items {
		if err := o.object(obj); err != nil {
			return err
		}
	}
	return nil
}

func (o *fileOutput) modelList(c *scene.Collection[*scene.Attach]) error {
	b := o.w.file()
	b.WriteString("\n")
	for _, a := range c.Items {
		if a != nil {
			b.WriteString(cexport.ExternStruct("struct ATTACH", a.Name))
		}
	}
	if err := o.finishList(b, c.Name, "model list", func() (string, error) { return cexport.ExportModelList(c) }); err != nil {
		return err
	}
	for _, a := range c.Items {
		if err := o.model(a); err != nil {
			return err
		}
	}
	return nil
}

// actionList writes the AnimHead definitions into the list's own file;
// their models and motions get files of their own.
func (o *fileOutput) actionList(c *scene.Collection[*scene.AnimHead]) error {
	b := o.w.file()
	for _, a := range c.Items {
		if a == nil {
			continue
		}
		b.WriteString("\n")
		if !o.t.AddAction(a) {
			b.WriteString(cexport.ExternStruct("struct AnimHead", a.Name))
			continue
		}
		if a.Model != nil {
			if err := o.object(a.Model); err != nil {
				return err
			}
			b.WriteString(cexport.ExternStruct("struct OBJECT", a.Model.Name))
		}
		if a.Motion != nil {
			if err := o.motion(a.Motion); err != nil {
				return err
			}
			b.WriteString(cexport.ExternStruct("struct AnimHead2", a.Motion.Name))
		}
		s, err := cexport.ExportAnimHead(a)
		if err != nil {
			return err
		}
		b.WriteString(s)
	}
	return o.finishList(b, c.Name, "action list", func() (string, error) { return cexport.ExportActionList(c) })
}

func (o *fileOutput) motionList(c *scene.Collection[*scene.AnimHead2]) error {
	b := o.w.file()
	for _, m := range c.Items {
		if m == nil {
			continue
		}
		if err := o.motion(m); err != nil {
			return err
		}
		b.WriteString(cexport.ExternStruct("struct AnimHead2", m.Name))
	}
	return o.finishList(b, c.Name, "motion list", func() (string, error) { return cexport.ExportMotionList(c) })
}

func (o *fileOutput) finishList(b *strings.Builder, name, kind string, list func() (string, error)) error {
	s, err := list()
	if err != nil {
		return err
	}
	b.WriteString("\n")
	b.WriteString(s)
	return o.w.write(o.dir, name, kind, b.String())
}

// object writes obj and, first, everything it points at that has no file
// yet.
func (o *fileOutput) object(obj *scene.Object) error {
	if obj == nil || !o.t.AddObject(obj) {
		return nil
	}
	b := o.w.file()
	b.WriteString("\n")
	refs := 0
	if obj.Attach != nil {
		if err := o.model(obj.Attach); err != nil {
			return err
		}
		b.WriteString(cexport.ExternStruct("struct ATTACH", obj.Attach.Name))
		refs++
	}
	for _, next := range []*scene.Object{obj.Child, obj.Sibling} {
		if next == nil {
			continue
		}
		if err := o.object(next); err != nil {
			return err
		}
		b.WriteString(cexport.ExternStruct("struct OBJECT", next.Name))
		refs++
	}
	if refs > 0 {
		b.WriteString("\n")
	}
	s, err := cexport.ExportObject(obj)
	if err != nil {
		return err
	}
	b.WriteString(s)
	return o.w.write(o.dir, obj.Name, "object", b.String())
}

func (o *fileOutput) model(a *scene.Attach) error {
	if a == nil || !o.t.AddAttach(a) {
		return nil
	}
	s, err := cexport.ExportAttachUnit(a, o.t, o.counts)
	if err != nil {
		return err
	}
	b := o.w.file()
	b.WriteString("\n")
	b.WriteString(s)
	return o.w.write(o.dir, a.Name, "model", b.String())
}

// motion writes m with its frame data. Key and snapshot arrays are
// defined by the first motion file that needs them.
func (o *fileOutput) motion(m *scene.AnimHead2) error {
	if m == nil || !o.t.AddMotion(m) {
		return nil
	}
	s, err := cexport.ExportMotionUnit(m, o.t)
	if err != nil {
		return err
	}
	b := o.w.file()
	b.WriteString("\n")
	b.WriteString(s)
	return o.w.write(o.dir, m.Name, "motion", b.String())
}
