package decompile

import (
	"strings"

	"sadx-decompiler/internal/cexport"
)

// writeUnit writes every group into a single translation unit. One tracker
// covers the whole file, so each entity is defined once and referenced
// through extern declarations afterwards.
func (s *session) writeUnit(w *writer, name string) error {
	t := cexport.NewTracker()
	b := w.file()
	emit := func(text string, err error) error {
		if err != nil {
			return err
		}
		b.WriteString("\n")
		b.WriteString(text)
		return nil
	}

	for _, g := range s.groups {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		s.log.Infoln("Emitting group", g.name)
		b.WriteString("\n/* " + strings.ReplaceAll(g.name, "*/", "* /") + " */\n")

		for _, mats := range g.standalone {
			if !t.AddMaterials(mats) {
				continue
			}
			if err := emit(cexport.ExportMaterials(mats, cexport.Extern)); err != nil {
				return err
			}
		}
		for _, c := range g.materials {
			if err := emit(cexport.ExportMaterialListTree(c, t)); err != nil {
				return err
			}
		}
		for _, c := range g.points {
			if err := emit(cexport.ExportPointListTree(c, t)); err != nil {
				return err
			}
		}
		for _, c := range g.objects {
			if err := emit(cexport.ExportObjectListTree(c, t, s.counts)); err != nil {
				return err
			}
		}
		for _, c := range g.models {
			if err := emit(cexport.ExportModelListTree(c, t, s.counts)); err != nil {
				return err
			}
		}
		for _, c := range g.actions {
			if err := emit(cexport.ExportActionListTree(c, t, s.counts)); err != nil {
				return err
			}
		}
		for _, c := range g.motions {
			if err := emit(cexport.ExportMotionListTree(c, t)); err != nil {
				return err
			}
		}
	}
	s.log.Infoln("Emitted", t.Len(), "definitions")
	return w.write("", name, "unit", b.String())
}
