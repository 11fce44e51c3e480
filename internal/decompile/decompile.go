// Package decompile runs a whole decompilation: it decodes every export a
// module description names, applies the description's overrides and
// renames, and writes the C sources.
package decompile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"sadx-decompiler/internal/cexport"
	"sadx-decompiler/internal/config"
	"sadx-decompiler/internal/decode"
	"sadx-decompiler/internal/moddesc"
	"sadx-decompiler/internal/peimage"
	"sadx-decompiler/internal/scene"
)

// Result summarizes a finished run.
type Result struct {
	Files    []ManifestEntry
	Entities int // distinct addresses decoded
	Manifest string
}

// group holds everything decoded for one Group of the description, in
// the order it is written.
type group struct {
	name       string
	standalone []*scene.Collection[scene.Material]
	objects    []*scene.Collection[*scene.Object]
	models     []*scene.Collection[*scene.Attach]
	actions    []*scene.Collection[*scene.AnimHead]
	motions    []*scene.Collection[*scene.AnimHead2]
	materials  []*scene.Collection[*scene.Collection[scene.Material]]
	points     []*scene.Collection[*scene.Collection[scene.Vector3]]
}

type session struct {
	cfg    config.Config
	log    *logger.Logger
	img    *peimage.Image
	reader *decode.Reader
	groups []*group
	counts cexport.MaterialCounts
}

// Run decompiles cfg.Image as described by cfg.Module into cfg.OutputDir.
// cfg must already be resolved. ctx is checked between top-level entities.
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, userErr(err, "invalid configuration")
	}
	s := &session{
		cfg:    cfg,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "decompile")),
		counts: make(cexport.MaterialCounts),
	}

	s.log.Infoln("Opening source module", cfg.Image)
	img, err := peimage.Open(cfg.Image)
	if err != nil {
		if errors.Is(err, peimage.ErrFormat) {
			return nil, err
		}
		return nil, userErr(err, "cannot open source module "+cfg.Image)
	}
	defer img.Close()
	s.img = img
	s.reader = decode.New(img)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.log.Infoln("Reading module description", cfg.Module)
	mod, err := moddesc.ParseFile(cfg.Module)
	if err != nil {
		return nil, userErr(err, "cannot read module description "+cfg.Module)
	}

	if err := s.decode(ctx, mod); err != nil {
		return nil, err
	}
	if err := s.applyOverrides(mod); err != nil {
		return nil, err
	}
	s.log.Infoln("Decoded", s.reader.KnownCount(), "entities in", len(s.groups), "groups")

	w := newWriter(ctx, cfg, s.log)
	switch cfg.Layout {
	case config.LayoutUnit:
		name := strings.TrimSuffix(filepath.Base(cfg.Module), filepath.Ext(cfg.Module))
		err = s.writeUnit(w, name)
	default:
		err = s.writeFiles(w)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Files: w.entries(), Entities: s.reader.KnownCount()}
	if cfg.WriteManifest() {
		path := filepath.Join(cfg.OutputDir, "manifest.json")
		if err := WriteManifest(path, w.manifest); err != nil {
			return nil, userErr(err, "cannot write manifest "+path)
		}
		res.Manifest = path
	}
	s.log.Infoln("Wrote", len(res.Files), "files to", cfg.OutputDir)
	return res, nil
}

func (s *session) decode(ctx context.Context, mod *moddesc.Module) error {
	for _, mg := range mod.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.Infoln("Reading data for group", mg.Name)
		g := &group{name: mg.Name}
		s.groups = append(s.groups, g)

		for _, sm := range mg.StandAloneMaterials {
			mats, err := s.reader.ReadMaterialArray(sm.Address, sm.Count)
			if err != nil {
				return fmt.Errorf("decompile: group %s: stand-alone material 0x%08X: %w", mg.Name, sm.Address, err)
			}
			if mats != nil {
				g.standalone = append(g.standalone, mats)
			}
		}

		for _, exp := range mg.Exports {
			if err := ctx.Err(); err != nil {
				return err
			}
			addr := s.img.Export(exp.Name)
			if addr == 0 {
				return userErr(nil, fmt.Sprintf("export %s not found in %s", exp.Name, s.cfg.Image))
			}
			s.log.Infoln("Reading", exp.Kind, "export", exp.Name, fmt.Sprintf("@ 0x%08X", addr))
			if err := s.decodeExport(g, exp, addr); err != nil {
				return fmt.Errorf("decompile: export %s: %w", exp.Name, err)
			}
		}
	}
	return nil
}

// decodeExport reads one export and files its collection, renamed after
// the export, under g.
func (s *session) decodeExport(g *group, exp moddesc.Export, addr uint32) error {
	r := s.reader
	switch exp.Kind {
	case moddesc.KindObjects:
		c, err := r.ReadObjectPointerArray(addr, exp.Count)
		if err != nil {
			return err
		}
		c.Name = exp.Name
		g.objects = append(g.objects, c)
	case moddesc.KindModels:
		c, err := r.ReadAttachPointerArray(addr, exp.Count)
		if err != nil {
			return err
		}
		c.Name = exp.Name
		g.models = append(g.models, c)
	case moddesc.KindActions:
		c, err := r.ReadAnimHeadPointerArray(addr, exp.Count)
		if err != nil {
			return err
		}
		c.Name = exp.Name
		g.actions = append(g.actions, c)
	case moddesc.KindMotions:
		c, err := r.ReadAnimHead2PointerArray(addr, exp.MotionCounts)
		if err != nil {
			return err
		}
		c.Name = exp.Name
		g.motions = append(g.motions, c)
	case moddesc.KindMaterials:
		c, err := r.ReadMaterialArrayPointerArray(addr, exp.ArrayCounts)
		if err != nil {
			return err
		}
		c.Name = exp.Name
		g.materials = append(g.materials, c)
	case moddesc.KindPoints:
		c, err := r.ReadVector3ArrayPointerArray(addr, exp.ArrayCounts)
		if err != nil {
			return err
		}
		c.Name = exp.Name
		g.points = append(g.points, c)
	default:
		return userErr(nil, fmt.Sprintf("export %s has unknown kind %d", exp.Name, exp.Kind))
	}
	return nil
}

// applyOverrides resolves the description's Attach and Rename entries
// against what decoding produced. Both only apply to addresses already
// decoded.
func (s *session) applyOverrides(mod *moddesc.Module) error {
	for _, ov := range mod.Attachs {
		named := s.reader.KnownObject(ov.Address)
		if named == nil {
			return userErr(nil, fmt.Sprintf("no decoded object at address 0x%08X", ov.Address))
		}
		a, ok := named.(*scene.Attach)
		if !ok {
			return userErr(nil, fmt.Sprintf("address 0x%08X does not refer to an ATTACH", ov.Address))
		}
		if ov.HasMaterialCount {
			s.counts[a] = ov.MaterialCount
		}
	}
	renamed := make(map[uint32]string)
	for _, rn := range mod.Renames {
		named := s.reader.KnownObject(rn.Address)
		if named == nil {
			return userErr(nil, fmt.Sprintf("no decoded object at address 0x%08X", rn.Address))
		}
		if prev, ok := renamed[rn.Address]; ok {
			s.log.Warn(fmt.Sprintf("Address 0x%08X renamed twice, %s replaces %s", rn.Address, rn.NewName, prev))
		}
		renamed[rn.Address] = rn.NewName
		s.log.Debugln("Renaming", named.GetName(), "to", rn.NewName)
		named.SetName(rn.NewName)
	}
	return nil
}
