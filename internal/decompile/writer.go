package decompile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/elliotchance/orderedmap"

	"sadx-decompiler/internal/config"
)

// writer puts generated sources on disk and remembers what it wrote.
type writer struct {
	ctx      context.Context
	root     string
	include  string
	verbose  bool
	log      *logger.Logger
	manifest *orderedmap.OrderedMap // group -> []ManifestEntry
}

func newWriter(ctx context.Context, cfg config.Config, log *logger.Logger) *writer {
	return &writer{
		ctx:      ctx,
		root:     cfg.OutputDir,
		include:  cfg.IncludeLine,
		verbose:  cfg.Verbose,
		log:      log,
		manifest: orderedmap.NewOrderedMap(),
	}
}

// file starts a source with the include line.
func (w *writer) file() *strings.Builder {
	b := &strings.Builder{}
	b.WriteString(w.include)
	b.WriteString("\n")
	return b
}

// write stores body as <dir>/<name>.c, where dir is relative to the output
// directory and may be empty. Cancellation is checked before every file.
func (w *writer) write(dir, name, kind, body string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	full := filepath.Join(w.root, dir)
	if err := os.MkdirAll(full, 0755); err != nil {
		return userErr(err, "cannot create output directory "+full)
	}
	rel := filepath.Join(dir, name+".c")
	path := filepath.Join(w.root, rel)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return userErr(err, "cannot write output file "+path)
	}
	if w.verbose {
		w.log.Debugln("Wrote", path)
	}

	// Files written straight into the output directory form their own group.
	group := dir
	if group == "" {
		group = name
	}
	var list []ManifestEntry
	if v, ok := w.manifest.Get(group); ok {
		list = v.([]ManifestEntry)
	}
	list = append(list, ManifestEntry{
		Group: group,
		Kind:  kind,
		Name:  name,
		File:  filepath.ToSlash(rel),
	})
	w.manifest.Set(group, list)
	return nil
}

// entries returns every written file, grouped in first-written order.
func (w *writer) entries() []ManifestEntry {
	var out []ManifestEntry
	for el := w.manifest.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.([]ManifestEntry)...)
	}
	return out
}
