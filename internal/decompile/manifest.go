package decompile

import (
	"encoding/json"
	"os"

	"github.com/elliotchance/orderedmap"
)

// ManifestEntry represents one generated file in the output manifest.
type ManifestEntry struct {
	Group string `json:"group"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	File  string `json:"file"`
}

type manifestGroup struct {
	Name  string          `json:"name"`
	Files []ManifestEntry `json:"files"`
}

// WriteManifest writes the files of every group, in group order, to path.
func WriteManifest(path string, groups *orderedmap.OrderedMap) error {
	out := make([]manifestGroup, 0, groups.Len())
	for el := groups.Front(); el != nil; el = el.Next() {
		out = append(out, manifestGroup{
			Name:  el.Key.(string),
			Files: el.Value.([]ManifestEntry),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
