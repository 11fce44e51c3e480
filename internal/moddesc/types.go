package moddesc

// ExportKind selects how an export's address is decoded.
type ExportKind int

const (
	KindObjects ExportKind = iota + 1
	KindModels
	KindActions
	KindMotions
	KindMaterials
	KindPoints
)

func (k ExportKind) String() string {
	switch k {
	case KindObjects:
		return "objects"
	case KindModels:
		return "models"
	case KindActions:
		return "actions"
	case KindMotions:
		return "motions"
	case KindMaterials:
		return "materials"
	case KindPoints:
		return "points"
	}
	return "unknown"
}

// Module is a parsed module description.
type Module struct {
	Groups  []Group
	Attachs []AttachOverride
	Renames []Rename
}

// Group is one output directory worth of exports.
type Group struct {
	Name                string
	StandAloneMaterials []MaterialRef
	Exports             []Export
}

// MaterialRef names a material array that no export points at.
type MaterialRef struct {
	Address uint32
	Count   int
}

// Export is one exported symbol and how to size what it points at.
type Export struct {
	Name string
	Kind ExportKind

	// Count is the element count for objects, models and actions.
	Count int
	// MotionCounts holds, per motion, the vertex count of every animated
	// node of its model. A nil entry marks a motion without counts.
	MotionCounts [][]int
	// ArrayCounts holds the per-entry length for materials and points.
	ArrayCounts []int
}

// AttachOverride replaces the emitted material count of one ATTACH.
// HasMaterialCount is false when the description leaves the count out.
type AttachOverride struct {
	Address          uint32
	MaterialCount    int
	HasMaterialCount bool
}

// Rename gives the entity at Address a chosen C name.
type Rename struct {
	Address uint32
	NewName string
}
