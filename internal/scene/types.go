// Package scene holds the in-memory graph of model, material and animation
// records decoded from a game module. Entities are shared by pointer: two
// references to the same image address resolve to the same Go value.
package scene

// Named is implemented by every entity that carries an emitted C name.
type Named interface {
	GetName() string
	SetName(name string)
}

// Collection is an ordered, named array of T.
type Collection[T any] struct {
	Name  string
	Items []T
}

// NewCollection returns a collection named name holding items.
func NewCollection[T any](name string, items []T) *Collection[T] {
	return &Collection[T]{Name: name, Items: items}
}

func (c *Collection[T]) GetName() string     { return c.Name }
func (c *Collection[T]) SetName(name string) { c.Name = name }

// Len returns the item count; a nil collection has none.
func (c *Collection[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Vector3 is a position, normal or scale.
type Vector3 struct {
	X, Y, Z float32
}

// Rotation3 is a rotation in BAMS units (0x10000 per turn).
type Rotation3 struct {
	X, Y, Z int32
}

// UV is a fixed-point texture coordinate.
type UV struct {
	U, V int16
}

// PolyNormal is an opaque per-vertex pair kept as read.
type PolyNormal struct {
	Unknown00 float32
	Unknown04 float32
}

// Material is one MATERIAL record.
type Material struct {
	DiffuseColor  uint32
	SpecularColor uint32
	Unknown08     float32
	TextureID     uint32
	Unknown10     uint16
	Flags         uint8
	Unknown13     uint8
}

// Mesh is one MESH record. The high two bits of MaterialIDAndPolyType
// select the primitive kind.
type Mesh struct {
	MaterialIDAndPolyType uint16
	Polys                 *Collection[Poly]
	PolyAttributes        int32
	PolyNormals           *Collection[PolyNormal]
	VertexColors          *Collection[uint32]
	UV                    *Collection[UV]
	Null                  int32
}

// MaterialID returns the low 14 bits.
func (m *Mesh) MaterialID() uint16 { return m.MaterialIDAndPolyType & 0x3FFF }

// PolyType returns the primitive kind.
func (m *Mesh) PolyType() PolyType { return PolyType(m.MaterialIDAndPolyType >> 14) }

// Attach is one ATTACH record, the renderable part of a node.
type Attach struct {
	Name      string
	Vertices  *Collection[Vector3]
	Normals   *Collection[Vector3]
	Meshes    *Collection[Mesh]
	Materials *Collection[Material]
	Center    Vector3
	Radius    float32
	Null      int32
}

func (a *Attach) GetName() string     { return a.Name }
func (a *Attach) SetName(name string) { a.Name = name }

// Object flag bits.
const (
	ObjectNoTranslate    uint32 = 0x01
	ObjectNoRotate       uint32 = 0x02
	ObjectNoScale        uint32 = 0x04
	ObjectNoDraw         uint32 = 0x08
	ObjectNoChildren     uint32 = 0x10
	ObjectUseZYXRotation uint32 = 0x20
	ObjectNoAnimate      uint32 = 0x40
	Object80             uint32 = 0x80
)

// Object is one OBJECT node of a model hierarchy.
type Object struct {
	Name     string
	Flags    uint32
	Attach   *Attach
	Position Vector3
	Rotation Rotation3
	Scale    Vector3
	Child    *Object
	Sibling  *Object
}

func (o *Object) GetName() string     { return o.Name }
func (o *Object) SetName(name string) { o.Name = name }

// AnimHead pairs a model with a motion.
type AnimHead struct {
	Name   string
	Model  *Object
	Motion *AnimHead2
}

func (a *AnimHead) GetName() string     { return a.Name }
func (a *AnimHead) SetName(name string) { a.Name = name }

// AnimHead2 flag bits.
const (
	AnimHasPosition uint16 = 0x01
	AnimHasRotation uint16 = 0x02
	AnimHasScale    uint16 = 0x04
	Anim08          uint16 = 0x08
	AnimHasVertex   uint16 = 0x10
	AnimHasNormal   uint16 = 0x20
)

// Flag combinations selecting the per-node frame layout.
const (
	AnimFlagsPosRot      = AnimHasPosition | AnimHasRotation
	AnimFlagsPosRotScale = AnimHasPosition | AnimHasRotation | AnimHasScale
	AnimFlagsVertNrm     = AnimHasVertex | AnimHasNormal
)

// AnimHead2 is a motion: one frame-data entry per counted model node.
type AnimHead2 struct {
	Name       string
	FrameData  *Collection[AnimFrame]
	FrameCount int32
	Flags      uint16
	Unknown0A  uint16
}

func (m *AnimHead2) GetName() string     { return m.Name }
func (m *AnimHead2) SetName(name string) { m.Name = name }

// AnimFrame is the per-node keyframe set of a motion. It is one of
// *AnimFramePosRot, *AnimFramePosRotScale or *AnimFrameVertNrm.
type AnimFrame interface {
	animFrame()
}

type AnimFramePosRot struct {
	Positions *Collection[Vector3AnimData]
	Rotations *Collection[Rotation3AnimData]
}

type AnimFramePosRotScale struct {
	Positions *Collection[Vector3AnimData]
	Rotations *Collection[Rotation3AnimData]
	Scales    *Collection[Vector3AnimData]
}

type AnimFrameVertNrm struct {
	Vertices *Collection[Vector3ArrayAnimData]
	Normals  *Collection[Vector3ArrayAnimData]
}

func (*AnimFramePosRot) animFrame()      {}
func (*AnimFramePosRotScale) animFrame() {}
func (*AnimFrameVertNrm) animFrame()     {}

// Vector3AnimData is a position or scale key.
type Vector3AnimData struct {
	Frame  int32
	Vector Vector3
}

// Rotation3AnimData is a rotation key.
type Rotation3AnimData struct {
	Frame    int32
	Rotation Rotation3
}

// Vector3ArrayAnimData is a whole-mesh vertex or normal snapshot key.
type Vector3ArrayAnimData struct {
	Frame   int32
	Vectors *Collection[Vector3]
}
