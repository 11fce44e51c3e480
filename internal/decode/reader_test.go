package decode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"sadx-decompiler/internal/petest"
	"sadx-decompiler/internal/scene"
	"sadx-decompiler/internal/vmem"
)

const sectionBase = 0x1000

// layout is a blob mapped at sectionBase; offsets below are absolute.
type layout struct{ petest.Blob }

func newLayout() layout { return layout{petest.NewBlob(0x1000)} }

func (l layout) at(addr int) int { return addr - sectionBase }

func (l layout) object(addr int, flags, attach, child, sibling uint32) {
	o := l.at(addr)
	l.U32(o, flags).U32(o+4, attach)
	l.Vec3(o+8, 1, 2, 3)
	l.I32(o+20, 0x4000).I32(o+24, 0).I32(o+28, -0x4000)
	l.Vec3(o+32, 1, 1, 1)
	l.U32(o+44, child).U32(o+48, sibling)
}

func (l layout) attach(addr int, verts, normals uint32, n int32, meshes, mats uint32, meshCount, matCount uint16) {
	o := l.at(addr)
	l.U32(o, verts).U32(o+4, normals).I32(o+8, n)
	l.U32(o+12, meshes).U32(o+16, mats)
	l.U16(o+20, meshCount).U16(o+22, matCount)
	l.Vec3(o+24, 0, 0, 0)
	l.F32(o+36, 5)
}

func (l layout) reader() *Reader {
	space := vmem.New(bytes.NewReader(l.Blob), 0, []vmem.Section{
		{Name: ".data", VirtualAddress: sectionBase, VirtualSize: uint32(len(l.Blob)), RawSize: uint32(len(l.Blob))},
	})
	return NewFromSpace(space)
}

func TestReadObjectLeaf(t *testing.T) {
	l := newLayout()
	l.object(0x1000, 0x17, 0, 0, 0)
	r := l.reader()

	o, err := r.ReadObject(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if o.Name != "obj_00001000" {
		t.Errorf("name = %q", o.Name)
	}
	if o.Flags != 0x17 || o.Attach != nil || o.Child != nil || o.Sibling != nil {
		t.Errorf("unexpected object %+v", o)
	}
	if o.Position != (scene.Vector3{X: 1, Y: 2, Z: 3}) || o.Rotation != (scene.Rotation3{X: 0x4000, Z: -0x4000}) {
		t.Errorf("transform = %+v %+v", o.Position, o.Rotation)
	}

	again, err := r.ReadObject(0x1000)
	if err != nil || again != o {
		t.Errorf("second read returned a different object")
	}
	if r.KnownObject(0x1000) != scene.Named(o) {
		t.Errorf("KnownObject does not return the decoded object")
	}
}

func TestReadObjectNull(t *testing.T) {
	r := newLayout().reader()
	o, err := r.ReadObject(0)
	if err != nil || o != nil {
		t.Errorf("ReadObject(0) = %v, %v", o, err)
	}
	if r.KnownCount() != 0 {
		t.Errorf("address 0 was cached")
	}
}

func TestSharedAttachDecodedOnce(t *testing.T) {
	l := newLayout()
	l.object(0x1000, 0, 0x1100, 0, 0x1040)
	l.object(0x1040, 0, 0x1100, 0, 0)
	l.attach(0x1100, 0x1200, 0x1200, 2, 0, 0, 0, 0)
	l.Vec3(l.at(0x1200), 1, 0, 0).Vec3(l.at(0x120C), 0, 1, 0)
	r := l.reader()

	root, err := r.ReadObject(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if root.Sibling == nil || root.Attach != root.Sibling.Attach {
		t.Fatal("shared attach decoded twice")
	}
	a := root.Attach
	if a.Name != "attach_00001100" || a.Vertices.Len() != 2 || a.Radius != 5 {
		t.Errorf("attach = %+v", a)
	}
	// Same address and type: normals alias the vertex array.
	if a.Vertices != a.Normals {
		t.Errorf("vertex and normal arrays at one address differ")
	}
	if a.Meshes != nil || a.Materials != nil {
		t.Errorf("null pointers decoded as collections")
	}
}

func TestSelfReferenceResolves(t *testing.T) {
	l := newLayout()
	l.object(0x1000, 0, 0, 0x1000, 0)
	o, err := l.reader().ReadObject(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if o.Child != o {
		t.Errorf("cycle not resolved to the same object")
	}
}

func TestReadMeshes(t *testing.T) {
	l := newLayout()
	l.attach(0x1000, 0, 0, 0, 0x1300, 0x1600, 1, 1)
	m := l.at(0x1300)
	l.U16(m, 0x8003).U16(m+2, 2).U32(m+4, 0x1400).I32(m+8, 7)
	l.U32(m+12, 0).U32(m+16, 0x1500).U32(m+20, 0).I32(m+24, 0)
	p := l.at(0x1400)
	l.U16(p, 0x8003).U16(p+2, 0).U16(p+4, 1).U16(p+6, 2)
	l.U16(p+8, 4).U16(p+10, 3).U16(p+12, 4).U16(p+14, 5).U16(p+16, 6)
	for i := 0; i < 7; i++ {
		l.U32(l.at(0x1500)+4*i, 0xFF000000|uint32(i))
	}
	mat := l.at(0x1600)
	l.U32(mat, 0xFFB2B2B2).U32(mat+4, 0xFFFFFFFF).F32(mat+8, 11).U32(mat+12, 4)
	l.U16(mat+16, 0x1234).U8(mat+18, 0x94).U8(mat+19, 0x22)

	a, err := l.reader().ReadAttach(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	mesh := a.Meshes.Items[0]
	if mesh.PolyType() != scene.PolyStripsA || mesh.MaterialID() != 3 || mesh.PolyAttributes != 7 {
		t.Errorf("mesh header = %+v", mesh)
	}
	if mesh.Polys.Name != "strips_00001400" || mesh.Polys.Len() != 2 {
		t.Fatalf("polys = %+v", mesh.Polys)
	}
	s0 := mesh.Polys.Items[0].(*scene.Strip)
	s1 := mesh.Polys.Items[1].(*scene.Strip)
	if !s0.Reversed || len(s0.V) != 3 || s1.Reversed || len(s1.V) != 4 || s1.V[3] != 6 {
		t.Errorf("strips = %+v %+v", s0, s1)
	}
	if mesh.VertexColors.Len() != 7 || mesh.VertexColors.Items[6] != 0xFF000006 {
		t.Errorf("colors = %+v", mesh.VertexColors)
	}
	if mesh.PolyNormals != nil || mesh.UV != nil {
		t.Errorf("null arrays decoded")
	}
	want := scene.Material{
		DiffuseColor: 0xFFB2B2B2, SpecularColor: 0xFFFFFFFF, Unknown08: 11, TextureID: 4,
		Unknown10: 0x1234, Flags: 0x94, Unknown13: 0x22,
	}
	if a.Materials.Items[0] != want {
		t.Errorf("material = %+v", a.Materials.Items[0])
	}
}

func TestVertNrmSizedByModel(t *testing.T) {
	l := newLayout()
	// AnimHead -> model A(10) { child B(none), B.sibling C(5) }.
	l.U32(l.at(0x1000), 0x1100).U32(l.at(0x1004), 0x1800)
	l.object(0x1100, 0, 0x1200, 0x1140, 0)
	l.object(0x1140, 0, 0, 0, 0x1180)
	l.object(0x1180, 0, 0x1240, 0, 0)
	l.attach(0x1200, 0x1300, 0, 10, 0, 0, 0, 0)
	l.attach(0x1240, 0x1400, 0, 5, 0, 0, 0, 0)

	h := l.at(0x1800)
	l.U32(h, 0x1900).I32(h+4, 2).U16(h+8, 0x30)
	f := l.at(0x1900)
	l.U32(f, 0x1A00).U32(f+4, 0x1A10).I32(f+8, 1).I32(f+12, 1)
	l.U32(f+32, 0x1A20).U32(f+36, 0).I32(f+40, 1).I32(f+44, 0)
	l.I32(l.at(0x1A00), 0).U32(l.at(0x1A04), 0x1B00)
	l.I32(l.at(0x1A10), 0).U32(l.at(0x1A14), 0x1C00)
	l.I32(l.at(0x1A20), 1).U32(l.at(0x1A24), 0x1D00)

	ah, err := l.reader().ReadAnimHead(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if ah.Name != "ah_00001000" || ah.Motion.Name != "ah2_00001800" {
		t.Errorf("names %q %q", ah.Name, ah.Motion.Name)
	}
	frames := ah.Motion.FrameData
	if frames.Name != "afvn_00001900" || frames.Len() != 3 {
		t.Fatalf("frames = %+v", frames)
	}
	f0 := frames.Items[0].(*scene.AnimFrameVertNrm)
	if f0.Vertices.Items[0].Vectors.Len() != 10 || f0.Normals.Items[0].Vectors.Len() != 10 {
		t.Errorf("frame 0 sizes: %d %d", f0.Vertices.Items[0].Vectors.Len(), f0.Normals.Items[0].Vectors.Len())
	}
	f1 := frames.Items[1].(*scene.AnimFrameVertNrm)
	if f1.Vertices != nil || f1.Normals != nil {
		t.Errorf("frame 1 should be empty")
	}
	f2 := frames.Items[2].(*scene.AnimFrameVertNrm)
	if f2.Vertices.Items[0].Frame != 1 || f2.Vertices.Items[0].Vectors.Len() != 5 || f2.Normals != nil {
		t.Errorf("frame 2 = %+v", f2)
	}
}

func TestPosRotFrames(t *testing.T) {
	l := newLayout()
	l.object(0x1100, 0, 0, 0, 0)
	h := l.at(0x1800)
	l.U32(h, 0x1900).I32(h+4, 30).U16(h+8, 3)
	f := l.at(0x1900)
	l.U32(f, 0x1A00).U32(f+4, 0x1B00).I32(f+8, 2).I32(f+12, 1)
	l.I32(l.at(0x1A00), 0).Vec3(l.at(0x1A04), 1, 2, 3)
	l.I32(l.at(0x1A10), 29).Vec3(l.at(0x1A14), 4, 5, 6)
	l.I32(l.at(0x1B00), 0).I32(l.at(0x1B04), 0x100)

	m, err := l.reader().ReadAnimHead2(0x1800, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	pr := m.FrameData.Items[0].(*scene.AnimFramePosRot)
	if pr.Positions.Len() != 2 || pr.Positions.Items[1].Frame != 29 || pr.Positions.Items[1].Vector.Z != 6 {
		t.Errorf("positions = %+v", pr.Positions)
	}
	if pr.Rotations.Name != "r3ad_00001B00" || pr.Rotations.Items[0].Rotation.X != 0x100 {
		t.Errorf("rotations = %+v", pr.Rotations)
	}
}

func TestUnexpectedAnimFlags(t *testing.T) {
	l := newLayout()
	h := l.at(0x1000)
	l.U32(h, 0x1100).I32(h+4, 1).U16(h+8, 0x5)
	r := l.reader()

	_, err := r.ReadAnimHead2(0x1000, []int{1})
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Address != 0x1000 || !strings.Contains(fe.Error(), "Unexpected flags value in AnimHead2 @ 0x00001000: 0x0005") {
		t.Errorf("message = %q", fe.Error())
	}
	if r.KnownObject(0x1000) != nil {
		t.Errorf("failed decode left a cache entry")
	}
	// The sticky error does not leak into the next read.
	if _, err := r.ReadVector3Array(0x1000, 1); err != nil {
		t.Errorf("reader poisoned: %v", err)
	}
}

func TestOutOfRangePointer(t *testing.T) {
	l := newLayout()
	l.object(0x1000, 0, 0x9000, 0, 0)
	_, err := l.reader().ReadObject(0x1000)
	if !errors.Is(err, vmem.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestTypeMismatchRedecodes(t *testing.T) {
	l := newLayout()
	l.object(0x1000, 0, 0, 0, 0)
	r := l.reader()
	if _, err := r.ReadVector3Array(0x1000, 1); err != nil {
		t.Fatal(err)
	}
	o, err := r.ReadObject(0x1000)
	if err != nil || o == nil {
		t.Fatalf("ReadObject = %v, %v", o, err)
	}
	if _, ok := r.KnownObject(0x1000).(*scene.Object); !ok {
		t.Errorf("cache not replaced by the object")
	}
}

func TestPointerArrays(t *testing.T) {
	l := newLayout()
	l.object(0x1000, 0, 0, 0, 0)
	l.U32(l.at(0x1F00), 0x1000).U32(l.at(0x1F04), 0)
	l.U32(l.at(0x1F10), 0x1000)
	r := l.reader()

	objs, err := r.ReadObjectPointerArray(0x1F00, 2)
	if err != nil {
		t.Fatal(err)
	}
	if objs.Name != "OBJECTS_00001F00" || objs.Items[0] == nil || objs.Items[1] != nil {
		t.Errorf("objects = %+v", objs)
	}
	pts, err := r.ReadVector3ArrayPointerArray(0x1F10, []int{3})
	if err != nil {
		t.Fatal(err)
	}
	if pts.Name != "POINTS_00001F10" || pts.Items[0].Len() != 3 {
		t.Errorf("points = %+v", pts)
	}
	mats, err := r.ReadMaterialArrayPointerArray(0x1F10, []int{2})
	if err != nil {
		t.Fatal(err)
	}
	if mats.Name != "MATERIALS_00001F10" || mats.Items[0].Name != "mat_00001000" || mats.Items[0].Len() != 2 {
		t.Errorf("materials = %+v", mats)
	}
}

func TestOversizedCounts(t *testing.T) {
	l := newLayout()
	l.attach(0x1000, 0x1F00, 0, 0x7FFFFFFF, 0, 0, 0, 0)
	r := l.reader()

	if _, err := r.ReadAttach(0x1000); !errors.Is(err, vmem.ErrCrossesSection) {
		t.Errorf("vertex count: expected ErrCrossesSection, got %v", err)
	}
	if _, err := r.ReadVector3Array(0x1F00, 1<<30); !errors.Is(err, vmem.ErrCrossesSection) {
		t.Errorf("vector array: expected ErrCrossesSection, got %v", err)
	}
	if _, err := r.ReadVector3Array(0x9000, 1<<30); !errors.Is(err, vmem.ErrOutOfRange) {
		t.Errorf("unmapped array: expected ErrOutOfRange, got %v", err)
	}
}
