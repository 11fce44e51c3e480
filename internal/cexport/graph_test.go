package cexport

import (
	"errors"
	"strings"
	"testing"

	"sadx-decompiler/internal/scene"
)

func TestModelListSharedAttach(t *testing.T) {
	a := &scene.Attach{
		Name:     "attach_00001100",
		Vertices: scene.NewCollection("vec3_00001200", make([]scene.Vector3, 2)),
	}
	list := scene.NewCollection("MODELS_1", []*scene.Attach{a, a, nil})

	got, err := ExportModelListTree(list, NewTracker(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(got, "struct ATTACH attach_00001100 =\n"); n != 1 {
		t.Errorf("attach defined %d times", n)
	}
	if n := strings.Count(got, "extern struct ATTACH attach_00001100;\n"); n != 1 {
		t.Errorf("attach declared extern %d times", n)
	}
	if n := strings.Count(got, "struct Vector3 vec3_00001200[] ="); n != 1 {
		t.Errorf("vertices defined %d times", n)
	}
	wantList := "__declspec(dllexport) struct ATTACH *MODELS_1[] =\n{\n    &attach_00001100,\n    &attach_00001100,\n    NULL\n};\n"
	if !strings.HasSuffix(got, wantList) {
		t.Errorf("got\n%s", got)
	}
}

func TestObjectTreeOrderAndCycles(t *testing.T) {
	shared := &scene.Attach{Name: "attach_1"}
	leaf := &scene.Object{Name: "obj_leaf", Attach: shared}
	root := &scene.Object{Name: "obj_root", Attach: shared, Child: leaf}
	leaf.Sibling = root

	got, err := ExportObjectTree(root, NewTracker(), MaterialCounts{shared: 4})
	if err != nil {
		t.Fatal(err)
	}
	iAttach := strings.Index(got, "struct ATTACH attach_1 =")
	iLeaf := strings.Index(got, "struct OBJECT obj_leaf =")
	iRoot := strings.Index(got, "struct OBJECT obj_root =")
	if iAttach < 0 || iLeaf < iAttach || iRoot < iLeaf {
		t.Errorf("definitions out of order:\n%s", got)
	}
	if !strings.Contains(got, "extern struct OBJECT obj_root;\n") {
		t.Errorf("cycle back-reference not declared:\n%s", got)
	}
	if !strings.Contains(got, "    4,\n") {
		t.Errorf("material count override missing:\n%s", got)
	}
}

func TestAttachTreeMeshArrays(t *testing.T) {
	polys := scene.NewCollection[scene.Poly]("strips_1", []scene.Poly{&scene.Strip{V: []uint16{0, 1, 2}}})
	uv := scene.NewCollection("uv_1", []scene.UV{{U: 1}, {V: 2}, {}})
	meshes := scene.NewCollection("mesh_1", []scene.Mesh{
		{MaterialIDAndPolyType: 0x8000, Polys: polys, UV: uv},
		{MaterialIDAndPolyType: 0x8000, Polys: polys, UV: uv},
	})
	mats := scene.NewCollection("mat_1", []scene.Material{{}})
	a := &scene.Attach{Name: "attach_1", Meshes: meshes, Materials: mats}

	tr := NewTracker()
	got, err := ExportAttachTree(a, tr, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"static short unsigned int strips_1[] =",
		"extern short unsigned int strips_1[4];",
		"static struct UV uv_1[] =",
		"extern struct UV uv_1[3];",
		"static struct MESH mesh_1[] =",
		"\nstruct MATERIAL mat_1[] =",
		"    ARRAYSIZE(mesh_1),\n    ARRAYSIZE(mat_1),\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}

	again, err := ExportAttachTree(a, tr, nil)
	if err != nil || again != "extern struct ATTACH attach_1;\n" {
		t.Errorf("second export = %q, %v", again, err)
	}
}

func TestActionTree(t *testing.T) {
	model := &scene.Object{Name: "obj_1"}
	keys := scene.NewCollection("r3ad_1", []scene.Rotation3AnimData{{Frame: 0, Rotation: scene.Rotation3{X: 1}}})
	motion := &scene.AnimHead2{
		Name:      "ah2_1",
		FrameData: scene.NewCollection[scene.AnimFrame]("afpr_1", []scene.AnimFrame{&scene.AnimFramePosRot{Rotations: keys}}),
		Flags:     3,
	}
	list := scene.NewCollection("ACTIONS_1", []*scene.AnimHead{{Name: "ah_1", Model: model, Motion: motion}})

	got, err := ExportActionListTree(list, NewTracker(), nil)
	if err != nil {
		t.Fatal(err)
	}
	order := []string{
		"struct OBJECT obj_1 =",
		"static struct Rotation3AnimData r3ad_1[] =",
		"static struct AnimFrame_PosRot afpr_1[] =",
		"struct AnimHead2 ah2_1 =",
		"struct AnimHead ah_1 = { &obj_1, &ah2_1 };",
		"__declspec(dllexport) struct AnimHead *ACTIONS_1[] =",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(got, s)
		if i <= last {
			t.Fatalf("%q missing or out of order in\n%s", s, got)
		}
		last = i
	}
}

func TestPointAndMaterialLists(t *testing.T) {
	pts := scene.NewCollection("POINTS_1", []*scene.Collection[scene.Vector3]{
		scene.NewCollection("vec3_1", []scene.Vector3{{}}),
	})
	got, err := ExportPointListTree(pts, NewTracker())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "__declspec(dllexport) struct Vector3 *POINTS_1[] =\n{\n    vec3_1\n};\n") {
		t.Errorf("got\n%s", got)
	}

	mats := scene.NewCollection("MATERIALS_1", []*scene.Collection[scene.Material]{nil})
	got, err = ExportMaterialList(mats)
	if err != nil {
		t.Fatal(err)
	}
	if got != "__declspec(dllexport) struct MATERIAL *MATERIALS_1[] =\n{\n    NULL\n};\n" {
		t.Errorf("got %q", got)
	}
}

func TestAttachUnitSharesVertices(t *testing.T) {
	verts := scene.NewCollection("vec3_1", make([]scene.Vector3, 3))
	polys := scene.NewCollection[scene.Poly]("tris_1", []scene.Poly{&scene.Triangle{V: [3]uint16{0, 1, 2}}})
	meshes := scene.NewCollection("mesh_1", []scene.Mesh{{Polys: polys}})
	a := &scene.Attach{Name: "attach_1", Vertices: verts, Normals: verts, Meshes: meshes}
	b := &scene.Attach{Name: "attach_2", Vertices: verts, Meshes: meshes}

	tr := NewTracker()
	first, err := ExportAttachUnit(a, tr, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ExportAttachUnit(b, tr, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(first, "struct Vector3 vec3_1[] =") {
		t.Errorf("first unit does not define the vertices:\n%s", first)
	}
	if !strings.Contains(first, "extern struct Vector3 vec3_1[3];\n") {
		t.Errorf("aliased normals not declared extern:\n%s", first)
	}
	if !strings.HasPrefix(second, "extern struct Vector3 vec3_1[3];\n") {
		t.Errorf("second unit does not declare the vertices:\n%s", second)
	}
	for _, unit := range []string{first, second} {
		if !strings.Contains(unit, "static short unsigned int tris_1[] =") || !strings.Contains(unit, "static struct MESH mesh_1[] =") {
			t.Errorf("mesh data not private to the unit:\n%s", unit)
		}
	}
	if tr.Len() != 1 {
		t.Errorf("tracker holds %d entities, want only the vertex array", tr.Len())
	}
}

func TestMotionUnitSharesKeys(t *testing.T) {
	rot := scene.NewCollection("r3ad_1", []scene.Rotation3AnimData{{Frame: 0, Rotation: scene.Rotation3{X: 1}}})
	snap := scene.NewCollection("vec3_1", []scene.Vector3{{X: 1}, {Y: 1}})
	verts := scene.NewCollection("v3aad_1", []scene.Vector3ArrayAnimData{{Frame: 0, Vectors: snap}})
	pr := &scene.AnimHead2{
		Name:      "ah2_1",
		FrameData: scene.NewCollection[scene.AnimFrame]("afpr_1", []scene.AnimFrame{&scene.AnimFramePosRot{Rotations: rot}}),
	}
	pr2 := &scene.AnimHead2{
		Name:      "ah2_2",
		FrameData: scene.NewCollection[scene.AnimFrame]("afpr_2", []scene.AnimFrame{&scene.AnimFramePosRot{Rotations: rot}}),
	}
	vn := &scene.AnimHead2{
		Name:      "ah2_3",
		FrameData: scene.NewCollection[scene.AnimFrame]("afvn_3", []scene.AnimFrame{&scene.AnimFrameVertNrm{Vertices: verts}}),
	}

	tr := NewTracker()
	tr.AddVectors(snap)
	var units []string
	for _, m := range []*scene.AnimHead2{pr, pr2, vn} {
		s, err := ExportMotionUnit(m, tr)
		if err != nil {
			t.Fatal(err)
		}
		units = append(units, s)
	}

	tests := []struct {
		unit int
		want []string
	}{
		{0, []string{
			"struct Rotation3AnimData r3ad_1[] =",
			"static struct AnimFrame_PosRot afpr_1[] =",
			"struct AnimHead2 ah2_1 =",
		}},
		{1, []string{
			"extern struct Rotation3AnimData r3ad_1[1];\n",
			"static struct AnimFrame_PosRot afpr_2[] =",
			"struct AnimHead2 ah2_2 =",
		}},
		{2, []string{
			"extern struct Vector3 vec3_1[2];\n",
			"struct Vector3ArrayAnimData v3aad_1[] =",
			"static struct AnimFrame_VertNrm afvn_3[] =",
		}},
	}
	for _, tt := range tests {
		last := -1
		for _, s := range tt.want {
			i := strings.Index(units[tt.unit], s)
			if i <= last {
				t.Fatalf("unit %d: %q missing or out of order in\n%s", tt.unit, s, units[tt.unit])
			}
			last = i
		}
	}
	if strings.Contains(units[0], "static struct Rotation3AnimData") || strings.Contains(units[2], "static struct Vector3ArrayAnimData") {
		t.Error("shared key arrays defined static")
	}
	if strings.Contains(units[1], "r3ad_1[] =") {
		t.Error("shared key array defined twice")
	}
	if _, err := ExportMotionUnit(nil, tr); !errors.Is(err, ErrNilCollection) {
		t.Errorf("nil motion: %v", err)
	}
}
