package decode

import (
	"fmt"

	"sadx-decompiler/internal/scene"
)

func result[T any](r *Reader, v T) (T, error) {
	if err := r.take(); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// ReadObject decodes the OBJECT at addr and everything it references.
func (r *Reader) ReadObject(addr uint32) (*scene.Object, error) {
	return result(r, r.object(addr))
}

// ReadAttach decodes the ATTACH at addr.
func (r *Reader) ReadAttach(addr uint32) (*scene.Attach, error) {
	return result(r, r.attach(addr))
}

// ReadAnimHead decodes an action: a model and the motion animating it.
func (r *Reader) ReadAnimHead(addr uint32) (*scene.AnimHead, error) {
	return result(r, r.animHead(addr))
}

// ReadAnimHead2 decodes a motion. vertexCounts holds one entry per animated
// node of the model it targets, as returned by scene.CountVertices.
func (r *Reader) ReadAnimHead2(addr uint32, vertexCounts []int) (*scene.AnimHead2, error) {
	return result(r, r.animHead2(addr, vertexCounts))
}

// ReadMaterialArray decodes n MATERIAL records at addr.
func (r *Reader) ReadMaterialArray(addr uint32, n int) (*scene.Collection[scene.Material], error) {
	return result(r, r.materials(addr, n))
}

// ReadVector3Array decodes n Vector3 values at addr.
func (r *Reader) ReadVector3Array(addr uint32, n int) (*scene.Collection[scene.Vector3], error) {
	return result(r, r.vector3s(addr, n))
}

// ReadObjectPointerArray decodes n OBJECT pointers at addr.
func (r *Reader) ReadObjectPointerArray(addr uint32, n int) (*scene.Collection[*scene.Object], error) {
	return result(r, pointerArray(r, addr, n, "OBJECTS_", func(_ int, p uint32) *scene.Object {
		return r.object(p)
	}))
}

// ReadAttachPointerArray decodes n ATTACH pointers at addr.
func (r *Reader) ReadAttachPointerArray(addr uint32, n int) (*scene.Collection[*scene.Attach], error) {
	return result(r, pointerArray(r, addr, n, "MODELS_", func(_ int, p uint32) *scene.Attach {
		return r.attach(p)
	}))
}

// ReadAnimHeadPointerArray decodes n action pointers at addr.
func (r *Reader) ReadAnimHeadPointerArray(addr uint32, n int) (*scene.Collection[*scene.AnimHead], error) {
	return result(r, pointerArray(r, addr, n, "ACTIONS_", func(_ int, p uint32) *scene.AnimHead {
		return r.animHead(p)
	}))
}

// ReadAnimHead2PointerArray decodes one motion pointer per entry of
// vertexCounts, each sized by its own entry.
func (r *Reader) ReadAnimHead2PointerArray(addr uint32, vertexCounts [][]int) (*scene.Collection[*scene.AnimHead2], error) {
	return result(r, pointerArray(r, addr, len(vertexCounts), "MOTIONS_", func(i int, p uint32) *scene.AnimHead2 {
		return r.animHead2(p, vertexCounts[i])
	}))
}

// ReadMaterialArrayPointerArray decodes one material-array pointer per
// entry of counts.
func (r *Reader) ReadMaterialArrayPointerArray(addr uint32, counts []int) (*scene.Collection[*scene.Collection[scene.Material]], error) {
	return result(r, pointerArray(r, addr, len(counts), "MATERIALS_", func(i int, p uint32) *scene.Collection[scene.Material] {
		return r.materials(p, counts[i])
	}))
}

// ReadVector3ArrayPointerArray decodes one Vector3-array pointer per entry
// of counts.
func (r *Reader) ReadVector3ArrayPointerArray(addr uint32, counts []int) (*scene.Collection[*scene.Collection[scene.Vector3]], error) {
	return result(r, pointerArray(r, addr, len(counts), "POINTS_", func(i int, p uint32) *scene.Collection[scene.Vector3] {
		return r.vector3s(p, counts[i])
	}))
}

func (r *Reader) object(addr uint32) *scene.Object {
	return extract(r, addr,
		func() *scene.Object { return &scene.Object{Name: defaultName("obj_", addr)} },
		func(o *scene.Object) {
			o.Flags = r.u32()
			o.Attach = r.attach(r.u32())
			o.Position = r.vector3()
			o.Rotation = r.rotation3()
			o.Scale = r.vector3()
			o.Child = r.object(r.u32())
			o.Sibling = r.object(r.u32())
		})
}

func (r *Reader) attach(addr uint32) *scene.Attach {
	return extract(r, addr,
		func() *scene.Attach { return &scene.Attach{Name: defaultName("attach_", addr)} },
		func(a *scene.Attach) {
			vertPtr := r.u32()
			nrmPtr := r.u32()
			n := r.count(r.i32(), "vertex")
			a.Vertices = r.vector3s(vertPtr, n)
			a.Normals = r.vector3s(nrmPtr, n)

			meshPtr := r.u32()
			matPtr := r.u32()
			meshCount := int(r.u16())
			matCount := int(r.u16())
			a.Meshes = r.meshes(meshPtr, meshCount)
			a.Materials = r.materials(matPtr, matCount)

			a.Center = r.vector3()
			a.Radius = r.f32()
			a.Null = r.i32()
		})
}

func (r *Reader) vector3s(addr uint32, n int) *scene.Collection[scene.Vector3] {
	return array(r, addr, n, "vec3_", func(int) scene.Vector3 { return r.vector3() })
}

func (r *Reader) materials(addr uint32, n int) *scene.Collection[scene.Material] {
	return array(r, addr, n, "mat_", func(int) scene.Material {
		var m scene.Material
		m.DiffuseColor = r.u32()
		m.SpecularColor = r.u32()
		m.Unknown08 = r.f32()
		m.TextureID = r.u32()
		m.Unknown10 = r.u16()
		m.Flags = r.u8()
		m.Unknown13 = r.u8()
		return m
	})
}

func (r *Reader) meshes(addr uint32, n int) *scene.Collection[scene.Mesh] {
	return array(r, addr, n, "mesh_", func(int) scene.Mesh {
		var m scene.Mesh
		m.MaterialIDAndPolyType = r.u16()
		polyCount := int(r.u16())
		m.Polys = r.polys(r.u32(), polyCount, m.PolyType())

		vertexCount := 0
		if m.Polys != nil {
			vertexCount = scene.VertexCount(m.Polys.Items)
		}
		m.PolyAttributes = r.i32()
		m.PolyNormals = r.polyNormals(r.u32(), vertexCount)
		m.VertexColors = r.colors(r.u32(), vertexCount)
		m.UV = r.uvs(r.u32(), vertexCount)
		m.Null = r.i32()
		return m
	})
}

func polyPrefix(t scene.PolyType) string {
	switch t {
	case scene.PolyTriangles:
		return "tris_"
	case scene.PolyQuads:
		return "quads_"
	}
	return "strips_"
}

func (r *Reader) polys(addr uint32, n int, t scene.PolyType) *scene.Collection[scene.Poly] {
	return array(r, addr, n, polyPrefix(t), func(int) scene.Poly {
		switch t {
		case scene.PolyTriangles:
			p := &scene.Triangle{}
			for i := range p.V {
				p.V[i] = r.u16()
			}
			return p
		case scene.PolyQuads:
			p := &scene.Quad{}
			for i := range p.V {
				p.V[i] = r.u16()
			}
			return p
		}
		count, reversed := scene.SplitStripHeader(r.u16())
		p := &scene.Strip{Reversed: reversed, V: make([]uint16, count)}
		for i := range p.V {
			p.V[i] = r.u16()
		}
		return p
	})
}

func (r *Reader) polyNormals(addr uint32, n int) *scene.Collection[scene.PolyNormal] {
	return array(r, addr, n, "pn_", func(int) scene.PolyNormal {
		a := r.f32()
		b := r.f32()
		return scene.PolyNormal{Unknown00: a, Unknown04: b}
	})
}

func (r *Reader) colors(addr uint32, n int) *scene.Collection[uint32] {
	return array(r, addr, n, "colors_", func(int) uint32 { return r.u32() })
}

func (r *Reader) uvs(addr uint32, n int) *scene.Collection[scene.UV] {
	return array(r, addr, n, "uv_", func(int) scene.UV {
		u := r.i16()
		v := r.i16()
		return scene.UV{U: u, V: v}
	})
}

func (r *Reader) animHead(addr uint32) *scene.AnimHead {
	return extract(r, addr,
		func() *scene.AnimHead { return &scene.AnimHead{Name: defaultName("ah_", addr)} },
		func(a *scene.AnimHead) {
			a.Model = r.object(r.u32())
			motionPtr := r.u32()
			if r.err != nil {
				return
			}
			a.Motion = r.animHead2(motionPtr, scene.CountVertices(a.Model))
		})
}

func (r *Reader) animHead2(addr uint32, vertexCounts []int) *scene.AnimHead2 {
	return extract(r, addr,
		func() *scene.AnimHead2 { return &scene.AnimHead2{Name: defaultName("ah2_", addr)} },
		func(m *scene.AnimHead2) {
			framePtr := r.u32()
			m.FrameCount = r.i32()
			m.Flags = r.u16()
			m.Unknown0A = r.u16()
			if r.err != nil {
				return
			}
			switch m.Flags {
			case scene.AnimFlagsPosRot:
				m.FrameData = r.posRotFrames(framePtr, vertexCounts)
			case scene.AnimFlagsPosRotScale:
				m.FrameData = r.posRotScaleFrames(framePtr, vertexCounts)
			case scene.AnimFlagsVertNrm:
				m.FrameData = r.vertNrmFrames(framePtr, vertexCounts)
			default:
				r.fail(&FormatError{
					Address: addr,
					Msg:     fmt.Sprintf("Unexpected flags value in AnimHead2 @ 0x%08X: 0x%04X", addr, m.Flags),
				})
			}
		})
}

func (r *Reader) posRotFrames(addr uint32, vertexCounts []int) *scene.Collection[scene.AnimFrame] {
	return array(r, addr, len(vertexCounts), "afpr_", func(int) scene.AnimFrame {
		posPtr := r.u32()
		rotPtr := r.u32()
		posCount := r.count(r.i32(), "position key")
		rotCount := r.count(r.i32(), "rotation key")
		return &scene.AnimFramePosRot{
			Positions: r.vector3Keys(posPtr, posCount),
			Rotations: r.rotation3Keys(rotPtr, rotCount),
		}
	})
}

func (r *Reader) posRotScaleFrames(addr uint32, vertexCounts []int) *scene.Collection[scene.AnimFrame] {
	return array(r, addr, len(vertexCounts), "afprs_", func(int) scene.AnimFrame {
		posPtr := r.u32()
		rotPtr := r.u32()
		sclPtr := r.u32()
		posCount := r.count(r.i32(), "position key")
		rotCount := r.count(r.i32(), "rotation key")
		sclCount := r.count(r.i32(), "scale key")
		return &scene.AnimFramePosRotScale{
			Positions: r.vector3Keys(posPtr, posCount),
			Rotations: r.rotation3Keys(rotPtr, rotCount),
			Scales:    r.vector3Keys(sclPtr, sclCount),
		}
	})
}

// vertNrmFrames sizes both the vertex and the normal snapshots of node i
// by vertexCounts[i].
func (r *Reader) vertNrmFrames(addr uint32, vertexCounts []int) *scene.Collection[scene.AnimFrame] {
	return array(r, addr, len(vertexCounts), "afvn_", func(i int) scene.AnimFrame {
		vertPtr := r.u32()
		nrmPtr := r.u32()
		vertKeys := r.count(r.i32(), "vertex key")
		nrmKeys := r.count(r.i32(), "normal key")
		return &scene.AnimFrameVertNrm{
			Vertices: r.vector3ArrayKeys(vertPtr, vertKeys, vertexCounts[i]),
			Normals:  r.vector3ArrayKeys(nrmPtr, nrmKeys, vertexCounts[i]),
		}
	})
}

func (r *Reader) vector3Keys(addr uint32, n int) *scene.Collection[scene.Vector3AnimData] {
	return array(r, addr, n, "v3ad_", func(int) scene.Vector3AnimData {
		frame := r.i32()
		return scene.Vector3AnimData{Frame: frame, Vector: r.vector3()}
	})
}

func (r *Reader) rotation3Keys(addr uint32, n int) *scene.Collection[scene.Rotation3AnimData] {
	return array(r, addr, n, "r3ad_", func(int) scene.Rotation3AnimData {
		frame := r.i32()
		return scene.Rotation3AnimData{Frame: frame, Rotation: r.rotation3()}
	})
}

func (r *Reader) vector3ArrayKeys(addr uint32, n, vectors int) *scene.Collection[scene.Vector3ArrayAnimData] {
	return array(r, addr, n, "v3aad_", func(int) scene.Vector3ArrayAnimData {
		frame := r.i32()
		return scene.Vector3ArrayAnimData{Frame: frame, Vectors: r.vector3s(r.u32(), vectors)}
	})
}
