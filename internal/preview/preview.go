// Package preview draws decoded models with a small software rasterizer so
// a decompiled export can be checked by eye.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"sadx-decompiler/internal/mathutil"
	"sadx-decompiler/internal/postprocess"
	"sadx-decompiler/internal/raster"
	"sadx-decompiler/internal/scene"
)

// Options controls the camera and output size.
type Options struct {
	Size        int     // output width and height in pixels
	Supersample int     // render at Size*Supersample, then downsample
	Yaw         float64 // degrees around the vertical axis
	Pitch       float64 // degrees, positive looks down on the model
}

// DefaultOptions returns a three-quarter view.
func DefaultOptions() Options {
	return Options{Size: 256, Supersample: 2, Yaw: 30, Pitch: 20}
}

var defaultColor = color.NRGBA{R: 170, G: 170, B: 180, A: 255}

// worldTri is one triangle in model space with its corner colors.
type worldTri struct {
	p [3]mathutil.Vec3
	c [3]color.NRGBA
}

// RenderObject draws the hierarchy rooted at root.
func RenderObject(root *scene.Object, opts Options) *image.NRGBA {
	var tris []worldTri
	world := make(map[*scene.Object]mathutil.Affine)
	hidden := make(map[*scene.Object]bool)
	scene.Walk(root, func(o, parent *scene.Object) {
		m := mathutil.AffineIdentity()
		if parent != nil {
			m = world[parent]
			if parent.Flags&scene.ObjectNoChildren != 0 || hidden[parent] {
				hidden[o] = true
			}
		}
		m = m.Then(LocalMatrix(o))
		world[o] = m
		if !hidden[o] && o.Flags&scene.ObjectNoDraw == 0 {
			tris = appendAttach(tris, o.Attach, m)
		}
	})
	return render(tris, opts)
}

// RenderAttach draws a single model at the origin.
func RenderAttach(a *scene.Attach, opts Options) *image.NRGBA {
	return render(appendAttach(nil, a, mathutil.AffineIdentity()), opts)
}

// LocalMatrix returns the node transform: scale, then rotation, then
// translation. Rotation applies Z, Y, X in turn, or Z, X, Y for nodes
// flagged ObjectUseZYXRotation.
func LocalMatrix(o *scene.Object) mathutil.Affine {
	lin := mathutil.Mat3Identity()
	if o.Flags&scene.ObjectNoRotate == 0 {
		rx := mathutil.RotX(mathutil.BAMSToRad(o.Rotation.X))
		ry := mathutil.RotY(mathutil.BAMSToRad(o.Rotation.Y))
		rz := mathutil.RotZ(mathutil.BAMSToRad(o.Rotation.Z))
		if o.Flags&scene.ObjectUseZYXRotation != 0 {
			lin = mathutil.Mat3Chain(ry, rx, rz)
		} else {
			lin = mathutil.Mat3Chain(rx, ry, rz)
		}
	}
	if o.Flags&scene.ObjectNoScale == 0 {
		lin = mathutil.Mat3Mul(lin, mathutil.Mat3Diag(float64(o.Scale.X), float64(o.Scale.Y), float64(o.Scale.Z)))
	}
	m := mathutil.Affine{Linear: lin}
	if o.Flags&scene.ObjectNoTranslate == 0 {
		m.Translate = mathutil.V3(o.Position.X, o.Position.Y, o.Position.Z)
	}
	return m
}

func appendAttach(out []worldTri, a *scene.Attach, m mathutil.Affine) []worldTri {
	if a == nil || a.Vertices == nil || a.Meshes == nil {
		return out
	}
	verts := a.Vertices.Items
	for _, mesh := range a.Meshes.Items {
		if mesh.Polys == nil {
			continue
		}
		c := meshColor(a, mesh)
		for _, tri := range scene.Triangles(mesh.Polys.Items) {
			var wt worldTri
			ok := true
			for k, idx := range tri {
				if int(idx) >= len(verts) {
					ok = false
					break
				}
				v := verts[idx]
				wt.p[k] = m.Apply(mathutil.V3(v.X, v.Y, v.Z))
				wt.c[k] = c
			}
			if ok {
				out = append(out, wt)
			}
		}
	}
	return out
}

// meshColor returns the diffuse color of the mesh's material. MATERIAL
// colors are stored as ARGB.
func meshColor(a *scene.Attach, mesh scene.Mesh) color.NRGBA {
	id := int(mesh.MaterialID())
	if a.Materials == nil || id >= a.Materials.Len() {
		return defaultColor
	}
	argb := a.Materials.Items[id].DiffuseColor
	c := color.NRGBA{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}
	if c.A == 0 {
		c.A = 255
	}
	return c
}

func render(tris []worldTri, opts Options) *image.NRGBA {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	renderSize := opts.Size * opts.Supersample
	fb := raster.NewFrameBuffer(renderSize, renderSize)
	if len(tris) == 0 {
		return postprocess.Downsample(fb.Image(), opts.Size, opts.Size)
	}

	view := mathutil.Mat3Mul(
		mathutil.RotX(mathutil.Deg2Rad(opts.Pitch)),
		mathutil.RotY(mathutil.Deg2Rad(-opts.Yaw)),
	)

	// Fit the view-space bounding box into the frame.
	lo := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := range tris {
		for k := range tris[i].p {
			p := view.MulVec3(tris[i].p[k])
			tris[i].p[k] = p
			lo, hi = lo.Min(p), hi.Max(p)
		}
	}
	center := lo.Add(hi).Scale(0.5)
	span := math.Max(hi[0]-lo[0], hi[1]-lo[1])
	if span < 0.001 {
		span = 0.001
	}
	margin := float64(8 * opts.Supersample)
	scale := (float64(renderSize) - 2*margin) / span
	half := float64(renderSize) / 2

	lc := raster.DefaultLightConfig()
	for _, t := range tris {
		n := t.p[1].Sub(t.p[0]).Cross(t.p[2].Sub(t.p[0])).Normalize()
		if n == (mathutil.Vec3{}) {
			continue
		}
		var v [3]raster.Vertex
		for k, p := range t.p {
			v[k] = raster.Vertex{
				X:     half + (p[0]-center[0])*scale,
				Y:     half - (p[1]-center[1])*scale,
				Z:     p[2],
				Color: t.c[k],
			}
		}
		raster.RasterizeTriangle(fb, v, lc.ComputeShade(n), &lc)
	}
	return postprocess.Downsample(fb.Image(), opts.Size, opts.Size)
}

// Encode writes img as "webp" or "tga".
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("preview: webp encode: %w", err)
		}
	case "tga":
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("preview: tga encode: %w", err)
		}
	default:
		return fmt.Errorf("preview: unknown format %q", format)
	}
	return nil
}
