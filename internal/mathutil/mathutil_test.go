package mathutil

import (
	"math"
	"testing"
)

func near(a, b Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestBAMSToRad(t *testing.T) {
	for v, want := range map[int32]float64{
		0:       0,
		0x4000:  math.Pi / 2,
		0x8000:  math.Pi,
		-0x4000: -math.Pi / 2,
		0x10000: 2 * math.Pi,
	} {
		if got := BAMSToRad(v); math.Abs(got-want) > 1e-12 {
			t.Errorf("BAMSToRad(0x%X) = %v, want %v", v, got, want)
		}
	}
}

func TestRotations(t *testing.T) {
	x := Vec3{1, 0, 0}
	if got := RotZ(math.Pi / 2).MulVec3(x); !near(got, Vec3{0, 1, 0}) {
		t.Errorf("RotZ(90°)·x = %v", got)
	}
	if got := RotY(math.Pi / 2).MulVec3(x); !near(got, Vec3{0, 0, -1}) {
		t.Errorf("RotY(90°)·x = %v", got)
	}
	if got := RotX(math.Pi / 2).MulVec3(Vec3{0, 1, 0}); !near(got, Vec3{0, 0, 1}) {
		t.Errorf("RotX(90°)·y = %v", got)
	}
}

func TestMat3ChainOrder(t *testing.T) {
	// Scale applies first, then the rotation.
	m := Mat3Chain(RotZ(math.Pi/2), Mat3Diag(2, 1, 1))
	if got := m.MulVec3(Vec3{1, 0, 0}); !near(got, Vec3{0, 2, 0}) {
		t.Errorf("got %v", got)
	}
	if Mat3Chain() != Mat3Identity() {
		t.Error("empty chain is not the identity")
	}
}

func TestAffineThen(t *testing.T) {
	parent := Affine{Linear: RotZ(math.Pi / 2), Translate: Vec3{10, 0, 0}}
	child := Affine{Linear: Mat3Diag(2, 2, 2), Translate: Vec3{1, 0, 0}}
	world := parent.Then(child)
	if got := world.Apply(Vec3{}); !near(got, Vec3{10, 1, 0}) {
		t.Errorf("child origin = %v", got)
	}
	if got := world.Apply(Vec3{1, 0, 0}); !near(got, Vec3{10, 3, 0}) {
		t.Errorf("child x = %v", got)
	}
	if AffineIdentity().Then(world) != world {
		t.Error("identity changed the transform")
	}
}

func TestVec3(t *testing.T) {
	a, b := Vec3{1, 5, -2}, Vec3{3, -1, 0}
	if a.Min(b) != (Vec3{1, -1, -2}) || a.Max(b) != (Vec3{3, 5, 0}) {
		t.Errorf("min/max = %v %v", a.Min(b), a.Max(b))
	}
	if got := (Vec3{1, 0, 0}).Cross(Vec3{0, 1, 0}); got != (Vec3{0, 0, 1}) {
		t.Errorf("cross = %v", got)
	}
	if got := (Vec3{3, 0, 4}).Normalize(); !near(got, Vec3{0.6, 0, 0.8}) {
		t.Errorf("normalize = %v", got)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector normalized to non-zero")
	}
	if got := (Vec3{1, -2, 3}).Scale(2); got != (Vec3{2, -4, 6}) {
		t.Errorf("scale = %v", got)
	}
	if V3(1, 2, 3) != (Vec3{1, 2, 3}) {
		t.Error("V3")
	}
}
