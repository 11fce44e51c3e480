package mathutil

// Affine is a linear map followed by a translation, the shape of every
// node transform in a model hierarchy.
type Affine struct {
	Linear    Mat3
	Translate Vec3
}

func AffineIdentity() Affine {
	return Affine{Linear: Mat3Identity()}
}

// Then returns the transform that applies child first and a second, which
// is how a parent's world transform combines with a child's local one.
func (a Affine) Then(child Affine) Affine {
	return Affine{
		Linear:    Mat3Mul(a.Linear, child.Linear),
		Translate: a.Apply(child.Translate),
	}
}

// Apply transforms a point.
func (a Affine) Apply(p Vec3) Vec3 {
	return a.Linear.MulVec3(p).Add(a.Translate)
}
