package mathutil

// Mat3 is row-major.
type Mat3 [9]float64

func Mat3Identity() Mat3 { return Mat3Diag(1, 1, 1) }

func Mat3Diag(x, y, z float64) Mat3 {
	return Mat3{0: x, 4: y, 8: z}
}

func (m Mat3) row(i int) Vec3 { return Vec3{m[i*3], m[i*3+1], m[i*3+2]} }
func (m Mat3) col(j int) Vec3 { return Vec3{m[j], m[3+j], m[6+j]} }

// Mat3Mul returns a·b, so b applies to a vector first.
func Mat3Mul(a, b Mat3) Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i*3+j] = a.row(i).Dot(b.col(j))
		}
	}
	return m
}

// Mat3Chain multiplies left to right; the last matrix applies first.
func Mat3Chain(ms ...Mat3) Mat3 {
	out := Mat3Identity()
	for _, m := range ms {
		out = Mat3Mul(out, m)
	}
	return out
}

func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{m.row(0).Dot(v), m.row(1).Dot(v), m.row(2).Dot(v)}
}
