package mathutil

import "math"

// planeRotation rotates by a radians in the plane of axes i and j, turning
// axis i towards axis j.
func planeRotation(a float64, i, j int) Mat3 {
	m := Mat3Identity()
	c, s := math.Cos(a), math.Sin(a)
	m[i*3+i], m[i*3+j] = c, -s
	m[j*3+i], m[j*3+j] = s, c
	return m
}

func RotX(a float64) Mat3 { return planeRotation(a, 1, 2) }
func RotY(a float64) Mat3 { return planeRotation(a, 2, 0) }
func RotZ(a float64) Mat3 { return planeRotation(a, 0, 1) }

func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// BAMSToRad converts a binary angle, where 0x10000 is a full turn, to
// radians.
func BAMSToRad(v int32) float64 {
	return float64(v) * math.Pi / 0x8000
}
