package project

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ItemTransform places an element relative to the part origin. Rotation is
// XYZ Euler angles in degrees, applied as Rz * Ry * Rx.
type ItemTransform struct {
	Position v3.Vec
	Rotation v3.Vec
}

// IsIdentity reports whether the transform has no translation or rotation.
func (t ItemTransform) IsIdentity() bool {
	return t == ItemTransform{}
}

// mat3 is a row-major rotation matrix.
type mat3 [3][3]float64

const epsilon = 1e-9

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

// axisAngleMatrix builds a rotation matrix with the Rodrigues formula.
func axisAngleMatrix(axis v3.Vec, angleDeg float64) mat3 {
	if axis.Length() < epsilon {
		return mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	a := axis.Normalize()
	th := rad(angleDeg)
	c, s := math.Cos(th), math.Sin(th)
	t := 1 - c
	return mat3{
		{t*a.X*a.X + c, t*a.X*a.Y - s*a.Z, t*a.X*a.Z + s*a.Y},
		{t*a.X*a.Y + s*a.Z, t*a.Y*a.Y + c, t*a.Y*a.Z - s*a.X},
		{t*a.X*a.Z - s*a.Y, t*a.Y*a.Z + s*a.X, t*a.Z*a.Z + c},
	}
}

func eulerMatrix(r v3.Vec) mat3 {
	cx, sx := math.Cos(rad(r.X)), math.Sin(rad(r.X))
	cy, sy := math.Cos(rad(r.Y)), math.Sin(rad(r.Y))
	cz, sz := math.Cos(rad(r.Z)), math.Sin(rad(r.Z))
	return mat3{
		{cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx},
		{sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx},
		{-sy, cy * sx, cy * cx},
	}
}

func (m mat3) euler() v3.Vec {
	sy := -m[2][0]
	if sy >= 1-epsilon || sy <= -1+epsilon {
		// Gimbal lock: fold the X rotation into Z.
		y := math.Copysign(math.Pi/2, sy)
		z := math.Atan2(-m[0][1], m[1][1])
		return cleanVec(v3.Vec{X: 0, Y: deg(y), Z: deg(z)})
	}
	return cleanVec(v3.Vec{
		X: deg(math.Atan2(m[2][1], m[2][2])),
		Y: deg(math.Asin(sy)),
		Z: deg(math.Atan2(m[1][0], m[0][0])),
	})
}

func (m mat3) axisAngle() (v3.Vec, float64) {
	tr := m[0][0] + m[1][1] + m[2][2]
	cos := math.Max(-1, math.Min(1, (tr-1)/2))
	th := math.Acos(cos)
	if th < epsilon {
		return v3.Vec{Y: 1}, 0
	}
	if math.Pi-th < 1e-6 {
		// 180 degrees: recover the axis from the diagonal.
		x := math.Sqrt(math.Max(0, (m[0][0]+1)/2))
		y := math.Sqrt(math.Max(0, (m[1][1]+1)/2))
		z := math.Sqrt(math.Max(0, (m[2][2]+1)/2))
		if m[0][1] < 0 {
			y = -y
		}
		if m[0][2] < 0 {
			z = -z
		}
		if x < epsilon && m[1][2] < 0 {
			z = -z
		}
		return cleanVec(v3.Vec{X: x, Y: y, Z: z}.Normalize()), 180
	}
	s := 2 * math.Sin(th)
	axis := v3.Vec{
		X: (m[2][1] - m[1][2]) / s,
		Y: (m[0][2] - m[2][0]) / s,
		Z: (m[1][0] - m[0][1]) / s,
	}
	return cleanVec(axis.Normalize()), deg(th)
}

// cleanVec rounds values within 1e-9 of an integer so that conversions of
// axis-aligned rotations serialize as whole numbers.
func cleanVec(v v3.Vec) v3.Vec {
	r := func(f float64) float64 {
		if n := math.Round(f); math.Abs(f-n) < 1e-9 {
			if n == 0 {
				return 0
			}
			return n
		}
		return f
	}
	return v3.Vec{X: r(v.X), Y: r(v.Y), Z: r(v.Z)}
}

// TransformFromAxisAngle converts an LDD angle/axis/translation triple.
func TransformFromAxisAngle(angleDeg float64, axis, translation v3.Vec) ItemTransform {
	return ItemTransform{
		Position: translation,
		Rotation: axisAngleMatrix(axis, angleDeg).euler(),
	}
}

// AxisAngle returns the rotation as an LDD angle (degrees) and unit axis.
func (t ItemTransform) AxisAngle() (angleDeg float64, axis v3.Vec) {
	axis, angleDeg = eulerMatrix(t.Rotation).axisAngle()
	return angleDeg, axis
}

// Apply rotates then translates p.
func (t ItemTransform) Apply(p v3.Vec) v3.Vec {
	m := eulerMatrix(t.Rotation)
	return v3.Vec{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + t.Position.X,
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + t.Position.Y,
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + t.Position.Z,
	}
}
