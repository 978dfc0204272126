package tf

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Transform is a rigid-body transform: a child-frame point p maps to
// Rotation·p + Translation in the parent frame (rotation first, then
// translation). Rotation is a unit quaternion; translation is a plain
// 3-vector.
type Transform struct {
	Translation [3]float64
	Rotation    quat.Number
}

// Identity returns the identity transform: zero translation, identity
// rotation.
func Identity() Transform {
	return Transform{Rotation: quat.Number{Real: 1}}
}

func addQuat(a, b quat.Number) quat.Number {
	return quat.Number{
		Real: a.Real + b.Real,
		Imag: a.Imag + b.Imag,
		Jmag: a.Jmag + b.Jmag,
		Kmag: a.Kmag + b.Kmag,
	}
}

func negQuat(a quat.Number) quat.Number {
	return quat.Number{Real: -a.Real, Imag: -a.Imag, Jmag: -a.Jmag, Kmag: -a.Kmag}
}

func dotQuat(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

func normalizeQuat(a quat.Number) quat.Number {
	n := quat.Abs(a)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, a)
}

// rotate applies rotation q to vector v (v treated as a pure quaternion).
func rotate(q quat.Number, v [3]float64) [3]float64 {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return [3]float64{r.Imag, r.Jmag, r.Kmag}
}

// Compose returns the transform equivalent to applying b then a, i.e.
// a∘b: a point p is mapped by b first and the result by a.
func Compose(a, b Transform) Transform {
	rotated := rotate(a.Rotation, b.Translation)
	return Transform{
		Translation: [3]float64{
			a.Translation[0] + rotated[0],
			a.Translation[1] + rotated[1],
			a.Translation[2] + rotated[2],
		},
		Rotation: normalizeQuat(quat.Mul(a.Rotation, b.Rotation)),
	}
}

// Inverse returns the inverse of t, such that Compose(t, Inverse(t)) is
// the identity transform (up to floating point tolerance).
func Inverse(t Transform) Transform {
	inv := quat.Conj(normalizeQuat(t.Rotation))
	negTranslation := rotate(inv, [3]float64{-t.Translation[0], -t.Translation[1], -t.Translation[2]})
	return Transform{Translation: negTranslation, Rotation: inv}
}

// lerp linearly interpolates translations at parameter alpha in [0,1].
func lerp(a, b [3]float64, alpha float64) [3]float64 {
	return [3]float64{
		a[0] + (b[0]-a[0])*alpha,
		a[1] + (b[1]-a[1])*alpha,
		a[2] + (b[2]-a[2])*alpha,
	}
}

// slerp performs shortest-arc spherical linear interpolation between two
// unit quaternions. The result is normalized.
func slerp(a, b quat.Number, alpha float64) quat.Number {
	a = normalizeQuat(a)
	b = normalizeQuat(b)

	cosTheta := dotQuat(a, b)
	if cosTheta < 0 {
		b = negQuat(b)
		cosTheta = -cosTheta
	}

	// Nearly-parallel quaternions: fall back to linear interpolation to
	// avoid division by a near-zero sine term.
	const closeThreshold = 0.9995
	if cosTheta > closeThreshold {
		result := addQuat(a, quat.Scale(alpha, addQuat(b, negQuat(a))))
		return normalizeQuat(result)
	}

	theta0 := math.Acos(cosTheta)
	theta := theta0 * alpha
	sinTheta0 := math.Sin(theta0)
	sinTheta := math.Sin(theta)

	s0 := math.Cos(theta) - cosTheta*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return normalizeQuat(addQuat(quat.Scale(s0, a), quat.Scale(s1, b)))
}

// InterpolateTransform linearly interpolates translation and SLERPs
// rotation between a (at alpha=0) and b (at alpha=1).
func InterpolateTransform(a, b Transform, alpha float64) Transform {
	return Transform{
		Translation: lerp(a.Translation, b.Translation, alpha),
		Rotation:    slerp(a.Rotation, b.Rotation, alpha),
	}
}
