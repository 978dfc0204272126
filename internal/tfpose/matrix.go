// Package tfpose adapts internal/tf's quaternion-based transforms to the
// 4x4 homogeneous matrix form external tools expect, and validates
// matrices coming in from those tools before they're handed to
// FrameGraph.SetTransform.
package tfpose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/kinemesh/frametf/internal/tf"
)

// MatrixValidationTolerance is the tolerance used when checking a
// candidate rotation submatrix for orthonormality.
const MatrixValidationTolerance = 0.01

// ToMatrix renders t as a row-major 4x4 homogeneous transform matrix:
// the upper-left 3x3 block is the rotation, the rightmost column is the
// translation, and the bottom row is [0 0 0 1].
func ToMatrix(t tf.Transform) *mat.Dense {
	q := t.Rotation
	n := quat.Abs(q)
	if n == 0 {
		q = quat.Number{Real: 1}
	} else {
		q = quat.Scale(1/n, q)
	}

	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	m := mat.NewDense(4, 4, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), t.Translation[0],
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), t.Translation[1],
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), t.Translation[2],
		0, 0, 0, 1,
	})
	return m
}

// FromMatrix extracts a tf.Transform from a validated 4x4 homogeneous
// matrix. Callers should run Validate first; FromMatrix does not
// re-check orthonormality.
func FromMatrix(m *mat.Dense) (tf.Transform, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return tf.Transform{}, fmt.Errorf("tfpose: matrix must be 4x4, got %dx%d", r, c)
	}

	trace := m.At(0, 0) + m.At(1, 1) + m.At(2, 2)
	var q quat.Number
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1.0) * 2
		q.Real = 0.25 * s
		q.Imag = (m.At(2, 1) - m.At(1, 2)) / s
		q.Jmag = (m.At(0, 2) - m.At(2, 0)) / s
		q.Kmag = (m.At(1, 0) - m.At(0, 1)) / s
	case m.At(0, 0) > m.At(1, 1) && m.At(0, 0) > m.At(2, 2):
		s := math.Sqrt(1.0+m.At(0, 0)-m.At(1, 1)-m.At(2, 2)) * 2
		q.Real = (m.At(2, 1) - m.At(1, 2)) / s
		q.Imag = 0.25 * s
		q.Jmag = (m.At(0, 1) + m.At(1, 0)) / s
		q.Kmag = (m.At(0, 2) + m.At(2, 0)) / s
	case m.At(1, 1) > m.At(2, 2):
		s := math.Sqrt(1.0+m.At(1, 1)-m.At(0, 0)-m.At(2, 2)) * 2
		q.Real = (m.At(0, 2) - m.At(2, 0)) / s
		q.Imag = (m.At(0, 1) + m.At(1, 0)) / s
		q.Jmag = 0.25 * s
		q.Kmag = (m.At(1, 2) + m.At(2, 1)) / s
	default:
		s := math.Sqrt(1.0+m.At(2, 2)-m.At(0, 0)-m.At(1, 1)) * 2
		q.Real = (m.At(1, 0) - m.At(0, 1)) / s
		q.Imag = (m.At(0, 2) + m.At(2, 0)) / s
		q.Jmag = (m.At(1, 2) + m.At(2, 1)) / s
		q.Kmag = 0.25 * s
	}

	return tf.Transform{
		Translation: [3]float64{m.At(0, 3), m.At(1, 3), m.At(2, 3)},
		Rotation:    q,
	}, nil
}

// ValidationIssue describes one problem found with a candidate matrix.
type ValidationIssue string

const (
	// IssueWrongShape means the matrix was not 4x4.
	IssueWrongShape ValidationIssue = "wrong shape, expected 4x4"
	// IssueNotOrthonormal means the rotation submatrix's determinant was
	// not close to 1.
	IssueNotOrthonormal ValidationIssue = "rotation submatrix determinant is not approximately 1"
	// IssueBadBottomRow means the last row was not [0 0 0 1].
	IssueBadBottomRow ValidationIssue = "bottom row is not [0 0 0 1]"
)

// Validate reports whether m is a proper rigid-transform matrix: an
// orthonormal 3x3 rotation submatrix (determinant approximately 1) and a
// bottom row of [0 0 0 1].
func Validate(m *mat.Dense) (bool, []ValidationIssue) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return false, []ValidationIssue{IssueWrongShape}
	}

	var issues []ValidationIssue

	rot := m.Slice(0, 3, 0, 3)
	det := mat.Det(rot)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		issues = append(issues, IssueNotOrthonormal)
	}

	if m.At(3, 0) != 0 || m.At(3, 1) != 0 || m.At(3, 2) != 0 || math.Abs(m.At(3, 3)-1.0) > 0.001 {
		issues = append(issues, IssueBadBottomRow)
	}

	return len(issues) == 0, issues
}

// ApplyToPoint transforms a point by m, treating it as a homogeneous
// column vector with w=1.
func ApplyToPoint(m *mat.Dense, p [3]float64) [3]float64 {
	v := mat.NewVecDense(4, []float64{p[0], p[1], p[2], 1})
	var out mat.VecDense
	out.MulVec(m, v)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
