package tfpose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kinemesh/frametf/internal/tf"
)

func TestToMatrixAndBackRoundTrips(t *testing.T) {
	t.Parallel()

	original := tf.Transform{
		Translation: [3]float64{1, 2, 3},
		Rotation:    tf.Identity().Rotation,
	}

	m := ToMatrix(original)
	ok, issues := Validate(m)
	require.True(t, ok, "issues: %v", issues)

	recovered, err := FromMatrix(m)
	require.NoError(t, err)
	assert.InDelta(t, original.Translation[0], recovered.Translation[0], 1e-9)
	assert.InDelta(t, original.Translation[1], recovered.Translation[1], 1e-9)
	assert.InDelta(t, original.Translation[2], recovered.Translation[2], 1e-9)
	assert.InDelta(t, 1, math.Abs(recovered.Rotation.Real), 1e-9)
}

func TestValidateRejectsWrongShape(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 3, nil)
	ok, issues := Validate(m)
	assert.False(t, ok)
	assert.Contains(t, issues, IssueWrongShape)
}

func TestValidateRejectsBadBottomRow(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 1, 1,
	})
	ok, issues := Validate(m)
	assert.False(t, ok)
	assert.Contains(t, issues, IssueBadBottomRow)
}

func TestValidateRejectsNonOrthonormalRotation(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(4, 4, []float64{
		2, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	ok, issues := Validate(m)
	assert.False(t, ok)
	assert.Contains(t, issues, IssueNotOrthonormal)
}

func TestApplyToPointTranslates(t *testing.T) {
	t.Parallel()

	m := ToMatrix(tf.Transform{Translation: [3]float64{1, 1, 1}, Rotation: tf.Identity().Rotation})
	out := ApplyToPoint(m, [3]float64{0, 0, 0})
	assert.InDelta(t, 1, out[0], 1e-9)
	assert.InDelta(t, 1, out[1], 1e-9)
	assert.InDelta(t, 1, out[2], 1e-9)
}
