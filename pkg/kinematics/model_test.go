package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel_DimensionMismatch(t *testing.T) {
	c := twoLink(t, 1, 1)
	_, err := NewModel(c, []float64{0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestModel_ReadBeforeUpdate(t *testing.T) {
	m, err := NewModel(twoLink(t, 1, 1), []float64{0, 0})
	require.NoError(t, err)

	_, err = m.EndEffectorPose()
	assert.ErrorIs(t, err, ErrNotUpdated)
	_, err = m.Jacobian()
	assert.ErrorIs(t, err, ErrNotUpdated)
	_, err = m.Frames()
	assert.ErrorIs(t, err, ErrNotUpdated)

	m.UpdateModel()
	pose, err := m.EndEffectorPose()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pose.X, 1e-12)
	assert.Equal(t, 2, m.JointCount())
}

func TestModel_UpdateIsIdempotent(t *testing.T) {
	m, err := NewModel(twoLink(t, 1, 1), []float64{0.3, 0.9})
	require.NoError(t, err)

	m.UpdateModel()
	p1, _ := m.EndEffectorPose()
	j1, _ := m.Jacobian()
	m.UpdateModel()
	p2, _ := m.EndEffectorPose()
	j2, _ := m.Jacobian()

	assert.Equal(t, p1, p2)
	assert.Equal(t, j1.RawMatrix().Data, j2.RawMatrix().Data)
}

func TestModel_JacobianIsCopy(t *testing.T) {
	m, err := NewModel(twoLink(t, 1, 1), []float64{0, math.Pi / 2})
	require.NoError(t, err)
	m.UpdateModel()

	j, _ := m.Jacobian()
	j.Set(0, 0, 42)
	again, _ := m.Jacobian()
	assert.InDelta(t, -1.0, again.At(0, 0), 1e-12)
}

// Constant joint velocity integrates to v*T exactly, modulo floating point.
func TestModel_IntegrateConstantVelocity(t *testing.T) {
	m, err := NewModel(twoLink(t, 1, 1), []float64{0.1, -0.2})
	require.NoError(t, err)
	require.NoError(t, m.SetVelocity([]float64{0.5, -1.5}))

	const dt = 0.002
	for i := 0; i < 500; i++ {
		m.Integrate(dt)
	}
	s := m.State()
	assert.InDelta(t, 0.1+0.5, s.Position[0], 1e-9)
	assert.InDelta(t, -0.2-1.5, s.Position[1], 1e-9)
	assert.Equal(t, []float64{0.5, -1.5}, s.Velocity)
}

func TestModel_SetVelocityMismatch(t *testing.T) {
	m, err := NewModel(twoLink(t, 1, 1), []float64{0, 0})
	require.NoError(t, err)
	assert.ErrorIs(t, m.SetVelocity([]float64{1}), ErrDimensionMismatch)
}

func TestModel_StateIsCopy(t *testing.T) {
	m, err := NewModel(twoLink(t, 1, 1), []float64{0, 0})
	require.NoError(t, err)
	s := m.State()
	s.Position[0] = 9
	assert.Equal(t, 0.0, m.Positions()[0])
}
