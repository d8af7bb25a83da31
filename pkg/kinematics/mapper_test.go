package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// J(q) * MapVelocity(v, q) must reproduce v away from singularities.
func TestMapper_RoundTrip(t *testing.T) {
	c := twoLink(t, 1, 1)
	m := NewMapper(c, MapperConfig{MaxJointSpeed: 0})

	configs := [][]float64{{0, math.Pi / 2}, {0.3, 1.0}, {-1.2, -0.8}, {2.0, 2.5}}
	cmds := []Vec3{{X: 1}, {Y: -0.5}, {X: 0.3, Y: 0.4}, {X: -0.1, Y: 0.05}}

	for _, q := range configs {
		for _, v := range cmds {
			sol := m.Map(v, q)
			require.False(t, sol.Damped, "q=%v", q)

			var got mat.VecDense
			got.MulVec(c.LinearJacobian(q), mat.NewVecDense(2, sol.JointVelocity))
			assert.InDelta(t, v.X, got.AtVec(0), 1e-9, "q=%v v=%v", q, v)
			assert.InDelta(t, v.Y, got.AtVec(1), 1e-9, "q=%v v=%v", q, v)
		}
	}
}

func TestMapper_ConcreteStart(t *testing.T) {
	// l1=l2=1 at (0, pi/2): J = [[-1 -1] [1 0]], so v=(1,0) gives dq=(0,-1).
	m := NewMapper(twoLink(t, 1, 1), DefaultMapperConfig())
	dq := m.MapVelocity(Vec3{X: 1}, []float64{0, math.Pi / 2})
	assert.InDelta(t, 0.0, dq[0], 1e-12)
	assert.InDelta(t, -1.0, dq[1], 1e-12)
}

func TestMapper_ZeroInput(t *testing.T) {
	m := NewMapper(twoLink(t, 1, 1), DefaultMapperConfig())
	for _, q := range [][]float64{{0, 0}, {0.2, 1.4}} {
		assert.Equal(t, []float64{0, 0}, m.MapVelocity(Vec3{}, q))
	}
	// Z is outside the planar task
	assert.Equal(t, []float64{0, 0}, m.MapVelocity(Vec3{Z: 3}, []float64{0.2, 1.4}))
}

func TestMapper_NonFiniteInput(t *testing.T) {
	m := NewMapper(twoLink(t, 1, 1), DefaultMapperConfig())
	assert.Equal(t, []float64{0, 0}, m.MapVelocity(Vec3{X: math.NaN()}, []float64{0.2, 1.4}))
}

// Sweeping into the straight-arm singularity must stay finite and bounded.
func TestMapper_SingularSweep(t *testing.T) {
	cfg := DefaultMapperConfig()
	m := NewMapper(twoLink(t, 1, 1), cfg)

	for _, q2 := range []float64{0.5, 0.1, 0.02, 0.011, 0.009, 1e-3, 1e-6, 1e-12, 0} {
		for _, v := range []Vec3{{X: 1}, {Y: 1}, {X: -0.7, Y: 0.7}} {
			sol := m.Map(v, []float64{0.25, q2})
			for _, dq := range sol.JointVelocity {
				require.False(t, math.IsNaN(dq) || math.IsInf(dq, 0), "q2=%v", q2)
			}
			assert.LessOrEqual(t, floats.Norm(sol.JointVelocity, 2), cfg.MaxJointSpeed+1e-9, "q2=%v v=%v", q2, v)
			if q2 < 0.01 {
				assert.True(t, sol.Damped, "q2=%v", q2)
			}
		}
	}
}

func TestMapper_ExactSingularity(t *testing.T) {
	m := NewMapper(twoLink(t, 1, 1), DefaultMapperConfig())

	// Along the arm at full extension nothing can move the tip.
	sol := m.Map(Vec3{X: 1}, []float64{0, 0})
	assert.True(t, sol.Damped)
	assert.InDelta(t, 0.0, sol.Manipulability, 1e-12)
	assert.InDelta(t, 0.0, floats.Norm(sol.JointVelocity, 2), 1e-9)

	// Across the arm the damped solution is finite and bounded by |v|/(2 lambda).
	sol = m.Map(Vec3{Y: 1}, []float64{0, 0})
	assert.True(t, sol.Damped)
	assert.LessOrEqual(t, floats.Norm(sol.JointVelocity, 2), 1/(2*0.05)+1e-9)
	assert.Greater(t, floats.Norm(sol.JointVelocity, 2), 0.0)
}

func TestMapper_Clamp(t *testing.T) {
	m := NewMapper(twoLink(t, 1, 1), MapperConfig{MaxJointSpeed: 0.5})
	sol := m.Map(Vec3{X: 1}, []float64{0, math.Pi / 2})
	assert.True(t, sol.Clamped)
	assert.InDelta(t, 0.5, floats.Norm(sol.JointVelocity, 2), 1e-12)
	// direction preserved
	assert.InDelta(t, 0.0, sol.JointVelocity[0], 1e-12)
	assert.Less(t, sol.JointVelocity[1], 0.0)
}

func TestMapper_RedundantChainUsesDamped(t *testing.T) {
	c, err := NewChain(Link{1}, Link{0.5}, Link{0.25})
	require.NoError(t, err)
	m := NewMapper(c, MapperConfig{Damping: 1e-4})

	q := []float64{0.3, 0.8, -0.4}
	sol := m.Map(Vec3{X: 0.2, Y: -0.1}, q)
	require.Len(t, sol.JointVelocity, 3)
	assert.True(t, sol.Damped)

	var got mat.VecDense
	got.MulVec(c.LinearJacobian(q), mat.NewVecDense(3, sol.JointVelocity))
	assert.InDelta(t, 0.2, got.AtVec(0), 1e-4)
	assert.InDelta(t, -0.1, got.AtVec(1), 1e-4)
}
