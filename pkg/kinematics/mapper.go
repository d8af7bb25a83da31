package kinematics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Mapper defaults.
const (
	DefaultDamping              = 0.05
	DefaultSingularityThreshold = 0.01
	DefaultMaxJointSpeed        = 10.0
)

// MapperConfig tunes the velocity mapping.
type MapperConfig struct {
	// Damping is the damped least-squares factor lambda.
	Damping float64
	// SingularityThreshold is the manipulability sqrt(det(J Jt)) below which
	// the exact inverse is abandoned for damped least squares.
	SingularityThreshold float64
	// MaxJointSpeed bounds the norm of the joint velocity in rad/s.
	// Zero disables the bound.
	MaxJointSpeed float64
}

// DefaultMapperConfig returns the mapper defaults.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Damping:              DefaultDamping,
		SingularityThreshold: DefaultSingularityThreshold,
		MaxJointSpeed:        DefaultMaxJointSpeed,
	}
}

// Solution is a joint-space velocity together with how it was obtained.
type Solution struct {
	JointVelocity  []float64
	Manipulability float64
	// Damped is set when damped least squares replaced the exact inverse.
	Damped bool
	// Clamped is set when the result was scaled down to MaxJointSpeed.
	Clamped bool
}

// Mapper converts Cartesian end-effector velocity into joint velocity.
// It is stateless and safe for concurrent use.
type Mapper struct {
	chain *Chain
	cfg   MapperConfig
}

// NewMapper returns a mapper for chain. A non-positive Damping or a negative
// SingularityThreshold takes the default.
func NewMapper(chain *Chain, cfg MapperConfig) *Mapper {
	if cfg.Damping <= 0 {
		cfg.Damping = DefaultDamping
	}
	if cfg.SingularityThreshold < 0 {
		cfg.SingularityThreshold = DefaultSingularityThreshold
	}
	if cfg.MaxJointSpeed < 0 {
		cfg.MaxJointSpeed = 0
	}
	return &Mapper{chain: chain, cfg: cfg}
}

// Config returns the effective configuration.
func (m *Mapper) Config() MapperConfig {
	return m.cfg
}

// MapVelocity returns joint velocities that move the end effector at v from
// configuration q. The Z component of v is outside the planar task and is ignored.
func (m *Mapper) MapVelocity(v Vec3, q []float64) []float64 {
	return m.Map(v, q).JointVelocity
}

// Map is MapVelocity with diagnostics. It never fails: near a singularity it
// falls back to damped least squares and any non-finite result becomes zero.
func (m *Mapper) Map(v Vec3, q []float64) Solution {
	n := m.chain.DOF()
	sol := Solution{JointVelocity: make([]float64, n)}

	j := m.chain.LinearJacobian(q)
	var jjt mat.Dense
	jjt.Mul(j, j.T())
	sol.Manipulability = math.Sqrt(math.Max(mat.Det(&jjt), 0))

	if (v.X == 0 && v.Y == 0) || !v.IsFinite() {
		return sol
	}
	task := mat.NewVecDense(2, []float64{v.X, v.Y})

	var dq mat.VecDense
	solved := false
	if n == 2 && sol.Manipulability >= m.cfg.SingularityThreshold {
		// a Condition error still means J is too close to singular to trust
		solved = dq.SolveVec(j, task) == nil
	}
	if !solved {
		sol.Damped = true
		if !m.dampedSolve(&dq, j, &jjt, task) {
			return sol
		}
	}

	for i := range sol.JointVelocity {
		sol.JointVelocity[i] = dq.AtVec(i)
	}
	if floats.HasNaN(sol.JointVelocity) || math.IsInf(floats.Sum(sol.JointVelocity), 0) {
		return Solution{JointVelocity: make([]float64, n), Manipulability: sol.Manipulability, Damped: sol.Damped}
	}

	if limit := m.cfg.MaxJointSpeed; limit > 0 {
		if norm := floats.Norm(sol.JointVelocity, 2); norm > limit {
			floats.Scale(limit/norm, sol.JointVelocity)
			sol.Clamped = true
		}
	}
	return sol
}

// dampedSolve computes dq = Jt (J Jt + lambda^2 I)^-1 v.
func (m *Mapper) dampedSolve(dst *mat.VecDense, j, jjt *mat.Dense, task *mat.VecDense) bool {
	var a mat.Dense
	a.CloneFrom(jjt)
	lambda2 := m.cfg.Damping * m.cfg.Damping
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		a.Set(i, i, a.At(i, i)+lambda2)
	}

	var y mat.VecDense
	if err := y.SolveVec(&a, task); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return false
		}
	}
	dst.MulVec(j.T(), &y)
	return true
}
