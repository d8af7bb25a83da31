package kinematics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// JointState holds one position and one velocity per joint.
type JointState struct {
	Position []float64 `json:"position"`
	Velocity []float64 `json:"velocity"`
}

// Clone returns a deep copy of s.
func (s JointState) Clone() JointState {
	return JointState{
		Position: append([]float64(nil), s.Position...),
		Velocity: append([]float64(nil), s.Velocity...),
	}
}

// Model is the kinematic chain plus the joint state it is evaluated at.
// Derived quantities are cached by UpdateModel. Not safe for concurrent use:
// the integration loop is its only writer.
type Model struct {
	chain *Chain
	state JointState

	updated  bool
	pose     Pose
	frames   []Point
	jacobian *mat.Dense
}

// NewModel returns a model at joint angles q0 with zero velocity.
func NewModel(chain *Chain, q0 []float64) (*Model, error) {
	if len(q0) != chain.DOF() {
		return nil, fmt.Errorf("initial position has %d joints, chain has %d: %w",
			len(q0), chain.DOF(), ErrDimensionMismatch)
	}
	return &Model{
		chain: chain,
		state: JointState{
			Position: append([]float64(nil), q0...),
			Velocity: make([]float64, chain.DOF()),
		},
		jacobian: mat.NewDense(3, chain.DOF(), nil),
	}, nil
}

// Chain returns the immutable geometry of the model.
func (m *Model) Chain() *Chain {
	return m.chain
}

// JointCount returns the number of joints.
func (m *Model) JointCount() int {
	return m.chain.DOF()
}

// UpdateModel recomputes the pose, frames and Jacobian from the current
// joint positions, overwriting the cached values in place.
func (m *Model) UpdateModel() {
	q := m.state.Position
	m.pose = m.chain.Forward(q)
	m.frames = m.chain.Frames(q)
	m.chain.jacobianInto(m.jacobian, q)
	m.updated = true
}

// EndEffectorPose returns the pose cached by the last UpdateModel.
func (m *Model) EndEffectorPose() (Pose, error) {
	if !m.updated {
		return Pose{}, ErrNotUpdated
	}
	return m.pose, nil
}

// Frames returns a copy of the joint origins cached by the last UpdateModel.
func (m *Model) Frames() ([]Point, error) {
	if !m.updated {
		return nil, ErrNotUpdated
	}
	return append([]Point(nil), m.frames...), nil
}

// Jacobian returns a copy of the 3xN Jacobian cached by the last UpdateModel.
func (m *Model) Jacobian() (*mat.Dense, error) {
	if !m.updated {
		return nil, ErrNotUpdated
	}
	return mat.DenseCopyOf(m.jacobian), nil
}

// Integrate advances every joint position by velocity*dt (explicit Euler).
func (m *Model) Integrate(dt float64) {
	for i, v := range m.state.Velocity {
		m.state.Position[i] += v * dt
	}
}

// SetVelocity replaces the joint velocity vector.
func (m *Model) SetVelocity(dq []float64) error {
	if len(dq) != m.chain.DOF() {
		return fmt.Errorf("velocity has %d joints, chain has %d: %w",
			len(dq), m.chain.DOF(), ErrDimensionMismatch)
	}
	copy(m.state.Velocity, dq)
	return nil
}

// Positions returns a copy of the joint positions.
func (m *Model) Positions() []float64 {
	return append([]float64(nil), m.state.Position...)
}

// State returns a copy of the joint state.
func (m *Model) State() JointState {
	return m.state.Clone()
}
