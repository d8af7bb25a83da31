// Package kinematics models planar revolute chains and maps Cartesian
// velocity commands into joint space.
//
// All angles are radians, lengths are meters. Joint i rotates about +Z and
// carries link i along its local X axis, so for the two-link arm
//
//	x = l1 cos(q0) + l2 cos(q0+q1)
//	y = l1 sin(q0) + l2 sin(q0+q1)
package kinematics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoJoints indicates a chain defined without links.
	ErrNoJoints = errors.New("kinematics: chain has no joints")

	// ErrInvalidLink indicates a zero, negative or non-finite link length.
	ErrInvalidLink = errors.New("kinematics: link length must be positive and finite")

	// ErrDimensionMismatch indicates a joint vector whose length differs from the chain DOF.
	ErrDimensionMismatch = errors.New("kinematics: joint vector length does not match chain")

	// ErrNotUpdated indicates a derived quantity read before the first UpdateModel.
	ErrNotUpdated = errors.New("kinematics: model read before first update")
)

// Link is the static geometry of one arm segment.
type Link struct {
	Length float64 `yaml:"length" json:"length"`
}

// Point is a position in the base frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pose is the planar position and orientation of a frame in the base frame.
type Pose struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Phi float64 `json:"phi"`
}

// Chain is an immutable serial chain of planar revolute joints.
type Chain struct {
	links []Link
}

// NewChain validates the link geometry and returns a chain with one joint per link.
func NewChain(links ...Link) (*Chain, error) {
	if len(links) == 0 {
		return nil, ErrNoJoints
	}
	for i, l := range links {
		// also rejects NaN
		if !(l.Length > 0) || math.IsInf(l.Length, 0) {
			return nil, fmt.Errorf("link %d length %v: %w", i, l.Length, ErrInvalidLink)
		}
	}
	c := &Chain{links: make([]Link, len(links))}
	copy(c.links, links)
	return c, nil
}

// DOF returns the number of joints.
func (c *Chain) DOF() int {
	return len(c.links)
}

// Links returns a copy of the link geometry.
func (c *Chain) Links() []Link {
	out := make([]Link, len(c.links))
	copy(out, c.links)
	return out
}

// Reach returns the distance from the base to the tip when fully extended.
func (c *Chain) Reach() float64 {
	r := 0.0
	for _, l := range c.links {
		r += l.Length
	}
	return r
}

func (c *Chain) mustMatch(q []float64) {
	if len(q) != len(c.links) {
		panic(fmt.Errorf("%w: got %d joints, chain has %d", ErrDimensionMismatch, len(q), len(c.links)))
	}
}

// Forward returns the pose of the terminal link frame for joint angles q.
// It panics if len(q) != DOF, as gonum does for mismatched shapes.
func (c *Chain) Forward(q []float64) Pose {
	c.mustMatch(q)
	var p Pose
	for i, l := range c.links {
		p.Phi += q[i]
		p.X += l.Length * math.Cos(p.Phi)
		p.Y += l.Length * math.Sin(p.Phi)
	}
	return p
}

// Frames returns the base origin, every joint origin after the first and the tip,
// in chain order. The result has DOF+1 points.
func (c *Chain) Frames(q []float64) []Point {
	c.mustMatch(q)
	pts := make([]Point, 0, len(c.links)+1)
	var x, y, phi float64
	pts = append(pts, Point{})
	for i, l := range c.links {
		phi += q[i]
		x += l.Length * math.Cos(phi)
		y += l.Length * math.Sin(phi)
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts
}

// Jacobian returns the 3xN geometric Jacobian mapping joint velocity to the
// end-effector twist (vx, vy, wz).
func (c *Chain) Jacobian(q []float64) *mat.Dense {
	j := mat.NewDense(3, c.DOF(), nil)
	c.jacobianInto(j, q)
	return j
}

// LinearJacobian returns the 2xN translational rows of the Jacobian.
func (c *Chain) LinearJacobian(q []float64) *mat.Dense {
	j := mat.NewDense(3, c.DOF(), nil)
	c.jacobianInto(j, q)
	return mat.DenseCopyOf(j.Slice(0, 2, 0, c.DOF()))
}

// jacobianInto writes the 3xN Jacobian into dst. Column i sums the
// contribution of every link at or beyond joint i.
func (c *Chain) jacobianInto(dst *mat.Dense, q []float64) {
	c.mustMatch(q)
	n := len(c.links)
	phis := make([]float64, n)
	phi := 0.0
	for i := range c.links {
		phi += q[i]
		phis[i] = phi
	}
	var sx, sy float64
	for i := n - 1; i >= 0; i-- {
		l := c.links[i].Length
		sx += l * math.Cos(phis[i])
		sy += l * math.Sin(phis[i])
		dst.Set(0, i, -sy)
		dst.Set(1, i, sx)
		dst.Set(2, i, 1)
	}
}
