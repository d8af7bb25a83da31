package kinematics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLink(t *testing.T, l1, l2 float64) *Chain {
	t.Helper()
	c, err := NewChain(Link{Length: l1}, Link{Length: l2})
	require.NoError(t, err)
	return c
}

func TestNewChain_Invalid(t *testing.T) {
	_, err := NewChain()
	assert.ErrorIs(t, err, ErrNoJoints)

	for _, l := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewChain(Link{Length: 1}, Link{Length: l})
		assert.ErrorIs(t, err, ErrInvalidLink, "length %v", l)
	}
}

func TestChain_Forward(t *testing.T) {
	c := twoLink(t, 1, 1)

	tests := []struct {
		name string
		q    []float64
		want Pose
	}{
		{"extended", []float64{0, 0}, Pose{X: 2, Y: 0, Phi: 0}},
		{"elbow up", []float64{0, math.Pi / 2}, Pose{X: 1, Y: 1, Phi: math.Pi / 2}},
		{"folded", []float64{math.Pi / 2, math.Pi}, Pose{X: 0, Y: 0, Phi: 3 * math.Pi / 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Forward(tt.q)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("Forward(%v) mismatch (-want +got):\n%s", tt.q, diff)
			}
		})
	}
}

func TestChain_Frames(t *testing.T) {
	c := twoLink(t, 1, 0.5)
	got := c.Frames([]float64{0, math.Pi / 2})
	want := []Point{{0, 0}, {1, 0}, {1, 0.5}}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Frames mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1.5, c.Reach(), 1e-12)
}

func TestChain_ForwardPanicsOnMismatch(t *testing.T) {
	c := twoLink(t, 1, 1)
	assert.Panics(t, func() { c.Forward([]float64{0}) })
}

// The Jacobian must agree with central finite differences of Forward.
func TestChain_JacobianFiniteDifference(t *testing.T) {
	chains := [][]Link{
		{{1}, {1}},
		{{0.7}, {1.3}},
		{{1}, {0.5}, {0.25}},
	}
	const h = 1e-6

	for _, links := range chains {
		c, err := NewChain(links...)
		require.NoError(t, err)

		for _, base := range [][]float64{{0.3, -1.1, 0.4}, {2.5, 0.2, -0.9}, {-0.4, 1.7, 3.0}} {
			q := base[:c.DOF()]
			j := c.Jacobian(q)
			for col := 0; col < c.DOF(); col++ {
				qp := append([]float64(nil), q...)
				qm := append([]float64(nil), q...)
				qp[col] += h
				qm[col] -= h
				fp, fm := c.Forward(qp), c.Forward(qm)
				assert.InDelta(t, (fp.X-fm.X)/(2*h), j.At(0, col), 1e-6)
				assert.InDelta(t, (fp.Y-fm.Y)/(2*h), j.At(1, col), 1e-6)
				assert.InDelta(t, (fp.Phi-fm.Phi)/(2*h), j.At(2, col), 1e-6)
			}
		}
	}
}

func TestChain_TwoLinkJacobianClosedForm(t *testing.T) {
	l1, l2 := 0.8, 0.6
	c := twoLink(t, l1, l2)
	q := []float64{0.4, 1.2}
	j := c.LinearJacobian(q)

	s1, c1 := math.Sin(q[0]), math.Cos(q[0])
	s12, c12 := math.Sin(q[0]+q[1]), math.Cos(q[0]+q[1])

	r, cols := j.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, cols)
	assert.InDelta(t, -l1*s1-l2*s12, j.At(0, 0), 1e-12)
	assert.InDelta(t, -l2*s12, j.At(0, 1), 1e-12)
	assert.InDelta(t, l1*c1+l2*c12, j.At(1, 0), 1e-12)
	assert.InDelta(t, l2*c12, j.At(1, 1), 1e-12)
}
