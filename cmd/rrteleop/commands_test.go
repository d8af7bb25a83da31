package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDegrees(t *testing.T) {
	tests := []struct {
		rad  float64
		want float64
	}{
		{0, 0},
		{math.Pi / 2, 90},
		{-math.Pi / 2, -90},
		{3 * math.Pi / 2, -90},
		{2 * math.Pi, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, wrapDegrees(tt.rad), 1e-9, "rad=%v", tt.rad)
	}
}

func TestFormatDegrees(t *testing.T) {
	assert.Equal(t, "(0.00°, 90.00°)", formatDegrees([]float64{0, math.Pi / 2}))
	assert.Equal(t, "()", formatDegrees(nil))
}

func TestPlotCaption(t *testing.T) {
	assert.Equal(t, "q0 joint angle [rad]", plotCaption("q0"))
	assert.Equal(t, "dq1 joint velocity [rad/s]", plotCaption("dq1"))
	assert.Equal(t, "tip x [m]", plotCaption("x"))
	assert.Equal(t, "manipulability", plotCaption("manipulability"))
}

func TestHasMovement(t *testing.T) {
	m := &teleopModel{}
	assert.True(t, m.hasMovement([]float64{0, 1}), "first frame always draws")

	m.lastPos = []float64{0, 1}
	assert.False(t, m.hasMovement([]float64{0, 1}))
	assert.True(t, m.hasMovement([]float64{0, 1.001}))
	assert.True(t, m.hasMovement([]float64{0}))
}

func TestValidateFloat(t *testing.T) {
	assert.NoError(t, validateFloat(false)("-1.5"))
	assert.NoError(t, validateFloat(true)(" 0.3 "))
	assert.Error(t, validateFloat(true)("0"))
	assert.Error(t, validateFloat(false)("abc"))
	assert.Equal(t, 0.3, parseFloat(" 0.3 "))
	assert.Equal(t, "0.3", formatFloat(0.3))
}
