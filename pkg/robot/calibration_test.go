package robot

import (
	"math"
	"testing"
)

func TestAxisCalibration_Normalize(t *testing.T) {
	cal := AxisCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -100.0}, // min -> -100
		{3000, 100.0},  // max -> 100
		{2000, 0.0},    // mid -> 0
		{1500, -50.0},
		{2500, 50.0},
		{500, -100.0}, // clamped
		{3500, 100.0}, // clamped
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestAxisCalibration_NormalizeOffCentreRest(t *testing.T) {
	cal := AxisCalibration{RangeMin: 1000, RangeMax: 3000, Rest: 1500}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1500, 0},
		{1000, -100},
		{1250, -50},
		{3000, 100},
		{2250, 50},
	}
	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestAxisCalibration_Inverted(t *testing.T) {
	cal := AxisCalibration{RangeMin: 0, RangeMax: 4000, DriveMode: 1}
	if got := cal.Normalize(4000); math.Abs(got+100) > 0.001 {
		t.Errorf("Normalize(4000) = %f, want -100", got)
	}
}

func TestAxisCalibration_EmptyRange(t *testing.T) {
	cal := AxisCalibration{RangeMin: 2000, RangeMax: 2000}
	if got := cal.Normalize(2100); got != 0 {
		t.Errorf("Normalize on empty range = %f, want 0", got)
	}
}

func TestCalibration_IDs(t *testing.T) {
	cal := Calibration{
		AxisY: AxisCalibration{ID: 2},
		AxisX: AxisCalibration{ID: 1},
	}

	ids := cal.IDs()
	expected := []int{1, 2}

	if len(ids) != len(expected) {
		t.Fatalf("IDs returned %d IDs, want %d", len(ids), len(expected))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("IDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		AxisX: AxisCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		AxisY: AxisCalibration{ID: 2, RangeMin: 300, RangeMax: 400},
	}

	axis, ac, ok := cal.ByID(2)
	if !ok {
		t.Fatal("ByID(2) returned false")
	}
	if axis != AxisY {
		t.Errorf("ByID(2) returned axis %s, want y", axis)
	}
	if ac.RangeMin != 300 {
		t.Errorf("ByID(2) returned wrong calibration: %+v", ac)
	}

	if _, _, ok := cal.ByID(99); ok {
		t.Error("ByID(99) should return false")
	}
}

func TestCalibration_Complete(t *testing.T) {
	cal := Calibration{AxisX: {ID: 1, RangeMin: 1, RangeMax: 2}}
	if cal.Complete() {
		t.Error("calibration without y should be incomplete")
	}
	cal[AxisY] = AxisCalibration{ID: 2, RangeMin: 1, RangeMax: 2}
	if !cal.Complete() {
		t.Error("calibration with both axes should be complete")
	}
}
