package robot

import (
	"testing"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

func TestHasJoystick(t *testing.T) {
	tests := []struct {
		name   string
		servos []feetech.FoundServo
		want   bool
	}{
		{"none", nil, false},
		{"only x", []feetech.FoundServo{{ID: 1}}, false},
		{"pair", []feetech.FoundServo{{ID: 2}, {ID: 1}}, true},
		{"arm", []feetech.FoundServo{{ID: 1}, {ID: 2}, {ID: 3}}, true},
	}
	for _, tt := range tests {
		if got := HasJoystick(tt.servos); got != tt.want {
			t.Errorf("%s: HasJoystick = %v, want %v", tt.name, got, tt.want)
		}
	}
}
