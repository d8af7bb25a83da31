package robot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

// Ports lists serial ports, skipping macOS Bluetooth pseudo-ports.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	out := ports[:0]
	for _, p := range ports {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Scan probes servo IDs 1..maxID on port.
func Scan(ctx context.Context, port string, maxID int) ([]feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	bus, err := OpenBus(port, BaudRate)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, maxID)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", port, err)
	}
	return servos, nil
}

// HasJoystick reports whether servos holds IDs 1 and 2.
func HasJoystick(servos []feetech.FoundServo) bool {
	seen := map[int]bool{}
	for _, s := range servos {
		seen[s.ID] = true
	}
	return seen[1] && seen[2]
}

// FindJoysticks scans every serial port for a servo pair.
func FindJoysticks(ctx context.Context) ([]string, error) {
	ports, err := Ports()
	if err != nil {
		return nil, err
	}
	var found []string
	for _, p := range ports {
		servos, err := Scan(ctx, p, 2)
		if err != nil {
			continue
		}
		if HasJoystick(servos) {
			found = append(found, p)
		}
	}
	return found, nil
}
