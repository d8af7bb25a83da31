package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/log"
)

// ErrBadLine is returned by ParseVelocityLine for malformed input.
var ErrBadLine = errors.New("device: malformed velocity line")

// Serial reads newline-terminated "vx vy vz" commands from a serial port.
// Commas may replace the spaces, vz may be omitted and '#' starts a comment.
type Serial struct {
	port   io.ReadCloser
	feed   *feed
	logger log.Logger
	bad    uint64
}

// OpenSerial opens port at baud 8N1 and starts reading.
func OpenSerial(port string, baud int, logger log.Logger) (*Serial, error) {
	if baud <= 0 {
		baud = 115200
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return NewSerial(p, logger), nil
}

// NewSerial reads commands from r until it fails or is closed.
func NewSerial(r io.ReadCloser, logger log.Logger) *Serial {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Serial{port: r, feed: newFeed(), logger: logger}
	go s.readLoop()
	return s
}

func (s *Serial) readLoop() {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := ParseVelocityLine(line)
		if err != nil {
			s.bad++
			if s.bad == 1 || s.bad%100 == 0 {
				s.logger.WithField("bad_lines", s.bad).Warnf("Skipping serial input: %v", err)
			}
			continue
		}
		s.feed.push(v)
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.feed.close(fmt.Errorf("%w: serial input ended: %w", ErrClosed, err))
}

// LinearVelocity blocks for the next command line.
func (s *Serial) LinearVelocity(ctx context.Context) (kinematics.Vec3, error) {
	return s.feed.wait(ctx)
}

// Close closes the port, which also ends the reader.
func (s *Serial) Close() error {
	s.feed.close(ErrClosed)
	return s.port.Close()
}

// ParseVelocityLine parses "vx vy [vz]" separated by spaces, tabs or commas.
func ParseVelocityLine(line string) (kinematics.Vec3, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) < 2 || len(fields) > 3 {
		return kinematics.Vec3{}, fmt.Errorf("%w: %q has %d fields", ErrBadLine, line, len(fields))
	}
	var c [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return kinematics.Vec3{}, fmt.Errorf("%w: field %d %q", ErrBadLine, i, f)
		}
		c[i] = x
	}
	return kinematics.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}
