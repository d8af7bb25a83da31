// Package rrteleop teleoperates a planar revolute-revolute arm by Cartesian
// velocity.
//
// An input device reports the desired tip velocity. A fixed-rate loop maps it
// through the Jacobian inverse (damped near singularities) to joint velocities
// and integrates the joint positions with explicit Euler steps.
//
// # Installation
//
//	go install github.com/gwillem/rrteleop/cmd/rrteleop@latest
//
// # Usage
//
// Pick and calibrate an input device:
//
//	rrteleop setup
//
// Then start teleoperation, or run a scripted motion headless:
//
//	rrteleop teleoperate --serve --record
//	rrteleop simulate --preset reach-limit
//	rrteleop runs
//	rrteleop plot <run-id>
//
// # Packages
//
//   - cmd/rrteleop: CLI with setup, teleoperate, simulate, runs, plot and scan commands
//   - pkg/kinematics: chain geometry, Jacobian and velocity mapping
//   - pkg/teleop: control loop, input sampler and session lifecycle
//   - pkg/device: serial, servo joystick, websocket and constant input devices
//   - pkg/robot: feetech servo joystick and calibration
//   - pkg/config: YAML configuration and simulation presets
//   - pkg/server: HTTP and websocket state stream
//   - pkg/record: trace recording and run storage
//   - pkg/log: logrus logger and TUI log hook
package rrteleop
