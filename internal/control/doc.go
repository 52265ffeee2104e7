// Package control provides the feedback laws that can drive the rig.
//
// Controllers implement [rig.Controller] and compute a command in [-1, 1]
// from the current [rig.State]:
//
//   - [Fuzzy]: the rate-damping fuzzy controller (default)
//   - [PID]: Proportional-Integral-Derivative regulation of the rate
//   - [Manual]: fixed open-loop command, for actuator checks
//   - [None]: zero command
//
// # Usage
//
//	reg := control.NewRegistry()
//	ctrl, err := reg.Get("fuzzy", nil)
//	u := ctrl.Compute(rig.State{Angle: 12, Rate: -4}, t)
//
// Controllers implementing [rig.Configurable] support live tuning.
package control
