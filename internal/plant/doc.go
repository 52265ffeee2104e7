// Package plant emulates the attitude rig so the loop can run without hardware.
//
// The rig is a platform on an air bearing turned by a fan. Around the vertical
// axis it behaves as a damped integrator:
//
//	d(angle)/dt = rate
//	d(rate)/dt  = Gain*u - Damping*rate + Disturbance
//
// [Emulator] integrates the model with [RK4] or [Euler] and renders the state as
// raw sensor frames. It implements the transport link in-process and can also
// answer real UDP traffic through [Serve].
package plant
