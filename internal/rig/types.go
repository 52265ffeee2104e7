package rig

import "math"

// FrameLen is the number of values in a raw sensor frame.
const FrameLen = 13

// Frame is a raw sensor frame in instrument axes:
//
//	[u, ax, ay, az, gx, gy, gz, m1x, m1y, m1z, m2x, m2y, m2z]
//
// u echoes the command applied by the rig, m1 is the AK magnetometer and m2
// the QMC magnetometer.
type Frame [FrameLen]float64

func (f Frame) IsValid() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Vec3 [3]float64

func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Body is a sensor frame expressed in body axes.
type Body struct {
	U      float64
	Accel  Vec3
	Gyro   Vec3
	MagAK  Vec3
	MagQMC Vec3
}

// ToBody relabels a raw frame from instrument to body axes.
func ToBody(f Frame) Body {
	return Body{
		U:      f[0],
		Accel:  Vec3{f[3], -f[2], f[1]},
		Gyro:   Vec3{f[6], -f[5], f[4]},
		MagAK:  Vec3{-f[9], -f[7], f[8]},
		MagQMC: Vec3{-f[12], -f[10], f[11]},
	}
}

// State derives the heading from the QMC magnetometer, in degrees, and the
// yaw rate from the z gyro axis.
func (b Body) State() State {
	return State{
		Angle: math.Atan2(b.MagQMC[1], b.MagQMC[0]) * 180 / math.Pi,
		Rate:  b.Gyro[2],
	}
}

// State is the loop state carried from one iteration to the next.
type State struct {
	Angle float64 `json:"angle"`
	Rate  float64 `json:"rate"`
}

// Sample is one loop iteration as seen by observers.
type Sample struct {
	T       float64 `json:"t"`
	Angle   float64 `json:"angle"`
	Rate    float64 `json:"rate"`
	Command float64 `json:"command"`
}

type Controller interface {
	Compute(x State, t float64) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Clamp limits a command to the actuator range [-1, 1]. NaN becomes 0.
func Clamp(u float64) float64 {
	switch {
	case math.IsNaN(u):
		return 0
	case u > 1:
		return 1
	case u < -1:
		return -1
	default:
		return u
	}
}
