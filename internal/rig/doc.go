// Package rig defines the domain types shared by the ground-station loop.
//
//   - [Frame]: raw 13-value sensor frame as sent by the rig
//   - [Body]: the frame relabelled into the body axes
//   - [State]: angle and rate, the only inputs the controllers need
//   - [Sample]: one loop iteration, consumed by plotting, storage and telemetry
//   - [Controller]: feedback law computing a command from a [State]
//
// Body axes: z is vertical, x points from the on-board computer toward the
// viewer and y points right, toward the fan.
package rig
