// Package loop runs the ground-station control loop.
//
// Each iteration computes a command from the last known state, sends it to
// the rig, waits for the sensor frame, converts it to body axes and hands the
// resulting [rig.Sample] to metrics and observers:
//
//	u := ctrl.Compute(state, t)
//	link.Send(ctx, u)
//	frame := link.Receive(ctx)
//	state = rig.ToBody(frame).State()
//	observers <- Sample{t, state.Angle, state.Rate, u}
//
// The state is a value owned by [Loop.Run]; nothing is shared between
// iterations except through it. A Loop is not safe for concurrent Runs.
package loop
