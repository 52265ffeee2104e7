// Package fuzzy implements the rate-damping fuzzy controller for the attitude rig.
//
// The controller maps the measured angular rate into a bounded restoring command
// using Mamdani inference over one fixed rule base:
//
//   - [RisingLinear], [FallingLinear], [Trapezoid]: membership primitives
//   - [Complement], [Union], [Intersection]: fuzzy operators over degrees
//   - [Controller]: rule evaluation, min implication, max aggregation and
//     centroid defuzzification over a sampled output grid
//
// # Usage
//
//	ctrl := fuzzy.NewDefault()
//	u := ctrl.Evaluate(t, rate, angle) // u in [-1, 1], opposite sign to rate
//
// # Thread Safety
//
// A [Controller] holds only its tuning constants. Evaluate allocates nothing
// shared and may be called from any number of goroutines.
package fuzzy
