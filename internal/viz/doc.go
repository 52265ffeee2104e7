// Package viz draws the loop time series in the terminal.
//
// [Plotter] keeps a rolling window of samples and renders three stacked
// charts: heading theta [deg], rate omega [deg/s] and command u [-1..1].
// [LiveModel] wraps it in a Bubble Tea program fed by the running loop; its
// quit key doubles as the stop button of the ground station.
package viz
