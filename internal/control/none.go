package control

import "github.com/san-kum/remotelab/internal/rig"

type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Compute(x rig.State, t float64) float64 {
	return 0
}
