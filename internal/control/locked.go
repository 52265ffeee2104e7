package control

import (
	"sync"

	"github.com/san-kum/remotelab/internal/rig"
)

// Locked serialises Compute and parameter changes so a controller can be
// tuned from the UI while the loop goroutine drives it.
type Locked struct {
	mu    sync.Mutex
	inner rig.Controller
}

func NewLocked(inner rig.Controller) *Locked {
	return &Locked{inner: inner}
}

func (l *Locked) Compute(x rig.State, t float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Compute(x, t)
}

// GetParams returns nil when the wrapped controller has no parameters.
func (l *Locked) GetParams() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.inner.(rig.Configurable); ok {
		return c.GetParams()
	}
	return nil
}

func (l *Locked) SetParam(name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.inner.(rig.Configurable); ok {
		return c.SetParam(name, value)
	}
	return rig.ErrUnknownParameter
}
