package plant

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/libp2p/go-reuseport"
	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/rig"
	"github.com/san-kum/remotelab/internal/transport"
)

const (
	// DefaultFieldStrength is the horizontal field seen by the magnetometers, in gauss.
	DefaultFieldStrength = 0.4
	gravity              = 9.81
)

type Config struct {
	Dt            float64 // seconds advanced per command
	InitAngle     float64
	InitRate      float64
	FieldStrength float64
	RateNoise     float64 // gyro noise standard deviation, deg/s
	Seed          int64
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.05,
		FieldStrength: DefaultFieldStrength,
	}
}

// Emulator plays the rig: it applies a command, advances the plant by Dt and
// reports the new state as a raw sensor frame.
type Emulator struct {
	mu    sync.Mutex
	sys   System
	integ Integrator
	cfg   Config
	x     State
	t     float64
	u     float64
	rng   *rand.Rand
	log   *zap.Logger
}

func NewEmulator(sys System, integ Integrator, cfg Config, log *zap.Logger) *Emulator {
	if cfg.Dt <= 0 {
		cfg.Dt = DefaultConfig().Dt
	}
	if cfg.FieldStrength <= 0 {
		cfg.FieldStrength = DefaultFieldStrength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Emulator{
		sys:   sys,
		integ: integ,
		cfg:   cfg,
		x:     State{cfg.InitAngle, cfg.InitRate},
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		log:   log,
	}
}

// Apply latches the command the fan will use from now on.
func (e *Emulator) Apply(u float64) {
	e.mu.Lock()
	e.u = rig.Clamp(u)
	e.mu.Unlock()
}

// Advance integrates the plant over dt with the latched command.
func (e *Emulator) Advance(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.integ.Step(e.sys, e.x, e.u, e.t, dt)
	if !next.IsValid() {
		e.log.Warn("plant diverged, holding state", zap.Float64("t", e.t))
		return
	}
	e.x = next
	e.t += dt
}

// State returns the true plant state, without sensor noise.
func (e *Emulator) State() rig.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return rig.State{Angle: e.x[0], Rate: e.x[1]}
}

// Time returns the emulated time in seconds.
func (e *Emulator) Time() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.t
}

// Frame renders the current state in instrument axes, so that
// rig.ToBody(e.Frame()).State() recovers the angle and rate.
func (e *Emulator) Frame() rig.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	rate := e.x[1]
	if e.cfg.RateNoise > 0 {
		rate += e.rng.NormFloat64() * e.cfg.RateNoise
	}
	sin, cos := math.Sincos(e.x[0] * math.Pi / 180)
	b := e.cfg.FieldStrength

	var f rig.Frame
	f[0] = e.u
	f[1] = gravity
	f[4] = rate
	f[7], f[9] = -b*sin, -b*cos
	f[10], f[12] = -b*sin, -b*cos
	return f
}

// Send applies u and advances one step, as the rig does on every command.
func (e *Emulator) Send(ctx context.Context, u float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Apply(u)
	e.Advance(e.cfg.Dt)
	return nil
}

func (e *Emulator) Receive(ctx context.Context) (rig.Frame, error) {
	if err := ctx.Err(); err != nil {
		return rig.Frame{}, err
	}
	return e.Frame(), nil
}

func (e *Emulator) Close() error { return nil }

var _ transport.Link = (*Emulator)(nil)

// Listen opens the emulator socket with SO_REUSEPORT.
func Listen(addr string) (net.PacketConn, error) {
	return reuseport.ListenPacket("udp", addr)
}

// Serve answers every command datagram on conn with a frame datagram until ctx
// is done. Malformed commands are logged and dropped.
func (e *Emulator) Serve(ctx context.Context, conn net.PacketConn) error {
	e.log.Info("emulator serving", zap.Stringer("addr", conn.LocalAddr()), zap.Float64("dt", e.cfg.Dt))

	buf := make([]byte, 1500)
	out := make([]byte, 0, transport.FrameLen)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return err
		}
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		u, err := transport.DecodeCommand(buf[:n])
		if err != nil {
			e.log.Debug("dropping datagram", zap.Stringer("from", from), zap.Error(err))
			continue
		}
		e.Apply(u)
		e.Advance(e.cfg.Dt)
		out = transport.EncodeFrame(out, e.Frame())
		if _, err := conn.WriteTo(out, from); err != nil {
			e.log.Warn("failed to answer", zap.Stringer("to", from), zap.Error(err))
		}
	}
}
