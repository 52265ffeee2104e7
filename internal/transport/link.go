// Package transport carries commands to the rig and sensor frames back over UDP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/libp2p/go-reuseport"
	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/rig"
)

const (
	DefaultHostPort = 6503
	DefaultBindPort = 6501
	DefaultTimeout  = time.Second
)

// Link is one exchange channel with the rig.
type Link interface {
	Send(ctx context.Context, u float64) error
	Receive(ctx context.Context) (rig.Frame, error)
	Close() error
}

type Config struct {
	HostIP   string
	HostPort int
	BindIP   string
	BindPort int
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		HostPort: DefaultHostPort,
		BindPort: DefaultBindPort,
		Timeout:  DefaultTimeout,
	}
}

// UDPLink talks to the rig from a fixed local port.
type UDPLink struct {
	conn    net.PacketConn
	remote  *net.UDPAddr
	timeout time.Duration
	log     *zap.Logger
	txBuf   []byte
	rxBuf   []byte
}

// Dial binds the local port and resolves the rig address. The socket is
// opened with SO_REUSEPORT so an emulator can share the host during bench tests.
func Dial(cfg Config, log *zap.Logger) (*UDPLink, error) {
	if cfg.HostIP == "" {
		return nil, errors.New("transport: rig host address is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.HostIP, strconv.Itoa(cfg.HostPort)))
	if err != nil {
		return nil, fmt.Errorf("resolve rig address: %w", err)
	}
	conn, err := reuseport.ListenPacket("udp", net.JoinHostPort(cfg.BindIP, strconv.Itoa(cfg.BindPort)))
	if err != nil {
		return nil, fmt.Errorf("bind local port %d: %w", cfg.BindPort, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("link open",
		zap.Stringer("local", conn.LocalAddr()),
		zap.Stringer("remote", remote),
		zap.Duration("timeout", cfg.Timeout))

	return &UDPLink{
		conn:    conn,
		remote:  remote,
		timeout: cfg.Timeout,
		log:     log,
		txBuf:   make([]byte, 0, CommandLen),
		rxBuf:   make([]byte, 1500),
	}, nil
}

func (l *UDPLink) LocalAddr() net.Addr { return l.conn.LocalAddr() }

func (l *UDPLink) Send(ctx context.Context, u float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.txBuf = EncodeCommand(l.txBuf, u)
	if _, err := l.conn.WriteTo(l.txBuf, l.remote); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Receive waits for the next frame from the rig. Datagrams from other peers
// are dropped. A read timeout is reported as rig.ErrLinkTimeout.
func (l *UDPLink) Receive(ctx context.Context) (rig.Frame, error) {
	deadline := time.Now().Add(l.timeout)
	ctxDeadline := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		ctxDeadline = true
	}
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return rig.Frame{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return rig.Frame{}, err
		}
		n, from, err := l.conn.ReadFrom(l.rxBuf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return rig.Frame{}, ctxErr
				}
				if ctxDeadline {
					// The socket deadline can fire just ahead of the context timer.
					<-ctx.Done()
					return rig.Frame{}, ctx.Err()
				}
				return rig.Frame{}, rig.ErrLinkTimeout
			}
			return rig.Frame{}, fmt.Errorf("receive frame: %w", err)
		}
		if !l.fromRig(from) {
			l.log.Debug("dropping datagram from unknown peer", zap.Stringer("from", from))
			continue
		}
		return DecodeFrame(l.rxBuf[:n])
	}
}

func (l *UDPLink) fromRig(a net.Addr) bool {
	ua, ok := a.(*net.UDPAddr)
	if !ok {
		return false
	}
	if ua.Port != l.remote.Port {
		return false
	}
	return ua.IP.Equal(l.remote.IP) || (l.remote.IP.IsUnspecified() && ua.IP.IsLoopback())
}

func (l *UDPLink) Close() error {
	return l.conn.Close()
}
