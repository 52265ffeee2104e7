package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/san-kum/remotelab/internal/rig"
)

func TestCommandCodec(t *testing.T) {
	b := EncodeCommand(nil, -0.75)
	if len(b) != CommandLen {
		t.Fatalf("len = %d, want %d", len(b), CommandLen)
	}
	u, err := DecodeCommand(b)
	if err != nil {
		t.Fatal(err)
	}
	if u != -0.75 {
		t.Errorf("u = %v, want -0.75", u)
	}
	if _, err := DecodeCommand([]byte{1, 2}); err == nil {
		t.Error("short command accepted")
	}
}

func TestFrameCodec(t *testing.T) {
	var f rig.Frame
	for i := range f {
		f[i] = float64(i) - 6.5
	}
	b := EncodeFrame(nil, f)
	if len(b) != FrameLen {
		t.Fatalf("len = %d, want %d", len(b), FrameLen)
	}
	got, err := DecodeFrame(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != f {
		t.Errorf("frame = %v, want %v", got, f)
	}
}

func TestDecodeFrameRejectsBadDatagrams(t *testing.T) {
	nan := EncodeFrame(nil, rig.Frame{})
	nan[0], nan[1], nan[2], nan[3] = 0x00, 0x00, 0xc0, 0x7f // float32 NaN

	tests := []struct {
		name string
		b    []byte
	}{
		{"short", make([]byte, FrameLen-4)},
		{"long", make([]byte, FrameLen+4)},
		{"nan", nan},
	}
	for _, tt := range tests {
		if _, err := DecodeFrame(tt.b); !errors.Is(err, rig.ErrInvalidFrame) {
			t.Errorf("%s: err = %v, want ErrInvalidFrame", tt.name, err)
		}
	}
}

func fakeRig(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dialFake(t *testing.T, rigConn *net.UDPConn, timeout time.Duration) *UDPLink {
	t.Helper()
	cfg := Config{
		HostIP:   "127.0.0.1",
		HostPort: rigConn.LocalAddr().(*net.UDPAddr).Port,
		BindIP:   "127.0.0.1",
		BindPort: 0,
		Timeout:  timeout,
	}
	link, err := Dial(cfg, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { link.Close() })
	return link
}

func TestUDPLinkExchange(t *testing.T) {
	rigConn := fakeRig(t)
	link := dialFake(t, rigConn, time.Second)

	var want rig.Frame
	want[0] = 0.5
	want[4] = -3

	go func() {
		buf := make([]byte, 64)
		n, from, err := rigConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		u, err := DecodeCommand(buf[:n])
		if err != nil {
			return
		}
		f := want
		f[0] = u
		rigConn.WriteToUDP(EncodeFrame(nil, f), from)
	}()

	ctx := context.Background()
	if err := link.Send(ctx, 0.5); err != nil {
		t.Fatal(err)
	}
	got, err := link.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("frame = %v, want %v", got, want)
	}
}

func TestUDPLinkTimeout(t *testing.T) {
	link := dialFake(t, fakeRig(t), 50*time.Millisecond)
	if _, err := link.Receive(context.Background()); !errors.Is(err, rig.ErrLinkTimeout) {
		t.Errorf("err = %v, want ErrLinkTimeout", err)
	}
}

func TestUDPLinkContextDeadline(t *testing.T) {
	link := dialFake(t, fakeRig(t), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := link.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("receive took %v", d)
	}
}

func TestUDPLinkReturnsAfterContextDone(t *testing.T) {
	link := dialFake(t, fakeRig(t), time.Second)

	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Millisecond)
		_, err := link.Receive(ctx)
		if ctx.Err() == nil {
			t.Fatalf("attempt %d: receive returned %v before the context was done", i, err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("attempt %d: err = %v, want context.DeadlineExceeded", i, err)
		}
		cancel()
	}
}

func TestDialRequiresHost(t *testing.T) {
	if _, err := Dial(Config{HostPort: 1, BindPort: 0}, nil); err == nil {
		t.Error("dial without host succeeded")
	}
}
