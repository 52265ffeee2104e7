package transport

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/san-kum/remotelab/internal/rig"
)

// Datagram sizes. Every value on the wire is a little-endian float32.
const (
	CommandLen = 4
	FrameLen   = rig.FrameLen * 4
)

func EncodeCommand(b []byte, u float64) []byte {
	b = b[:0]
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(u)))
}

func DecodeCommand(b []byte) (float64, error) {
	if len(b) != CommandLen {
		return 0, fmt.Errorf("command datagram of %d bytes, want %d", len(b), CommandLen)
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
}

func EncodeFrame(b []byte, f rig.Frame) []byte {
	b = b[:0]
	for _, v := range f {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return b
}

func DecodeFrame(b []byte) (rig.Frame, error) {
	var f rig.Frame
	if len(b) != FrameLen {
		return f, fmt.Errorf("%w: %d bytes, want %d", rig.ErrInvalidFrame, len(b), FrameLen)
	}
	for i := range f {
		f[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	if !f.IsValid() {
		return f, fmt.Errorf("%w: non-finite value", rig.ErrInvalidFrame)
	}
	return f, nil
}
