package main

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/san-kum/remotelab/internal/fuzzy"
	"github.com/san-kum/remotelab/internal/rig"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams(map[string]string{"kp": "0.05", "target": "-2"})
	if err != nil {
		t.Fatal(err)
	}
	if got["kp"] != 0.05 || got["target"] != -2 {
		t.Errorf("params = %v", got)
	}
	if _, err := parseParams(map[string]string{"kp": "fast"}); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestCommandSurface(t *testing.T) {
	rates, commands := commandSurface(fuzzy.NewDefault(), 30, 61)
	if len(rates) != 61 || rates[0] != -30 || rates[60] != 30 || rates[30] != 0 {
		t.Fatalf("rates span %v .. %v", rates[0], rates[60])
	}
	if commands[30] != 0 {
		t.Errorf("command at zero rate = %v", commands[30])
	}
	for i := range rates {
		if math.Abs(commands[i]+commands[60-i]) > 1e-12 {
			t.Errorf("surface not odd at rate %v", rates[i])
		}
		if rates[i] > 0 && commands[i] >= 0 {
			t.Errorf("rate %v gave non-negative command %v", rates[i], commands[i])
		}
	}
}

type countingLink struct {
	sends int
}

func (c *countingLink) Send(ctx context.Context, u float64) error { c.sends++; return nil }
func (c *countingLink) Receive(ctx context.Context) (rig.Frame, error) {
	return rig.Frame{}, nil
}
func (c *countingLink) Close() error { return nil }

func TestPacedLink(t *testing.T) {
	inner := &countingLink{}
	link := newPacedLink(inner, 20*time.Millisecond)

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := link.Send(context.Background(), 0); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("4 sends took %v, want at least 3 periods", elapsed)
	}
	if inner.sends != 4 {
		t.Errorf("sends = %d, want 4", inner.sends)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	link.next = time.Now().Add(time.Hour)
	if err := link.Send(ctx, 0); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"large_b=15,20, 25", "large_a=2:6:5"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "large_a" || names[1] != "large_b" {
		t.Fatalf("names = %v", names)
	}
	if want := []float64{2, 3, 4, 5, 6}; len(ranges[0]) != 5 || ranges[0][4] != want[4] || ranges[0][1] != want[1] {
		t.Errorf("range = %v, want %v", ranges[0], want)
	}
	if len(ranges[1]) != 3 || ranges[1][2] != 25 {
		t.Errorf("list = %v", ranges[1])
	}

	for _, bad := range [][]string{nil, {"kp"}, {"=1,2"}, {"kp=a,b"}, {"kp=0:1:1"}} {
		if _, _, err := parseGrid(bad); err == nil {
			t.Errorf("parseGrid(%q) should fail", bad)
		}
	}
}
