package optim

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestPoints(t *testing.T) {
	points := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2, 3}, {10, 20}}).Points()
	if len(points) != 6 {
		t.Fatalf("points = %d, want 6", len(points))
	}
	found := false
	for _, p := range points {
		if reflect.DeepEqual(p, map[string]float64{"a": 3, "b": 20}) {
			found = true
		}
	}
	if !found {
		t.Errorf("missing a=3 b=20 in %v", points)
	}

	empty := NewGridSearch(nil, nil).Points()
	if len(empty) != 1 || len(empty[0]) != 0 {
		t.Errorf("empty grid = %v, want one empty point", empty)
	}
}

func TestSearchOrdersByScore(t *testing.T) {
	gs := NewGridSearch([]string{"x", "y"}, [][]float64{{-2, -1, 0, 1, 2}, {0, 1, 2}})
	gs.SetWorkers(3)

	bowl := func(_ context.Context, p map[string]float64) (float64, error) {
		return (p["x"]-1)*(p["x"]-1) + (p["y"]-2)*(p["y"]-2), nil
	}
	points, err := gs.Search(context.Background(), bowl)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 15 {
		t.Fatalf("points = %d, want 15", len(points))
	}
	if !reflect.DeepEqual(points[0].Params, map[string]float64{"x": 1, "y": 2}) || points[0].Score != 0 {
		t.Errorf("best = %+v, want x=1 y=2 score 0", points[0])
	}
	for i := 1; i < len(points); i++ {
		if points[i].Score < points[i-1].Score {
			t.Errorf("point %d score %v below previous %v", i, points[i].Score, points[i-1].Score)
		}
	}
}

func TestSearchFailures(t *testing.T) {
	gs := NewGridSearch([]string{"k"}, [][]float64{{1, 2, 3}})

	boom := errors.New("diverged")
	some := func(_ context.Context, p map[string]float64) (float64, error) {
		if p["k"] == 2 {
			return 0, boom
		}
		if p["k"] == 3 {
			return math.NaN(), nil
		}
		return p["k"], nil
	}
	points, err := gs.Search(context.Background(), some)
	if err != nil {
		t.Fatal(err)
	}
	if points[0].Params["k"] != 1 {
		t.Errorf("best k = %v, want 1", points[0].Params["k"])
	}
	if points[1].Err == nil {
		t.Error("failed point has no error")
	}
	if !math.IsInf(points[2].Score, 1) {
		t.Errorf("NaN point score = %v, want +Inf", points[2].Score)
	}

	all := func(context.Context, map[string]float64) (float64, error) { return 0, boom }
	_, err = gs.Search(context.Background(), all)
	if err == nil || !strings.Contains(err.Error(), "all 3 points failed") || !errors.Is(err, boom) {
		t.Errorf("err = %v, want all points failed wrapping %v", err, boom)
	}
}

func TestSearchMismatchedRanges(t *testing.T) {
	if _, err := NewGridSearch([]string{"a", "b"}, [][]float64{{1}}).Search(context.Background(), nil); err == nil {
		t.Error("mismatched ranges accepted")
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gs := NewGridSearch([]string{"k"}, [][]float64{{1, 2}})
	_, err := gs.Search(ctx, func(context.Context, map[string]float64) (float64, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTrialSettles(t *testing.T) {
	tr := DefaultTrial()
	tr.Keep = true
	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations != 400 {
		t.Errorf("iterations = %d, want 400", res.Iterations)
	}
	if res.Samples[0].T != 0 || math.Abs(res.Samples[1].T-0.05) > 1e-9 {
		t.Errorf("sample times %v, %v, want 0, 0.05", res.Samples[0].T, res.Samples[1].T)
	}
	if math.Abs(res.Final.Rate) >= 1 {
		t.Errorf("final rate = %v, not settled", res.Final.Rate)
	}
	if _, ok := res.Metrics["stability"]; !ok {
		t.Error("missing stability metric")
	}
}

func TestTrialErrors(t *testing.T) {
	noDuration := DefaultTrial()
	noDuration.Duration = 0

	noDt := DefaultTrial()
	noDt.Plant.Dt = 0

	nanDt := DefaultTrial()
	nanDt.Plant.Dt = math.NaN()

	tests := []struct {
		name string
		tr   Trial
	}{
		{"zero duration", noDuration},
		{"zero dt", noDt},
		{"NaN dt", nanDt},
		{"unknown param", DefaultTrial().With(map[string]float64{"bogus": 1})},
	}
	for _, tt := range tests {
		if _, err := tt.tr.Run(context.Background()); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestMetricObjectiveTunesPID(t *testing.T) {
	base := DefaultTrial()
	base.Controller = "pid"
	base.Duration = 10

	gs := NewGridSearch([]string{"kp"}, [][]float64{{0.001, 0.05, 0.2}})
	points, err := gs.Search(context.Background(), MetricObjective(base, "mean_rate", false))
	if err != nil {
		t.Fatal(err)
	}
	if kp := points[len(points)-1].Params["kp"]; kp != 0.001 {
		t.Errorf("worst kp = %v, want 0.001", kp)
	}

	_, err = MetricObjective(base, "missing", false)(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "no metric") {
		t.Errorf("err = %v, want missing metric", err)
	}
}
