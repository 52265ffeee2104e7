package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Objective scores one parameter set; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type Point struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.GOMAXPROCS(0)}
}

func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// Points enumerates the cartesian product of the ranges.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, base := range points {
			for _, val := range g.ranges[depth] {
				p := make(map[string]float64, len(base)+1)
				for k, v := range base {
					p[k] = v
				}
				p[name] = val
				next = append(next, p)
			}
		}
		points = next
	}
	return points
}

// Search evaluates every grid point in parallel and returns them best first.
// Points whose objective fails sort last; Search fails only when all do.
func (g *GridSearch) Search(ctx context.Context, objective Objective) ([]Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid search: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}
	params := g.Points()
	results := make([]Point, len(params))
	var failed atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, p := range params {
		i, p := i, p
		eg.Go(func() error {
			score, err := objective(ctx, p)
			if err == nil && math.IsNaN(score) {
				err = errors.New("objective returned NaN")
			}
			if err != nil {
				failed.Add(1)
				score = math.Inf(1)
			}
			results[i] = Point{Params: p, Score: score, Err: err}
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if int(failed.Load()) == len(results) && len(results) > 0 {
		return results, fmt.Errorf("grid search: all %d points failed: %w", len(results), results[0].Err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	return results, nil
}

// MetricObjective runs base with the grid params overlaid and scores the named
// result metric. With maximize set the metric is negated.
func MetricObjective(base Trial, metric string, maximize bool) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		res, err := base.With(params).Run(ctx)
		if err != nil {
			return 0, err
		}
		v, ok := res.Metrics[metric]
		if !ok {
			return 0, fmt.Errorf("run has no metric %q", metric)
		}
		if maximize {
			return -v, nil
		}
		return v, nil
	}
}
