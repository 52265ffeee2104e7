package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/rig"
)

const (
	LoopIterationsH = "The total number of control loop iterations completed"
	LoopIterationsN = "remotelab_loop_iterations"
	LoopTimeoutsH   = "The total number of rig receive timeouts"
	LoopTimeoutsN   = "remotelab_loop_timeouts"
	LoopInvalidH    = "The total number of invalid sensor frames dropped"
	LoopInvalidN    = "remotelab_loop_invalid_frames"
	LoopRTTH        = "Command to sensor frame round trip time in seconds"
	LoopRTTN        = "remotelab_loop_round_trip_seconds"

	StateCommandH = "The last command sent to the rig"
	StateCommandN = "remotelab_state_command"
	StateRateH    = "The last measured angular rate in deg/s"
	StateRateN    = "remotelab_state_rate"
	StateAngleH   = "The last measured heading in degrees"
	StateAngleN   = "remotelab_state_angle"
)

// Collectors are the live loop metrics exposed to Prometheus.
type Collectors struct {
	Iterations prometheus.Counter
	Timeouts   prometheus.Counter
	Invalid    prometheus.Counter
	RoundTrip  prometheus.Histogram
	Command    prometheus.Gauge
	Rate       prometheus.Gauge
	Angle      prometheus.Gauge
}

// NewCollectors registers the loop metrics on reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{Name: LoopIterationsN, Help: LoopIterationsH}),
		Timeouts:   prometheus.NewCounter(prometheus.CounterOpts{Name: LoopTimeoutsN, Help: LoopTimeoutsH}),
		Invalid:    prometheus.NewCounter(prometheus.CounterOpts{Name: LoopInvalidN, Help: LoopInvalidH}),
		RoundTrip: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    LoopRTTN,
			Help:    LoopRTTH,
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		Command: prometheus.NewGauge(prometheus.GaugeOpts{Name: StateCommandN, Help: StateCommandH}),
		Rate:    prometheus.NewGauge(prometheus.GaugeOpts{Name: StateRateN, Help: StateRateH}),
		Angle:   prometheus.NewGauge(prometheus.GaugeOpts{Name: StateAngleN, Help: StateAngleH}),
	}
	reg.MustRegister(c.Iterations, c.Timeouts, c.Invalid, c.RoundTrip, c.Command, c.Rate, c.Angle)
	return c
}

// OnSample updates the state gauges; it makes Collectors a loop observer.
func (c *Collectors) OnSample(s rig.Sample) {
	c.Iterations.Inc()
	c.Command.Set(s.Command)
	c.Rate.Set(s.Rate)
	c.Angle.Set(s.Angle)
}

// Serve exposes reg on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
