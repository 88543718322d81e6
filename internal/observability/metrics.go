package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation loop and
// provides a ready-to-serve /metrics handler.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Steps         prometheus.Counter
	Resets        prometheus.Counter
	StepDurations prometheus.Histogram
	OutOfView     prometheus.Counter

	AltitudeMeters prometheus.Gauge
	HeadingDegrees prometheus.Gauge
	SpeedMPS       prometheus.Gauge
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Total number of simulation steps executed.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}
	resets, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_episode_resets_total",
		Help: "Total number of episode resets.",
	}), "sim_episode_resets_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall time of one simulation step including the image warp.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	outOfView, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_out_of_view_steps_total",
		Help: "Steps whose projected footprint left the source frame.",
	}), "sim_out_of_view_steps_total")
	if err != nil {
		return nil, err
	}

	altitude, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_altitude_meters",
		Help: "Current simulated altitude.",
	}), "sim_altitude_meters")
	if err != nil {
		return nil, err
	}
	heading, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_heading_degrees",
		Help: "Current simulated heading, wrapped to [0, 360).",
	}), "sim_heading_degrees")
	if err != nil {
		return nil, err
	}
	speed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_speed_meters_per_second",
		Help: "Magnitude of the current derived velocity.",
	}), "sim_speed_meters_per_second")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:       gatherer,
		Steps:          steps,
		Resets:         resets,
		StepDurations:  durations,
		OutOfView:      outOfView,
		AltitudeMeters: altitude,
		HeadingDegrees: heading,
		SpeedMPS:       speed,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordPose updates the pose-derived gauges after a step.
func (c *SimCollector) RecordPose(altitude, headingDeg, speed float64) {
	if c == nil {
		return
	}
	if c.AltitudeMeters != nil {
		c.AltitudeMeters.Set(altitude)
	}
	if c.HeadingDegrees != nil {
		c.HeadingDegrees.Set(headingDeg)
	}
	if c.SpeedMPS != nil {
		c.SpeedMPS.Set(speed)
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
