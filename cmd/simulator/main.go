package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aeroviewlabs/droneview-simulator/core"
	"github.com/aeroviewlabs/droneview-simulator/env"
	"github.com/aeroviewlabs/droneview-simulator/internal/logging"
	"github.com/aeroviewlabs/droneview-simulator/internal/observability"
	"github.com/aeroviewlabs/droneview-simulator/timectrl"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a JSON episode scenario; defaults apply when omitted")
	framePath := flag.String("frame", "", "Path to a PNG/JPEG aerial still; a synthetic checkerboard is used when omitted")
	frames := flag.Int("frames", 0, "Frame budget override; 0 uses the scenario's control script length")
	accelerated := flag.Bool("accelerated", true, "Run as fast as possible instead of pacing at the scenario fps")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables the endpoint")
	snapshotPath := flag.String("snapshot", "", "Write the final warped view as PNG to this path")
	seed := flag.Int64("seed", 0, "Seed for spawn randomisation; 0 leaves it nondeterministic")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	if err := run(ctx, log, *scenarioPath, *framePath, *frames, *accelerated, *metricsAddr, *snapshotPath, *seed); err != nil {
		log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log logging.Logger, scenarioPath, framePath string, frames int, accelerated bool, metricsAddr, snapshotPath string, seed int64) error {
	scenario, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}

	sim, err := scenario.NewSimulator()
	if err != nil {
		return err
	}

	source, err := openFrameSource(framePath, scenario.FrameSize)
	if err != nil {
		return err
	}

	var collector *observability.SimCollector
	if metricsAddr != "" {
		collector, err = observability.NewSimCollector(nil)
		if err != nil {
			return fmt.Errorf("metrics collector: %w", err)
		}
		serveMetrics(metricsAddr, collector, log)
	}

	opts := []env.EpisodeOption{env.WithLogger(log)}
	if seed != 0 {
		opts = append(opts, env.WithSeed(seed))
	}
	episode, err := env.NewEpisode(sim, source, opts...)
	if err != nil {
		return err
	}

	mode := timectrl.RealTime
	if accelerated {
		mode = timectrl.Accelerated
	}
	pacer, err := timectrl.NewFramePacer(scenario.FPS, mode)
	if err != nil {
		return err
	}

	budget := frames
	if budget <= 0 {
		budget = scenario.TotalTicks()
	}
	if budget <= 0 {
		budget = env.DefaultMaxSteps
	}

	actions := scriptActions(scenario, sim.Dynamics().HoverThrust())

	tracer := otel.Tracer("droneview-simulator/cmd")
	ctx, span := tracer.Start(ctx, "episode")
	span.SetAttributes(
		attribute.Int("fps", scenario.FPS),
		attribute.Int("frame_budget", budget),
		attribute.Float64("reference_altitude_m", scenario.ReferenceAltitude),
	)
	defer span.End()

	start := env.Fixed(scenario.Start.X, scenario.Start.Y, scenario.Start.Z, scenario.Start.HeadingDeg)
	first, err := episode.Reset(ctx, start)
	if err != nil {
		return err
	}
	if collector != nil {
		collector.Resets.Inc()
	}
	lastView := first.View

	frameSize := sim.Projector().FrameSize()
	err = pacer.Run(ctx, budget, func(frame int) (bool, error) {
		action := env.Action{}
		if frame < len(actions) {
			action = actions[frame]
		}

		begin := time.Now()
		res, terminated, err := episode.Step(ctx, action)
		if err != nil {
			return false, err
		}
		lastView = res.View

		if collector != nil {
			collector.Steps.Inc()
			collector.StepDurations.Observe(time.Since(begin).Seconds())
			collector.RecordPose(res.Pose.Position.Z, res.HeadingDeg, res.Pose.Velocity().Norm())
			if cornersLeaveFrame(res.Corners, frameSize) {
				collector.OutOfView.Inc()
			}
		}
		if frame%scenario.FPS == 0 {
			log.Debug(ctx, "simulation step",
				logging.Int("frame", frame),
				logging.Float64("x", res.Pose.Position.X),
				logging.Float64("y", res.Pose.Position.Y),
				logging.Float64("z", res.Pose.Position.Z),
				logging.Float64("heading_deg", res.HeadingDeg),
			)
		}
		return !terminated, nil
	})
	if err != nil {
		return err
	}

	log.Info(ctx, "episode finished", logging.Int("steps", episode.Steps()))

	if snapshotPath != "" {
		if err := writeSnapshot(snapshotPath, lastView); err != nil {
			return err
		}
		log.Info(ctx, "wrote final view", logging.String("path", snapshotPath))
	}
	return nil
}

func loadScenario(path string) (*core.EpisodeScenario, error) {
	if path == "" {
		// Empty document: all defaults apply.
		return core.LoadEpisodeScenario(strings.NewReader(`{}`))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return core.LoadEpisodeScenario(f)
}

func openFrameSource(path string, size image.Point) (env.FrameSource, error) {
	if path == "" {
		return env.NewSyntheticSource(size, size.X/24)
	}
	return env.NewStillSource(path, size)
}

// scriptActions converts the scenario's physical control segments into
// normalised episode actions.
func scriptActions(scenario *core.EpisodeScenario, hoverThrust float64) []env.Action {
	actions := make([]env.Action, 0, scenario.TotalTicks())
	for _, seg := range scenario.Controls {
		action := env.Action{
			Roll:    seg.RollDeg / env.LinearFactorDeg,
			Pitch:   seg.PitchDeg / env.LinearFactorDeg,
			YawRate: seg.YawRateDegS / env.AngularFactorDegS,
			Thrust:  seg.ThrustDelta / hoverThrust,
		}
		for i := 0; i < seg.Repeat; i++ {
			actions = append(actions, action)
		}
	}
	return actions
}

func cornersLeaveFrame(corners [4]image.Point, frameSize image.Point) bool {
	bounds := image.Rect(0, 0, frameSize.X, frameSize.Y)
	for _, c := range corners {
		if !c.In(bounds) {
			return true
		}
	}
	return false
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info(context.Background(), "serving metrics", logging.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server stopped", logging.String("error", err.Error()))
		}
	}()
}

func writeSnapshot(path string, view *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, view); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}
