// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
)

// EpisodeScenario is the parsed form of a JSON episode description: simulator
// configuration plus an optional scripted control sequence. It is what the
// headless runner and tests feed from.
type EpisodeScenario struct {
	FrameSize         image.Point
	ViewSize          image.Point
	ReferenceAltitude float64
	FPS               int
	Start             StartPose
	Perturbation      Vector3
	Controls          []ControlSegment
}

// StartPose is the initial placement for FlightDynamics.Reset.
type StartPose struct {
	X, Y, Z    float64
	HeadingDeg float64
}

// ControlSegment is one scripted control input, held for Repeat ticks.
type ControlSegment struct {
	RollDeg     float64
	PitchDeg    float64
	YawRateDegS float64
	ThrustDelta float64
	Repeat      int
}

// internal JSON shapes – kept unexported so we're free to evolve them.
type episodeScenarioJSON struct {
	Frame             *sizeJSON     `json:"frame"`
	View              *sizeJSON     `json:"view"`
	ReferenceAltitude *float64      `json:"reference_altitude_m"`
	FPS               *int          `json:"fps"`
	Start             startJSON     `json:"start"`
	Perturbation      *vectorJSON   `json:"perturbation_n"`
	Controls          []controlJSON `json:"controls"`
}

type sizeJSON struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type startJSON struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	HeadingDeg float64 `json:"heading_deg"`
}

type vectorJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type controlJSON struct {
	RollDeg     float64 `json:"roll_deg"`
	PitchDeg    float64 `json:"pitch_deg"`
	YawRateDegS float64 `json:"yaw_rate_deg_s"`
	ThrustDelta float64 `json:"thrust_delta_n"`
	Repeat      int     `json:"repeat"`
}

// Defaults match the recorded footage the simulator was built around: 4K
// source frames, a 480x288 view, 50 m capture altitude, 30 fps.
var (
	defaultFrameSize = image.Point{X: 3840, Y: 2160}
	defaultViewSize  = image.Point{X: 480, Y: 288}
)

const (
	defaultReferenceAltitude = 50.0
	defaultFPS               = 30
)

// LoadEpisodeScenario reads a JSON episode scenario from r, applying defaults
// for any omitted dimension, altitude, or frame rate.
//
// It deliberately fails only on JSON / structural errors and obviously
// unusable values; full configuration validation happens where the values are
// consumed, in the simulator constructors.
func LoadEpisodeScenario(r io.Reader) (*EpisodeScenario, error) {
	var payload episodeScenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadEpisodeScenario: decode failed: %w", err)
	}

	scenario := &EpisodeScenario{
		FrameSize:         defaultFrameSize,
		ViewSize:          defaultViewSize,
		ReferenceAltitude: defaultReferenceAltitude,
		FPS:               defaultFPS,
		Start: StartPose{
			X:          payload.Start.X,
			Y:          payload.Start.Y,
			Z:          payload.Start.Z,
			HeadingDeg: payload.Start.HeadingDeg,
		},
	}

	if payload.Frame != nil {
		scenario.FrameSize = image.Point{X: payload.Frame.Width, Y: payload.Frame.Height}
	}
	if payload.View != nil {
		scenario.ViewSize = image.Point{X: payload.View.Width, Y: payload.View.Height}
	}
	if payload.ReferenceAltitude != nil {
		scenario.ReferenceAltitude = *payload.ReferenceAltitude
	}
	if payload.FPS != nil {
		if *payload.FPS <= 0 {
			return nil, fmt.Errorf("LoadEpisodeScenario: fps must be positive, got %d", *payload.FPS)
		}
		scenario.FPS = *payload.FPS
	}
	if payload.Perturbation != nil {
		scenario.Perturbation = Vector3{
			X: payload.Perturbation.X,
			Y: payload.Perturbation.Y,
			Z: payload.Perturbation.Z,
		}
	}

	scenario.Controls = make([]ControlSegment, 0, len(payload.Controls))
	for i, c := range payload.Controls {
		if c.Repeat < 0 {
			return nil, fmt.Errorf("LoadEpisodeScenario: controls[%d]: repeat must not be negative, got %d", i, c.Repeat)
		}
		repeat := c.Repeat
		if repeat == 0 {
			repeat = 1
		}
		scenario.Controls = append(scenario.Controls, ControlSegment{
			RollDeg:     c.RollDeg,
			PitchDeg:    c.PitchDeg,
			YawRateDegS: c.YawRateDegS,
			ThrustDelta: c.ThrustDelta,
			Repeat:      repeat,
		})
	}

	return scenario, nil
}

// NewSimulator builds a Simulator from the scenario's configuration.
func (s *EpisodeScenario) NewSimulator() (*Simulator, error) {
	return NewSimulator(s.FrameSize, s.ViewSize, s.ReferenceAltitude, s.FPS,
		WithPerturbation(s.Perturbation))
}

// TotalTicks returns the length of the scripted control sequence in ticks.
func (s *EpisodeScenario) TotalTicks() int {
	total := 0
	for _, c := range s.Controls {
		total += c.Repeat
	}
	return total
}
