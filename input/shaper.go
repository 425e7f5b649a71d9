package input

import (
	"math"

	"github.com/akmonengine/rover/config"
)

// ControlSignal is what the vehicle receives every frame.
type ControlSignal struct {
	EngineForce   float64 `json:"engineForce"`
	SteeringAngle float64 `json:"steeringAngle"`
	BrakeForce    float64 `json:"brakeForce"`
	Reset         bool    `json:"reset"`
}

// Shaper ramps the engine and brake forces over frames. Steering is not ramped.
type Shaper struct {
	cfg        config.Shaper
	accelerate float64
	brake      float64
}

func NewShaper(cfg config.Shaper) *Shaper {
	return &Shaper{cfg: cfg, brake: cfg.BrakeIdle}
}

// Update advances the ramps by one frame.
func (s *Shaper) Update(flags Flags) ControlSignal {
	switch {
	case flags.Forward:
		s.accelerate = math.Min(s.accelerate+s.cfg.AccelerateStep, s.cfg.AccelerateMax)
	case flags.Backward:
		s.accelerate = math.Max(s.accelerate-s.cfg.AccelerateStep, s.cfg.AccelerateMin)
	default:
		// no coast down
		s.accelerate = 0
	}

	if flags.Brake {
		s.brake = math.Min(s.brake+s.cfg.BrakeStep, s.cfg.BrakeMax)
	} else {
		s.brake = s.cfg.BrakeIdle
	}

	signal := ControlSignal{
		EngineForce:   s.accelerate,
		SteeringAngle: s.steering(flags),
		BrakeForce:    s.brake,
	}

	// the ramps keep their state, only this frame is zeroed
	if flags.Reset {
		signal.Reset = true
		signal.EngineForce = 0
		signal.BrakeForce = 0
	}

	return signal
}

func (s *Shaper) steering(flags Flags) float64 {
	switch {
	case flags.Left && !flags.Right:
		return s.cfg.MaxSteering
	case flags.Right && !flags.Left:
		return -s.cfg.MaxSteering
	}
	return 0
}

// Accelerate returns the ramp state
func (s *Shaper) Accelerate() float64 {
	return s.accelerate
}

func (s *Shaper) Brake() float64 {
	return s.brake
}
