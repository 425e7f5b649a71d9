// Package config loads the runtime settings of the sandbox: defaults, then an
// optional YAML file, then ROVER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

const envPrefix = "ROVER"

// Drive wheel policies
const (
	DriveAll   = "all"
	DriveFront = "front"
	DriveRear  = "rear"
)

// Spin estimators used for the throw impulse
const (
	SpinDelta = "delta"
	SpinProxy = "proxy"
)

type Config struct {
	LogLevel string `mapstructure:"logLevel"`
	// Layout is a scene layout file, empty for the built-in one.
	Layout string `mapstructure:"layout"`

	Physics     Physics     `mapstructure:"physics"`
	Frame       Frame       `mapstructure:"frame"`
	Vehicle     Vehicle     `mapstructure:"vehicle"`
	Shaper      Shaper      `mapstructure:"shaper"`
	Interaction Interaction `mapstructure:"interaction"`
	Telemetry   Telemetry   `mapstructure:"telemetry"`
}

type Physics struct {
	Gravity  [3]float64 `mapstructure:"gravity"`
	Substeps int        `mapstructure:"substeps"`
	Workers  int        `mapstructure:"workers"`
}

// Frame tunes the frame driver. FixedStep 0 steps the world once per frame with the clamped dt.
type Frame struct {
	MaxStep       float64       `mapstructure:"maxStep"`
	FixedStep     float64       `mapstructure:"fixedStep"`
	MaxFixedSteps int           `mapstructure:"maxFixedSteps"`
	DebugCooldown time.Duration `mapstructure:"debugCooldown"`
	TickRate      float64       `mapstructure:"tickRate"`
}

type Vehicle struct {
	WheelRestLength       float64      `mapstructure:"wheelRestLength"`
	SuspensionStiffness   float64      `mapstructure:"suspensionStiffness"`
	MaxSuspensionTravel   float64      `mapstructure:"maxSuspensionTravel"`
	SuspensionCompression float64      `mapstructure:"suspensionCompression"`
	SuspensionRelaxation  float64      `mapstructure:"suspensionRelaxation"`
	FrictionSlip          float64      `mapstructure:"frictionSlip"`
	MaxSuspensionForce    float64      `mapstructure:"maxSuspensionForce"`
	SideFrictionStiffness float64      `mapstructure:"sideFrictionStiffness"`
	ChassisMass           float64      `mapstructure:"chassisMass"`
	SpawnPosition         [3]float64   `mapstructure:"spawnPosition"`
	SpawnRotation         [3]float64   `mapstructure:"spawnRotation"` // degrees, XYZ order
	ConnectionPoints      [][3]float64 `mapstructure:"connectionPoints"`
	DriveWheels           string       `mapstructure:"driveWheels"`
	RollRateFactor        float64      `mapstructure:"rollRateFactor"`
}

type Shaper struct {
	MaxSteering    float64 `mapstructure:"maxSteering"`
	AccelerateStep float64 `mapstructure:"accelerateStep"`
	AccelerateMin  float64 `mapstructure:"accelerateMin"`
	AccelerateMax  float64 `mapstructure:"accelerateMax"`
	BrakeStep      float64 `mapstructure:"brakeStep"`
	BrakeMax       float64 `mapstructure:"brakeMax"`
	BrakeIdle      float64 `mapstructure:"brakeIdle"`
}

type Interaction struct {
	Proximity       float64 `mapstructure:"proximity"`
	ThrowFactor     float64 `mapstructure:"throwFactor"`
	SpinFactor      float64 `mapstructure:"spinFactor"`
	SpinEstimator   string  `mapstructure:"spinEstimator"`
	HandProxies     bool    `mapstructure:"handProxies"`
	HandProxyRadius float64 `mapstructure:"handProxyRadius"`
}

type Telemetry struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load reads the configuration. path may be empty, in which case only the
// defaults and the environment are used.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("layout", "")

	v.SetDefault("physics.gravity", [3]float64{0, -9.81, 0})
	v.SetDefault("physics.substeps", 4)
	v.SetDefault("physics.workers", 1)

	v.SetDefault("frame.maxStep", 1.0/30.0)
	v.SetDefault("frame.fixedStep", 0.0)
	v.SetDefault("frame.maxFixedSteps", 4)
	v.SetDefault("frame.debugCooldown", 300*time.Millisecond)
	v.SetDefault("frame.tickRate", 60.0)

	v.SetDefault("vehicle.wheelRestLength", 0.101)
	v.SetDefault("vehicle.suspensionStiffness", 100.0)
	v.SetDefault("vehicle.maxSuspensionTravel", 0.5)
	v.SetDefault("vehicle.suspensionCompression", 20.0)
	v.SetDefault("vehicle.suspensionRelaxation", 0.88)
	v.SetDefault("vehicle.frictionSlip", 15.0)
	v.SetDefault("vehicle.maxSuspensionForce", 6000.0)
	v.SetDefault("vehicle.sideFrictionStiffness", 1.0)
	v.SetDefault("vehicle.chassisMass", 8.0)
	v.SetDefault("vehicle.spawnPosition", [3]float64{0, 2, 0})
	v.SetDefault("vehicle.spawnRotation", [3]float64{0, 0, 0})
	v.SetDefault("vehicle.connectionPoints", [][3]float64{
		{0.15, -0.08, 0.15},
		{-0.15, -0.08, 0.15},
		{0.15, -0.08, -0.15},
		{-0.15, -0.08, -0.15},
	})
	v.SetDefault("vehicle.driveWheels", DriveAll)
	v.SetDefault("vehicle.rollRateFactor", 1.0)

	v.SetDefault("shaper.maxSteering", 0.4)
	v.SetDefault("shaper.accelerateStep", 0.25)
	v.SetDefault("shaper.accelerateMin", -10.0)
	v.SetDefault("shaper.accelerateMax", 10.0)
	v.SetDefault("shaper.brakeStep", 0.002)
	v.SetDefault("shaper.brakeMax", 1.0)
	v.SetDefault("shaper.brakeIdle", 0.05)

	v.SetDefault("interaction.proximity", 0.05)
	v.SetDefault("interaction.throwFactor", 1.5)
	v.SetDefault("interaction.spinFactor", 0.01)
	v.SetDefault("interaction.spinEstimator", SpinDelta)
	v.SetDefault("interaction.handProxies", true)
	v.SetDefault("interaction.handProxyRadius", 0.03)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.address", ":8080")
}

func (c Config) Validate() error {
	var errs []error

	if c.Physics.Substeps < 1 {
		errs = append(errs, fmt.Errorf("physics.substeps must be at least 1, got %d", c.Physics.Substeps))
	}
	if !positive(c.Frame.MaxStep) {
		errs = append(errs, fmt.Errorf("frame.maxStep must be positive, got %v", c.Frame.MaxStep))
	}
	if c.Frame.FixedStep < 0 || math.IsNaN(c.Frame.FixedStep) {
		errs = append(errs, fmt.Errorf("frame.fixedStep must not be negative, got %v", c.Frame.FixedStep))
	}
	if c.Frame.FixedStep > 0 && c.Frame.MaxFixedSteps < 1 {
		errs = append(errs, fmt.Errorf("frame.maxFixedSteps must be at least 1 with a fixed step"))
	}
	if !positive(c.Frame.TickRate) {
		errs = append(errs, fmt.Errorf("frame.tickRate must be positive, got %v", c.Frame.TickRate))
	}
	if c.Shaper.MaxSteering < 0 {
		errs = append(errs, fmt.Errorf("shaper.maxSteering must not be negative, got %v", c.Shaper.MaxSteering))
	}
	if c.Shaper.AccelerateMin > c.Shaper.AccelerateMax {
		errs = append(errs, fmt.Errorf("shaper.accelerateMin %v is above accelerateMax %v", c.Shaper.AccelerateMin, c.Shaper.AccelerateMax))
	}
	if c.Shaper.BrakeIdle > c.Shaper.BrakeMax {
		errs = append(errs, fmt.Errorf("shaper.brakeIdle %v is above brakeMax %v", c.Shaper.BrakeIdle, c.Shaper.BrakeMax))
	}
	if len(c.Vehicle.ConnectionPoints) != 4 {
		errs = append(errs, fmt.Errorf("vehicle.connectionPoints needs 4 points, got %d", len(c.Vehicle.ConnectionPoints)))
	}
	if !positive(c.Vehicle.ChassisMass) {
		errs = append(errs, fmt.Errorf("vehicle.chassisMass must be positive, got %v", c.Vehicle.ChassisMass))
	}
	switch c.Vehicle.DriveWheels {
	case DriveAll, DriveFront, DriveRear:
	default:
		errs = append(errs, fmt.Errorf("vehicle.driveWheels must be all, front or rear, got %q", c.Vehicle.DriveWheels))
	}
	switch c.Interaction.SpinEstimator {
	case SpinDelta, SpinProxy:
	default:
		errs = append(errs, fmt.Errorf("interaction.spinEstimator must be delta or proxy, got %q", c.Interaction.SpinEstimator))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Vec3 converts a config triple
func Vec3(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// GravityVec returns the gravity vector
func (p Physics) GravityVec() mgl64.Vec3 {
	return Vec3(p.Gravity)
}

// Spawn returns the spawn pose of the chassis
func (v Vehicle) Spawn() (mgl64.Vec3, mgl64.Quat) {
	rotation := mgl64.AnglesToQuat(
		mgl64.DegToRad(v.SpawnRotation[0]),
		mgl64.DegToRad(v.SpawnRotation[1]),
		mgl64.DegToRad(v.SpawnRotation[2]),
		mgl64.XYZ,
	)
	return Vec3(v.SpawnPosition), rotation.Normalize()
}

// Connections returns the wheel connection points in chassis space
func (v Vehicle) Connections() []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(v.ConnectionPoints))
	for i, p := range v.ConnectionPoints {
		points[i] = Vec3(p)
	}
	return points
}
