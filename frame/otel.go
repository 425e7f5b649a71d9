package frame

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/akmonengine/rover/frame"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	frames   metric.Int64Counter
	steps    metric.Int64Counter
	contacts metric.Int64Counter
	grabs    metric.Int64Counter
	releases metric.Int64Counter
	resets   metric.Int64Counter

	frameDt metric.Float64Histogram
	speed   metric.Float64Histogram
}

func newMetrics(m metric.Meter) (*metrics, error) {
	if m == nil {
		m = meter()
	}

	var (
		mt  metrics
		err error
	)

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mt.frames, "rover.frames", "Frames run, paused ones excluded"},
		{&mt.steps, "rover.physics.steps", "Physics world steps"},
		{&mt.contacts, "rover.contacts.enter", "Collision pairs that started touching"},
		{&mt.grabs, "rover.grabs", "Objects grabbed by a hand"},
		{&mt.releases, "rover.releases", "Objects released by a hand"},
		{&mt.resets, "rover.resets", "Vehicle and prop resets"},
	}
	for _, c := range counters {
		*c.target, err = m.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	mt.frameDt, err = m.Float64Histogram(
		"rover.frame.dt",
		metric.WithDescription("Clamped frame duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame dt histogram: %w", err)
	}

	mt.speed, err = m.Float64Histogram(
		"rover.vehicle.speed",
		metric.WithDescription("Vehicle forward speed"),
		metric.WithUnit("m/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speed histogram: %w", err)
	}

	return &mt, nil
}
