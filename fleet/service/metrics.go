package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/wricardo/rover-grid/fleet/service"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics holds the service instruments. The global provider is a no-op
// unless the host installs one.
type metrics struct {
	commands metric.Int64Counter
	deployed metric.Int64UpDownCounter
}

func newMetrics() (*metrics, error) {
	m := meter()

	commands, err := m.Int64Counter(
		"rover.commands",
		metric.WithDescription("Rover commands by command and outcome"),
	)
	if err != nil {
		return nil, err
	}

	deployed, err := m.Int64UpDownCounter(
		"rover.deployed",
		metric.WithDescription("Rovers currently deployed"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{commands: commands, deployed: deployed}, nil
}

func (m *metrics) command(ctx context.Context, command, outcome string) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) deployedDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.deployed.Add(ctx, delta)
}
