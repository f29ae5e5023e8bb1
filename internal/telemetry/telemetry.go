// Package telemetry exposes OpenTelemetry counters for damage resolution.
// Without a configured MeterProvider the global no-op provider is used.
package telemetry

import (
	"context"
	"fmt"

	"github.com/pefman/armorsheet/internal/game"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pefman/armorsheet/internal/telemetry"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the resolution counters.
type Metrics struct {
	resolutions metric.Int64Counter
	wounds      metric.Int64Counter
	ablated     metric.Int64Counter
}

// New creates the counters on m, or on the global meter when m is nil.
func New(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = meter()
	}
	var (
		t   Metrics
		err error
	)
	t.resolutions, err = m.Int64Counter(
		"armorsheet.resolutions",
		metric.WithDescription("Attacks resolved against a character"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolutions counter: %w", err)
	}
	t.wounds, err = m.Int64Counter(
		"armorsheet.wounds",
		metric.WithDescription("Wounds produced by resolution"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wounds counter: %w", err)
	}
	t.ablated, err = m.Int64Counter(
		"armorsheet.armor.ablated",
		metric.WithDescription("Stopping power removed from armor"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ablated counter: %w", err)
	}
	return &t, nil
}

// RecordResolution counts one resolved attack. A nil Metrics is a no-op.
func (t *Metrics) RecordResolution(ctx context.Context, res game.Resolution) {
	if t == nil {
		return
	}
	typeAttr := attribute.String("damage_type", res.DamageType)
	t.resolutions.Add(ctx, 1, metric.WithAttributes(typeAttr))
	for _, w := range res.Wounds {
		t.wounds.Add(ctx, 1, metric.WithAttributes(
			typeAttr,
			attribute.String("trauma", w.Trauma().String()),
		))
	}
	if res.Ablated > 0 {
		t.ablated.Add(ctx, int64(res.Ablated), metric.WithAttributes(typeAttr))
	}
}
