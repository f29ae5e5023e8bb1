package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/pefman/armorsheet/internal/game"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type add struct {
	name  string
	value int64
	attrs map[string]string
}

// recordingMeter captures counter adds on top of the no-op meter.
type recordingMeter struct {
	noop.Meter
	mu   sync.Mutex
	adds []add
}

type recordingCounter struct {
	noop.Int64Counter
	name  string
	meter *recordingMeter
}

func (m *recordingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return recordingCounter{name: name, meter: m}, nil
}

func (c recordingCounter) Add(_ context.Context, v int64, opts ...metric.AddOption) {
	attrs := map[string]string{}
	set := metric.NewAddConfig(opts).Attributes()
	for _, kv := range set.ToSlice() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	c.meter.mu.Lock()
	defer c.meter.mu.Unlock()
	c.meter.adds = append(c.meter.adds, add{name: c.name, value: v, attrs: attrs})
}

func TestRecordResolution(t *testing.T) {
	m := &recordingMeter{}
	metrics, err := New(m)
	require.NoError(t, err)

	w1, err := game.WoundFromRecord(models.WoundRecord{Trauma: "blunt", Amount: 3, Locations: []models.Location{models.Torso}})
	require.NoError(t, err)
	w2, err := game.WoundFromRecord(models.WoundRecord{Trauma: "piercing", Amount: 3, Locations: []models.Location{models.Torso}})
	require.NoError(t, err)

	metrics.RecordResolution(context.Background(), game.Resolution{
		DamageType: "explosive",
		Wounds:     []game.Wound{w1, w2},
		Ablated:    5,
	})

	require.Len(t, m.adds, 4)
	assert.Equal(t, "armorsheet.resolutions", m.adds[0].name)
	assert.Equal(t, "explosive", m.adds[0].attrs["damage_type"])
	assert.Equal(t, "armorsheet.wounds", m.adds[1].name)
	assert.Equal(t, "blunt", m.adds[1].attrs["trauma"])
	assert.Equal(t, "piercing", m.adds[2].attrs["trauma"])
	assert.Equal(t, add{name: "armorsheet.armor.ablated", value: 5, attrs: map[string]string{"damage_type": "explosive"}}, m.adds[3])
}

func TestNoAblationNoAblatedAdd(t *testing.T) {
	m := &recordingMeter{}
	metrics, err := New(m)
	require.NoError(t, err)
	metrics.RecordResolution(context.Background(), game.Resolution{DamageType: "ballistic"})
	require.Len(t, m.adds, 1)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.RecordResolution(context.Background(), game.Resolution{})
	})
}

func TestNewWithGlobalMeter(t *testing.T) {
	metrics, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}
