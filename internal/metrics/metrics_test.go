package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
)

func ptr[T any](v T) *T { return &v }

func approx(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s = nil, want %v", name, want)
	}
	if math.Abs(*got-want) > 0.01 {
		t.Errorf("%s = %v, want %v", name, *got, want)
	}
}

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestCompute_OnlineScenario(t *testing.T) {
	s := models.Session{
		MeasuredOG: ptr(1.050),
		MeasurementHistory: []models.Measurement{
			{ID: "m1", MeasuredAt: base, Gravity: ptr(1.010)},
		},
	}
	stats := Compute(s)
	approx(t, "CurrentGravity", stats.CurrentGravity, 1.010)
	approx(t, "Attenuation", stats.Attenuation, 80)
	approx(t, "ABV", stats.ABV, 5.25)
}

func TestCompute_GuardsUndefinedInputs(t *testing.T) {
	tests := []struct {
		name string
		s    models.Session
	}{
		{"no og", models.Session{MeasurementHistory: []models.Measurement{{Gravity: ptr(1.010)}}}},
		{"og of one", models.Session{MeasuredOG: ptr(1.0), MeasurementHistory: []models.Measurement{{Gravity: ptr(1.0)}}}},
		{"no readings", models.Session{MeasuredOG: ptr(1.050)}},
		{"empty session", models.Session{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Compute(tt.s)
			if stats.Attenuation != nil {
				t.Errorf("Attenuation = %v, want nil", *stats.Attenuation)
			}
			if stats.ABV != nil {
				t.Errorf("ABV = %v, want nil", *stats.ABV)
			}
		})
	}
}

func TestCurrentGravity_UsesLatestByMeasuredAt(t *testing.T) {
	s := models.Session{MeasurementHistory: []models.Measurement{
		{ID: "late", MeasuredAt: base.Add(48 * time.Hour), Gravity: ptr(1.012)},
		{ID: "early", MeasuredAt: base, Gravity: ptr(1.040)},
		{ID: "temp-only", MeasuredAt: base.Add(72 * time.Hour), Temperature: ptr(18.0)},
	}}
	approx(t, "CurrentGravity", Compute(s).CurrentGravity, 1.012)
}

func TestCurrentGravity_NormalizesLegacyValues(t *testing.T) {
	for _, raw := range []float64{1.050, 1050, 12.39} {
		s := models.Session{MeasurementHistory: []models.Measurement{{Gravity: ptr(raw)}}}
		approx(t, "CurrentGravity", Compute(s).CurrentGravity, 1.050)
	}
}

func TestOG_ResolutionOrder(t *testing.T) {
	ogEvent := func(id string, at time.Time, g float64) models.TimelineEvent {
		return models.EventInput{
			Type: constants.EventOGMeasurement,
			Date: &at,
			Data: models.OGData(g, "", g),
		}.ToEvent(id, at)
	}
	flagged := models.Measurement{MeasuredAt: base, Gravity: ptr(1.048), IsOG: true}

	tests := []struct {
		name string
		s    models.Session
		want *float64
	}{
		{
			name: "scalar wins",
			s: models.Session{
				MeasuredOG:         ptr(1.055),
				Timeline:           []models.TimelineEvent{ogEvent("e1", base, 1.060)},
				MeasurementHistory: []models.Measurement{flagged},
			},
			want: ptr(1.055),
		},
		{
			name: "latest og event",
			s: models.Session{
				Timeline: []models.TimelineEvent{
					ogEvent("e2", base.Add(time.Hour), 1062),
					ogEvent("e1", base, 1.060),
				},
				MeasurementHistory: []models.Measurement{flagged},
			},
			want: ptr(1.062),
		},
		{
			name: "flagged measurement",
			s:    models.Session{MeasurementHistory: []models.Measurement{flagged}},
			want: ptr(1.048),
		},
		{
			name: "none",
			s:    models.Session{MeasurementHistory: []models.Measurement{{Gravity: ptr(1.02)}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OG(tt.s)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("OG() = %v, want nil", *got)
				}
				return
			}
			approx(t, "OG", got, *tt.want)
		})
	}
}

func TestCompute_VolumeAndPHFallBackToEvents(t *testing.T) {
	at := base.Add(time.Hour)
	s := models.Session{
		Timeline: []models.TimelineEvent{
			models.EventInput{Type: constants.EventVolumeMeasurement, Data: models.VolumeData{Volume: 19}}.ToEvent("v1", base),
			models.EventInput{Type: constants.EventVolumeMeasurement, Date: &at, Data: models.VolumeData{Volume: 21}}.ToEvent("v2", at),
			models.EventInput{Type: constants.EventPHMeasurement, Data: models.PHData{PH: 5.3}}.ToEvent("p1", base),
		},
		MeasurementHistory: []models.Measurement{
			{MeasuredAt: base, PH: ptr(4.4)},
		},
	}
	stats := Compute(s)
	approx(t, "Volume", stats.Volume, 21)
	approx(t, "PH", stats.PH, 4.4)
}

func TestFinalize_KeepsRecordedValues(t *testing.T) {
	done := base.Add(-time.Hour)
	s := models.Session{
		MeasuredOG:  ptr(1.050),
		MeasuredFG:  ptr(1.011),
		CompletedAt: &done,
		MeasurementHistory: []models.Measurement{
			{MeasuredAt: base, Gravity: ptr(1.010)},
		},
	}
	p := Finalize(s, base)
	if p.MeasuredOG != nil || p.MeasuredFG != nil || p.CompletedAt != nil {
		t.Errorf("Finalize overwrote recorded fields: %+v", p)
	}
	approx(t, "MeasuredABV", p.MeasuredABV, 5.25)

	p = Finalize(models.Session{}, base)
	if p.CompletedAt == nil || !p.CompletedAt.Equal(base) {
		t.Errorf("CompletedAt = %v, want %v", p.CompletedAt, base)
	}
	if p.MeasuredABV != nil {
		t.Error("MeasuredABV set without inputs")
	}
}
