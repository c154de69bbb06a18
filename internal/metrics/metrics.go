// Package metrics folds a session's measurement history into point-in-time
// statistics. Everything here is pure and recomputed on demand.
package metrics

import (
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/models"
)

// ABVFactor is the standard (OG - FG) * 131.25 approximation
const ABVFactor = 131.25

// Stats holds derived values. A nil field is undefined, not zero.
type Stats struct {
	CurrentGravity *float64 `json:"current_gravity"`
	OG             *float64 `json:"og"`
	Attenuation    *float64 `json:"attenuation"`
	ABV            *float64 `json:"abv"`
	Volume         *float64 `json:"volume"`
	PH             *float64 `json:"ph"`
	Temperature    *float64 `json:"temperature"`
}

// Compute derives Stats from the session
func Compute(s models.Session) Stats {
	history := s.SortedMeasurements()
	stats := Stats{
		CurrentGravity: CurrentGravity(history),
		OG:             OG(s),
		Volume:         latest(history, func(m models.Measurement) *float64 { return m.Volume }),
		PH:             latest(history, func(m models.Measurement) *float64 { return m.PH }),
		Temperature:    latest(history, func(m models.Measurement) *float64 { return m.Temperature }),
	}
	if stats.Volume == nil {
		stats.Volume = latestEvent(s, constants.EventVolumeMeasurement)
	}
	if stats.PH == nil {
		stats.PH = latestEvent(s, constants.EventPHMeasurement)
	}
	stats.Attenuation = Attenuation(stats.OG, stats.CurrentGravity)
	stats.ABV = ABV(stats.OG, stats.CurrentGravity)
	return stats
}

// CurrentGravity is the normalized gravity of the latest reading that has
// one. history must be sorted by measured_at.
func CurrentGravity(history []models.Measurement) *float64 {
	for i := len(history) - 1; i >= 0; i-- {
		if g := history[i].Gravity; g != nil {
			if sg, ok := gravity.Normalize(*g); ok {
				return &sg
			}
		}
	}
	return nil
}

// OG resolves the starting gravity: the measured_og scalar, then the latest
// og-measurement event, then the latest reading flagged is_og.
func OG(s models.Session) *float64 {
	if s.MeasuredOG != nil {
		if sg, ok := gravity.Normalize(*s.MeasuredOG); ok {
			return &sg
		}
	}

	var (
		found  bool
		newest time.Time
		value  float64
	)
	for _, e := range s.Timeline {
		if e.Type != constants.EventOGMeasurement {
			continue
		}
		d, ok := e.Data.(models.GravityData)
		if !ok {
			continue
		}
		sg, ok := gravity.Normalize(d.Gravity)
		if !ok {
			continue
		}
		if !found || !e.Date.Before(newest) {
			found, newest, value = true, e.Date, sg
		}
	}
	if found {
		return &value
	}

	history := s.SortedMeasurements()
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if !m.IsOG || m.Gravity == nil {
			continue
		}
		if sg, ok := gravity.Normalize(*m.Gravity); ok {
			return &sg
		}
	}
	return nil
}

// Attenuation is apparent attenuation in percent, nil unless og > 1
func Attenuation(og, current *float64) *float64 {
	if og == nil || current == nil || *og <= 1 {
		return nil
	}
	v := (*og - *current) / (*og - 1) * 100
	return &v
}

// ABV is alcohol by volume in percent, nil under the same guard as Attenuation
func ABV(og, current *float64) *float64 {
	if og == nil || current == nil || *og <= 1 {
		return nil
	}
	v := (*og - *current) * ABVFactor
	return &v
}

// Finalize returns the archival patch written when a session completes.
// Fields already recorded are left alone.
func Finalize(s models.Session, now time.Time) models.SessionPatch {
	stats := Compute(s)
	var p models.SessionPatch
	if s.MeasuredOG == nil && stats.OG != nil {
		p.MeasuredOG = stats.OG
	}
	if s.MeasuredFG == nil && stats.CurrentGravity != nil {
		p.MeasuredFG = stats.CurrentGravity
	}
	if s.MeasuredABV == nil && stats.ABV != nil {
		p.MeasuredABV = stats.ABV
	}
	if s.MeasuredVolume == nil && stats.Volume != nil {
		p.MeasuredVolume = stats.Volume
	}
	if s.CompletedAt == nil {
		t := now.UTC()
		p.CompletedAt = &t
	}
	return p
}

func latest(history []models.Measurement, field func(models.Measurement) *float64) *float64 {
	for i := len(history) - 1; i >= 0; i-- {
		if v := field(history[i]); v != nil {
			out := *v
			return &out
		}
	}
	return nil
}

func latestEvent(s models.Session, t constants.EventType) *float64 {
	for _, e := range reverse(s.SortedTimeline()) {
		if e.Type != t {
			continue
		}
		switch d := e.Data.(type) {
		case models.VolumeData:
			v := d.Volume
			return &v
		case models.PHData:
			v := d.PH
			return &v
		}
	}
	return nil
}

func reverse(events []models.TimelineEvent) []models.TimelineEvent {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}
