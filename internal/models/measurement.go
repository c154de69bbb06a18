package models

import (
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
)

// Measurement is one structured physical reading. Gravity is always SG.
type Measurement struct {
	ID          string                      `json:"id"`
	SessionID   string                      `json:"session_id"`
	MeasuredAt  time.Time                   `json:"measured_at"`
	Gravity     *float64                    `json:"gravity,omitempty"`
	Temperature *float64                    `json:"temperature,omitempty"`
	Pressure    *float64                    `json:"pressure,omitempty"`
	PH          *float64                    `json:"ph,omitempty"`
	Volume      *float64                    `json:"volume,omitempty"`
	Note        *string                     `json:"note,omitempty"`
	Source      constants.MeasurementSource `json:"source"`
	IsOG        bool                        `json:"is_og"`
}

func (m Measurement) Clone() Measurement {
	out := m
	out.Gravity = cloneFloat(m.Gravity)
	out.Temperature = cloneFloat(m.Temperature)
	out.Pressure = cloneFloat(m.Pressure)
	out.PH = cloneFloat(m.PH)
	out.Volume = cloneFloat(m.Volume)
	out.Note = cloneString(m.Note)
	return out
}

// MeasurementInput is a reading as entered. GravityUnit says which scale
// Gravity is on; left empty the value goes through gravity.Normalize.
type MeasurementInput struct {
	MeasuredAt  *time.Time
	Gravity     *float64
	GravityUnit gravity.Unit
	Temperature *float64
	Pressure    *float64
	PH          *float64
	Volume      *float64
	Note        *string
	Source      constants.MeasurementSource
	IsOG        bool
}

// Validate requires at least one physical quantity and checks ranges
func (in MeasurementInput) Validate() error {
	if in.Gravity == nil && in.Temperature == nil && in.Pressure == nil && in.PH == nil && in.Volume == nil {
		return validationErr("measurement needs at least one of gravity, temperature, pressure, ph, volume")
	}
	if in.Gravity != nil {
		if _, err := gravity.ToSG(*in.Gravity, in.GravityUnit); err != nil {
			return validationErr("%v", err)
		}
	}
	if in.PH != nil && (*in.PH < 0 || *in.PH > 14) {
		return validationErr("pH %.2f out of range [0, 14]", *in.PH)
	}
	if in.Volume != nil && *in.Volume < 0 {
		return validationErr("volume cannot be negative")
	}
	if in.Pressure != nil && *in.Pressure < 0 {
		return validationErr("pressure cannot be negative")
	}
	return nil
}

// ToMeasurement builds the stored form. Callers must Validate first.
func (in MeasurementInput) ToMeasurement(id, sessionID string, now time.Time) Measurement {
	at := now
	if in.MeasuredAt != nil {
		at = *in.MeasuredAt
	}
	source := in.Source
	if source == "" {
		source = constants.SourceManual
	}
	m := Measurement{
		ID:          id,
		SessionID:   sessionID,
		MeasuredAt:  at.UTC(),
		Temperature: cloneFloat(in.Temperature),
		Pressure:    cloneFloat(in.Pressure),
		PH:          cloneFloat(in.PH),
		Volume:      cloneFloat(in.Volume),
		Note:        cloneString(in.Note),
		Source:      source,
		IsOG:        in.IsOG,
	}
	if in.Gravity != nil {
		if sg, err := gravity.ToSG(*in.Gravity, in.GravityUnit); err == nil {
			m.Gravity = &sg
		}
	}
	return m
}

// MeasurementPatch is a partial correction to an existing reading
type MeasurementPatch struct {
	MeasuredAt  *time.Time   `json:"measured_at,omitempty"`
	Gravity     *float64     `json:"gravity,omitempty"`
	GravityUnit gravity.Unit `json:"gravity_unit,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Pressure    *float64     `json:"pressure,omitempty"`
	PH          *float64     `json:"ph,omitempty"`
	Volume      *float64     `json:"volume,omitempty"`
	Note        *string      `json:"note,omitempty"`
	IsOG        *bool        `json:"is_og,omitempty"`
}

func (p MeasurementPatch) IsEmpty() bool {
	return p.MeasuredAt == nil && p.Gravity == nil && p.Temperature == nil && p.Pressure == nil &&
		p.PH == nil && p.Volume == nil && p.Note == nil && p.IsOG == nil
}

// Normalize validates the patch and converts gravity to SG so the patch
// can be replayed later without re-reading the unit.
func (p MeasurementPatch) Normalize() (MeasurementPatch, error) {
	if p.IsEmpty() {
		return p, validationErr("measurement patch is empty")
	}
	out := p
	if p.Gravity != nil {
		sg, err := gravity.ToSG(*p.Gravity, p.GravityUnit)
		if err != nil {
			return p, validationErr("%v", err)
		}
		out.Gravity = &sg
		out.GravityUnit = gravity.UnitSG
	}
	if p.PH != nil && (*p.PH < 0 || *p.PH > 14) {
		return p, validationErr("pH %.2f out of range [0, 14]", *p.PH)
	}
	if p.Volume != nil && *p.Volume < 0 {
		return p, validationErr("volume cannot be negative")
	}
	return out, nil
}

// Apply returns m with the patch applied
func (p MeasurementPatch) Apply(m Measurement) Measurement {
	out := m.Clone()
	if p.MeasuredAt != nil {
		out.MeasuredAt = p.MeasuredAt.UTC()
	}
	if p.Gravity != nil {
		out.Gravity = cloneFloat(p.Gravity)
	}
	if p.Temperature != nil {
		out.Temperature = cloneFloat(p.Temperature)
	}
	if p.Pressure != nil {
		out.Pressure = cloneFloat(p.Pressure)
	}
	if p.PH != nil {
		out.PH = cloneFloat(p.PH)
	}
	if p.Volume != nil {
		out.Volume = cloneFloat(p.Volume)
	}
	if p.Note != nil {
		out.Note = cloneString(p.Note)
	}
	if p.IsOG != nil {
		out.IsOG = *p.IsOG
	}
	return out
}

// PatchField is one column/value pair for a partial UPDATE
type PatchField struct {
	Column string
	Value  interface{}
}

// Fields lists the columns the patch touches, in a stable order
func (p MeasurementPatch) Fields() []PatchField {
	var fields []PatchField
	if p.MeasuredAt != nil {
		fields = append(fields, PatchField{"measured_at", p.MeasuredAt.UTC().Format(constants.StoredTimeFormat)})
	}
	if p.Gravity != nil {
		fields = append(fields, PatchField{"gravity", *p.Gravity})
	}
	if p.Temperature != nil {
		fields = append(fields, PatchField{"temperature", *p.Temperature})
	}
	if p.Pressure != nil {
		fields = append(fields, PatchField{"pressure", *p.Pressure})
	}
	if p.PH != nil {
		fields = append(fields, PatchField{"ph", *p.PH})
	}
	if p.Volume != nil {
		fields = append(fields, PatchField{"volume", *p.Volume})
	}
	if p.Note != nil {
		fields = append(fields, PatchField{"note", *p.Note})
	}
	if p.IsOG != nil {
		fields = append(fields, PatchField{"is_og", *p.IsOG})
	}
	return fields
}
