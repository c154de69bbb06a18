package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
)

// Column names accepted by updateSessionData. Anything else is dropped.
const (
	FieldMeasurements       = "measurements"
	FieldNotes              = "notes"
	FieldMeasuredOG         = "measured_og"
	FieldMeasuredFG         = "measured_fg"
	FieldMeasuredABV        = "measured_abv"
	FieldMeasuredVolume     = "measured_volume"
	FieldMeasuredEfficiency = "measured_efficiency"
	FieldBatchCode          = "batch_code"
	FieldStatus             = "status"
	FieldCompletedAt        = "completed_at"
)

// SessionPatch holds the mutable scalar fields of a session. Server-managed
// fields (timeline, measurement history, phase) have no slot here.
type SessionPatch struct {
	Measurements       json.RawMessage `json:"measurements,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	MeasuredOG         *float64        `json:"measured_og,omitempty"`
	MeasuredFG         *float64        `json:"measured_fg,omitempty"`
	MeasuredABV        *float64        `json:"measured_abv,omitempty"`
	MeasuredVolume     *float64        `json:"measured_volume,omitempty"`
	MeasuredEfficiency *float64        `json:"measured_efficiency,omitempty"`
	BatchCode          *string         `json:"batch_code,omitempty"`
	Status             *string         `json:"status,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// SessionPatchFromMap builds a patch from loosely typed input, silently
// dropping keys outside the allow-list.
func SessionPatchFromMap(data map[string]interface{}) (SessionPatch, error) {
	var p SessionPatch
	for key, value := range data {
		var err error
		switch key {
		case FieldMeasurements:
			p.Measurements, err = toRawJSON(value)
		case FieldNotes:
			p.Notes, err = toString(value)
		case FieldMeasuredOG:
			p.MeasuredOG, err = toFloat(value)
		case FieldMeasuredFG:
			p.MeasuredFG, err = toFloat(value)
		case FieldMeasuredABV:
			p.MeasuredABV, err = toFloat(value)
		case FieldMeasuredVolume:
			p.MeasuredVolume, err = toFloat(value)
		case FieldMeasuredEfficiency:
			p.MeasuredEfficiency, err = toFloat(value)
		case FieldBatchCode:
			p.BatchCode, err = toString(value)
		case FieldStatus:
			p.Status, err = toString(value)
		case FieldCompletedAt:
			p.CompletedAt, err = toTime(value)
		default:
			continue
		}
		if err != nil {
			return SessionPatch{}, validationErr("parsing %s: %v", key, err)
		}
	}
	return p, nil
}

func (p SessionPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply returns s with the patch applied
func (p SessionPatch) Apply(s Session) Session {
	out := s.Clone()
	if p.Measurements != nil {
		out.Measurements = append(json.RawMessage(nil), p.Measurements...)
	}
	if p.Notes != nil {
		out.Notes = cloneString(p.Notes)
	}
	if p.MeasuredOG != nil {
		out.MeasuredOG = cloneFloat(p.MeasuredOG)
	}
	if p.MeasuredFG != nil {
		out.MeasuredFG = cloneFloat(p.MeasuredFG)
	}
	if p.MeasuredABV != nil {
		out.MeasuredABV = cloneFloat(p.MeasuredABV)
	}
	if p.MeasuredVolume != nil {
		out.MeasuredVolume = cloneFloat(p.MeasuredVolume)
	}
	if p.MeasuredEfficiency != nil {
		out.MeasuredEfficiency = cloneFloat(p.MeasuredEfficiency)
	}
	if p.BatchCode != nil {
		out.BatchCode = cloneString(p.BatchCode)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.CompletedAt != nil {
		t := p.CompletedAt.UTC()
		out.CompletedAt = &t
	}
	return out
}

// Fields lists the columns the patch touches, in a stable order
func (p SessionPatch) Fields() []PatchField {
	var fields []PatchField
	if p.Measurements != nil {
		fields = append(fields, PatchField{FieldMeasurements, string(p.Measurements)})
	}
	if p.Notes != nil {
		fields = append(fields, PatchField{FieldNotes, *p.Notes})
	}
	if p.MeasuredOG != nil {
		fields = append(fields, PatchField{FieldMeasuredOG, *p.MeasuredOG})
	}
	if p.MeasuredFG != nil {
		fields = append(fields, PatchField{FieldMeasuredFG, *p.MeasuredFG})
	}
	if p.MeasuredABV != nil {
		fields = append(fields, PatchField{FieldMeasuredABV, *p.MeasuredABV})
	}
	if p.MeasuredVolume != nil {
		fields = append(fields, PatchField{FieldMeasuredVolume, *p.MeasuredVolume})
	}
	if p.MeasuredEfficiency != nil {
		fields = append(fields, PatchField{FieldMeasuredEfficiency, *p.MeasuredEfficiency})
	}
	if p.BatchCode != nil {
		fields = append(fields, PatchField{FieldBatchCode, *p.BatchCode})
	}
	if p.Status != nil {
		fields = append(fields, PatchField{FieldStatus, *p.Status})
	}
	if p.CompletedAt != nil {
		fields = append(fields, PatchField{FieldCompletedAt, p.CompletedAt.UTC().Format(constants.StoredTimeFormat)})
	}
	return fields
}

func toString(v interface{}) (*string, error) {
	switch t := v.(type) {
	case string:
		return &t, nil
	case *string:
		return cloneString(t), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", v)
	}
}

func toFloat(v interface{}) (*float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
	return &f, nil
}

func toTime(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u, nil
	case string:
		parsed, err := time.Parse(constants.TimestampFormat, t)
		if err != nil {
			return nil, err
		}
		u := parsed.UTC()
		return &u, nil
	default:
		return nil, fmt.Errorf("expected timestamp, got %T", v)
	}
}

func toRawJSON(v interface{}) (json.RawMessage, error) {
	switch t := v.(type) {
	case json.RawMessage:
		return append(json.RawMessage(nil), t...), nil
	case string:
		if !json.Valid([]byte(t)) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return json.RawMessage(t), nil
	default:
		return json.Marshal(v)
	}
}
