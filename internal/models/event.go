package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
)

// EventData is the payload of a TimelineEvent. Each event type owns exactly
// one concrete variant.
type EventData interface {
	eventType() constants.EventType
}

type PhaseChangeData struct {
	From constants.Phase `json:"from"`
	To   constants.Phase `json:"to"`
}

// GravityData backs both og-measurement and gravity-measurement events
type GravityData struct {
	Gravity       float64      `json:"gravity"`
	Unit          gravity.Unit `json:"unit,omitempty"`
	OriginalValue float64      `json:"originalValue,omitempty"`
	Temperature   *float64     `json:"temperature,omitempty"`
	og            bool
}

type VolumeData struct {
	Volume float64 `json:"volume"`
	Unit   string  `json:"unit,omitempty"`
}

type PHData struct {
	PH float64 `json:"ph"`
}

type TemperatureData struct {
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit,omitempty"`
}

type IngredientData struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty"`
	Stage  string  `json:"stage,omitempty"`
}

type YeastHarvestData struct {
	Strain     string  `json:"strain"`
	Generation int     `json:"generation,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
}

type NoteData struct {
	Text string `json:"text"`
}

type TastingData struct {
	Text   string `json:"text"`
	Rating *int   `json:"rating,omitempty"`
}

func (PhaseChangeData) eventType() constants.EventType { return constants.EventStatusChange }
func (d GravityData) eventType() constants.EventType {
	if d.og {
		return constants.EventOGMeasurement
	}
	return constants.EventGravityMeasurement
}
func (VolumeData) eventType() constants.EventType { return constants.EventVolumeMeasurement }
func (PHData) eventType() constants.EventType { return constants.EventPHMeasurement }
func (TemperatureData) eventType() constants.EventType { return constants.EventTemperatureMeasurement }
func (IngredientData) eventType() constants.EventType { return constants.EventIngredientAddition }
func (YeastHarvestData) eventType() constants.EventType { return constants.EventYeastHarvest }
func (NoteData) eventType() constants.EventType { return constants.EventNote }
func (TastingData) eventType() constants.EventType { return constants.EventTastingNote }

// OGData builds the payload for a starting-gravity event
func OGData(sg float64, unit gravity.Unit, original float64) GravityData {
	return GravityData{Gravity: sg, Unit: unit, OriginalValue: original, og: true}
}

// TimelineEvent is one immutable fact recorded against a session
type TimelineEvent struct {
	ID          string              `json:"id"`
	Type        constants.EventType `json:"type"`
	Date        time.Time           `json:"date"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Data        EventData           `json:"data,omitempty"`
}

type timelineEventJSON struct {
	ID          string              `json:"id"`
	Type        constants.EventType `json:"type"`
	Date        time.Time           `json:"date"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Data        json.RawMessage     `json:"data,omitempty"`
}

func (e TimelineEvent) MarshalJSON() ([]byte, error) {
	aux := timelineEventJSON{
		ID:          e.ID,
		Type:        e.Type,
		Date:        e.Date,
		Title:       e.Title,
		Description: e.Description,
	}
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
		}
		aux.Data = raw
	}
	return json.Marshal(aux)
}

func (e *TimelineEvent) UnmarshalJSON(b []byte) error {
	var aux timelineEventJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	data, err := DecodeEventData(aux.Type, aux.Data)
	if err != nil {
		return err
	}
	*e = TimelineEvent{
		ID:          aux.ID,
		Type:        aux.Type,
		Date:        aux.Date,
		Title:       aux.Title,
		Description: aux.Description,
		Data:        data,
	}
	return nil
}

// DecodeEventData picks the payload variant for t. Empty payloads decode to nil.
func DecodeEventData(t constants.EventType, raw json.RawMessage) (EventData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch t {
	case constants.EventStatusChange:
		return decode[PhaseChangeData](t, raw)
	case constants.EventOGMeasurement:
		d, err := decode[GravityData](t, raw)
		if err != nil {
			return nil, err
		}
		g := d.(GravityData)
		g.og = true
		return g, nil
	case constants.EventGravityMeasurement:
		return decode[GravityData](t, raw)
	case constants.EventVolumeMeasurement:
		return decode[VolumeData](t, raw)
	case constants.EventPHMeasurement:
		return decode[PHData](t, raw)
	case constants.EventTemperatureMeasurement:
		return decode[TemperatureData](t, raw)
	case constants.EventIngredientAddition:
		return decode[IngredientData](t, raw)
	case constants.EventYeastHarvest:
		return decode[YeastHarvestData](t, raw)
	case constants.EventNote:
		return decode[NoteData](t, raw)
	case constants.EventTastingNote:
		return decode[TastingData](t, raw)
	default:
		return nil, fmt.Errorf("unknown event type: %s", t)
	}
}

func decode[T EventData](t constants.EventType, raw json.RawMessage) (EventData, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", t, err)
	}
	return v, nil
}

// IsValidEventType reports whether t has a payload variant
func IsValidEventType(t constants.EventType) bool {
	_, err := DecodeEventData(t, json.RawMessage("{}"))
	return err == nil
}

// EventInput is what callers hand to addEvent. Date is optional and defaults
// to now.
type EventInput struct {
	Type        constants.EventType
	Date        *time.Time
	Title       string
	Description string
	Data        EventData
}

func (in EventInput) Validate() error {
	if !IsValidEventType(in.Type) {
		return validationErr("unknown event type %q", in.Type)
	}
	if in.Data != nil && in.Data.eventType() != in.Type {
		// og-measurement events may be built from a plain GravityData
		if _, ok := in.Data.(GravityData); !ok || in.Type != constants.EventOGMeasurement {
			return validationErr("payload %T does not match event type %s", in.Data, in.Type)
		}
	}
	switch d := in.Data.(type) {
	case GravityData:
		if d.Gravity < gravity.SGMin || d.Gravity > gravity.SGMax {
			return validationErr("gravity %.4f is not normalized specific gravity", d.Gravity)
		}
	case PHData:
		if d.PH < 0 || d.PH > 14 {
			return validationErr("pH %.2f out of range [0, 14]", d.PH)
		}
	case PhaseChangeData:
		if !IsValidPhase(d.To) {
			return validationErr("invalid phase %q", d.To)
		}
	case NoteData:
		if strings.TrimSpace(d.Text) == "" {
			return validationErr("note text cannot be empty")
		}
	}
	return nil
}

// ToEvent stamps the input with id and a logical date
func (in EventInput) ToEvent(id string, now time.Time) TimelineEvent {
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	title := in.Title
	if title == "" {
		title = DefaultTitle(in.Type)
	}
	data := in.Data
	if g, ok := data.(GravityData); ok && in.Type == constants.EventOGMeasurement {
		g.og = true
		data = g
	}
	return TimelineEvent{
		ID:          id,
		Type:        in.Type,
		Date:        date.UTC(),
		Title:       title,
		Description: in.Description,
		Data:        data,
	}
}

// PhaseChangeEvent builds the audit entry recorded with every phase change
func PhaseChangeEvent(id string, from, to constants.Phase, now time.Time) TimelineEvent {
	return TimelineEvent{
		ID:          id,
		Type:        constants.EventStatusChange,
		Date:        now.UTC(),
		Title:       fmt.Sprintf("Phase changed to %s", to),
		Description: fmt.Sprintf("%s → %s", from, to),
		Data:        PhaseChangeData{From: from, To: to},
	}
}

// Summary renders the payload on one line, gravity on the given scale
func (e TimelineEvent) Summary(unit gravity.Unit) string {
	switch d := e.Data.(type) {
	case PhaseChangeData:
		return fmt.Sprintf("%s → %s", d.From, d.To)
	case GravityData:
		return gravity.Format(d.Gravity, unit)
	case VolumeData:
		return strings.TrimSpace(fmt.Sprintf("%.1f %s", d.Volume, d.Unit))
	case PHData:
		return fmt.Sprintf("pH %.2f", d.PH)
	case TemperatureData:
		return strings.TrimSpace(fmt.Sprintf("%.1f %s", d.Temperature, d.Unit))
	case IngredientData:
		if d.Amount > 0 {
			return strings.TrimSpace(fmt.Sprintf("%s %g %s", d.Name, d.Amount, d.Unit))
		}
		return d.Name
	case YeastHarvestData:
		return fmt.Sprintf("%s gen %d", d.Strain, d.Generation)
	case TastingData:
		if d.Rating != nil {
			return fmt.Sprintf("%s (%d)", d.Text, *d.Rating)
		}
		return d.Text
	case NoteData:
		return d.Text
	}
	return e.Description
}

// DefaultTitle is the display title used when none is given
func DefaultTitle(t constants.EventType) string {
	switch t {
	case constants.EventStatusChange:
		return "Phase change"
	case constants.EventOGMeasurement:
		return "Original gravity"
	case constants.EventGravityMeasurement:
		return "Gravity reading"
	case constants.EventVolumeMeasurement:
		return "Volume reading"
	case constants.EventPHMeasurement:
		return "pH reading"
	case constants.EventTemperatureMeasurement:
		return "Temperature reading"
	case constants.EventIngredientAddition:
		return "Ingredient added"
	case constants.EventYeastHarvest:
		return "Yeast harvested"
	case constants.EventTastingNote:
		return "Tasting note"
	default:
		return "Note"
	}
}
