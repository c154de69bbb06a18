package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/models"
)

type MeasurementFormModel struct {
	Gravity     string
	Unit        string
	Temperature string
	PH          string
	Volume      string
	Note        string
	IsOG        bool
}

type NoteFormModel struct {
	Text string
}

// ToInput converts the form fields into a validated reading
func (f MeasurementFormModel) ToInput() (models.MeasurementInput, error) {
	var in models.MeasurementInput
	var err error
	if in.Gravity, err = parseOptional("gravity", f.Gravity); err != nil {
		return in, err
	}
	if in.GravityUnit, err = gravity.ParseUnit(f.Unit); err != nil {
		return in, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if in.Temperature, err = parseOptional("temperature", f.Temperature); err != nil {
		return in, err
	}
	if in.PH, err = parseOptional("pH", f.PH); err != nil {
		return in, err
	}
	if in.Volume, err = parseOptional("volume", f.Volume); err != nil {
		return in, err
	}
	if note := strings.TrimSpace(f.Note); note != "" {
		in.Note = &note
	}
	in.IsOG = f.IsOG
	in.Source = constants.SourceManual
	return in, in.Validate()
}

func parseOptional(name, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", models.ErrValidation, name)
	}
	return &v, nil
}

func validateNumber(name string) func(string) error {
	return func(s string) error {
		_, err := parseOptional(name, s)
		return err
	}
}

func newMeasurementForm(f *MeasurementFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gravity").
				Description("1.050, 1050, 12.4 (°P) ... leave empty to skip").
				Value(&f.Gravity).
				Validate(validateNumber("gravity")),
			huh.NewSelect[string]().
				Title("Scale").
				Options(
					huh.NewOption("Guess from value", ""),
					huh.NewOption("Specific gravity", string(gravity.UnitSG)),
					huh.NewOption("Plato", string(gravity.UnitPlato)),
					huh.NewOption("Brix", string(gravity.UnitBrix)),
					huh.NewOption("SG × 1000", string(gravity.UnitSG1000)),
				).
				Value(&f.Unit),
			huh.NewConfirm().
				Title("Original gravity?").
				Value(&f.IsOG),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Temperature").
				Value(&f.Temperature).
				Validate(validateNumber("temperature")),
			huh.NewInput().
				Title("pH").
				Value(&f.PH).
				Validate(validateNumber("pH")),
			huh.NewInput().
				Title("Volume").
				Value(&f.Volume).
				Validate(validateNumber("volume")),
			huh.NewText().
				Title("Note").
				Value(&f.Note),
		),
	)
}

func newNoteForm(f *NoteFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Note").
				Value(&f.Text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("note cannot be empty")
					}
					return nil
				}),
		),
	)
}
