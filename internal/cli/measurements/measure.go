package measurements

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/models"
)

type MeasureAddCmd struct {
	Gravity  *float64 `short:"g" help:"Gravity reading."`
	Unit     string   `short:"u" help:"Scale of --gravity: sg, plato, brix, sg1000. Guessed from the value when empty."`
	Temp     *float64 `short:"t" help:"Temperature."`
	Pressure *float64 `help:"Pressure."`
	PH       *float64 `name:"ph" help:"pH."`
	Volume   *float64 `help:"Volume."`
	Note     string   `short:"m" help:"Free-form note."`
	At       string   `help:"When the reading was taken (RFC3339, 'YYYY-MM-DD HH:MM' or 'YYYY-MM-DD'). Defaults to now."`
	OG       bool     `name:"og" help:"Mark this reading as the original gravity."`
	Source   string   `help:"Where the reading came from." default:"manual"`
}

func (c *MeasureAddCmd) Input() (models.MeasurementInput, error) {
	unit, err := gravity.ParseUnit(c.Unit)
	if err != nil {
		return models.MeasurementInput{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	at, err := cli.ParseWhen(c.At)
	if err != nil {
		return models.MeasurementInput{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	in := models.MeasurementInput{
		MeasuredAt:  at,
		Gravity:     c.Gravity,
		GravityUnit: unit,
		Temperature: c.Temp,
		Pressure:    c.Pressure,
		PH:          c.PH,
		Volume:      c.Volume,
		Source:      constants.MeasurementSource(c.Source),
		IsOG:        c.OG,
	}
	if c.Note != "" {
		in.Note = &c.Note
	}
	return in, nil
}

func (c *MeasureAddCmd) Run(ctx *cli.Context) error {
	in, err := c.Input()
	if err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	m, err := sc.AddMeasurement(bg, in)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded measurement %s (%s)\n", m.ID, cli.StatusLine(sc))

	st := sc.Metrics()
	if st.ABV != nil {
		fmt.Printf("  ABV %s%%, attenuation %s%%\n", cli.FormatFloat(st.ABV, 2), cli.FormatFloat(st.Attenuation, 1))
	}
	return nil
}

// MeasureUpdateCmd corrects fields of an existing reading
type MeasureUpdateCmd struct {
	ID       string   `arg:"" help:"Measurement id."`
	Gravity  *float64 `short:"g" help:"Gravity reading."`
	Unit     string   `short:"u" help:"Scale of --gravity: sg, plato, brix, sg1000. Guessed from the value when empty."`
	Temp     *float64 `short:"t" help:"Temperature."`
	Pressure *float64 `help:"Pressure."`
	PH       *float64 `name:"ph" help:"pH."`
	Volume   *float64 `help:"Volume."`
	Note     *string  `short:"m" help:"Free-form note."`
	At       string   `help:"When the reading was taken."`
	OG       *bool    `name:"og" help:"Mark (--og) or unmark (--og=false) as the original gravity."`
}

func (c *MeasureUpdateCmd) Patch() (models.MeasurementPatch, error) {
	unit, err := gravity.ParseUnit(c.Unit)
	if err != nil {
		return models.MeasurementPatch{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	at, err := cli.ParseWhen(c.At)
	if err != nil {
		return models.MeasurementPatch{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return models.MeasurementPatch{
		MeasuredAt:  at,
		Gravity:     c.Gravity,
		GravityUnit: unit,
		Temperature: c.Temp,
		Pressure:    c.Pressure,
		PH:          c.PH,
		Volume:      c.Volume,
		Note:        c.Note,
		IsOG:        c.OG,
	}, nil
}

func (c *MeasureUpdateCmd) Run(ctx *cli.Context) error {
	patch, err := c.Patch()
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return errors.New("nothing to update")
	}

	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	if err := sc.UpdateMeasurement(bg, c.ID, patch); err != nil {
		return err
	}
	fmt.Printf("Updated measurement %s (%s)\n", c.ID, cli.StatusLine(sc))
	return nil
}

type MeasureDeleteCmd struct {
	ID string `arg:"" help:"Measurement id."`
}

func (c *MeasureDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	if err := sc.DeleteMeasurement(bg, c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted measurement %s (%s)\n", c.ID, cli.StatusLine(sc))
	return nil
}

type MeasureListCmd struct {
	Unit string `short:"u" help:"Scale for gravity values: sg, plato, brix, sg1000." default:"sg"`
}

func (c *MeasureListCmd) Run(ctx *cli.Context) error {
	unit, err := gravity.ParseUnit(c.Unit)
	if err != nil {
		return err
	}

	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	history := sc.Measurements()
	if len(history) == 0 {
		fmt.Println("No measurements recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTAKEN\tGRAVITY\tTEMP\tPH\tVOLUME\tNOTE")
	for _, m := range history {
		g := cli.FormatGravity(m.Gravity, unit)
		if m.IsOG {
			g += " (OG)"
		}
		note := ""
		if m.Note != nil {
			note = *m.Note
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, cli.FormatTime(m.MeasuredAt), g,
			cli.FormatFloat(m.Temperature, 1), cli.FormatFloat(m.PH, 2), cli.FormatFloat(m.Volume, 1), note)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d reading(s) (%s)\n", len(history), cli.StatusLine(sc))
	return nil
}
