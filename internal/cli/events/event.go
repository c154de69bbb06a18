package events

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/models"
)

// EventAddCmd appends a fact to the timeline. Payload flags that do not
// apply to the chosen type are ignored.
type EventAddCmd struct {
	Type        string `arg:"" help:"note, tasting-note, og-measurement, gravity-measurement, volume-measurement, ph-measurement, temperature-measurement, ingredient-addition or yeast-harvest."`
	Title       string `help:"Title. Defaults to a name derived from the type."`
	Description string `short:"d" help:"Longer description."`
	At          string `help:"When it happened (RFC3339, 'YYYY-MM-DD HH:MM' or 'YYYY-MM-DD'). Defaults to now."`

	Text   string `short:"m" help:"Note or tasting text."`
	Rating *int   `help:"Tasting rating."`

	Gravity *float64 `short:"g" help:"Gravity for og-measurement and gravity-measurement."`
	Unit    string   `short:"u" help:"Scale of --gravity: sg, plato, brix, sg1000."`
	Value   *float64 `help:"Reading for volume, ph and temperature events."`
	Scale   string   `help:"Unit label stored with volume and temperature readings."`

	Ingredient string   `help:"Ingredient name."`
	Amount     *float64 `help:"Ingredient or harvest amount."`
	AmountUnit string   `help:"Unit of --amount."`
	Stage      string   `help:"Process stage of the addition (mash, boil, dry-hop...)."`

	Strain     string `help:"Yeast strain for yeast-harvest."`
	Generation int    `help:"Yeast generation for yeast-harvest."`
}

// Input builds and validates the event from the flags
func (c *EventAddCmd) Input() (models.EventInput, error) {
	t := constants.EventType(strings.ToLower(strings.TrimSpace(c.Type)))
	if t == constants.EventStatusChange {
		return models.EventInput{}, fmt.Errorf("%w: phase changes are recorded with 'brewlog phase set'", models.ErrValidation)
	}
	at, err := cli.ParseWhen(c.At)
	if err != nil {
		return models.EventInput{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	data, err := c.payload(t)
	if err != nil {
		return models.EventInput{}, err
	}
	in := models.EventInput{
		Type:        t,
		Date:        at,
		Title:       c.Title,
		Description: c.Description,
		Data:        data,
	}
	return in, in.Validate()
}

func (c *EventAddCmd) payload(t constants.EventType) (models.EventData, error) {
	need := func(v *float64, flag string) error {
		if v == nil {
			return fmt.Errorf("%w: %s events need --%s", models.ErrValidation, t, flag)
		}
		return nil
	}

	switch t {
	case constants.EventOGMeasurement, constants.EventGravityMeasurement:
		if err := need(c.Gravity, "gravity"); err != nil {
			return nil, err
		}
		unit, err := gravity.ParseUnit(c.Unit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		sg, err := gravity.ToSG(*c.Gravity, unit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		if t == constants.EventOGMeasurement {
			return models.OGData(sg, unit, *c.Gravity), nil
		}
		return models.GravityData{Gravity: sg, Unit: unit, OriginalValue: *c.Gravity}, nil
	case constants.EventVolumeMeasurement:
		if err := need(c.Value, "value"); err != nil {
			return nil, err
		}
		return models.VolumeData{Volume: *c.Value, Unit: c.Scale}, nil
	case constants.EventPHMeasurement:
		if err := need(c.Value, "value"); err != nil {
			return nil, err
		}
		return models.PHData{PH: *c.Value}, nil
	case constants.EventTemperatureMeasurement:
		if err := need(c.Value, "value"); err != nil {
			return nil, err
		}
		return models.TemperatureData{Temperature: *c.Value, Unit: c.Scale}, nil
	case constants.EventIngredientAddition:
		if strings.TrimSpace(c.Ingredient) == "" {
			return nil, fmt.Errorf("%w: ingredient-addition events need --ingredient", models.ErrValidation)
		}
		d := models.IngredientData{Name: c.Ingredient, Unit: c.AmountUnit, Stage: c.Stage}
		if c.Amount != nil {
			d.Amount = *c.Amount
		}
		return d, nil
	case constants.EventYeastHarvest:
		if strings.TrimSpace(c.Strain) == "" {
			return nil, fmt.Errorf("%w: yeast-harvest events need --strain", models.ErrValidation)
		}
		d := models.YeastHarvestData{Strain: c.Strain, Generation: c.Generation}
		if c.Amount != nil {
			d.Amount = *c.Amount
		}
		return d, nil
	case constants.EventTastingNote:
		return models.TastingData{Text: c.Text, Rating: c.Rating}, nil
	case constants.EventNote:
		return models.NoteData{Text: c.Text}, nil
	}
	// Unknown types are rejected by EventInput.Validate
	return nil, nil
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	in, err := c.Input()
	if err != nil {
		return err
	}

	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	ev, err := sc.AddEvent(bg, in)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s event %s (%s)\n", ev.Type, ev.ID, cli.StatusLine(sc))
	return nil
}

type EventRemoveCmd struct {
	ID string `arg:"" help:"Event id."`
}

func (c *EventRemoveCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	if err := sc.RemoveEvent(bg, c.ID); err != nil {
		return err
	}
	fmt.Printf("Removed event %s (%s)\n", c.ID, cli.StatusLine(sc))
	return nil
}

type EventListCmd struct {
	Type string `help:"Only show events of this type."`
	Unit string `short:"u" help:"Scale for gravity values: sg, plato, brix, sg1000." default:"sg"`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
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

	timeline := sc.Timeline()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tTITLE\tDETAIL")
	shown := 0
	for _, e := range timeline {
		if c.Type != "" && string(e.Type) != c.Type {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, cli.FormatTime(e.Date), e.Type, e.Title, e.Summary(unit))
		shown++
	}
	if shown == 0 {
		fmt.Println("No events recorded.")
		return nil
	}
	return w.Flush()
}
