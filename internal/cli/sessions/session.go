package sessions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/metrics"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/session"
)

type SessionNewCmd struct {
	Name      string   `arg:"" help:"Batch name."`
	Group     string   `help:"Recipe or series the batch belongs to." default:"default"`
	BatchCode string   `help:"Batch code printed on labels."`
	TargetOG  *float64 `name:"target-og" help:"Target original gravity (any supported scale)."`
	Unit      string   `help:"Scale of --target-og: sg, plato, brix, sg1000. Guessed when empty."`
}

func (c *SessionNewCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	remote, err := ctx.RequireRemote()
	if err != nil {
		return err
	}
	if !ctx.IsOnline(bg) {
		return fmt.Errorf("creating a session: %w", session.ErrOffline)
	}

	s := models.NewSession(c.Group, c.Name)
	if c.BatchCode != "" {
		s.BatchCode = &c.BatchCode
	}
	if c.TargetOG != nil {
		unit, err := gravity.ParseUnit(c.Unit)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		sg, err := gravity.ToSG(*c.TargetOG, unit)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		s.TargetOG = &sg
	}
	if err := s.Validate(); err != nil {
		return err
	}

	created, err := remote.CreateSession(bg, s)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	// Cached so the session can be opened later without connectivity
	if err := ctx.Local.SaveSnapshot(bg, created); err != nil {
		logger.Warn("Failed to cache new session", "session", created.ID, "error", err)
	}

	fmt.Printf("Created session %q (%s)\n", created.Name, created.ID)
	fmt.Printf("  export BREWLOG_SESSION=%s\n", created.ID)
	return nil
}

type SessionListCmd struct{}

func (c *SessionListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	remote, err := ctx.RequireRemote()
	if err != nil {
		return err
	}
	if !ctx.IsOnline(bg) {
		return fmt.Errorf("listing sessions: %w", session.ErrOffline)
	}

	list, err := remote.ListSessions(bg)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No sessions yet. Create one with 'brewlog session new <name>'.")
		return nil
	}

	depths, err := ctx.Local.QueueDepths(bg)
	if err != nil {
		logger.Warn("Failed to read queue depths", "error", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHASE\tQUEUED\tCREATED")
	for _, s := range list {
		marker := ""
		if s.ID == ctx.SessionID {
			marker = " *"
		}
		fmt.Fprintf(w, "%s\t%s%s\t%s\t%d\t%s\n", s.ID, s.Name, marker, s.Phase, depths[s.ID], cli.FormatTime(s.CreatedAt))
	}
	return w.Flush()
}

type SessionShowCmd struct {
	Unit string `help:"Scale for gravity values: sg, plato, brix, sg1000." default:"sg"`
}

func (c *SessionShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	unit, err := gravity.ParseUnit(c.Unit)
	if err != nil {
		return err
	}
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	s := sc.Snapshot()
	fmt.Printf("%s (%s)\n", s.Name, s.ID)
	fmt.Printf("  Phase:        %s\n", s.Phase)
	if s.BatchCode != nil {
		fmt.Printf("  Batch code:   %s\n", *s.BatchCode)
	}
	if s.TargetOG != nil {
		fmt.Printf("  Target OG:    %s\n", gravity.Format(*s.TargetOG, unit))
	}
	fmt.Printf("  Sync:         %s\n", cli.StatusLine(sc))
	fmt.Println()
	printStats(sc.Metrics(), unit)

	if s.CompletedAt != nil {
		fmt.Println()
		fmt.Printf("  Completed:    %s\n", cli.FormatTime(*s.CompletedAt))
		fmt.Printf("  Final OG:     %s\n", cli.FormatGravity(s.MeasuredOG, unit))
		fmt.Printf("  Final FG:     %s\n", cli.FormatGravity(s.MeasuredFG, unit))
		fmt.Printf("  Final ABV:    %s%%\n", cli.FormatFloat(s.MeasuredABV, 1))
	}
	if s.Notes != nil && *s.Notes != "" {
		fmt.Println()
		fmt.Println(*s.Notes)
	}
	return nil
}

func printStats(st metrics.Stats, unit gravity.Unit) {
	fmt.Printf("  OG:           %s\n", cli.FormatGravity(st.OG, unit))
	fmt.Printf("  Gravity:      %s\n", cli.FormatGravity(st.CurrentGravity, unit))
	fmt.Printf("  Attenuation:  %s%%\n", cli.FormatFloat(st.Attenuation, 1))
	fmt.Printf("  ABV:          %s%%\n", cli.FormatFloat(st.ABV, 2))
	fmt.Printf("  Volume:       %s\n", cli.FormatFloat(st.Volume, 1))
	fmt.Printf("  pH:           %s\n", cli.FormatFloat(st.PH, 2))
	fmt.Printf("  Temperature:  %s\n", cli.FormatFloat(st.Temperature, 1))
}

// SessionUpdateCmd edits the mutable scalar fields of a session
type SessionUpdateCmd struct {
	Notes      *string           `help:"Free-form notes."`
	BatchCode  *string           `help:"Batch code."`
	Status     *string           `help:"Status label."`
	Volume     *float64          `help:"Measured volume."`
	Efficiency *float64          `help:"Measured brewhouse efficiency."`
	Set        map[string]string `help:"Raw field=value pairs. Unknown fields are ignored."`
}

func (c *SessionUpdateCmd) Run(ctx *cli.Context) error {
	fields := map[string]interface{}{}
	for k, v := range c.Set {
		fields[k] = v
	}
	if c.Notes != nil {
		fields[models.FieldNotes] = *c.Notes
	}
	if c.BatchCode != nil {
		fields[models.FieldBatchCode] = *c.BatchCode
	}
	if c.Status != nil {
		fields[models.FieldStatus] = *c.Status
	}
	if c.Volume != nil {
		fields[models.FieldMeasuredVolume] = *c.Volume
	}
	if c.Efficiency != nil {
		fields[models.FieldMeasuredEfficiency] = *c.Efficiency
	}
	patch, err := models.SessionPatchFromMap(fields)
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

	if err := sc.UpdateSessionData(bg, patch); err != nil {
		return err
	}
	fmt.Printf("Updated session %s (%s)\n", sc.ID(), cli.StatusLine(sc))
	return nil
}
