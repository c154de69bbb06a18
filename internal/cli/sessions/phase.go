package sessions

import (
	"context"
	"fmt"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/phase"
)

// PhaseSetCmd moves the session to any phase, forwards or backwards
type PhaseSetCmd struct {
	Phase string `arg:"" help:"planning, brewing, fermenting, conditioning or completed."`
}

func (c *PhaseSetCmd) Run(ctx *cli.Context) error {
	to, err := phase.Parse(c.Phase)
	if err != nil {
		return err
	}

	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	from := sc.Snapshot().Phase
	if err := sc.ChangePhase(bg, to); err != nil {
		return err
	}
	if phase.IsRollback(from, to) {
		fmt.Printf("Rolled back %s → %s (%s)\n", from, to, cli.StatusLine(sc))
		return nil
	}
	fmt.Printf("Phase %s → %s (%s)\n", from, to, cli.StatusLine(sc))
	return nil
}

// PhaseNextCmd advances to the following phase
type PhaseNextCmd struct{}

func (c *PhaseNextCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	from := sc.Snapshot().Phase
	to, err := phase.Next(from)
	if err != nil {
		return err
	}
	if err := sc.ChangePhase(bg, to); err != nil {
		return err
	}
	fmt.Printf("Phase %s → %s (%s)\n", from, to, cli.StatusLine(sc))
	return nil
}
