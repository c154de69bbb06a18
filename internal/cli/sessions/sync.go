package sessions

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/queue"
)

// SyncCmd replays queued offline changes against the store of record
type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	sc, err := ctx.OpenSession(bg, nil)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	if len(sc.PendingActions()) == 0 {
		// OpenSession already drained anything left from earlier runs
		fmt.Printf("Queue is empty (%s)\n", cli.StatusLine(sc))
		return nil
	}

	report, err := sc.ProcessQueue(bg)
	if err != nil {
		if report.Failed != nil {
			fmt.Printf("Stopped at %s (%s): %d applied, %d remaining\n",
				report.Failed.Type, report.Failed.ID, report.Applied, report.Remaining)
		}
		return err
	}
	fmt.Printf("Synced %d change(s); %d remaining\n", report.Applied, report.Remaining)
	return nil
}

// QueueListCmd shows the pending actions for the selected session, or the
// depth of every queue when no session is selected.
type QueueListCmd struct{}

func (c *QueueListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if ctx.SessionID == "" {
		depths, err := ctx.Local.QueueDepths(bg)
		if err != nil {
			return err
		}
		if len(depths) == 0 {
			fmt.Println("No queued changes.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tPENDING")
		for id, n := range depths {
			fmt.Fprintf(w, "%s\t%d\n", id, n)
		}
		return w.Flush()
	}

	q := queue.New(ctx.SessionID, ctx.Local)
	if err := q.Load(bg); err != nil {
		return err
	}
	items := q.Items()
	if len(items) == 0 {
		fmt.Println("No queued changes.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tACTION\tTARGET\tQUEUED")
	for i, a := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, a.Type, describeTarget(a), cli.FormatTime(a.CreatedAt))
	}
	return w.Flush()
}

func describeTarget(a models.QueueAction) string {
	switch {
	case a.TargetID != "":
		return a.TargetID
	case a.TempID != "":
		return a.TempID
	case a.PhaseChange != nil:
		return fmt.Sprintf("%s → %s", a.PhaseChange.From, a.PhaseChange.To)
	}
	return "-"
}
