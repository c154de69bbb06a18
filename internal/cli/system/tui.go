package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/notifier"
	"github.com/julianstephens/brewlog/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	toasts := notifier.NewBuffer(20)
	var base notifier.Sender = notifier.LogSender{}
	if ctx.Notifier != nil {
		base = ctx.Notifier
	}
	ctx.Notifier = notifier.Fanout{base, toasts}

	monitor := ctx.NewMonitor(bg)
	sc, err := ctx.OpenSession(bg, monitor)
	if err != nil {
		return err
	}
	defer cli.CloseSession(sc)

	monitor.Start(bg)
	defer monitor.Stop()

	p := tea.NewProgram(tui.NewModel(sc, toasts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard exited: %w", err)
	}
	return nil
}
