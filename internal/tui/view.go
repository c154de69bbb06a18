package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/notifier"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateReadings:
		content = m.readings.View()
	case StateTimeline:
		content = m.timeline.View()
	case StateAddReading, StateAddNote:
		content = m.form.View()
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		m.viewStats(),
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m),
	))
}

func (m Model) viewHeader() string {
	s := m.session.Snapshot()
	title := titleStyle.Render(fmt.Sprintf("%s · %s", s.Name, s.Phase))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.viewConnectivity())
}

func (m Model) viewConnectivity() string {
	var parts []string
	if m.session.IsOnline() {
		parts = append(parts, onlineStyle.Render("● online"))
	} else {
		parts = append(parts, warningStyle.Render("○ offline"))
	}
	if m.session.IsSyncing() || m.busy > 0 {
		parts = append(parts, m.spinner.View()+" syncing")
	}
	if n := len(m.session.PendingActions()); n > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("%d queued", n)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewStats() string {
	st := m.session.Metrics()
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	left := lipgloss.JoinVertical(lipgloss.Left,
		row("OG", cli.FormatGravity(st.OG, m.unit)),
		row("Gravity", cli.FormatGravity(st.CurrentGravity, m.unit)),
		row("Attenuation", cli.FormatFloat(st.Attenuation, 1)+"%"),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		row("ABV", cli.FormatFloat(st.ABV, 2)+"%"),
		row("Volume", cli.FormatFloat(st.Volume, 1)),
		row("pH", cli.FormatFloat(st.PH, 2)),
	)
	return statsStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right))
}

func (m Model) viewTabs() string {
	active := m.state
	if active != StateReadings && active != StateTimeline {
		active = m.previousState
	}
	var tabs []string
	for _, t := range []struct {
		state viewState
		title string
	}{{StateReadings, "Readings"}, {StateTimeline, "Timeline"}} {
		if t.state == active {
			tabs = append(tabs, activeTabStyle.Render(t.title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(t.title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewConfirmDelete() string {
	what := "reading"
	if m.previousState == StateTimeline {
		what = "event"
	}
	return lipgloss.Place(m.width, 7,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete this %s?", what)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

// viewStatus shows the most recent toast while it is fresh, then the result
// of the last operation
func (m Model) viewStatus() string {
	if m.toasts != nil {
		if msg, ok := m.toasts.Last(); ok && time.Since(msg.At) < toastTTL {
			if msg.Kind == notifier.KindFailure {
				return dangerStyle.Render(msg.Text)
			}
			return onlineStyle.Render(msg.Text)
		}
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return dangerStyle.Render(m.status)
	}
	return warningStyle.Render(m.status)
}
