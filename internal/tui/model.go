// Package tui is the live session dashboard: derived metrics, the reading
// history and the timeline, with forms for new readings and notes.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/notifier"
	"github.com/julianstephens/brewlog/internal/session"
)

type viewState int

const (
	StateReadings viewState = iota
	StateTimeline
	StateAddReading
	StateAddNote
	StateConfirmDelete
)

// toastTTL is how long a notification stays in the status line
const toastTTL = 8 * time.Second

var units = []gravity.Unit{gravity.UnitSG, gravity.UnitPlato, gravity.UnitBrix, gravity.UnitSG1000}

type tickMsg time.Time

// resultMsg reports a finished session operation
type resultMsg struct {
	what string
	err  error
}

type Model struct {
	session *session.Context
	toasts  *notifier.Buffer

	state         viewState
	previousState viewState
	keys          KeyMap
	help          help.Model
	spinner       spinner.Model
	readings      table.Model
	timeline      table.Model
	readingIDs    []string
	eventIDs      []string

	form            *huh.Form
	measurementForm *MeasurementFormModel
	noteForm        *NoteFormModel

	unit      gravity.Unit
	offline   bool
	busy      int
	status    string
	statusErr bool
	deleteID  string
	quitting  bool
	width     int
	height    int
}

func NewModel(sc *session.Context, toasts *notifier.Buffer) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		session:  sc,
		toasts:   toasts,
		state:    StateReadings,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		readings: newTable(readingColumns()),
		timeline: newTable(timelineColumns()),
		unit:     gravity.UnitSG,
	}
	m.refresh()
	return m
}

func newTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)
	return t
}

func readingColumns() []table.Column {
	return []table.Column{
		{Title: "Taken", Width: 16},
		{Title: "Gravity", Width: 12},
		{Title: "Temp", Width: 6},
		{Title: "pH", Width: 5},
		{Title: "Volume", Width: 7},
		{Title: "Note", Width: 30},
	}
}

func timelineColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Type", Width: 22},
		{Title: "Title", Width: 22},
		{Title: "Detail", Width: 30},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh rebuilds both tables from the session snapshot
func (m *Model) refresh() {
	history := m.session.Measurements()
	rows := make([]table.Row, 0, len(history))
	m.readingIDs = make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		g := cli.FormatGravity(r.Gravity, m.unit)
		if r.IsOG {
			g += " OG"
		}
		note := ""
		if r.Note != nil {
			note = *r.Note
		}
		rows = append(rows, table.Row{
			r.MeasuredAt.Local().Format(constants.DisplayTimeFormat),
			g,
			cli.FormatFloat(r.Temperature, 1),
			cli.FormatFloat(r.PH, 2),
			cli.FormatFloat(r.Volume, 1),
			note,
		})
		m.readingIDs = append(m.readingIDs, r.ID)
	}
	m.readings.SetRows(rows)

	events := m.session.Timeline()
	rows = make([]table.Row, 0, len(events))
	m.eventIDs = make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		rows = append(rows, table.Row{
			e.Date.Local().Format(constants.DisplayTimeFormat),
			string(e.Type),
			e.Title,
			e.Summary(m.unit),
		})
		m.eventIDs = append(m.eventIDs, e.ID)
	}
	m.timeline.SetRows(rows)
}

// selectedID is the record under the cursor of the active table
func (m Model) selectedID() string {
	switch m.state {
	case StateReadings:
		if i := m.readings.Cursor(); i >= 0 && i < len(m.readingIDs) {
			return m.readingIDs[i]
		}
	case StateTimeline:
		if i := m.timeline.Cursor(); i >= 0 && i < len(m.eventIDs) {
			return m.eventIDs[i]
		}
	}
	return ""
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Add, m.keys.Note}
	if m.state == StateReadings || m.state == StateTimeline {
		keys = append(keys, m.keys.Delete)
	}
	return append(keys, m.keys.Sync, m.keys.Help, m.keys.Quit)
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Unit}
	actions := []key.Binding{m.keys.Add, m.keys.Note, m.keys.Delete, m.keys.NextPhase}
	sync := []key.Binding{m.keys.Sync, m.keys.Refresh, m.keys.Offline}
	return [][]key.Binding{global, navigation, actions, sync}
}
