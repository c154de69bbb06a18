package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/phase"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h := msg.Height - 14
		if h < 5 {
			h = 5
		}
		m.readings.SetHeight(h)
		m.timeline.SetHeight(h)
		return m, nil

	case tickMsg:
		// Background drains and connectivity flips land here
		m.refresh()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.busy--
		m.refresh()
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.what, msg.err)
			m.statusErr = true
		} else {
			m.status = msg.what
			m.statusErr = false
		}
		return m, nil
	}

	switch m.state {
	case StateAddReading, StateAddNote:
		return m.updateForm(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if handled, model, cmd := m.handleKey(msg); handled {
			return model, cmd
		}
	}

	var cmd tea.Cmd
	if m.state == StateTimeline {
		m.timeline, cmd = m.timeline.Update(msg)
	} else {
		m.readings, cmd = m.readings.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return true, m, nil

	case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.ShiftTab):
		if m.state == StateReadings {
			m.state = StateTimeline
		} else {
			m.state = StateReadings
		}
		return true, m, nil

	case key.Matches(msg, m.keys.Unit):
		for i, u := range units {
			if u == m.unit {
				m.unit = units[(i+1)%len(units)]
				break
			}
		}
		m.refresh()
		return true, m, nil

	case key.Matches(msg, m.keys.Add):
		m.measurementForm = &MeasurementFormModel{}
		m.form = newMeasurementForm(m.measurementForm)
		m.previousState = m.state
		m.state = StateAddReading
		return true, m, m.form.Init()

	case key.Matches(msg, m.keys.Note):
		m.noteForm = &NoteFormModel{}
		m.form = newNoteForm(m.noteForm)
		m.previousState = m.state
		m.state = StateAddNote
		return true, m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		id := m.selectedID()
		if id == "" {
			return true, m, nil
		}
		m.deleteID = id
		m.previousState = m.state
		m.state = StateConfirmDelete
		return true, m, nil

	case key.Matches(msg, m.keys.NextPhase):
		next, err := phase.Next(m.session.Snapshot().Phase)
		if err != nil {
			m.status = err.Error()
			m.statusErr = true
			return true, m, nil
		}
		sc := m.session
		cmd := m.run(fmt.Sprintf("Moved to %s", next), func(ctx context.Context) error {
			return sc.ChangePhase(ctx, next)
		})
		return true, m, cmd

	case key.Matches(msg, m.keys.Sync):
		sc := m.session
		cmd := m.run("Sync finished", func(ctx context.Context) error {
			_, err := sc.ProcessQueue(ctx)
			return err
		})
		return true, m, cmd

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.run("Refreshed", m.session.Refresh)
		return true, m, cmd

	case key.Matches(msg, m.keys.Offline):
		m.offline = !m.offline
		m.session.SetOffline(m.offline)
		if m.offline {
			m.status = "Working offline; changes will be queued"
		} else {
			m.status = "Offline override released"
		}
		m.statusErr = false
		return true, m, nil
	}
	return false, m, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	kind := m.state
	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		m.state = m.previousState
		cmds = append(cmds, m.submitForm(kind))
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, tea.Batch(cmds...)
}

// submitForm turns the completed form into a session operation
func (m *Model) submitForm(kind viewState) tea.Cmd {
	sc := m.session
	switch {
	case kind == StateAddReading && m.measurementForm != nil:
		in, err := m.measurementForm.ToInput()
		m.measurementForm = nil
		if err != nil {
			m.status = err.Error()
			m.statusErr = true
			return nil
		}
		return m.run("Reading recorded", func(ctx context.Context) error {
			_, err := sc.AddMeasurement(ctx, in)
			return err
		})
	case kind == StateAddNote && m.noteForm != nil:
		in := models.EventInput{
			Type: constants.EventNote,
			Data: models.NoteData{Text: m.noteForm.Text},
		}
		m.noteForm = nil
		return m.run("Note added", func(ctx context.Context) error {
			_, err := sc.AddEvent(ctx, in)
			return err
		})
	}
	return nil
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		sc := m.session
		id := m.deleteID
		m.state = m.previousState
		m.deleteID = ""
		var cmd tea.Cmd
		if m.state == StateTimeline {
			cmd = m.run("Event removed", func(ctx context.Context) error {
				return sc.RemoveEvent(ctx, id)
			})
		} else {
			cmd = m.run("Reading deleted", func(ctx context.Context) error {
				return sc.DeleteMeasurement(ctx, id)
			})
		}
		return m, cmd
	case "n", "N", "esc", "q":
		m.state = m.previousState
		m.deleteID = ""
	}
	return m, nil
}

// run executes fn off the UI goroutine. The snapshot already reflects the
// optimistic change when fn returns, so a refresh follows the result.
func (m *Model) run(what string, fn func(ctx context.Context) error) tea.Cmd {
	m.busy++
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultProbeInterval*2)
		defer cancel()
		return resultMsg{what: what, err: fn(ctx)}
	}
}
