// Package phase holds the session lifecycle. It does not police which
// transitions a user may pick; it records the chosen one.
package phase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrUnchanged    = errors.New("session is already in that phase")
	ErrTerminal     = errors.New("session is completed; there is no next phase")
)

// Order is the forward lifecycle
var Order = []constants.Phase{
	constants.PhasePlanning,
	constants.PhaseBrewing,
	constants.PhaseFermenting,
	constants.PhaseConditioning,
	constants.PhaseCompleted,
}

// Parse accepts a phase name in any case
func Parse(s string) (constants.Phase, error) {
	p := constants.Phase(strings.ToLower(strings.TrimSpace(s)))
	if Index(p) < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownPhase, s)
	}
	return p, nil
}

// Index is the position of p in Order, or -1
func Index(p constants.Phase) int {
	for i, o := range Order {
		if o == p {
			return i
		}
	}
	return -1
}

// Next is the phase the UI offers after p
func Next(p constants.Phase) (constants.Phase, error) {
	i := Index(p)
	switch {
	case i < 0:
		return "", fmt.Errorf("%w: %s", ErrUnknownPhase, p)
	case i == len(Order)-1:
		return "", ErrTerminal
	}
	return Order[i+1], nil
}

func IsTerminal(p constants.Phase) bool {
	return p == constants.PhaseCompleted
}

// IsRollback reports a user-initiated move backwards
func IsRollback(from, to constants.Phase) bool {
	return Index(to) < Index(from)
}

// Transition is the result of a phase change: the updated session and the
// status-change event that records it.
type Transition struct {
	From    constants.Phase
	To      constants.Phase
	Session models.Session
	Event   models.TimelineEvent
}

// Change sets the session phase and appends the audit event under eventID
func Change(s models.Session, to constants.Phase, eventID string, now time.Time) (Transition, error) {
	if Index(to) < 0 {
		return Transition{}, fmt.Errorf("%w: %s", ErrUnknownPhase, to)
	}
	if s.Phase == to {
		return Transition{}, ErrUnchanged
	}

	ev := models.PhaseChangeEvent(eventID, s.Phase, to, now)
	out := s.Clone()
	out.Phase = to
	out.UpdatedAt = now.UTC()
	out.Timeline = append(out.Timeline, ev)

	return Transition{From: s.Phase, To: to, Session: out, Event: ev}, nil
}
