// Package storage defines the contracts the session core consumes: the
// remote store of record and the local durable queue.
package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
)

// ErrNotFound is returned when the addressed row does not exist
var ErrNotFound = errors.New("record not found")

// Lifecycle is shared by every store. Init creates and migrates, Load opens
// an existing store and checks its schema version.
type Lifecycle interface {
	Init() error
	Load() error
	Close() error
}

// Remote is the store of record. Create calls issue server identifiers; the
// identifier on the argument is ignored.
type Remote interface {
	Lifecycle

	Ping(ctx context.Context) error

	// Sessions
	CreateSession(ctx context.Context, s models.Session) (models.Session, error)
	// GetSession returns the session joined with its timeline and
	// measurement history.
	GetSession(ctx context.Context, id string) (models.Session, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
	UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error
	// SetPhase stores the new phase and its status-change event together
	SetPhase(ctx context.Context, id string, phase constants.Phase, event models.TimelineEvent) (models.TimelineEvent, error)

	// Measurements
	CreateMeasurement(ctx context.Context, sessionID string, m models.Measurement) (models.Measurement, error)
	UpdateMeasurement(ctx context.Context, id string, patch models.MeasurementPatch) error
	DeleteMeasurement(ctx context.Context, id string) error

	// Timeline
	// AppendEvent returns the stored event and the authoritative timeline
	AppendEvent(ctx context.Context, sessionID string, e models.TimelineEvent) (models.TimelineEvent, []models.TimelineEvent, error)
	DeleteEvent(ctx context.Context, id string) error

	// Name is a non-sensitive label for display
	Name() string
}

// QueueStore keeps one durable record per session holding its pending
// actions in order.
type QueueStore interface {
	LoadQueue(ctx context.Context, sessionID string) ([]models.QueueAction, error)
	SaveQueue(ctx context.Context, sessionID string, actions []models.QueueAction) error
	// QueueDepths reports pending action counts for every session with work
	QueueDepths(ctx context.Context) (map[string]int, error)
}

// SnapshotCache keeps the last known session view on the device so a session
// can be opened while the store of record is unreachable.
type SnapshotCache interface {
	LoadSnapshot(ctx context.Context, sessionID string) (models.Session, bool, error)
	SaveSnapshot(ctx context.Context, s models.Session) error
}
