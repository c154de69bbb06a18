package constants

import "time"

// Phase is a lifecycle stage of a brewing session
type Phase string

// EventType tags the variant of a TimelineEvent
type EventType string

// ActionType tags the variant of a queued mutation
type ActionType string

// MeasurementSource identifies where a reading came from
type MeasurementSource string

const (
	AppName            = "brewlog"
	DefaultKeyringUser = "remote-connection"
	DefaultDataPath    = "~/.config/brewlog/brewlog.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DisplayTimeFormat is used for timestamps shown in tables
	DisplayTimeFormat = "2006-01-02 15:04"

	// TimestampFormat is accepted when parsing timestamps. Fractional
	// seconds are optional on input.
	TimestampFormat = time.RFC3339

	// StoredTimeFormat is the fixed-width UTC layout written to the stores.
	// It keeps full precision and sorts as text.
	StoredTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

	// TempIDPrefix marks identifiers that were generated locally and have not
	// been confirmed by the remote store
	TempIDPrefix = "temp-"

	// Connectivity constants
	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 3 * time.Second

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "brewlog-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.brewlog"
	TrayExecutablePrefix   = "brewlog-tray"

	// Phases, in forward order
	PhasePlanning     Phase = "planning"
	PhaseBrewing      Phase = "brewing"
	PhaseFermenting   Phase = "fermenting"
	PhaseConditioning Phase = "conditioning"
	PhaseCompleted    Phase = "completed"

	// Timeline event types
	EventStatusChange           EventType = "status-change"
	EventOGMeasurement          EventType = "og-measurement"
	EventGravityMeasurement     EventType = "gravity-measurement"
	EventVolumeMeasurement      EventType = "volume-measurement"
	EventPHMeasurement          EventType = "ph-measurement"
	EventTemperatureMeasurement EventType = "temperature-measurement"
	EventIngredientAddition     EventType = "ingredient-addition"
	EventYeastHarvest           EventType = "yeast-harvest"
	EventNote                   EventType = "note"
	EventTastingNote            EventType = "tasting-note"

	// Queue action types
	ActionAddMeasurement    ActionType = "add-measurement"
	ActionUpdateSession     ActionType = "update-session"
	ActionAddEvent          ActionType = "add-event"
	ActionRemoveEvent       ActionType = "remove-event"
	ActionChangePhase       ActionType = "change-phase"
	ActionUpdateMeasurement ActionType = "update-measurement"
	ActionDeleteMeasurement ActionType = "delete-measurement"

	// Measurement sources
	SourceManual MeasurementSource = "manual"
)
