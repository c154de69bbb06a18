package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/cli/events"
	"github.com/julianstephens/brewlog/internal/cli/measurements"
	"github.com/julianstephens/brewlog/internal/cli/sessions"
	"github.com/julianstephens/brewlog/internal/cli/system"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/errors"
	"github.com/julianstephens/brewlog/internal/keyring"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/notifier"
	"github.com/julianstephens/brewlog/internal/storage"
	"github.com/julianstephens/brewlog/internal/storage/postgres"
	"github.com/julianstephens/brewlog/internal/storage/sqlite"
)

var CLI struct {
	Version   kong.VersionFlag
	Data      string `help:"Local database holding the offline queue and session cache." type:"path" default:"~/.config/brewlog/brewlog.db" env:"BREWLOG_DATA"`
	Remote    string `help:"Store of record: PostgreSQL connection string or sqlite path. Credentials must NOT be embedded; use .pgpass, PGPASSWORD or 'brewlog keyring set'. Read from the OS keyring when empty." env:"BREWLOG_REMOTE"`
	SessionID string `name:"session" help:"Session id to work on." env:"BREWLOG_SESSION"`
	Offline   bool   `help:"Queue every change locally without contacting the store of record."`
	Debug     bool   `help:"Verbose logging to stderr and the log file."`

	Init    system.InitCmd   `cmd:"" help:"Initialize local storage and the store of record."`
	Doctor  system.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Tui     system.TuiCmd    `cmd:"" help:"Open the live session dashboard." default:"1"`
	Sync    sessions.SyncCmd `cmd:"" help:"Replay queued offline changes."`
	Session struct {
		New    sessions.SessionNewCmd    `cmd:"" help:"Create a session."`
		List   sessions.SessionListCmd   `cmd:"" help:"List sessions."`
		Show   sessions.SessionShowCmd   `cmd:"" help:"Show the session and its derived metrics." default:"1"`
		Update sessions.SessionUpdateCmd `cmd:"" help:"Edit session fields."`
	} `cmd:"" name:"session" help:"Manage brewing sessions."`
	Measure struct {
		Add    measurements.MeasureAddCmd    `cmd:"" help:"Record a reading."`
		Update measurements.MeasureUpdateCmd `cmd:"" help:"Correct a reading."`
		Delete measurements.MeasureDeleteCmd `cmd:"" help:"Delete a reading."`
		List   measurements.MeasureListCmd   `cmd:"" help:"List readings." default:"1"`
	} `cmd:"" help:"Manage gravity, temperature, pH and volume readings."`
	Event struct {
		Add    events.EventAddCmd    `cmd:"" help:"Add a timeline event."`
		Remove events.EventRemoveCmd `cmd:"" help:"Remove a timeline event."`
		List   events.EventListCmd   `cmd:"" help:"Show the timeline." default:"1"`
	} `cmd:"" help:"Manage the session timeline."`
	Phase struct {
		Set  sessions.PhaseSetCmd  `cmd:"" help:"Move to a phase, forwards or backwards."`
		Next sessions.PhaseNextCmd `cmd:"" help:"Advance to the next phase."`
	} `cmd:"" help:"Change the session phase."`
	Queue struct {
		List sessions.QueueListCmd `cmd:"" help:"Show queued offline changes." default:"1"`
	} `cmd:"" help:"Inspect the offline queue."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the store-of-record connection string."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string (masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
	} `cmd:"" help:"Manage the connection string in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Offline-capable brewing session log"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	command := ctx.Command()
	if err := logger.Init(logger.Config{
		Debug:       CLI.Debug,
		ConfigDir:   filepath.Dir(CLI.Data),
		Interactive: command == "tui",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	local := sqlite.NewStore(CLI.Data)
	defer local.Close()

	appCtx := &cli.Context{
		Local:     local,
		SessionID: CLI.SessionID,
		Offline:   CLI.Offline,
		Notifier:  notifier.Fallback{notifier.NewTray(), notifier.LogSender{}},
	}

	if !isKeyringCommand(command) {
		remote, err := resolveRemote(CLI.Remote)
		if err != nil {
			errors.Fatal(err)
		}
		if remote != nil {
			defer remote.Close()
			// An unreachable store is not fatal; the session routes to the queue
			if err := remote.Load(); err != nil && command != "init" {
				logger.Warn("Store of record unavailable", "store", remote.Name(), "error", err)
			}
			appCtx.Remote = remote
		}
	}

	// init and doctor open the local database themselves
	if command != "init" && command != "doctor" && !isKeyringCommand(command) {
		if err := local.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		errors.Fatal(err)
	}
}

func isKeyringCommand(command string) bool {
	return strings.HasPrefix(command, "keyring")
}

// resolveRemote picks the store of record from --remote or the keyring.
// Passwords are only accepted from the keyring.
func resolveRemote(explicit string) (storage.Remote, error) {
	connStr, source, err := keyring.ResolveRemote(explicit)
	if err != nil {
		logger.Warn("Keyring lookup failed", "error", err)
		return nil, nil
	}
	if connStr == "" {
		return nil, nil
	}

	if !postgres.IsConnString(connStr) {
		return sqlite.NewStore(kong.ExpandPath(connStr)), nil
	}
	if _, err := postgres.ValidateConnString(connStr); err != nil {
		if source == keyring.SourceKeyring && stderrors.Is(err, postgres.ErrEmbeddedCredentials) {
			return postgres.New(connStr), nil
		}
		return nil, err
	}
	return postgres.New(connStr), nil
}
