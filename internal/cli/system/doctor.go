package system

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/keyring"
	"github.com/julianstephens/brewlog/internal/migration"
)

// schemaReporter is implemented by stores backed by the migration runner
type schemaReporter interface {
	SchemaStatus() (migration.Status, error)
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	fail := func(name string, err error) {
		fmt.Printf("❌ %s: FAIL\n", name)
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	}

	// Local database
	localOK := false
	if err := checkLocalReachable(ctx); err != nil {
		fail("Local database reachable", err)
	} else {
		fmt.Printf("✓ Local database reachable: OK\n")
		localOK = true
	}

	if localOK {
		if err := checkSchema(ctx.Local); err != nil {
			fail("Local schema", err)
		} else {
			fmt.Printf("✓ Local schema: OK\n")
		}
	} else {
		fmt.Printf("⊘ Local schema: SKIPPED (database not reachable)\n")
	}

	// Store of record
	remoteOK := false
	switch {
	case ctx.Remote == nil:
		fmt.Printf("⊘ Store of record reachable: SKIPPED (none configured)\n")
	case ctx.Offline:
		fmt.Printf("⊘ Store of record reachable: SKIPPED (--offline)\n")
	default:
		if err := checkRemoteReachable(ctx); err != nil {
			fmt.Printf("⚠ Store of record reachable: WARNING\n")
			fmt.Printf("   %v (changes will be queued until it is back)\n", err)
		} else {
			fmt.Printf("✓ Store of record reachable: OK (%s)\n", ctx.Remote.Name())
			remoteOK = true
		}
	}

	if remoteOK {
		if reporter, ok := ctx.Remote.(schemaReporter); ok {
			if err := checkSchema(reporter); err != nil {
				fail("Store of record schema", err)
			} else {
				fmt.Printf("✓ Store of record schema: OK\n")
			}
		}
	} else {
		fmt.Printf("⊘ Store of record schema: SKIPPED (store not reachable)\n")
	}

	// Offline queue
	if localOK {
		depths, err := checkQueueDepths(ctx)
		if err != nil {
			fail("Offline queue", err)
		} else if len(depths) == 0 {
			fmt.Printf("✓ Offline queue: empty\n")
		} else {
			fmt.Printf("⚠ Offline queue: %d session(s) with queued changes\n", len(depths))
			ids := make([]string, 0, len(depths))
			for id := range depths {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Printf("   %s: %d pending\n", id, depths[id])
			}
		}
	} else {
		fmt.Printf("⊘ Offline queue: SKIPPED (database not reachable)\n")
	}

	if keyring.IsAvailable() {
		fmt.Printf("✓ OS keyring: OK\n")
	} else {
		fmt.Printf("⚠ OS keyring: WARNING\n")
		fmt.Printf("   not available; pass --remote or BREWLOG_REMOTE instead\n")
	}

	if err := checkClockTimezone(); err != nil {
		fail("Clock/timezone", err)
	} else {
		fmt.Printf("✓ Clock/timezone: OK\n")
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkLocalReachable(ctx *cli.Context) error {
	if err := ctx.Local.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	db := ctx.Local.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchema(r schemaReporter) error {
	status, err := r.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if status.Current > status.Latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", status.Current, status.Latest)
	}
	if n := status.Pending(); n > 0 {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'brewlog init')", status.Current, status.Latest)
	}
	return nil
}

func checkRemoteReachable(ctx *cli.Context) error {
	if err := ctx.Remote.Load(); err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultProbeTimeout)
	defer cancel()
	return ctx.Remote.Ping(pingCtx)
}

func checkQueueDepths(ctx *cli.Context) (map[string]int, error) {
	return ctx.Local.QueueDepths(context.Background())
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
