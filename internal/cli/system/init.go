package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/brewlog/internal/cli"
)

type InitCmd struct {
	Force     bool `help:"Delete the local database before initialization. Queued offline changes are lost."`
	LocalOnly bool `help:"Only initialize the local database, leave the store of record alone."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		dbPath := ctx.Local.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Local.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Local.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized local storage at: %s\n", ctx.Local.GetConfigPath())

	if c.LocalOnly {
		return nil
	}
	if ctx.Remote == nil {
		fmt.Println("No store of record configured; set one with --remote or 'brewlog keyring set'.")
		return nil
	}
	if err := ctx.Remote.Init(); err != nil {
		return fmt.Errorf("failed to initialize store of record: %w", err)
	}
	fmt.Printf("Initialized store of record: %s\n", ctx.Remote.Name())
	return nil
}
