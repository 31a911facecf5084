package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/config"
)

type InitCmd struct {
	Force bool   `help:"Delete the existing database before initializing."`
	Prefs string `help:"YAML preferences file to start from." type:"existingfile"`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	dbPath := ctx.Store.GetConfigPath()
	if c.Force {
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized rhythm storage at: %s\n", dbPath)

	if c.Prefs != "" {
		prefs, err := config.ImportPreferences(c.Prefs)
		if err != nil {
			return err
		}
		if err := ctx.Store.SavePreferences(prefs); err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		ctx.Printf("Imported preferences from %s\n", c.Prefs)
	}
	return nil
}
