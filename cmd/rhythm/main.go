package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/cli/backups"
	"github.com/julianstephens/rhythm/internal/cli/optimize"
	"github.com/julianstephens/rhythm/internal/cli/plans"
	"github.com/julianstephens/rhythm/internal/cli/settings"
	"github.com/julianstephens/rhythm/internal/cli/system"
	"github.com/julianstephens/rhythm/internal/config"
	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/storage/sqlite"
	"github.com/julianstephens/rhythm/internal/suppliers"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Database path." type:"path" env:"RHYTHM_DB_PATH" default:"${dbPath}"`
	Calendar string `help:"YAML calendar export to plan around." type:"path" env:"RHYTHM_CALENDAR_FILE"`
	Debug    bool   `help:"Log debug output to stderr." env:"RHYTHM_DEBUG"`

	Init     system.InitCmd       `cmd:"" help:"Initialize rhythm storage."`
	Plan     plans.PlanCmd        `cmd:"" help:"Generate the weekly plan containing a date."`
	Week     plans.WeekCmd        `cmd:"" help:"Show the weekly plan containing a date." default:"withargs"`
	Day      plans.DayCmd         `cmd:"" help:"Show the timeline for a day."`
	Preview  plans.PreviewCmd     `cmd:"" help:"Preview a day from current preferences without saving."`
	Complete plans.CompleteCmd    `cmd:"" help:"Mark a workout or meal as completed."`
	Skip     plans.SkipCmd        `cmd:"" help:"Mark a workout or meal as skipped."`
	Move     plans.RescheduleCmd  `cmd:"" name:"reschedule" help:"Move a block to a new start time."`
	Optimize optimize.OptimizeCmd `cmd:"" help:"Review a week and get suggestions."`
	Validate system.ValidateCmd   `cmd:"" help:"Check stored plans for invariant violations."`
	Settings settings.SettingsCmd `cmd:"" help:"Show or change preferences."`
	Prefs    struct {
		Export settings.PrefsExportCmd `cmd:"" help:"Write preferences as YAML."`
		Import settings.PrefsImportCmd `cmd:"" help:"Replace preferences from a YAML file."`
	} `cmd:"" help:"Import or export preferences."`
	Sync   system.SyncCmd  `cmd:"" help:"Push pending weeks to remote persistence."`
	Serve  system.ServeCmd `cmd:"" help:"Run the HTTP API and periodic jobs."`
	MCP    system.MCPCmd   `cmd:"" name:"mcp" help:"Serve planner tools over MCP stdio."`
	Tui    system.TuiCmd   `cmd:"" name:"tui" help:"Track a day interactively."`
	Secret struct {
		Set    system.SecretSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
		Get    system.SecretGetCmd    `cmd:"" help:"Show a stored secret, masked."`
		Delete system.SecretDeleteCmd `cmd:"" help:"Delete a stored secret."`
		Status system.SecretStatusCmd `cmd:"" help:"Check keyring availability."`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		apperrors.Fatal(err)
	}

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Day and week scheduler for sleep, workouts and meals"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": constants.Version,
			"dbPath":  cfg.DBPath,
		},
	)

	cfg = cfg.WithDBPath(CLI.Config)
	cfg.Debug = cfg.Debug || CLI.Debug
	if CLI.Calendar != "" {
		cfg.CalendarFile = CLI.Calendar
	}
	command := ctx.Selected().Name

	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: cfg.ConfigDir(),
		Stderr:    command == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store := sqlite.NewStore(cfg.DBPath)
	if command != "init" {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}
	defer store.Close()

	sources := scheduler.Suppliers{
		Workouts: suppliers.NewWorkoutSupplier(),
		Meals:    suppliers.NewMealSupplier(),
	}
	if cfg.CalendarFile != "" {
		sources.Calendar = suppliers.NewCalendarAdapter(suppliers.NewFileCalendar(cfg.CalendarFile))
	}

	appCtx := cli.NewContext(store, cfg, sources)
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCtx.Ctx = signalCtx

	if err := ctx.Run(appCtx); err != nil {
		stop()
		store.Close()
		apperrors.Fatal(err)
	}
}
