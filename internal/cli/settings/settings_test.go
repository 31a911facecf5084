package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/config"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "rhythm.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := cli.NewContext(store, config.Config{DBPath: dbPath}, scheduler.Suppliers{})
	out := &bytes.Buffer{}
	ctx.Out = out
	return ctx, out
}

func TestSettingsCmd_List(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&SettingsCmd{List: true}).Run(ctx); err != nil {
		t.Fatalf("settings list failed: %v", err)
	}
	if !strings.Contains(out.String(), "wake_time:") || !strings.Contains(out.String(), "06:00") {
		t.Errorf("expected YAML preferences, got:\n%s", out.String())
	}
}

func TestSettingsCmd_Update(t *testing.T) {
	ctx, _ := setupTestContext(t)
	perWeek := 3
	days := "mon,wed,fri"
	cmd := &SettingsCmd{WorkoutsPerWeek: &perWeek, WorkoutDays: &days}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	prefs, err := ctx.Store.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if prefs.WorkoutsPerWeek != 3 || len(prefs.WorkoutDays) != 3 || prefs.WorkoutDays[1] != time.Wednesday {
		t.Errorf("unexpected preferences: %+v", prefs)
	}
}

func TestSettingsCmd_RejectsInvalid(t *testing.T) {
	ctx, _ := setupTestContext(t)
	wake := "25:00"
	if err := (&SettingsCmd{WakeTime: &wake}).Run(ctx); err == nil {
		t.Error("expected an invalid wake time to be rejected")
	}

	perWeek := 4
	days := "mon,tue"
	if err := (&SettingsCmd{WorkoutsPerWeek: &perWeek, WorkoutDays: &days}).Run(ctx); err == nil {
		t.Error("expected more workouts than workout days to be rejected")
	}
}

func TestPrefsExportImport(t *testing.T) {
	ctx, _ := setupTestContext(t)
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	if err := (&PrefsExportCmd{Path: path}).Run(ctx); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	edited := strings.Replace(string(data), "meals_per_day: 3", "meals_per_day: 2", 1)
	if err := os.WriteFile(path, []byte(edited), 0600); err != nil {
		t.Fatal(err)
	}

	if err := (&PrefsImportCmd{Path: path}).Run(ctx); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	prefs, err := ctx.Store.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if prefs.MealsPerDay != 2 {
		t.Errorf("expected 2 meals per day after import, got %d", prefs.MealsPerDay)
	}
}

func TestPrefsImport_UnknownField(t *testing.T) {
	ctx, _ := setupTestContext(t)
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("wake_time: \"06:30\"\nnap_time: \"13:00\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := (&PrefsImportCmd{Path: path}).Run(ctx); err == nil {
		t.Error("expected unknown fields to be rejected")
	}
}
