package optimize

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/config"
	"github.com/julianstephens/rhythm/internal/scheduler"
	"github.com/julianstephens/rhythm/internal/storage/sqlite"
	"github.com/julianstephens/rhythm/internal/suppliers"
)

const monday = "2025-06-02"

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rhythm.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Config{DBPath: dbPath, CacheDir: filepath.Join(dir, "advisory-cache")}
	ctx := cli.NewContext(store, cfg, scheduler.Suppliers{Meals: suppliers.NewMealSupplier()})
	out := &bytes.Buffer{}
	ctx.Out = out
	return ctx, out
}

func TestOptimizeCmd_NoPlan(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&OptimizeCmd{Date: monday}).Run(ctx); err == nil {
		t.Error("expected an error without a plan")
	}
}

func TestOptimizeCmd_LocalOnly(t *testing.T) {
	ctx, out := setupTestContext(t)
	if _, err := ctx.Planner.Regenerate(ctx.Context(), "2025-06-01"); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	day, err := ctx.Planner.Day(monday)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	for _, b := range day.Blocks {
		if b.Trackable() {
			if _, err := ctx.Planner.Skip(ctx.Context(), b.ID, monday); err != nil {
				t.Fatalf("Skip failed: %v", err)
			}
		}
	}

	if err := (&OptimizeCmd{Date: monday, Refresh: true}).Run(ctx); err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Lighten 2025-06-02") {
		t.Errorf("expected a low completion note for Monday, got:\n%s", got)
	}
	if !strings.Contains(got, "No advisory API key configured") {
		t.Errorf("expected the missing key notice, got:\n%s", got)
	}
}
