package backup

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "rhythm.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
	return dbPath
}

// fixedClock returns a clock that advances one second per call so every
// backup gets a distinct timestamp.
func fixedClock() func() time.Time {
	t := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func preferencesIn(t *testing.T, dbPath string) models.Preferences {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer store.Close()
	prefs, err := store.GetPreferences()
	if err != nil {
		t.Fatalf("failed to read preferences: %v", err)
	}
	return prefs
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(path) != mgr.Dir() {
		t.Errorf("expected backup in %s, got %s", mgr.Dir(), path)
	}
	if _, ok := parseName(filepath.Base(path)); !ok {
		t.Errorf("backup name %s does not parse", filepath.Base(path))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer db.Close()
	if err := checkSchema(db); err != nil {
		t.Errorf("backup is not a rhythm database: %v", err)
	}
}

func TestCreate_MissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); err == nil {
		t.Error("expected an error for a missing database")
	}
}

func TestCreate_SameSecond(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	stuck := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return stuck }

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		path, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
		if seen[path] {
			t.Errorf("duplicate backup name %s", filepath.Base(path))
		}
		seen[path] = true
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 4 {
		t.Errorf("expected 4 backups, got %d", len(backups))
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = fixedClock()

	for i := 0; i < MaxBackups+3; i++ {
		if _, err := mgr.Create(); err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != MaxBackups {
		t.Fatalf("expected %d backups after rotation, got %d", MaxBackups, len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups not sorted newest first at %d", i)
		}
	}
	// The three oldest were pruned.
	oldest := time.Date(2025, 6, 1, 8, 0, 4, 0, time.Local)
	if !backups[len(backups)-1].Timestamp.Equal(oldest) {
		t.Errorf("expected oldest kept backup at %v, got %v", oldest, backups[len(backups)-1].Timestamp)
	}
}

func TestList_IgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	if _, err := mgr.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, name := range []string{"notes.txt", "rhythm-garbage.db", "rhythm-20250601-080000-x.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected 1 backup, got %d", len(backups))
	}
}

func TestList_NoDirectory(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "rhythm.db"))
	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"rhythm-20250601-080000.db", true},
		{"rhythm-20250601-080000-3.db", true},
		{"rhythm-20250601-0800.db", false},
		{"other-20250601-080000.db", false},
		{"rhythm-20250601-080000.sqlite", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseName(tt.name); ok != tt.ok {
				t.Errorf("parseName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.now = fixedClock()

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	prefs := models.DefaultPreferences()
	prefs.WorkoutDurationMin = 90
	if err := store.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	store.Close()

	safety, err := mgr.Restore(path)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if safety == "" {
		t.Error("expected a safety backup of the replaced database")
	}

	if got := preferencesIn(t, dbPath); got.WorkoutDurationMin == 90 {
		t.Errorf("expected preferences from before the change, got %+v", got)
	}
	if got := preferencesIn(t, safety); got.WorkoutDurationMin != 90 {
		t.Errorf("expected safety backup to hold the replaced state, got %+v", got)
	}
}

func TestRestore_RejectsForeignDatabase(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	foreign := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE notes (id INTEGER)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := mgr.Restore(foreign); err == nil {
		t.Error("expected restore of a non-rhythm database to fail")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.db")
	if err := os.WriteFile(garbage, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(garbage); err == nil {
		t.Error("expected restore of a corrupt file to fail")
	}
}

func TestResolve(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := mgr.Resolve(filepath.Base(path))
	if err != nil || got != path {
		t.Errorf("Resolve(bare name) = %q, %v; want %q", got, err, path)
	}
	if got, err := mgr.Resolve(path); err != nil || got != path {
		t.Errorf("Resolve(abs path) = %q, %v; want %q", got, err, path)
	}
	if _, err := mgr.Resolve("rhythm-19990101-000000.db"); err == nil {
		t.Error("expected an error for an unknown backup")
	}
}
