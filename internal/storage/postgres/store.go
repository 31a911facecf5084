package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/migration"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/migrations"
)

// Store is the remote persistence for weekly plan snapshots. Only plans
// with private data stripped are ever written.
type Store struct {
	connStr string
	db      *sql.DB
}

func New(connStr string) *Store {
	return &Store{connStr: withSearchPath(connStr)}
}

// Open connects, creates the schema and applies migrations.
func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	if _, err := migration.NewRunner(db, sub, migration.Postgres).Apply(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// PutSnapshot upserts the week. The plan is stripped again here so that no
// caller can push calendar data by mistake.
func (s *Store) PutSnapshot(ctx context.Context, plan models.WeeklyPlan) error {
	if s.db == nil {
		return fmt.Errorf("remote store is not open")
	}
	public := plan.StripPrivate()
	payload, err := json.Marshal(public)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weekly_plan_snapshots (week_start, payload, workouts_completed, meals_completed, productivity_score, generated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (week_start) DO UPDATE SET
			payload = EXCLUDED.payload,
			workouts_completed = EXCLUDED.workouts_completed,
			meals_completed = EXCLUDED.meals_completed,
			productivity_score = EXCLUDED.productivity_score,
			generated_at = EXCLUDED.generated_at,
			synced_at = now()`,
		public.WeekStart, string(payload), public.Stats.WorkoutsCompleted, public.Stats.MealsCompleted,
		public.Stats.ProductivityScore, public.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", public.WeekStart, err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot for the week.
func (s *Store) GetSnapshot(ctx context.Context, weekStart string) (models.WeeklyPlan, error) {
	if s.db == nil {
		return models.WeeklyPlan{}, fmt.Errorf("remote store is not open")
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM weekly_plan_snapshots WHERE week_start = $1", weekStart).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeeklyPlan{}, fmt.Errorf("%w: snapshot for week %s", apperrors.ErrNotFound, weekStart)
	}
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	var plan models.WeeklyPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return models.WeeklyPlan{}, fmt.Errorf("parsing snapshot: %w", err)
	}
	return plan, nil
}
