package storage

import (
	"time"

	"github.com/julianstephens/rhythm/internal/models"
)

// Provider is the local, authoritative store for preferences and weekly
// plans. Synthetic free blocks are never persisted.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Preferences
	GetPreferences() (models.Preferences, error)
	SavePreferences(models.Preferences) error

	// Plans
	SaveWeeklyPlan(models.WeeklyPlan) error
	// GetWeeklyPlan returns errors.ErrNotFound when no plan is stored for
	// the week.
	GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error)
	ListWeekStarts() ([]string, error)

	// Remote sync queue
	MarkSyncPending(weekStart string) error
	ListPendingSync() ([]PendingSync, error)
	RecordSyncFailure(weekStart string, cause error) error
	MarkSynced(weekStart string, version int64) error

	// Utils
	GetConfigPath() string
}

// PendingSync is a week whose latest local state has not reached remote
// persistence.
type PendingSync struct {
	WeekStart string
	QueuedAt  time.Time
	// Version increases every time the week is queued again.
	Version   int64
	Attempts  int
	LastError string
}
