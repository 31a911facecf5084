package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/rhythm/internal/storage"
)

// MarkSyncPending queues the week for remote sync. Re-queuing bumps the
// version and gives the new state a fresh attempt budget.
func (s *Store) MarkSyncPending(weekStart string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_queue (week_start, queued_at, attempts, version) VALUES (?, ?, 0, 1)
		ON CONFLICT(week_start) DO UPDATE SET
			queued_at = excluded.queued_at,
			attempts = 0,
			last_error = NULL,
			version = sync_queue.version + 1`,
		weekStart, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) ListPendingSync() ([]storage.PendingSync, error) {
	rows, err := s.db.Query("SELECT week_start, queued_at, version, attempts, last_error FROM sync_queue ORDER BY queued_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []storage.PendingSync
	for rows.Next() {
		var p storage.PendingSync
		var queuedAt string
		var lastError sql.NullString
		if err := rows.Scan(&p.WeekStart, &queuedAt, &p.Version, &p.Attempts, &lastError); err != nil {
			return nil, err
		}
		if p.QueuedAt, err = time.Parse(time.RFC3339Nano, queuedAt); err != nil {
			return nil, fmt.Errorf("parsing queued_at: %w", err)
		}
		p.LastError = lastError.String
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *Store) RecordSyncFailure(weekStart string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.Exec("UPDATE sync_queue SET attempts = attempts + 1, last_error = ? WHERE week_start = ?", msg, weekStart)
	return err
}

// MarkSynced clears the queue entry only if it is still at version. A week
// queued again while its push was in flight stays pending.
func (s *Store) MarkSynced(weekStart string, version int64) error {
	_, err := s.db.Exec("DELETE FROM sync_queue WHERE week_start = ? AND version = ?", weekStart, version)
	return err
}
