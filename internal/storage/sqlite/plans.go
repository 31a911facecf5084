package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
)

// SaveWeeklyPlan replaces everything stored for the plan's week.
func (s *Store) SaveWeeklyPlan(plan models.WeeklyPlan) error {
	stats, err := json.Marshal(plan.Stats)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO weekly_plans (week_start, generated_at, stats, updated_at) VALUES (?, ?, ?, ?)",
		plan.WeekStart, plan.GeneratedAt.UTC().Format(time.RFC3339Nano), string(stats), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM time_blocks WHERE date IN (SELECT date FROM day_timelines WHERE week_start = ?)", plan.WeekStart); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM day_timelines WHERE week_start = ?", plan.WeekStart); err != nil {
		return err
	}

	dayStmt, err := tx.Prepare(`
		INSERT INTO day_timelines (
			date, week_start, day_index, completion_rate, total_scheduled_minutes, total_free_minutes, all_day_events, conflicts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer dayStmt.Close()

	blockStmt, err := tx.Prepare(`
		INSERT INTO time_blocks (
			date, id, type, title, start_min, end_min, status, priority, flexibility, ai_generated, device_event_id, parent_id, generated_start_min
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer blockStmt.Close()

	for i, day := range plan.Days {
		allDay, err := nullJSON(day.AllDayEvents, len(day.AllDayEvents))
		if err != nil {
			return err
		}
		conflicts, err := nullJSON(day.Conflicts, len(day.Conflicts))
		if err != nil {
			return err
		}
		if _, err := dayStmt.Exec(day.Date, plan.WeekStart, i, day.CompletionRate, day.TotalScheduledMinutes, day.TotalFreeMinutes, allDay, conflicts); err != nil {
			return fmt.Errorf("failed to save day %s: %w", day.Date, err)
		}

		for _, b := range day.Blocks {
			if b.Type == models.BlockFree {
				continue
			}
			_, err := blockStmt.Exec(
				day.Date, b.ID, string(b.Type), b.Title, b.StartMin, b.EndMin, string(b.Status),
				b.Priority, b.Flexibility, b.AIGenerated, nullString(b.DeviceEventID), nullString(b.ParentID), b.GeneratedStartMin,
			)
			if err != nil {
				return fmt.Errorf("failed to save block %s on %s: %w", b.ID, day.Date, err)
			}
		}
	}

	return tx.Commit()
}

// GetWeeklyPlan loads a stored week. Free blocks are not stored, so callers
// that display the plan refresh each day first.
func (s *Store) GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error) {
	plan := models.WeeklyPlan{WeekStart: weekStart}

	var generatedAt, stats string
	err := s.db.QueryRow("SELECT generated_at, stats FROM weekly_plans WHERE week_start = ?", weekStart).Scan(&generatedAt, &stats)
	if errors.Is(err, sql.ErrNoRows) {
		return plan, fmt.Errorf("%w: plan for week %s", apperrors.ErrNotFound, weekStart)
	}
	if err != nil {
		return plan, err
	}
	if plan.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return plan, fmt.Errorf("parsing generated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(stats), &plan.Stats); err != nil {
		return plan, fmt.Errorf("parsing stats: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT date, day_index, completion_rate, total_scheduled_minutes, total_free_minutes, all_day_events, conflicts
		FROM day_timelines WHERE week_start = ? ORDER BY day_index`, weekStart)
	if err != nil {
		return plan, err
	}
	defer rows.Close()

	for rows.Next() {
		var day models.DailyTimeline
		var idx int
		var allDay, conflicts sql.NullString
		if err := rows.Scan(&day.Date, &idx, &day.CompletionRate, &day.TotalScheduledMinutes, &day.TotalFreeMinutes, &allDay, &conflicts); err != nil {
			return plan, err
		}
		if idx < 0 || idx >= len(plan.Days) {
			return plan, fmt.Errorf("day %s has invalid index %d", day.Date, idx)
		}
		if allDay.Valid {
			if err := json.Unmarshal([]byte(allDay.String), &day.AllDayEvents); err != nil {
				return plan, fmt.Errorf("parsing all-day events for %s: %w", day.Date, err)
			}
		}
		if conflicts.Valid {
			if err := json.Unmarshal([]byte(conflicts.String), &day.Conflicts); err != nil {
				return plan, fmt.Errorf("parsing conflicts for %s: %w", day.Date, err)
			}
		}
		plan.Days[idx] = day
	}
	if err := rows.Err(); err != nil {
		return plan, err
	}

	for i := range plan.Days {
		blocks, err := s.blocksFor(plan.Days[i].Date)
		if err != nil {
			return plan, err
		}
		plan.Days[i].Blocks = blocks
	}
	return plan, nil
}

func (s *Store) blocksFor(date string) ([]models.TimeBlock, error) {
	rows, err := s.db.Query(`
		SELECT id, type, title, start_min, end_min, status, priority, flexibility, ai_generated, device_event_id, parent_id, generated_start_min
		FROM time_blocks WHERE date = ? ORDER BY start_min, end_min, id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []models.TimeBlock{}
	for rows.Next() {
		var b models.TimeBlock
		var typ, status string
		var deviceEventID, parentID sql.NullString
		if err := rows.Scan(&b.ID, &typ, &b.Title, &b.StartMin, &b.EndMin, &status, &b.Priority, &b.Flexibility,
			&b.AIGenerated, &deviceEventID, &parentID, &b.GeneratedStartMin); err != nil {
			return nil, err
		}
		b.Type = models.BlockType(typ)
		b.Status = models.BlockStatus(status)
		b.DeviceEventID = deviceEventID.String
		b.ParentID = parentID.String
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *Store) ListWeekStarts() ([]string, error) {
	rows, err := s.db.Query("SELECT week_start FROM weekly_plans ORDER BY week_start")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(v interface{}, n int) (sql.NullString, error) {
	if n == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
