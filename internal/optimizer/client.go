// Package optimizer produces advisory guidance for a completed or
// in-progress week. It never changes the plan.
package optimizer

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

// Guidance is the advisory result for one week.
type Guidance struct {
	WeekStart   string       `json:"week_start"`
	Insight     string       `json:"insight,omitempty"`
	HabitTip    string       `json:"habit_tip,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
	Cached      bool         `json:"cached"`
}

type Client struct {
	advisor  Advisor
	cache    *Cache
	analyzer *HistoryAnalyzer
	now      func() time.Time
}

// NewClient wires the advisory client. Either advisor or cache may be nil.
func NewClient(advisor Advisor, cache *Cache) *Client {
	return &Client{
		advisor:  advisor,
		cache:    cache,
		analyzer: NewHistoryAnalyzer(),
		now:      time.Now,
	}
}

// RequestOptimization returns guidance for the plan's week. When the
// advisory service is missing or fails, the local suggestions are still
// returned together with an error wrapping errors.ErrSyncUnavailable.
func (c *Client) RequestOptimization(ctx context.Context, plan models.WeeklyPlan) (Guidance, error) {
	if err := ctx.Err(); err != nil {
		return Guidance{}, err
	}

	if c.cache != nil {
		g, ok, err := c.cache.Get(plan.WeekStart)
		if err != nil {
			logger.Warn("Advisory cache read failed", "week_start", plan.WeekStart, "error", err)
		} else if ok {
			g.Cached = true
			return g, nil
		}
	}

	public := plan.StripPrivate()
	guidance := Guidance{
		WeekStart:   plan.WeekStart,
		Suggestions: c.analyzer.Analyze(public),
		GeneratedAt: c.now().UTC(),
	}

	if c.advisor == nil {
		return guidance, fmt.Errorf("%w: advisory service is not configured", apperrors.ErrSyncUnavailable)
	}

	advice, err := c.advisor.Advise(ctx, buildRequest(public, guidance.Suggestions))
	if err != nil {
		logger.Warn("Advisory service failed", "week_start", plan.WeekStart, "error", err)
		return guidance, fmt.Errorf("%w: %v", apperrors.ErrSyncUnavailable, err)
	}
	guidance.Insight = advice.Insight
	guidance.HabitTip = advice.HabitTip

	if c.cache != nil {
		if err := c.cache.Put(guidance); err != nil {
			logger.Warn("Advisory cache write failed", "week_start", plan.WeekStart, "error", err)
		}
	}
	return guidance, nil
}

func buildRequest(plan models.WeeklyPlan, suggestions []Suggestion) AdviceRequest {
	req := AdviceRequest{
		WeekStart:   plan.WeekStart,
		History:     plan.History(),
		Stats:       plan.Stats,
		Blocks:      []BlockOutcome{},
		Suggestions: suggestions,
	}
	for _, day := range plan.Days {
		for _, b := range day.Blocks {
			if !b.Trackable() {
				continue
			}
			req.Blocks = append(req.Blocks, BlockOutcome{
				Date:   day.Date,
				Title:  b.Title,
				Type:   b.Type,
				Start:  utils.FormatClock(b.StartMin),
				Status: b.Status,
			})
		}
	}
	return req
}
