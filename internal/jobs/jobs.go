// Package jobs runs rhythm's periodic background work: draining the remote
// sync queue and refreshing advisory guidance for the week that just ended.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/optimizer"
	remotesync "github.com/julianstephens/rhythm/internal/sync"
	"github.com/julianstephens/rhythm/internal/utils"
)

const jobTimeout = 2 * time.Minute

type Syncer interface {
	SyncPending(ctx context.Context) (remotesync.Report, error)
}

type PlanLoader interface {
	GetWeeklyPlan(weekStart string) (models.WeeklyPlan, error)
}

type Optimizer interface {
	RequestOptimization(ctx context.Context, plan models.WeeklyPlan) (optimizer.Guidance, error)
}

// Runner schedules jobs with standard five-field cron expressions.
type Runner struct {
	cron *cron.Cron
	now  func() time.Time
}

func New() *Runner {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Runner{
		cron: cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		now:  time.Now,
	}
}

// AddSync drains the pending sync queue on the given cron schedule.
func (r *Runner) AddSync(spec string, s Syncer) error {
	if _, err := r.cron.AddFunc(spec, func() { r.runSync(s) }); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return nil
}

// AddOptimize requests guidance for the previous week on the given cron schedule.
func (r *Runner) AddOptimize(spec, timezone string, plans PlanLoader, opt Optimizer) error {
	if _, err := r.cron.AddFunc(spec, func() { r.runOptimize(timezone, plans, opt) }); err != nil {
		return fmt.Errorf("invalid optimize schedule %q: %w", spec, err)
	}
	return nil
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop prevents new runs and waits for running jobs to finish or ctx to
// expire.
func (r *Runner) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (r *Runner) runSync(s Syncer) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.SyncPending(ctx)
	if err != nil {
		logger.Warn("Scheduled sync incomplete", "synced", len(report.Synced), "failed", len(report.Failed), "error", err)
		return
	}
	if len(report.Synced) > 0 {
		logger.Info("Scheduled sync pushed weeks", "weeks", report.Synced)
	}
}

func (r *Runner) runOptimize(timezone string, plans PlanLoader, opt Optimizer) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	weekStart, err := previousWeekStart(r.now(), timezone)
	if err != nil {
		logger.Warn("Scheduled optimization skipped", "error", err)
		return
	}
	plan, err := plans.GetWeeklyPlan(weekStart)
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Debug("No plan to optimize", "week_start", weekStart)
		return
	}
	if err != nil {
		logger.Warn("Scheduled optimization could not load plan", "week_start", weekStart, "error", err)
		return
	}

	guidance, err := opt.RequestOptimization(ctx, plan)
	if err != nil {
		logger.Warn("Scheduled optimization degraded", "week_start", weekStart, "suggestions", len(guidance.Suggestions), "error", err)
		return
	}
	logger.Info("Weekly guidance ready", "week_start", weekStart, "cached", guidance.Cached)
}

func previousWeekStart(now time.Time, timezone string) (string, error) {
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	return utils.WeekStart(now.In(loc)).AddDate(0, 0, -constants.DaysPerWeek).Format(constants.DateFormat), nil
}
