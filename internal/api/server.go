// Package api exposes the planner over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/logger"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/optimizer"
	"github.com/julianstephens/rhythm/internal/scheduler"
)

// Planner is the mutation service behind the API.
type Planner interface {
	Load(weekStart string) (models.WeeklyPlan, error)
	Day(date string) (models.DailyTimeline, error)
	MarkComplete(ctx context.Context, blockID, date string) (models.DailyTimeline, error)
	Skip(ctx context.Context, blockID, date string) (models.DailyTimeline, error)
	Reschedule(ctx context.Context, blockID, date string, newStart int) (models.DailyTimeline, error)
	Regenerate(ctx context.Context, weekStart string) (models.WeeklyPlan, error)
}

type Advisor interface {
	RequestOptimization(ctx context.Context, plan models.WeeklyPlan) (optimizer.Guidance, error)
}

type Server struct {
	planner   Planner
	advisor   Advisor
	scheduler *scheduler.Scheduler
	timezone  string
}

// NewServer builds the API. A nil advisor disables the optimize endpoint.
func NewServer(planner Planner, advisor Advisor, timezone string) *Server {
	return &Server{
		planner:   planner,
		advisor:   advisor,
		scheduler: scheduler.New(),
		timezone:  timezone,
	}
}

// Router returns the gin engine serving every route under /api/v1.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": constants.Version})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/timeline", s.generateTimeline())

		v1.GET("/weeks/:weekStart", s.getWeek())
		v1.POST("/weeks/:weekStart/regenerate", s.regenerate())
		v1.POST("/weeks/:weekStart/optimize", s.optimize())

		v1.GET("/days/:date", s.getDay())
		v1.POST("/days/:date/blocks/:id/complete", s.markComplete())
		v1.POST("/days/:date/blocks/:id/skip", s.skip())
		v1.POST("/days/:date/blocks/:id/reschedule", s.reschedule())
	}
	return r
}

// Serve runs the API on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperrors.IsConflict(err), errors.Is(err, apperrors.ErrRegenerationInProgress), errors.Is(err, apperrors.ErrRegenerationSuperseded):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrTerminalState), errors.Is(err, apperrors.ErrNotMovable), errors.Is(err, apperrors.ErrNotTrackable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrSyncUnavailable):
		return http.StatusServiceUnavailable
	case apperrors.IsInvariantViolation(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": err.Error()}
	var ce *apperrors.ConflictError
	if errors.As(err, &ce) {
		body["competing_id"] = ce.CompetingID
		body["competing_title"] = ce.CompetingTitle
	}
	c.AbortWithStatusJSON(status, body)
}
