package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rhythm/internal/constants"
	apperrors "github.com/julianstephens/rhythm/internal/errors"
	"github.com/julianstephens/rhythm/internal/models"
	"github.com/julianstephens/rhythm/internal/utils"
)

type timelineRequest struct {
	Date        string               `json:"date" binding:"required"`
	Preferences *models.Preferences  `json:"preferences"`
	Workouts    []models.Candidate   `json:"workouts"`
	Meals       []models.Candidate   `json:"meals"`
	Calendar    []models.TimeBlock   `json:"calendar"`
	AllDay      []models.AllDayEvent `json:"all_day"`
}

type rescheduleRequest struct {
	Start string `json:"start" binding:"required"`
}

func (s *Server) generateTimeline() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body timelineRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeline payload: " + err.Error()})
			return
		}
		prefs := models.DefaultPreferences()
		if body.Preferences != nil {
			prefs = *body.Preferences
			models.ApplyDefaultPreferences(&prefs)
		}

		result, err := s.scheduler.Generate(models.SchedulingRequest{
			Date:        body.Date,
			Preferences: prefs,
			Workouts:    body.Workouts,
			Meals:       body.Meals,
			Calendar:    body.Calendar,
			AllDay:      body.AllDay,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) getWeek() gin.HandlerFunc {
	return func(c *gin.Context) {
		weekStart, ok := s.weekParam(c)
		if !ok {
			return
		}
		plan, err := s.planner.Load(weekStart)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

func (s *Server) regenerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		weekStart, ok := s.weekParam(c)
		if !ok {
			return
		}
		plan, err := s.planner.Regenerate(c.Request.Context(), weekStart)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

func (s *Server) optimize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.advisor == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "advisory service is not configured"})
			return
		}
		weekStart, ok := s.weekParam(c)
		if !ok {
			return
		}
		plan, err := s.planner.Load(weekStart)
		if err != nil {
			abortWithError(c, err)
			return
		}
		guidance, err := s.advisor.RequestOptimization(c.Request.Context(), plan)
		if errors.Is(err, apperrors.ErrSyncUnavailable) {
			// Local suggestions are still useful without the advisory text.
			c.JSON(http.StatusOK, gin.H{"guidance": guidance, "degraded": true, "error": err.Error()})
			return
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"guidance": guidance, "degraded": false})
	}
}

func (s *Server) getDay() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := s.dateParam(c)
		if !ok {
			return
		}
		day, err := s.planner.Day(date)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
	}
}

func (s *Server) markComplete() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := s.dateParam(c)
		if !ok {
			return
		}
		day, err := s.planner.MarkComplete(c.Request.Context(), c.Param("id"), date)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
	}
}

func (s *Server) skip() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := s.dateParam(c)
		if !ok {
			return
		}
		day, err := s.planner.Skip(c.Request.Context(), c.Param("id"), date)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
	}
}

func (s *Server) reschedule() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := s.dateParam(c)
		if !ok {
			return
		}
		var body rescheduleRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reschedule payload: " + err.Error()})
			return
		}
		start, err := utils.ParseClock(body.Start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day, err := s.planner.Reschedule(c.Request.Context(), c.Param("id"), date, start)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, day)
	}
}

// dateParam resolves the :date parameter, accepting "today".
func (s *Server) dateParam(c *gin.Context) (string, bool) {
	date, err := utils.ResolveDate(c.Param("date"), s.timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return date, true
}

// weekParam resolves the :weekStart parameter to the Sunday of its week, so
// any date in the week (or "today") is accepted.
func (s *Server) weekParam(c *gin.Context) (string, bool) {
	date, err := utils.ResolveDate(c.Param("weekStart"), s.timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	d, _ := utils.ParseDate(date)
	return utils.WeekStart(d).Format(constants.DateFormat), true
}
