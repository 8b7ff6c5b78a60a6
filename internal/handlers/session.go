package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/analytics"
	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/models"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
	"github.com/innerpath/scenario-analytics-service/internal/session"
)

// RegisterSessionRoutes registers the session lifecycle endpoints driven by
// the conversation-flow layer.
//
// POST /sessions                 start (optionally superseding a stale one)
// POST /sessions/:id/steps       record a step + append the event
// POST /sessions/:id/complete    terminal transition
// POST /sessions/:id/abandon     terminal transition
// GET  /sessions/active          most recent in_progress session
func RegisterSessionRoutes(r gin.IRoutes, reg *session.Registry, log *eventlog.Log, loc *time.Location, logger zerolog.Logger) {
	r.POST("/sessions", func(c *gin.Context) {
		var req models.StartSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.UserID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		kind := scenario.Kind(req.ScenarioKind)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scenario_kind"})
			return
		}

		s, err := reg.Start(c.Request.Context(), req.UserID, kind, req.SupersedePrevious)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", req.UserID).Msg("start session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "start session failed"})
			return
		}

		c.JSON(http.StatusCreated, models.StartSessionResponse{
			SessionID: s.ID,
			StartedAt: s.StartedAt,
		})
	})

	r.POST("/sessions/:id/steps", func(c *gin.Context) {
		id := c.Param("id")

		var req models.RecordStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.StepName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "step_name required"})
			return
		}

		s, err := reg.Session(c.Request.Context(), id)
		if errors.Is(err, scenario.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
			return
		}

		occurredAt := time.Now()
		if req.OccurredAt != nil {
			t, err := analytics.ParseTimestamp(req.OccurredAt, loc)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized occurred_at"})
				return
			}
			occurredAt = t
		}

		// The flow driver does both on each turn: advance the registry and
		// append to the event log. Neither failure is allowed to break the
		// user-visible turn.
		recorded := true
		if err := reg.RecordStep(c.Request.Context(), id); err != nil {
			logger.Warn().Err(err).Str("session_id", id).Str("step", req.StepName).Msg("record step failed")
			recorded = false
		}
		log.Append(c.Request.Context(), s.UserID, s.Kind, req.StepName, req.Metadata, occurredAt)

		c.JSON(http.StatusOK, models.RecordStepResponse{StepRecorded: recorded})
	})

	r.POST("/sessions/:id/complete", finishHandler(reg, scenario.StatusCompleted, logger))
	r.POST("/sessions/:id/abandon", finishHandler(reg, scenario.StatusAbandoned, logger))

	r.GET("/sessions/active", func(c *gin.Context) {
		userID, ok := int64Query(c, "user_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		kind := scenario.Kind(c.Query("kind"))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
			return
		}

		s, err := reg.ActiveSession(c.Request.Context(), userID, kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if s == nil {
			c.JSON(http.StatusOK, models.ActiveSessionResponse{Active: false})
			return
		}
		c.JSON(http.StatusOK, models.ActiveSessionResponse{Active: true, Session: sessionView(s)})
	})
}

// finishHandler builds the terminal-transition handler for one status.
// Re-finishing a terminal session is a warned no-op, never an error the
// conversation flow has to handle.
func finishHandler(reg *session.Registry, status scenario.Status, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var err error
		if status == scenario.StatusCompleted {
			err = reg.MarkCompleted(c.Request.Context(), id)
		} else {
			err = reg.MarkAbandoned(c.Request.Context(), id)
		}

		switch {
		case err == nil:
			c.JSON(http.StatusOK, models.FinishSessionResponse{SessionID: id, Status: string(status)})
		case errors.Is(err, scenario.ErrInvalidTransition):
			logger.Warn().Str("session_id", id).Str("requested", string(status)).Msg("transition on terminal session ignored")
			c.JSON(http.StatusOK, models.FinishSessionResponse{SessionID: id, Status: string(status), AlreadyTerminal: true})
		case errors.Is(err, scenario.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			logger.Error().Err(err).Str("session_id", id).Msg("finish session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "finish session failed"})
		}
	}
}

func sessionView(s *scenario.Session) *models.SessionView {
	return &models.SessionView{
		SessionID:    s.ID,
		UserID:       s.UserID,
		ScenarioKind: string(s.Kind),
		Status:       string(s.Status),
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
		StepCount:    s.StepCount,
	}
}
