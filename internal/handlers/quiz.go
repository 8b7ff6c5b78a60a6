package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/models"
	"github.com/innerpath/scenario-analytics-service/internal/quiz"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
	"github.com/innerpath/scenario-analytics-service/internal/session"
)

// RegisterQuizRoutes registers the author-readiness quiz endpoints.
//
// POST /quiz/start                begin a quiz session
// GET  /quiz/:session_id          resume: next question or terminal result
// POST /quiz/:session_id/answers  answer the current question
// POST /quiz/:session_id/reset    discard all answers and start over
//
// Inconsistent persisted progress is never a 5xx: the caller gets
// restart_required and offers "start over".
func RegisterQuizRoutes(r gin.IRoutes, reg *session.Registry, engine *quiz.Engine, log *eventlog.Log, logger zerolog.Logger) {
	r.POST("/quiz/start", func(c *gin.Context) {
		var req models.QuizStartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.UserID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}

		s, err := reg.Start(c.Request.Context(), req.UserID, scenario.KindAuthorQuiz, req.SupersedePrevious)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", req.UserID).Msg("start quiz session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "start quiz failed"})
			return
		}

		out, err := engine.Start(c.Request.Context(), s.ID, req.UserID)
		if err != nil {
			logger.Error().Err(err).Str("session_id", s.ID).Msg("start quiz progress failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "start quiz failed"})
			return
		}

		recordQuizStep(c, reg, log, s, scenario.StepQuizStarted, nil, logger)

		c.JSON(http.StatusCreated, models.QuizResponse{SessionID: s.ID, Outcome: out})
	})

	r.GET("/quiz/:session_id", func(c *gin.Context) {
		id := c.Param("session_id")
		out, err := engine.Resume(c.Request.Context(), id)
		if err != nil {
			quizError(c, id, err, logger)
			return
		}
		c.JSON(http.StatusOK, models.QuizResponse{SessionID: id, Outcome: out})
	})

	r.POST("/quiz/:session_id/answers", func(c *gin.Context) {
		id := c.Param("session_id")

		var req models.QuizAnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		out, err := engine.Answer(c.Request.Context(), id, req.StepIndex, req.Option)
		if err != nil {
			quizError(c, id, err, logger)
			return
		}

		if s, err := reg.Session(c.Request.Context(), id); err == nil {
			recordQuizStep(c, reg, log, s, scenario.StepQuizAnswered, map[string]any{"step_index": req.StepIndex}, logger)
			if out.Done {
				recordQuizStep(c, reg, log, s, scenario.StepQuizCompleted, map[string]any{"zone": string(out.Result.Zone)}, logger)
				if err := reg.MarkCompleted(c.Request.Context(), id); err != nil && !errors.Is(err, scenario.ErrInvalidTransition) {
					logger.Warn().Err(err).Str("session_id", id).Msg("completing quiz session failed")
				}
			}
		} else {
			logger.Warn().Err(err).Str("session_id", id).Msg("loading session for quiz bookkeeping failed, skipping step events")
		}

		c.JSON(http.StatusOK, models.QuizResponse{SessionID: id, Outcome: out})
	})

	r.POST("/quiz/:session_id/reset", func(c *gin.Context) {
		id := c.Param("session_id")
		out, err := engine.Reset(c.Request.Context(), id)
		if err != nil {
			quizError(c, id, err, logger)
			return
		}
		c.JSON(http.StatusOK, models.QuizResponse{SessionID: id, Outcome: out})
	})
}

// recordQuizStep does the flow driver's double write for quiz turns.
func recordQuizStep(c *gin.Context, reg *session.Registry, log *eventlog.Log, s *scenario.Session, step string, meta map[string]any, logger zerolog.Logger) {
	if err := reg.RecordStep(c.Request.Context(), s.ID); err != nil {
		logger.Warn().Err(err).Str("session_id", s.ID).Str("step", step).Msg("record quiz step failed")
	}
	log.Append(c.Request.Context(), s.UserID, scenario.KindAuthorQuiz, step, meta, time.Now())
}

func quizError(c *gin.Context, sessionID string, err error, logger zerolog.Logger) {
	switch {
	case errors.Is(err, scenario.ErrInconsistentProgress):
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("quiz progress inconsistent, offering restart")
		c.JSON(http.StatusOK, models.QuizRestartResponse{SessionID: sessionID, RestartRequired: true})
	case errors.Is(err, scenario.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz session not found"})
	case errors.Is(err, quiz.ErrStepMismatch), errors.Is(err, quiz.ErrBadOption), errors.Is(err, quiz.ErrQuizComplete):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error().Err(err).Str("session_id", sessionID).Msg("quiz operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quiz operation failed"})
	}
}
