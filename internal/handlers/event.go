package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/innerpath/scenario-analytics-service/internal/analytics"
	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/models"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// RegisterEventRoutes registers the direct ingestion endpoint for flow
// drivers that log occurrences outside the session-step path.
//
// POST /events
// - Best-effort: the append never blocks or fails the caller's flow, so a
//   202 means accepted, not durably written.
func RegisterEventRoutes(r gin.IRoutes, log *eventlog.Log, loc *time.Location) {
	r.POST("/events", func(c *gin.Context) {
		var req models.EventIngestRequest
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
		if req.StepName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "step_name required"})
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

		log.Append(c.Request.Context(), req.UserID, kind, req.StepName, req.Metadata, occurredAt)

		c.JSON(http.StatusAccepted, models.EventIngestResponse{Accepted: true})
	})
}
