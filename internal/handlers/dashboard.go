package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/innerpath/scenario-analytics-service/internal/analytics"
	"github.com/innerpath/scenario-analytics-service/internal/dashboard"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// RegisterDashboardRoutes registers the reporting endpoints: one query per
// metric family, each parameterized by window length in days and an optional
// scenario kind, returning plain nested JSON of primitives. All reads go
// through the aggregator, which applies the exclusion set before counting.
func RegisterDashboardRoutes(r gin.IRoutes, agg *analytics.Aggregator, refresher *dashboard.Refresher) {
	r.GET("/dashboard/dau", func(c *gin.Context) {
		kind, ok := kindQuery(c)
		if !ok {
			return
		}
		out, err := agg.DAU(c.Request.Context(), daysQuery(c), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dau": out})
	})

	r.GET("/dashboard/retention", func(c *gin.Context) {
		kind, ok := kindQuery(c)
		if !ok {
			return
		}
		out, err := agg.Retention(c.Request.Context(), daysQuery(c), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/dashboard/funnel", func(c *gin.Context) {
		kind := scenario.Kind(c.Query("kind"))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind required"})
			return
		}
		out, err := agg.Funnel(c.Request.Context(), kind, daysQuery(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/dashboard/completion", func(c *gin.Context) {
		kind, ok := kindQuery(c)
		if !ok {
			return
		}
		out, err := agg.Completion(c.Request.Context(), daysQuery(c), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/dashboard/value", func(c *gin.Context) {
		kind, ok := kindQuery(c)
		if !ok {
			return
		}
		out, err := agg.ValueLift(c.Request.Context(), daysQuery(c), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/dashboard/popularity", func(c *gin.Context) {
		kind, ok := kindQuery(c)
		if !ok {
			return
		}
		field := c.Query("field")
		if field == "" {
			field = scenario.MetaCard
		}
		out, err := agg.Popularity(c.Request.Context(), daysQuery(c), kind, field)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"field": field, "categories": out})
	})

	r.GET("/dashboard/snapshot", func(c *gin.Context) {
		snap := refresher.Latest()
		if snap == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot not ready yet"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})
}

// kindQuery parses the optional kind parameter; empty means every scenario.
// Writes the error response itself when the kind is unknown.
func kindQuery(c *gin.Context) (scenario.Kind, bool) {
	raw := c.Query("kind")
	if raw == "" {
		return "", true
	}
	kind := scenario.Kind(raw)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
		return "", false
	}
	return kind, true
}
