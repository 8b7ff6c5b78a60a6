package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// int64Query parses an integer query parameter; ok is false when the
// parameter is absent or malformed.
func int64Query(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// daysQuery parses the window length, defaulting to 7 and clamping to a
// sane range so a dashboard typo cannot trigger an unbounded scan.
func daysQuery(c *gin.Context) int {
	raw := c.Query("days")
	if raw == "" {
		return 7
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 7
	}
	if v > 366 {
		return 366
	}
	return v
}
