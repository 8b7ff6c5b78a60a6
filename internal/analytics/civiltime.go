package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Source timestamps arrive in more than one representation: RFC3339
// strings, naive local strings, and numeric epoch seconds. Everything is
// normalized against the one canonical civil-time offset before any day
// bucketing; mixing representations must never shift a day boundary.

const naiveLayout = "2006-01-02 15:04:05"

// ParseTimestamp normalizes a wire timestamp to an absolute instant.
// Naive strings (no zone designator) are interpreted in loc.
func ParseTimestamp(v any, loc *time.Location) (time.Time, error) {
	switch ts := v.(type) {
	case string:
		s := strings.TrimSpace(ts)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation(naiveLayout, s, loc); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	case float64:
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return time.Time{}, fmt.Errorf("invalid epoch timestamp %v", ts)
		}
		sec, frac := math.Modf(ts)
		return time.Unix(int64(sec), int64(frac*1e9)), nil
	case int64:
		return time.Unix(ts, 0), nil
	case int:
		return time.Unix(int64(ts), 0), nil
	case time.Time:
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}

// DayKey buckets an instant into its civil day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// dayStart returns midnight of t's civil day in loc.
func dayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
