// Package eventlog wraps the append-only step-event trail. Appends are
// fire-and-forget relative to the user-visible flow: a failed write is
// logged for operators and dropped, never retried on the critical path.
package eventlog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// Store is the persistence surface the log needs.
type Store interface {
	InsertEvent(ctx context.Context, ev *scenario.Event) error
	EventsInWindow(ctx context.Context, kind scenario.Kind, from, to time.Time) ([]scenario.Event, error)
}

// Log is the append-only event log.
type Log struct {
	store  Store
	logger zerolog.Logger
}

// New creates a Log backed by store.
func New(store Store, logger zerolog.Logger) *Log {
	return &Log{store: store, logger: logger}
}

// Append records one step occurrence. It never fails the caller: a storage
// error is logged at warn and the event is dropped. The log does not
// deduplicate; a retried step is logged twice.
func (l *Log) Append(ctx context.Context, userID int64, kind scenario.Kind, stepName string, metadata map[string]any, occurredAt time.Time) {
	ev := &scenario.Event{
		UserID:     userID,
		Kind:       kind,
		StepName:   stepName,
		Metadata:   metadata,
		OccurredAt: occurredAt,
	}
	if err := l.store.InsertEvent(ctx, ev); err != nil {
		l.logger.Warn().Err(err).
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Str("step", stepName).
			Msg("event append failed, dropping event")
	}
}

// EventsInWindow returns the raw events with occurred_at in [from,to),
// ordered by time then insertion. An empty kind matches every scenario.
func (l *Log) EventsInWindow(ctx context.Context, kind scenario.Kind, from, to time.Time) ([]scenario.Event, error) {
	return l.store.EventsInWindow(ctx, kind, from, to)
}

// StepCount is the grouped count for one step: raw occurrences and the
// number of distinct users that reached it.
type StepCount struct {
	Events int
	Users  int
}

// CountsByStep groups events in [from,to) by step name, counting occurrences
// and distinct users, with excluded users removed before counting. Only the
// given steps are reported; steps with no events get a zero entry.
func (l *Log) CountsByStep(ctx context.Context, kind scenario.Kind, steps []string, from, to time.Time, exclude map[int64]struct{}) (map[string]StepCount, error) {
	events, err := l.store.EventsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(steps))
	counts := make(map[string]StepCount, len(steps))
	seen := make(map[string]map[int64]struct{}, len(steps))
	for _, s := range steps {
		wanted[s] = true
		counts[s] = StepCount{}
		seen[s] = map[int64]struct{}{}
	}

	for _, ev := range events {
		if !wanted[ev.StepName] {
			continue
		}
		if _, excluded := exclude[ev.UserID]; excluded {
			continue
		}
		c := counts[ev.StepName]
		c.Events++
		seen[ev.StepName][ev.UserID] = struct{}{}
		c.Users = len(seen[ev.StepName])
		counts[ev.StepName] = c
	}
	return counts, nil
}

// CountsByDay groups events in [from,to) by civil day in loc, counting
// occurrences and distinct users per day, with excluded users removed.
func (l *Log) CountsByDay(ctx context.Context, kind scenario.Kind, from, to time.Time, loc *time.Location, exclude map[int64]struct{}) (map[string]StepCount, error) {
	events, err := l.store.EventsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	counts := map[string]StepCount{}
	seen := map[string]map[int64]struct{}{}
	for _, ev := range events {
		if _, excluded := exclude[ev.UserID]; excluded {
			continue
		}
		day := ev.OccurredAt.In(loc).Format("2006-01-02")
		if seen[day] == nil {
			seen[day] = map[int64]struct{}{}
		}
		c := counts[day]
		c.Events++
		seen[day][ev.UserID] = struct{}{}
		c.Users = len(seen[day])
		counts[day] = c
	}
	return counts, nil
}
