// Package analytics is the read side: it combines the session registry, the
// event log, and the exclusion set into funnel, retention, DAU, completion,
// value, and popularity metrics. Every function is a pure read, safe to call
// concurrently and repeatedly; results are approximate with respect to
// in-flight writes.
package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// SessionSource reads session rows.
type SessionSource interface {
	SessionsInWindow(ctx context.Context, kind scenario.Kind, from, to time.Time) ([]scenario.Session, error)
}

// EventSource reads event rows, raw and grouped.
type EventSource interface {
	EventsInWindow(ctx context.Context, kind scenario.Kind, from, to time.Time) ([]scenario.Event, error)
	CountsByStep(ctx context.Context, kind scenario.Kind, steps []string, from, to time.Time, exclude map[int64]struct{}) (map[string]eventlog.StepCount, error)
}

// Config holds the dependencies for the aggregator. Exclusion and the civil
// offset are injected here once, not read from ambient state.
type Config struct {
	Sessions  SessionSource
	Events    EventSource
	Exclusion map[int64]struct{}
	Location  *time.Location
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Aggregator computes every metric family. It never mutates state.
type Aggregator struct {
	sessions SessionSource
	events   EventSource
	exclude  map[int64]struct{}
	loc      *time.Location
	now      func() time.Time
}

// New creates an Aggregator with the given config.
func New(cfg Config) *Aggregator {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	exclude := cfg.Exclusion
	if exclude == nil {
		exclude = map[int64]struct{}{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		sessions: cfg.Sessions,
		events:   cfg.Events,
		exclude:  exclude,
		loc:      loc,
		now:      now,
	}
}

// window covers the last `days` civil days including today, half-open.
func (a *Aggregator) window(days int) (from, to time.Time) {
	if days < 1 {
		days = 1
	}
	today := dayStart(a.now(), a.loc)
	return today.AddDate(0, 0, -(days - 1)), today.AddDate(0, 0, 1)
}

func (a *Aggregator) excluded(userID int64) bool {
	_, ok := a.exclude[userID]
	return ok
}

// DAU returns, per civil day in the window, the number of distinct users
// with a session started that day.
func (a *Aggregator) DAU(ctx context.Context, days int, kind scenario.Kind) (map[string]int, error) {
	from, to := a.window(days)
	sessions, err := a.sessions.SessionsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	perDay := map[string]map[int64]struct{}{}
	for _, s := range sessions {
		if a.excluded(s.UserID) {
			continue
		}
		day := DayKey(s.StartedAt, a.loc)
		if perDay[day] == nil {
			perDay[day] = map[int64]struct{}{}
		}
		perDay[day][s.UserID] = struct{}{}
	}

	out := map[string]int{}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := DayKey(d, a.loc)
		out[key] = len(perDay[key])
	}
	return out, nil
}

// RetentionReport is the day-N return-rate report for a cohort.
type RetentionReport struct {
	Day0       string             `json:"day0"`
	CohortSize int                `json:"cohort_size"`
	Days       map[string]float64 `json:"days"` // "d1".."dN" -> percentage
}

// Retention computes D_n retention: the cohort is every user active on the
// oldest day of the window; for each later day n, the percentage of the
// cohort active again on day0+n.
func (a *Aggregator) Retention(ctx context.Context, days int, kind scenario.Kind) (*RetentionReport, error) {
	from, to := a.window(days)
	sessions, err := a.sessions.SessionsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	activeByDay := map[string]map[int64]struct{}{}
	for _, s := range sessions {
		if a.excluded(s.UserID) {
			continue
		}
		day := DayKey(s.StartedAt, a.loc)
		if activeByDay[day] == nil {
			activeByDay[day] = map[int64]struct{}{}
		}
		activeByDay[day][s.UserID] = struct{}{}
	}

	day0Key := DayKey(from, a.loc)
	cohort := activeByDay[day0Key]

	report := &RetentionReport{
		Day0:       day0Key,
		CohortSize: len(cohort),
		Days:       map[string]float64{},
	}
	for n := 1; n < days; n++ {
		key := DayKey(from.AddDate(0, 0, n), a.loc)
		if len(cohort) == 0 {
			report.Days[dayLabel(n)] = 0
			continue
		}
		returned := 0
		for u := range activeByDay[key] {
			if _, ok := cohort[u]; ok {
				returned++
			}
		}
		report.Days[dayLabel(n)] = pct(returned, len(cohort))
	}
	return report, nil
}

// FunnelStep is one step's reach within a funnel.
type FunnelStep struct {
	Step  string  `json:"step"`
	Users int     `json:"users"`
	Pct   float64 `json:"pct"`
}

// FunnelReport measures per-step drop-off for one scenario kind.
type FunnelReport struct {
	Kind             scenario.Kind `json:"kind"`
	Steps            []FunnelStep  `json:"steps"`
	TotalStarts      int           `json:"total_starts"`
	TotalCompletions int           `json:"total_completions"`
	CompletionRate   float64       `json:"completion_rate"`
}

// Funnel counts distinct users reaching each canonical step of the kind's
// funnel. Per-step reach comes from the event trail; the start and completion
// totals come from session rows, so a flow that finishes without logging the
// terminal step (or that under-logs an intermediate one) still counts.
func (a *Aggregator) Funnel(ctx context.Context, kind scenario.Kind, days int) (*FunnelReport, error) {
	steps := scenario.FunnelFor(kind)
	return a.FunnelSteps(ctx, kind, steps, days)
}

// FunnelSteps is Funnel over an explicit step sequence.
func (a *Aggregator) FunnelSteps(ctx context.Context, kind scenario.Kind, steps []string, days int) (*FunnelReport, error) {
	from, to := a.window(days)
	counts, err := a.events.CountsByStep(ctx, kind, steps, from, to, a.exclude)
	if err != nil {
		return nil, err
	}
	sessions, err := a.sessions.SessionsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	report := &FunnelReport{Kind: kind, Steps: make([]FunnelStep, 0, len(steps))}
	first := 0
	for i, step := range steps {
		users := counts[step].Users
		if i == 0 {
			first = users
		}
		report.Steps = append(report.Steps, FunnelStep{
			Step:  step,
			Users: users,
			Pct:   pct(users, first),
		})
	}

	// Totals are session-derived: the registry is the source of truth for
	// how many runs started and how many reached completed.
	for _, s := range sessions {
		if a.excluded(s.UserID) {
			continue
		}
		report.TotalStarts++
		if s.Status == scenario.StatusCompleted {
			report.TotalCompletions++
		}
	}
	report.CompletionRate = pct(report.TotalCompletions, report.TotalStarts)
	return report, nil
}

// CompletionReport summarizes session outcomes in the window.
type CompletionReport struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Abandoned       int     `json:"abandoned"`
	InProgress      int     `json:"in_progress"`
	CompletionRate  float64 `json:"completion_rate"`
	AbandonmentRate float64 `json:"abandonment_rate"`
	AvgSteps        float64 `json:"avg_steps"`
}

// Completion computes completion/abandonment rates and the mean step count
// over sessions started in the window.
func (a *Aggregator) Completion(ctx context.Context, days int, kind scenario.Kind) (*CompletionReport, error) {
	from, to := a.window(days)
	sessions, err := a.sessions.SessionsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	report := &CompletionReport{}
	stepSum := 0
	for _, s := range sessions {
		if a.excluded(s.UserID) {
			continue
		}
		report.Total++
		stepSum += s.StepCount
		switch s.Status {
		case scenario.StatusCompleted:
			report.Completed++
		case scenario.StatusAbandoned:
			report.Abandoned++
		default:
			report.InProgress++
		}
	}
	if report.Total > 0 {
		report.CompletionRate = pct(report.Completed, report.Total)
		report.AbandonmentRate = pct(report.Abandoned, report.Total)
		report.AvgSteps = float64(stepSum) / float64(report.Total)
	}
	return report, nil
}

// ValueReport is the resource-lift metric: the share of measured sessions
// whose final resource state is strictly above the initial one.
type ValueReport struct {
	Measured int     `json:"measured"`
	Improved int     `json:"improved"`
	LiftPct  float64 `json:"lift_pct"`
}

// ValueLift scans events carrying both the initial and final resource state
// (the flow driver records both on the terminal step) and counts strict
// improvements on the low<medium<high ordinal.
func (a *Aggregator) ValueLift(ctx context.Context, days int, kind scenario.Kind) (*ValueReport, error) {
	from, to := a.window(days)
	events, err := a.events.EventsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	report := &ValueReport{}
	for _, ev := range events {
		if a.excluded(ev.UserID) {
			continue
		}
		initial, final := scenario.ResourceShift(ev.Metadata)
		if initial == scenario.ResourceUnknown || final == scenario.ResourceUnknown {
			continue
		}
		report.Measured++
		if final > initial {
			report.Improved++
		}
	}
	if report.Measured > 0 {
		report.LiftPct = pct(report.Improved, report.Measured)
	}
	return report, nil
}

// PopularityEntry is one category's share of a categorical metadata field.
type PopularityEntry struct {
	Count         int     `json:"count"`
	DistinctUsers int     `json:"distinct_users"`
	Percentage    float64 `json:"percentage"`
}

// Popularity groups events in the window by the value of a categorical
// metadata field, reporting occurrence counts, distinct users, and the
// percentage of categorized events.
func (a *Aggregator) Popularity(ctx context.Context, days int, kind scenario.Kind, field string) (map[string]PopularityEntry, error) {
	from, to := a.window(days)
	events, err := a.events.EventsInWindow(ctx, kind, from, to)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	users := map[string]map[int64]struct{}{}
	total := 0
	for _, ev := range events {
		if a.excluded(ev.UserID) {
			continue
		}
		cat, ok := scenario.Category(ev.Metadata, field)
		if !ok {
			continue
		}
		counts[cat]++
		if users[cat] == nil {
			users[cat] = map[int64]struct{}{}
		}
		users[cat][ev.UserID] = struct{}{}
		total++
	}

	out := make(map[string]PopularityEntry, len(counts))
	for cat, n := range counts {
		out[cat] = PopularityEntry{
			Count:         n,
			DistinctUsers: len(users[cat]),
			Percentage:    pct(n, total),
		}
	}
	return out, nil
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func dayLabel(n int) string {
	return "d" + strconv.Itoa(n)
}
