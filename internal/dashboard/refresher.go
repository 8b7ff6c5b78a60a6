// Package dashboard keeps a periodically refreshed snapshot of every metric
// family so dashboard reads can be served without recomputation. The
// aggregator is pure, so refreshing concurrently with writes is safe.
package dashboard

import (
	"context"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/analytics"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// cronParser parses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// snapshotWindowDays is the window every snapshot covers.
const snapshotWindowDays = 7

// Snapshot is one computed metric bundle.
type Snapshot struct {
	RefreshedAt time.Time                                   `json:"refreshed_at"`
	WindowDays  int                                         `json:"window_days"`
	DAU         map[string]int                              `json:"dau"`
	Retention   *analytics.RetentionReport                  `json:"retention"`
	Funnels     map[scenario.Kind]*analytics.FunnelReport   `json:"funnels"`
	Completion  *analytics.CompletionReport                 `json:"completion"`
	Value       *analytics.ValueReport                      `json:"value"`
	Popularity  map[string]analytics.PopularityEntry        `json:"popularity"`
}

// Config holds the dependencies for the refresher.
type Config struct {
	Aggregator *analytics.Aggregator
	Logger     zerolog.Logger
	// CronSpec is a 5-field cron expression; defaults to every 10 minutes.
	CronSpec string
	// PopularityField is the categorical field tracked in the snapshot.
	PopularityField string
}

// Refresher recomputes the snapshot on a cron schedule and serves the
// latest copy under a read lock.
type Refresher struct {
	agg      *analytics.Aggregator
	logger   zerolog.Logger
	schedule cronlib.Schedule
	field    string

	mu     sync.RWMutex
	latest *Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a Refresher with the given config.
func NewRefresher(cfg Config) (*Refresher, error) {
	spec := cfg.CronSpec
	if spec == "" {
		spec = "*/10 * * * *"
	}
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, err
	}
	field := cfg.PopularityField
	if field == "" {
		field = scenario.MetaCard
	}
	return &Refresher{
		agg:      cfg.Aggregator,
		logger:   cfg.Logger,
		schedule: schedule,
		field:    field,
	}, nil
}

// Start begins the refresh loop in a background goroutine. The first
// snapshot is computed immediately.
func (r *Refresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop(ctx)
	r.logger.Info().Msg("dashboard refresher started")
}

// Stop cancels the loop and waits for it to exit.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info().Msg("dashboard refresher stopped")
}

// Latest returns the most recent snapshot, or nil before the first refresh
// finishes.
func (r *Refresher) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	r.Refresh(ctx)

	for {
		next := r.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh computes a new snapshot now. Failures keep the previous snapshot
// in place and are logged for operators.
func (r *Refresher) Refresh(ctx context.Context) {
	snap, err := r.compute(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("dashboard snapshot refresh failed, keeping previous")
		return
	}
	r.mu.Lock()
	r.latest = snap
	r.mu.Unlock()
	r.logger.Debug().Time("refreshed_at", snap.RefreshedAt).Msg("dashboard snapshot refreshed")
}

func (r *Refresher) compute(ctx context.Context) (*Snapshot, error) {
	days := snapshotWindowDays

	dau, err := r.agg.DAU(ctx, days, "")
	if err != nil {
		return nil, err
	}
	retention, err := r.agg.Retention(ctx, days, "")
	if err != nil {
		return nil, err
	}
	funnels := map[scenario.Kind]*analytics.FunnelReport{}
	for _, kind := range scenario.Kinds {
		f, err := r.agg.Funnel(ctx, kind, days)
		if err != nil {
			return nil, err
		}
		funnels[kind] = f
	}
	completion, err := r.agg.Completion(ctx, days, "")
	if err != nil {
		return nil, err
	}
	value, err := r.agg.ValueLift(ctx, days, "")
	if err != nil {
		return nil, err
	}
	popularity, err := r.agg.Popularity(ctx, days, scenario.KindDailyCard, r.field)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		RefreshedAt: time.Now(),
		WindowDays:  days,
		DAU:         dau,
		Retention:   retention,
		Funnels:     funnels,
		Completion:  completion,
		Value:       value,
		Popularity:  popularity,
	}, nil
}
