// Package session implements the scenario session registry: one persisted
// lifecycle record per scenario invocation, mutated only by the owning flow
// driver and never deleted.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// Store is the persistence surface the registry needs.
type Store interface {
	InsertSession(ctx context.Context, s *scenario.Session) error
	SessionByID(ctx context.Context, id string) (*scenario.Session, error)
	ActiveSession(ctx context.Context, userID int64, kind scenario.Kind) (*scenario.Session, error)
	IncrementStepCount(ctx context.Context, id string) error
	FinishSession(ctx context.Context, id string, status scenario.Status, at time.Time) error
}

// Registry owns session lifecycle transitions. Lifecycle writes are retried
// once when the store reports a transient failure; they are idempotent in
// effect when retried promptly.
type Registry struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store Store, logger zerolog.Logger) *Registry {
	return &Registry{store: store, logger: logger, now: time.Now}
}

// Start creates a new session row and returns it.
//
// Superseding is an explicit caller decision: when supersedePrevious is true
// and an in_progress session of the same (user, kind) exists, that prior
// session is marked abandoned first. It is never done implicitly.
func (r *Registry) Start(ctx context.Context, userID int64, kind scenario.Kind, supersedePrevious bool) (*scenario.Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown scenario kind %q", kind)
	}

	if supersedePrevious {
		prev, err := r.store.ActiveSession(ctx, userID, kind)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if err := r.MarkAbandoned(ctx, prev.ID); err != nil {
				return nil, fmt.Errorf("supersede session %s: %w", prev.ID, err)
			}
			r.logger.Info().
				Str("session_id", prev.ID).
				Int64("user_id", userID).
				Str("kind", string(kind)).
				Msg("superseded stale session")
		}
	}

	s := &scenario.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Status:    scenario.StatusInProgress,
		StartedAt: r.now(),
	}
	if err := r.withRetry(ctx, "start session", func() error {
		return r.store.InsertSession(ctx, s)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordStep increments the session's step count. It deliberately does not
// write to the event log: the flow driver does both (registry step + event
// append) on each turn.
func (r *Registry) RecordStep(ctx context.Context, sessionID string) error {
	return r.store.IncrementStepCount(ctx, sessionID)
}

// MarkCompleted transitions the session to completed.
func (r *Registry) MarkCompleted(ctx context.Context, sessionID string) error {
	return r.finish(ctx, sessionID, scenario.StatusCompleted)
}

// MarkAbandoned transitions the session to abandoned.
func (r *Registry) MarkAbandoned(ctx context.Context, sessionID string) error {
	return r.finish(ctx, sessionID, scenario.StatusAbandoned)
}

// Session loads one session by id.
func (r *Registry) Session(ctx context.Context, sessionID string) (*scenario.Session, error) {
	return r.store.SessionByID(ctx, sessionID)
}

// ActiveSession returns the most recently started in_progress session for
// (user, kind), or nil when none exists.
func (r *Registry) ActiveSession(ctx context.Context, userID int64, kind scenario.Kind) (*scenario.Session, error) {
	return r.store.ActiveSession(ctx, userID, kind)
}

func (r *Registry) finish(ctx context.Context, sessionID string, status scenario.Status) error {
	return r.withRetry(ctx, string(status), func() error {
		return r.store.FinishSession(ctx, sessionID, status, r.now())
	})
}

// withRetry runs fn, retrying exactly once when the failure is transient.
func (r *Registry) withRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !scenario.IsTransient(err) {
		return err
	}
	r.logger.Warn().Err(err).Str("op", op).Msg("transient storage failure, retrying once")
	return fn()
}
