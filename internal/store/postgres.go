package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innerpath/scenario-analytics-service/internal/quiz"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for sessions, events, and
// quiz progress. Unexpected storage failures come back wrapped as
// scenario.TransientError so callers can apply their retry disciplines.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertSession persists a freshly started session row.
func (p *PostgresStore) InsertSession(ctx context.Context, s *scenario.Session) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions(session_id, user_id, scenario_kind, status, started_at, step_count)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, s.ID, s.UserID, string(s.Kind), string(s.Status), s.StartedAt, s.StepCount)
	if err != nil {
		return scenario.Transient("insert session", err)
	}
	return nil
}

// SessionByID loads one session row.
func (p *PostgresStore) SessionByID(ctx context.Context, id string) (*scenario.Session, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT session_id, user_id, scenario_kind, status, started_at, completed_at, step_count
		FROM sessions WHERE session_id=$1
	`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scenario.ErrSessionNotFound
	}
	if err != nil {
		return nil, scenario.Transient("load session", err)
	}
	return s, nil
}

// ActiveSession returns the most recently started in_progress session for
// (user, kind), or nil when there is none.
func (p *PostgresStore) ActiveSession(ctx context.Context, userID int64, kind scenario.Kind) (*scenario.Session, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT session_id, user_id, scenario_kind, status, started_at, completed_at, step_count
		FROM sessions
		WHERE user_id=$1 AND scenario_kind=$2 AND status='in_progress'
		ORDER BY started_at DESC
		LIMIT 1
	`, userID, string(kind))
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, scenario.Transient("load active session", err)
	}
	return s, nil
}

// IncrementStepCount bumps step_count by one. Not deduplicated: recording
// the same step twice counts twice.
func (p *PostgresStore) IncrementStepCount(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE sessions SET step_count = step_count + 1 WHERE session_id=$1
	`, id)
	if err != nil {
		return scenario.Transient("increment step count", err)
	}
	if tag.RowsAffected() == 0 {
		return scenario.ErrSessionNotFound
	}
	return nil
}

// FinishSession transitions an in_progress session to a terminal status.
// A session that is already terminal yields ErrInvalidTransition.
func (p *PostgresStore) FinishSession(ctx context.Context, id string, status scenario.Status, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE sessions SET status=$2, completed_at=$3
		WHERE session_id=$1 AND status='in_progress'
	`, id, string(status), at)
	if err != nil {
		return scenario.Transient("finish session", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish "already terminal" from "no such session".
	var current string
	err = p.pool.QueryRow(ctx, `SELECT status FROM sessions WHERE session_id=$1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return scenario.ErrSessionNotFound
	}
	if err != nil {
		return scenario.Transient("finish session", err)
	}
	return fmt.Errorf("%w (status=%s)", scenario.ErrInvalidTransition, current)
}

// SessionsInWindow returns sessions started in [from,to), newest last.
// An empty kind matches every scenario.
func (p *PostgresStore) SessionsInWindow(ctx context.Context, kind scenario.Kind, from, to time.Time) ([]scenario.Session, error) {
	query := `
		SELECT session_id, user_id, scenario_kind, status, started_at, completed_at, step_count
		FROM sessions
		WHERE started_at >= $1 AND started_at < $2
	`
	args := []any{from, to}
	if kind != "" {
		query += ` AND scenario_kind=$3`
		args = append(args, string(kind))
	}
	query += ` ORDER BY started_at`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, scenario.Transient("query sessions", err)
	}
	defer rows.Close()

	var out []scenario.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, scenario.Transient("scan session", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, scenario.Transient("query sessions", err)
	}
	return out, nil
}

// InsertEvent appends one event row.
func (p *PostgresStore) InsertEvent(ctx context.Context, ev *scenario.Event) error {
	meta := ev.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO events(user_id, scenario_kind, step_name, metadata, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ev.UserID, string(ev.Kind), ev.StepName, metaJSON, ev.OccurredAt)
	if err != nil {
		return scenario.Transient("insert event", err)
	}
	return nil
}

// EventsInWindow returns events with occurred_at in [from,to), ordered by
// occurred_at with the insertion sequence breaking ties. An empty kind
// matches every scenario.
func (p *PostgresStore) EventsInWindow(ctx context.Context, kind scenario.Kind, from, to time.Time) ([]scenario.Event, error) {
	query := `
		SELECT id, user_id, scenario_kind, step_name, metadata, occurred_at
		FROM events
		WHERE occurred_at >= $1 AND occurred_at < $2
	`
	args := []any{from, to}
	if kind != "" {
		query += ` AND scenario_kind=$3`
		args = append(args, string(kind))
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, scenario.Transient("query events", err)
	}
	defer rows.Close()

	var out []scenario.Event
	for rows.Next() {
		var (
			ev       scenario.Event
			kindStr  string
			metaJSON []byte
		)
		if err := rows.Scan(&ev.Seq, &ev.UserID, &kindStr, &ev.StepName, &metaJSON, &ev.OccurredAt); err != nil {
			return nil, scenario.Transient("scan event", err)
		}
		ev.Kind = scenario.Kind(kindStr)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, scenario.Transient("query events", err)
	}
	return out, nil
}

// SaveProgress upserts the quiz progress row for a session.
func (p *PostgresStore) SaveProgress(ctx context.Context, pr *quiz.Progress) error {
	answersJSON, err := json.Marshal(pr.Answers)
	if err != nil {
		return fmt.Errorf("marshal quiz answers: %w", err)
	}
	totalsJSON, err := json.Marshal(pr.SectionTotals)
	if err != nil {
		return fmt.Errorf("marshal quiz totals: %w", err)
	}
	flagsJSON, err := json.Marshal(pr.Flags)
	if err != nil {
		return fmt.Errorf("marshal quiz flags: %w", err)
	}
	var zone *string
	if pr.Zone != "" {
		z := string(pr.Zone)
		zone = &z
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO quiz_progress(session_id, user_id, current_step_index, answers, section_totals, flags, zone, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id) DO UPDATE SET
			current_step_index = EXCLUDED.current_step_index,
			answers = EXCLUDED.answers,
			section_totals = EXCLUDED.section_totals,
			flags = EXCLUDED.flags,
			zone = EXCLUDED.zone,
			updated_at = EXCLUDED.updated_at
	`, pr.SessionID, pr.UserID, pr.CurrentStepIndex, answersJSON, totalsJSON, flagsJSON, zone, pr.UpdatedAt)
	if err != nil {
		return scenario.Transient("save quiz progress", err)
	}
	return nil
}

// Progress loads the quiz progress row for a session.
func (p *PostgresStore) Progress(ctx context.Context, sessionID string) (*quiz.Progress, error) {
	var (
		pr          quiz.Progress
		answersJSON []byte
		totalsJSON  []byte
		flagsJSON   []byte
		zone        *string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT session_id, user_id, current_step_index, answers, section_totals, flags, zone, updated_at
		FROM quiz_progress WHERE session_id=$1
	`, sessionID).Scan(&pr.SessionID, &pr.UserID, &pr.CurrentStepIndex, &answersJSON, &totalsJSON, &flagsJSON, &zone, &pr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scenario.ErrSessionNotFound
	}
	if err != nil {
		return nil, scenario.Transient("load quiz progress", err)
	}

	if err := json.Unmarshal(answersJSON, &pr.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal quiz answers: %w", err)
	}
	if err := json.Unmarshal(totalsJSON, &pr.SectionTotals); err != nil {
		return nil, fmt.Errorf("unmarshal quiz totals: %w", err)
	}
	if err := json.Unmarshal(flagsJSON, &pr.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal quiz flags: %w", err)
	}
	if zone != nil {
		pr.Zone = quiz.Zone(*zone)
	}
	return &pr, nil
}

// rowScanner covers pgx.Row and pgx.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*scenario.Session, error) {
	var (
		s       scenario.Session
		kindStr string
		status  string
	)
	err := row.Scan(&s.ID, &s.UserID, &kindStr, &status, &s.StartedAt, &s.CompletedAt, &s.StepCount)
	if err != nil {
		return nil, err
	}
	s.Kind = scenario.Kind(kindStr)
	s.Status = scenario.Status(status)
	return &s, nil
}
