package models

import "time"

// StartSessionRequest is the POST /sessions payload. Superseding a stale
// in_progress session is an explicit caller decision, never implicit.
type StartSessionRequest struct {
	UserID            int64  `json:"user_id"`
	ScenarioKind      string `json:"scenario_kind"`
	SupersedePrevious bool   `json:"supersede_previous"`
}

// StartSessionResponse is returned by POST /sessions.
type StartSessionResponse struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// RecordStepRequest is the POST /sessions/:id/steps payload. OccurredAt
// accepts RFC3339, a naive local string, or numeric epoch seconds; it
// defaults to the server clock when omitted.
type RecordStepRequest struct {
	StepName   string         `json:"step_name"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt any            `json:"occurred_at,omitempty"`
}

// RecordStepResponse is returned by POST /sessions/:id/steps. A false
// StepRecorded means the registry write failed; the flow continues anyway.
type RecordStepResponse struct {
	StepRecorded bool `json:"step_recorded"`
}

// FinishSessionResponse is returned by the complete/abandon endpoints.
// AlreadyTerminal marks the no-op case of re-finishing a finished session.
type FinishSessionResponse struct {
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	AlreadyTerminal bool   `json:"already_terminal,omitempty"`
}

// SessionView is the wire form of a session record.
type SessionView struct {
	SessionID    string     `json:"session_id"`
	UserID       int64      `json:"user_id"`
	ScenarioKind string     `json:"scenario_kind"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	StepCount    int        `json:"step_count"`
}

// ActiveSessionResponse is returned by GET /sessions/active.
type ActiveSessionResponse struct {
	Active  bool         `json:"active"`
	Session *SessionView `json:"session,omitempty"`
}
