package models

// EventIngestRequest is the POST /events payload for flow drivers that log
// occurrences outside the session-step path. OccurredAt accepts RFC3339, a
// naive local string, or numeric epoch seconds.
type EventIngestRequest struct {
	UserID       int64          `json:"user_id"`
	ScenarioKind string         `json:"scenario_kind"`
	StepName     string         `json:"step_name"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OccurredAt   any            `json:"occurred_at,omitempty"`
}

// EventIngestResponse is returned by POST /events. Appends are best-effort,
// so acceptance does not guarantee durability.
type EventIngestResponse struct {
	Accepted bool `json:"accepted"`
}
