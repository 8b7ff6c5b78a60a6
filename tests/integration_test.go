package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// INTEGRATION TEST SUITE
//
// These tests validate the service end-to-end:
//
//   Flow driver → HTTP API → Auth → Postgres → Aggregator → Response
//
// The service must already be running (for example via docker compose) and
// INTEGRATION=1 must be set; without it the suite skips so `go test ./...`
// stays hermetic.
//
// Optional environment overrides:
//
//   BASE_URL default http://localhost:8080
//   FLOW_KEY default flow-key-123
//
////////////////////////////////////////////////////////////////////////////////

func baseURL() string {
	if v := os.Getenv("BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// flowKey returns the API key the conversation-flow driver uses.
func flowKey() string {
	if v := os.Getenv("FLOW_KEY"); v != "" {
		return v
	}
	return "flow-key-123"
}

// uniqueUser generates a user id that never collides with previous runs.
func uniqueUser() int64 {
	return time.Now().UnixNano() % 1_000_000_000
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run against a live service")
	}
	waitReady(t)
}

////////////////////////////////////////////////////////////////////////////////
// SERVICE READINESS HELPER
//
// waitReady polls /ready until DB + server are ready.
// Prevents flaky failures when containers are still booting.
////////////////////////////////////////////////////////////////////////////////

func waitReady(t *testing.T) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL() + "/ready")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(300 * time.Millisecond)
	}

	t.Fatalf("service not ready after 30s")
}

////////////////////////////////////////////////////////////////////////////////
// GENERIC HTTP HELPERS
////////////////////////////////////////////////////////////////////////////////

// httpGet performs a GET request with optional API key.
func httpGet(t *testing.T, apiKey string, path string) (int, []byte) {
	t.Helper()

	req, _ := http.NewRequest("GET", baseURL()+path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

// postJSON performs a POST with JSON body and optional API key.
func postJSON(t *testing.T, apiKey, path string, payload any) (int, []byte) {
	t.Helper()

	b, _ := json.Marshal(payload)

	req, _ := http.NewRequest("POST", baseURL()+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func decode(t *testing.T, b []byte, into any) {
	t.Helper()
	if err := json.Unmarshal(b, into); err != nil {
		t.Fatalf("decode %s: %v", string(b), err)
	}
}

////////////////////////////////////////////////////////////////////////////////
// TESTS
////////////////////////////////////////////////////////////////////////////////

func TestUnauthorizedWithoutKey(t *testing.T) {
	requireIntegration(t)

	status, _ := postJSON(t, "", "/sessions", map[string]any{"user_id": 1, "scenario_kind": "daily_card"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

// TestDailyCardEndToEnd walks the full flow (start, steps, complete, funnel)
// and asserts the funnel sees at least this run's start and completion.
func TestDailyCardEndToEnd(t *testing.T) {
	requireIntegration(t)

	user := uniqueUser()

	status, body := postJSON(t, flowKey(), "/sessions", map[string]any{
		"user_id": user, "scenario_kind": "daily_card",
	})
	if status != http.StatusCreated {
		t.Fatalf("start session: %d %s", status, body)
	}
	var started struct {
		SessionID string `json:"session_id"`
	}
	decode(t, body, &started)

	steps := []map[string]any{
		{"step_name": "started"},
		{"step_name": "card_drawn", "metadata": map[string]any{"card": 7}},
		{"step_name": "meaning_shown"},
		{"step_name": "reflection_written"},
		{"step_name": "completed"},
	}
	for _, s := range steps {
		status, body = postJSON(t, flowKey(), "/sessions/"+started.SessionID+"/steps", s)
		if status != http.StatusOK {
			t.Fatalf("record step %v: %d %s", s, status, body)
		}
	}

	status, body = postJSON(t, flowKey(), "/sessions/"+started.SessionID+"/complete", nil)
	if status != http.StatusOK {
		t.Fatalf("complete: %d %s", status, body)
	}

	// Completing again is a warned no-op, never an error.
	status, body = postJSON(t, flowKey(), "/sessions/"+started.SessionID+"/complete", nil)
	if status != http.StatusOK {
		t.Fatalf("re-complete: %d %s", status, body)
	}
	var finish struct {
		AlreadyTerminal bool `json:"already_terminal"`
	}
	decode(t, body, &finish)
	if !finish.AlreadyTerminal {
		t.Fatalf("expected already_terminal on second complete: %s", body)
	}

	status, body = httpGet(t, flowKey(), "/dashboard/funnel?kind=daily_card&days=1")
	if status != http.StatusOK {
		t.Fatalf("funnel: %d %s", status, body)
	}
	var funnel struct {
		TotalStarts      int     `json:"total_starts"`
		TotalCompletions int     `json:"total_completions"`
		CompletionRate   float64 `json:"completion_rate"`
	}
	decode(t, body, &funnel)
	if funnel.TotalStarts < 1 || funnel.TotalCompletions < 1 {
		t.Fatalf("funnel missing this run's session: %+v", funnel)
	}
}

// TestQuizResumeAcrossRequests answers two questions, then resumes and
// checks the engine picks up at question three.
func TestQuizResumeAcrossRequests(t *testing.T) {
	requireIntegration(t)

	user := uniqueUser()

	status, body := postJSON(t, flowKey(), "/quiz/start", map[string]any{"user_id": user})
	if status != http.StatusCreated {
		t.Fatalf("quiz start: %d %s", status, body)
	}
	var quiz struct {
		SessionID string `json:"session_id"`
		Outcome   struct {
			Next *struct {
				StepIndex int `json:"step_index"`
			} `json:"next"`
		} `json:"outcome"`
	}
	decode(t, body, &quiz)
	if quiz.Outcome.Next == nil || quiz.Outcome.Next.StepIndex != 0 {
		t.Fatalf("expected first question: %s", body)
	}

	for i := 0; i < 2; i++ {
		status, body = postJSON(t, flowKey(), "/quiz/"+quiz.SessionID+"/answers",
			map[string]any{"step_index": i, "option": 1})
		if status != http.StatusOK {
			t.Fatalf("answer %d: %d %s", i, status, body)
		}
	}

	status, body = httpGet(t, flowKey(), "/quiz/"+quiz.SessionID)
	if status != http.StatusOK {
		t.Fatalf("resume: %d %s", status, body)
	}
	var resumed struct {
		Outcome struct {
			Next *struct {
				StepIndex int `json:"step_index"`
			} `json:"next"`
		} `json:"outcome"`
	}
	decode(t, body, &resumed)
	if resumed.Outcome.Next == nil || resumed.Outcome.Next.StepIndex != 2 {
		t.Fatalf("expected resume at step 2: %s", body)
	}

	// Start over discards both answers.
	status, body = postJSON(t, flowKey(), "/quiz/"+quiz.SessionID+"/reset", nil)
	if status != http.StatusOK {
		t.Fatalf("reset: %d %s", status, body)
	}
	decode(t, body, &resumed)
	if resumed.Outcome.Next == nil || resumed.Outcome.Next.StepIndex != 0 {
		t.Fatalf("expected reset to step 0: %s", body)
	}
}

// TestDashboardFamilies smoke-checks every metric endpoint.
func TestDashboardFamilies(t *testing.T) {
	requireIntegration(t)

	paths := []string{
		"/dashboard/dau?days=7",
		"/dashboard/retention?days=7",
		"/dashboard/funnel?kind=daily_card&days=7",
		"/dashboard/completion?days=7",
		"/dashboard/value?days=7",
		"/dashboard/popularity?days=7&kind=daily_card",
	}
	for _, p := range paths {
		status, body := httpGet(t, flowKey(), p)
		if status != http.StatusOK {
			t.Fatalf("GET %s: %d %s", p, status, body)
		}
	}
}

// TestEventIngestAcceptsEpochTimestamps exercises the numeric-epoch wire
// representation on the direct ingestion path.
func TestEventIngestAcceptsEpochTimestamps(t *testing.T) {
	requireIntegration(t)

	status, body := postJSON(t, flowKey(), "/events", map[string]any{
		"user_id":       uniqueUser(),
		"scenario_kind": "evening_reflection",
		"step_name":     "started",
		"occurred_at":   time.Now().Unix(),
	})
	if status != http.StatusAccepted {
		t.Fatalf("ingest: %d %s", status, body)
	}
}

func TestHealthIsPublic(t *testing.T) {
	requireIntegration(t)

	status, body := httpGet(t, "", "/health")
	if status != http.StatusOK {
		t.Fatalf("health: %d %s", status, body)
	}
	if len(body) == 0 {
		t.Fatal("empty health payload")
	}
}
