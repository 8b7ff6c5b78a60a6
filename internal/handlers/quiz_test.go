package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/quiz"
	"github.com/innerpath/scenario-analytics-service/internal/scenario"
	"github.com/innerpath/scenario-analytics-service/internal/session"
)

// memSessionStore is an in-memory session.Store. failByID makes every
// SessionByID call fail with a transient error.
type memSessionStore struct {
	rows     map[string]*scenario.Session
	failByID bool
}

func (m *memSessionStore) InsertSession(_ context.Context, s *scenario.Session) error {
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSessionStore) SessionByID(_ context.Context, id string) (*scenario.Session, error) {
	if m.failByID {
		return nil, scenario.Transient("load session", errors.New("connection reset"))
	}
	s, ok := m.rows[id]
	if !ok {
		return nil, scenario.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) ActiveSession(_ context.Context, _ int64, _ scenario.Kind) (*scenario.Session, error) {
	return nil, nil
}

func (m *memSessionStore) IncrementStepCount(_ context.Context, id string) error {
	s, ok := m.rows[id]
	if !ok {
		return scenario.ErrSessionNotFound
	}
	s.StepCount++
	return nil
}

func (m *memSessionStore) FinishSession(_ context.Context, id string, status scenario.Status, at time.Time) error {
	s, ok := m.rows[id]
	if !ok {
		return scenario.ErrSessionNotFound
	}
	if s.Status.Terminal() {
		return scenario.ErrInvalidTransition
	}
	s.Status = status
	s.CompletedAt = &at
	return nil
}

// memQuizStore is an in-memory quiz.ProgressStore.
type memQuizStore struct {
	rows map[string]*quiz.Progress
}

func (m *memQuizStore) SaveProgress(_ context.Context, p *quiz.Progress) error {
	cp := *p
	cp.Answers = make(map[int]quiz.AnswerRecord, len(p.Answers))
	for k, v := range p.Answers {
		cp.Answers[k] = v
	}
	m.rows[p.SessionID] = &cp
	return nil
}

func (m *memQuizStore) Progress(_ context.Context, sessionID string) (*quiz.Progress, error) {
	p, ok := m.rows[sessionID]
	if !ok {
		return nil, scenario.ErrSessionNotFound
	}
	cp := *p
	cp.Answers = make(map[int]quiz.AnswerRecord, len(p.Answers))
	for k, v := range p.Answers {
		cp.Answers[k] = v
	}
	return &cp, nil
}

// memEventSink is an in-memory eventlog.Store recording appended events.
type memEventSink struct {
	events []scenario.Event
}

func (m *memEventSink) InsertEvent(_ context.Context, ev *scenario.Event) error {
	m.events = append(m.events, *ev)
	return nil
}

func (m *memEventSink) EventsInWindow(_ context.Context, _ scenario.Kind, _, _ time.Time) ([]scenario.Event, error) {
	return nil, nil
}

func (m *memEventSink) withStep(step string) int {
	n := 0
	for _, ev := range m.events {
		if ev.StepName == step {
			n++
		}
	}
	return n
}

func postBody(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAnswerSucceedsWhenSessionLookupFails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sessions := &memSessionStore{rows: map[string]*scenario.Session{}}
	progress := &memQuizStore{rows: map[string]*quiz.Progress{}}
	events := &memEventSink{}

	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	reg := session.NewRegistry(sessions, zerolog.Nop())
	engine := quiz.NewEngine(quiz.Config{Store: progress, Logger: zerolog.Nop()})
	log := eventlog.New(events, zerolog.Nop())

	r := gin.New()
	RegisterQuizRoutes(r, reg, engine, log, logger)

	w := postBody(t, r, "/quiz/start", `{"user_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var started struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.Equal(t, 1, events.withStep(scenario.StepQuizStarted))

	// Session lookups now fail. The answer itself must still go through,
	// and the skipped bookkeeping must leave a trace in the operator log.
	sessions.failByID = true
	w = postBody(t, r, "/quiz/"+started.SessionID+"/answers", `{"step_index":0,"option":0}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome"`)
	assert.Zero(t, events.withStep(scenario.StepQuizAnswered))
	assert.Contains(t, logBuf.String(), "quiz bookkeeping")
}
