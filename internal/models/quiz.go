package models

import "github.com/innerpath/scenario-analytics-service/internal/quiz"

// QuizStartRequest is the POST /quiz/start payload.
type QuizStartRequest struct {
	UserID            int64 `json:"user_id"`
	SupersedePrevious bool  `json:"supersede_previous"`
}

// QuizAnswerRequest is the POST /quiz/:session_id/answers payload.
type QuizAnswerRequest struct {
	StepIndex int `json:"step_index"`
	Option    int `json:"option"`
}

// QuizResponse wraps the engine outcome with the session token the caller
// needs for subsequent turns.
type QuizResponse struct {
	SessionID string        `json:"session_id"`
	Outcome   *quiz.Outcome `json:"outcome"`
}

// QuizRestartResponse is returned when persisted progress cannot be
// reconciled; the caller should offer "start over".
type QuizRestartResponse struct {
	SessionID       string `json:"session_id"`
	RestartRequired bool   `json:"restart_required"`
}
