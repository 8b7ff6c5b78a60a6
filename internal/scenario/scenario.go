// Package scenario holds the domain vocabulary shared by the session
// registry, the event log, the quiz engine, and the analytics aggregator:
// scenario kinds, step names, session statuses, and the error taxonomy.
package scenario

import "time"

// Kind identifies a multi-step guided interaction.
type Kind string

const (
	KindDailyCard         Kind = "daily_card"
	KindEveningReflection Kind = "evening_reflection"
	KindAuthorQuiz        Kind = "author_quiz"
)

// Kinds lists every known scenario kind in presentation order.
var Kinds = []Kind{KindDailyCard, KindEveningReflection, KindAuthorQuiz}

// Valid reports whether k is a known scenario kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDailyCard, KindEveningReflection, KindAuthorQuiz:
		return true
	}
	return false
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Session is one lifecycle instance of a user going through a scenario.
// CompletedAt is set exactly when the status is terminal.
type Session struct {
	ID          string
	UserID      int64
	Kind        Kind
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	StepCount   int
}

// Event is a single timestamped step occurrence. Events are append-only:
// ordering key is OccurredAt, with the insertion sequence breaking ties.
type Event struct {
	Seq        int64
	UserID     int64
	Kind       Kind
	StepName   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Well-known step names. Steps are scoped per scenario; the log itself does
// not validate them, callers use these constants for funnels.
const (
	StepStarted      = "started"
	StepCardDrawn    = "card_drawn"
	StepMeaningShown = "meaning_shown"
	StepReflection   = "reflection_written"
	StepCompleted    = "completed"

	StepQuizStarted   = "quiz_started"
	StepQuizAnswered  = "quiz_answered"
	StepQuizCompleted = "quiz_completed"
)

// DailyCardFunnel is the canonical step order for the daily card scenario.
var DailyCardFunnel = []string{StepStarted, StepCardDrawn, StepMeaningShown, StepReflection, StepCompleted}

// EveningFunnel is the canonical step order for the evening reflection.
var EveningFunnel = []string{StepStarted, StepReflection, StepCompleted}

// QuizFunnel is the canonical step order for the author readiness quiz.
var QuizFunnel = []string{StepQuizStarted, StepQuizAnswered, StepQuizCompleted}

// FunnelFor returns the canonical funnel steps for a kind, or nil when the
// kind has no defined funnel.
func FunnelFor(k Kind) []string {
	switch k {
	case KindDailyCard:
		return DailyCardFunnel
	case KindEveningReflection:
		return EveningFunnel
	case KindAuthorQuiz:
		return QuizFunnel
	}
	return nil
}
