// Package quiz implements the resumable author-readiness questionnaire: a
// branching scored state machine persisted per session, able to resume
// verbatim after an interruption by replaying the stored answers.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/scenario"
)

// AnswerRecord is one persisted answer. The stored score is what replay
// sums, so totals survive later edits to the question bank's wording.
type AnswerRecord struct {
	Option int    `json:"option"`
	Score  int    `json:"score"`
	Raw    string `json:"raw_answer"`
	Flag   string `json:"flag,omitempty"`
}

// Progress is the persisted quiz state for one session. CurrentStepIndex is
// a cache only: the answers map is the source of truth and every resume
// recomputes the index and totals from it.
type Progress struct {
	SessionID        string
	UserID           int64
	CurrentStepIndex int
	Answers          map[int]AnswerRecord
	SectionTotals    map[Section]int
	Flags            []string
	Zone             Zone // empty until the quiz completes
	UpdatedAt        time.Time
}

// ProgressStore persists quiz progress keyed by session id.
type ProgressStore interface {
	SaveProgress(ctx context.Context, p *Progress) error
	Progress(ctx context.Context, sessionID string) (*Progress, error)
}

// GreenCrossing carries the identifying info sent to the external
// collaborator when a user lands in the green zone.
type GreenCrossing struct {
	UserID         int64
	SessionID      string
	FearTotal      int
	ReadinessTotal int
}

// Notifier receives green-zone crossings. Failures are logged, never
// surfaced to the user flow.
type Notifier interface {
	NotifyGreen(ctx context.Context, c GreenCrossing) error
}

// Prompt is the next question to render.
type Prompt struct {
	StepIndex int      `json:"step_index"`
	Total     int      `json:"total_steps"`
	Section   Section  `json:"section"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
}

// Result is the terminal quiz outcome.
type Result struct {
	Zone           Zone     `json:"zone"`
	FearTotal      int      `json:"fear_total"`
	ReadinessTotal int      `json:"readiness_total"`
	Flags          []string `json:"flags"`
}

// Outcome is either the next prompt or the terminal result.
type Outcome struct {
	Done   bool    `json:"done"`
	Next   *Prompt `json:"next,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// Answer validation errors, surfaced to the caller as bad requests.
var (
	ErrStepMismatch = errors.New("answer step index does not match current step")
	ErrBadOption    = errors.New("option index out of range")
	ErrQuizComplete = errors.New("quiz already completed")
)

// Config holds the dependencies for the quiz engine.
type Config struct {
	Store    ProgressStore
	Notifier Notifier
	Logger   zerolog.Logger
	// Questions overrides the default bank; used by tests.
	Questions []Question
}

// Engine drives the questionnaire. It owns the progress record and
// references its parent session by id only; the session lifecycle stays
// with the registry.
type Engine struct {
	store     ProgressStore
	notifier  Notifier
	logger    zerolog.Logger
	questions []Question
	now       func() time.Time
}

// NewEngine creates an Engine with the given config.
func NewEngine(cfg Config) *Engine {
	qs := cfg.Questions
	if len(qs) == 0 {
		qs = DefaultQuestions()
	}
	return &Engine{
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		questions: qs,
		now:       time.Now,
	}
}

// Start begins (or restarts) the quiz for a session, discarding any
// previously persisted answers.
func (e *Engine) Start(ctx context.Context, sessionID string, userID int64) (*Outcome, error) {
	p := &Progress{
		SessionID:     sessionID,
		UserID:        userID,
		Answers:       map[int]AnswerRecord{},
		SectionTotals: map[Section]int{},
		Flags:         []string{},
		UpdatedAt:     e.now(),
	}
	if err := e.store.SaveProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("start quiz: %w", err)
	}
	return &Outcome{Next: e.prompt(0)}, nil
}

// Resume returns where the quiz stands: the next question to ask, or the
// terminal result when all questions are answered. The persisted step
// counter is ignored in favor of replaying the answers.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*Outcome, error) {
	p, err := e.store.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, totals, flags, err := e.replay(p)
	if err != nil {
		return nil, err
	}
	if next >= len(e.questions) {
		return e.terminal(totals, flags), nil
	}
	if p.CurrentStepIndex != next {
		e.logger.Warn().
			Str("session_id", sessionID).
			Int("cached_index", p.CurrentStepIndex).
			Int("replayed_index", next).
			Msg("quiz step counter disagreed with answers, trusting answers")
	}
	return &Outcome{Next: e.prompt(next)}, nil
}

// Answer records the option chosen for stepIndex and advances the quiz.
// stepIndex must equal the replayed current step.
func (e *Engine) Answer(ctx context.Context, sessionID string, stepIndex, option int) (*Outcome, error) {
	p, err := e.store.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, _, _, err := e.replay(p)
	if err != nil {
		return nil, err
	}
	if next >= len(e.questions) {
		return nil, ErrQuizComplete
	}
	if stepIndex != next {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrStepMismatch, stepIndex, next)
	}
	q := e.questions[next]
	if option < 0 || option >= len(q.Options) {
		return nil, fmt.Errorf("%w: option %d of %d", ErrBadOption, option, len(q.Options))
	}

	opt := q.Options[option]
	p.Answers[next] = AnswerRecord{Option: option, Score: opt.Score, Raw: opt.Text, Flag: opt.Flag}

	// Recompute the derived state from the full answer map, then cache it.
	after, totals, flags, err := e.replay(p)
	if err != nil {
		return nil, err
	}
	p.CurrentStepIndex = after
	p.SectionTotals = totals
	p.Flags = flags
	p.UpdatedAt = e.now()

	done := after >= len(e.questions)
	if done {
		p.Zone = ClassifyReadiness(totals[SectionReadiness])
	}
	if err := e.store.SaveProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("save quiz answer: %w", err)
	}

	if !done {
		return &Outcome{Next: e.prompt(after)}, nil
	}

	out := e.terminal(totals, flags)
	if out.Result.Zone == ZoneGreen && e.notifier != nil {
		crossing := GreenCrossing{
			UserID:         p.UserID,
			SessionID:      sessionID,
			FearTotal:      totals[SectionFear],
			ReadinessTotal: totals[SectionReadiness],
		}
		if err := e.notifier.NotifyGreen(ctx, crossing); err != nil {
			e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("green-zone notification failed")
		}
	}
	return out, nil
}

// Reset discards all persisted answers for the session and returns the
// first question. This is an intentional full restart, distinct from resume.
func (e *Engine) Reset(ctx context.Context, sessionID string) (*Outcome, error) {
	p, err := e.store.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.Start(ctx, sessionID, p.UserID)
}

// replay walks the answer map from index 0 upward, recomputing the next
// step index, section totals, and flags. A gap or an index beyond the
// question count means the persisted state cannot be trusted.
func (e *Engine) replay(p *Progress) (next int, totals map[Section]int, flags []string, err error) {
	totals = map[Section]int{}
	flags = []string{}
	n := len(p.Answers)
	if n > len(e.questions) {
		return 0, nil, nil, fmt.Errorf("%w: %d answers for %d questions", scenario.ErrInconsistentProgress, n, len(e.questions))
	}
	for i := 0; i < n; i++ {
		a, ok := p.Answers[i]
		if !ok {
			return 0, nil, nil, fmt.Errorf("%w: gap at index %d", scenario.ErrInconsistentProgress, i)
		}
		totals[e.questions[i].Section] += a.Score
		if a.Flag != "" {
			flags = append(flags, a.Flag)
		}
	}
	return n, totals, flags, nil
}

func (e *Engine) prompt(i int) *Prompt {
	q := e.questions[i]
	opts := make([]string, len(q.Options))
	for j, o := range q.Options {
		opts[j] = o.Text
	}
	return &Prompt{
		StepIndex: i,
		Total:     len(e.questions),
		Section:   q.Section,
		Text:      q.Text,
		Options:   opts,
	}
}

func (e *Engine) terminal(totals map[Section]int, flags []string) *Outcome {
	return &Outcome{
		Done: true,
		Result: &Result{
			Zone:           ClassifyReadiness(totals[SectionReadiness]),
			FearTotal:      totals[SectionFear],
			ReadinessTotal: totals[SectionReadiness],
			Flags:          flags,
		},
	}
}
