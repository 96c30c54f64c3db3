package banter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// LearnerState is the state of the teaching workflow.
type LearnerState int

const (
	LearnerIdle LearnerState = iota
	LearnerAwaitingResponse
)

func (s LearnerState) String() string {
	switch s {
	case LearnerIdle:
		return "idle"
	case LearnerAwaitingResponse:
		return "awaiting_response"
	}
	return fmt.Sprintf("LearnerState(%d)", int(s))
}

// LearnerPrompts are the texts the learner answers with.
type LearnerPrompts struct {
	AskResponse  string // after the pattern arrives
	Confirmation string // %q pattern, %q response
	Rejected     string // %q pattern; the pattern had no usable words
	Failed       string // the entry could not be stored
}

// DefaultLearnerPrompts returns the built-in English prompts.
func DefaultLearnerPrompts() LearnerPrompts {
	return LearnerPrompts{
		AskResponse:  "Great! Now tell me how I should reply to that.",
		Confirmation: "Thanks! Got it: when someone says %q I'll answer %q ✅",
		Rejected:     "I can't learn %q, it has no words in it. Send another phrase.",
		Failed:       "Sorry, I couldn't remember that. Let's try again.",
	}
}

// Learner runs the two-step teach workflow
//
//	Idle ──msg──▶ AwaitingResponse ──msg──▶ Idle (+ new entry)
//	  ▲                  │
//	  └──── Cancel ◀─────┘
//
// It is safe for concurrent use.
type Learner struct {
	mu      sync.Mutex
	kb      *KnowledgeBase
	prompts LearnerPrompts
	state   LearnerState
	pending string
}

// NewLearner creates an idle learner that teaches kb.
func NewLearner(kb *KnowledgeBase, prompts LearnerPrompts) *Learner {
	defaults := DefaultLearnerPrompts()
	if prompts.AskResponse == "" {
		prompts.AskResponse = defaults.AskResponse
	}
	if prompts.Confirmation == "" {
		prompts.Confirmation = defaults.Confirmation
	}
	if prompts.Rejected == "" {
		prompts.Rejected = defaults.Rejected
	}
	if prompts.Failed == "" {
		prompts.Failed = defaults.Failed
	}
	return &Learner{kb: kb, prompts: prompts}
}

// Process advances the workflow with one message and returns the reply.
//
// A pattern with no letters or digits is rejected up front and the learner
// stays Idle, so the second step never fails on it.
func (l *Learner) Process(message string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case LearnerAwaitingResponse:
		pattern := l.pending
		l.state = LearnerIdle
		l.pending = ""

		id, err := l.kb.AddEntry([]string{pattern}, []string{message}, EntryMeta{})
		if err != nil {
			slog.Warn("learning failed", slog.String("pattern", pattern), slog.Any("error", err))
			if errors.Is(err, ErrEmptyPattern) {
				return fmt.Sprintf(l.prompts.Rejected, pattern)
			}
			return l.prompts.Failed
		}
		slog.Debug("learned", slog.String("id", id))
		return fmt.Sprintf(l.prompts.Confirmation, pattern, message)

	default:
		if Normalize(message) == "" {
			return fmt.Sprintf(l.prompts.Rejected, message)
		}
		l.pending = message
		l.state = LearnerAwaitingResponse
		return l.prompts.AskResponse
	}
}

// Cancel drops any pending pattern and returns to Idle.
func (l *Learner) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = LearnerIdle
	l.pending = ""
}

// State returns the current state.
func (l *Learner) State() LearnerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pending returns the pattern waiting for its response, if any.
func (l *Learner) Pending() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending, l.state == LearnerAwaitingResponse
}
