package banter

import (
	"fmt"
	"testing"
)

func TestLearner_TwoStepWorkflow(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	l := NewLearner(kb, LearnerPrompts{})
	prompts := DefaultLearnerPrompts()

	if l.State() != LearnerIdle {
		t.Fatalf("initial state = %v, want idle", l.State())
	}

	if got := l.Process("как тебя зовут"); got != prompts.AskResponse {
		t.Errorf("first reply = %q, want %q", got, prompts.AskResponse)
	}
	if l.State() != LearnerAwaitingResponse {
		t.Fatalf("state = %v, want awaiting_response", l.State())
	}
	if pending, ok := l.Pending(); !ok || pending != "как тебя зовут" {
		t.Errorf("Pending() = %q, %v", pending, ok)
	}

	got := l.Process("Бантер")
	want := fmt.Sprintf(prompts.Confirmation, "как тебя зовут", "Бантер")
	if got != want {
		t.Errorf("confirmation = %q, want %q", got, want)
	}
	if l.State() != LearnerIdle {
		t.Errorf("state = %v, want idle", l.State())
	}

	learned := kb.Learned()
	if len(learned) != 1 {
		t.Fatalf("Learned() has %d entries, want 1", len(learned))
	}
	entry := learned[0]
	if len(entry.Patterns) != 1 || entry.Patterns[0] != "как тебя зовут" {
		t.Errorf("Patterns = %v", entry.Patterns)
	}
	if len(entry.Responses) != 1 || entry.Responses[0] != "Бантер" {
		t.Errorf("Responses = %v", entry.Responses)
	}
}

func TestLearner_RejectsEmptyPattern(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	l := NewLearner(kb, LearnerPrompts{})

	got := l.Process("?!")

	if want := fmt.Sprintf(DefaultLearnerPrompts().Rejected, "?!"); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	if l.State() != LearnerIdle {
		t.Errorf("state = %v, want idle", l.State())
	}
	if kb.Len() != 2 {
		t.Errorf("Len() = %d, want 2", kb.Len())
	}
}

func TestLearner_Cancel(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	l := NewLearner(kb, LearnerPrompts{})

	l.Process("pattern")
	l.Cancel()

	if l.State() != LearnerIdle {
		t.Errorf("state = %v, want idle", l.State())
	}
	if _, ok := l.Pending(); ok {
		t.Error("Pending() reports a pattern after Cancel")
	}

	// the next message starts over as a pattern
	if got := l.Process("another"); got != DefaultLearnerPrompts().AskResponse {
		t.Errorf("reply = %q, want the ask prompt", got)
	}
	if kb.Len() != 2 {
		t.Errorf("Len() = %d, want 2", kb.Len())
	}
}

func TestLearner_CustomPrompts(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	l := NewLearner(kb, LearnerPrompts{AskResponse: "и?", Confirmation: "ok %s=%s"})

	if got := l.Process("a b"); got != "и?" {
		t.Errorf("reply = %q, want и?", got)
	}
	if got := l.Process("c"); got != "ok a b=c" {
		t.Errorf("reply = %q, want ok a b=c", got)
	}
}

func TestLearnerState_String(t *testing.T) {
	tests := []struct {
		state LearnerState
		want  string
	}{
		{LearnerIdle, "idle"},
		{LearnerAwaitingResponse, "awaiting_response"},
		{LearnerState(7), "LearnerState(7)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
