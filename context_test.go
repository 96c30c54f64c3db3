package banter

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func newTestContext(capacity int) *ContextManager {
	config := DefaultContextConfig()
	config.Capacity = capacity
	return NewContextManager(config, nil, nil)
}

// ═══════════════════════════════════════════════════════════════════════════════
// WINDOW TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestContextManager_FIFOEviction(t *testing.T) {
	c := newTestContext(3)

	for i := 1; i <= 4; i++ {
		c.RecordTurn(AuthorUser, fmt.Sprintf("message %d", i))
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	turns := c.Recent(0)
	for i, want := range []string{"message 2", "message 3", "message 4"} {
		if turns[i].Text != want {
			t.Errorf("turn %d = %q, want %q", i, turns[i].Text, want)
		}
	}
}

func TestContextManager_Recent(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "one")
	c.RecordTurn(AuthorBot, "two")
	c.RecordTurn(AuthorUser, "three")

	got := c.Recent(2)
	if len(got) != 2 || got[0].Text != "two" || got[1].Text != "three" {
		t.Errorf("Recent(2) = %+v", got)
	}
	if len(c.Recent(50)) != 3 {
		t.Errorf("Recent(50) returned %d turns, want 3", len(c.Recent(50)))
	}
}

func TestContextManager_RecordTurn_DerivedSignals(t *testing.T) {
	c := newTestContext(10)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	turn := c.RecordTurn(AuthorUser, "Привет! Мой сайт https://example.com, это отлично")

	if turn.Intent != IntentGreeting {
		t.Errorf("Intent = %q, want greeting", turn.Intent)
	}
	if turn.Sentiment != SentimentPositive {
		t.Errorf("Sentiment = %q, want positive", turn.Sentiment)
	}
	if len(turn.Entities.URLs) != 1 {
		t.Errorf("URLs = %v, want one", turn.Entities.URLs)
	}
	if !turn.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", turn.Timestamp, fixed)
	}
}

func TestContextManager_RecordMessage_KeepsTimestamp(t *testing.T) {
	c := newTestContext(10)
	stamp := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)

	turn := c.RecordMessage(Message{Author: AuthorBot, Text: "restored", Timestamp: stamp})

	if !turn.Timestamp.Equal(stamp) {
		t.Errorf("Timestamp = %v, want %v", turn.Timestamp, stamp)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROFILE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestContextManager_Profile(t *testing.T) {
	c := newTestContext(10)

	c.RecordTurn(AuthorUser, "я люблю футбол и программирование")
	c.RecordTurn(AuthorUser, "опять футбол")
	c.RecordTurn(AuthorBot, "музыка это отлично")

	profile := c.Profile()

	if want := []string{"программирование", "футбол"}; !reflect.DeepEqual(profile.Interests, want) {
		t.Errorf("Interests = %v, want %v", profile.Interests, want)
	}
	if profile.Topics["футбол"] != 2 {
		t.Errorf("Topics[футбол] = %d, want 2", profile.Topics["футбол"])
	}
	if profile.Sentiment.Positive != 1 || profile.Sentiment.Neutral != 1 || profile.Sentiment.Total() != 2 {
		t.Errorf("Sentiment = %+v, want 1 positive and 1 neutral", profile.Sentiment)
	}
}

func TestContextManager_Profile_ReturnsCopy(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "футбол")

	profile := c.Profile()
	profile.Interests[0] = "changed"
	profile.Topics["футбол"] = 100

	again := c.Profile()
	if again.Interests[0] != "футбол" || again.Topics["футбол"] != 1 {
		t.Errorf("Profile() shares state: %+v", again)
	}
}

func TestContextManager_Clear(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "футбол")

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if len(c.Interests()) != 0 || c.Profile().Sentiment.Total() != 0 {
		t.Errorf("profile not reset: %+v", c.Profile())
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RELEVANCE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestContextManager_RecentRelevant(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "расскажи про футбол")
	c.RecordTurn(AuthorUser, "what is the weather")

	got := c.RecentRelevant("футбол")

	if len(got) != 1 || got[0].Text != "расскажи про футбол" {
		t.Errorf("RecentRelevant() = %+v", got)
	}
}

func TestContextManager_RecentRelevant_Depth(t *testing.T) {
	c := newTestContext(10)
	for i := 1; i <= 5; i++ {
		c.RecordTurn(AuthorUser, fmt.Sprintf("футбол %d", i))
	}

	got := c.RecentRelevant("футбол")

	if len(got) != 3 {
		t.Fatalf("RecentRelevant() returned %d turns, want 3", len(got))
	}
	if got[0].Text != "футбол 3" || got[2].Text != "футбол 5" {
		t.Errorf("RecentRelevant() = %q .. %q, want the latest three", got[0].Text, got[2].Text)
	}
}

func TestContextManager_RecentRelevant_SkipsLatestUserTurn(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "xyz qwerty")
	c.RecordTurn(AuthorBot, "generic")

	if got := c.RecentRelevant("XYZ qwerty!"); len(got) != 0 {
		t.Errorf("RecentRelevant() = %+v, want the query's own turn skipped", got)
	}
}

func TestContextManager_RecentRelevant_KeepsEarlierRepeats(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "Футбол!")
	c.RecordTurn(AuthorUser, "погода")
	c.RecordTurn(AuthorUser, "футбол")

	got := c.RecentRelevant("футбол")

	if len(got) != 1 || got[0].Text != "Футбол!" {
		t.Errorf("RecentRelevant() = %+v, want only the earlier turn", got)
	}
}

func TestContextManager_RecentRelevant_PunctuationQuery(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "расскажи про футбол")

	if got := c.RecentRelevant("?!"); got != nil {
		t.Errorf("RecentRelevant() = %+v, want nil", got)
	}
}

func TestContextManager_HasPattern(t *testing.T) {
	c := newTestContext(10)
	c.RecordTurn(AuthorUser, "Я учу Python!")
	c.RecordTurn(AuthorBot, "отлично")
	c.RecordTurn(AuthorUser, "а ещё играю")

	if !c.HasPattern("python", 3) {
		t.Error("HasPattern(python, 3) = false")
	}
	if c.HasPattern("python", 2) {
		t.Error("HasPattern(python, 2) = true, turn is outside lookback")
	}
	if c.HasPattern("?!", 3) {
		t.Error("HasPattern with empty pattern = true")
	}
}

func TestContextManager_Topic(t *testing.T) {
	c := newTestContext(10)

	if got := c.Topic("давай про футбол"); got != "футбол" {
		t.Errorf("Topic() = %q, want футбол", got)
	}
	if got := c.Topic("nothing in particular"); got != "this" {
		t.Errorf("Topic() = %q, want this", got)
	}
}
