package banter

import (
	"math/rand/v2"
	"slices"
	"testing"
)

type selectorFixture struct {
	kb       *KnowledgeBase
	context  *ContextManager
	selector *Selector
}

func newSelectorFixture(t *testing.T, entries []KnowledgeEntry, config SelectorConfig, replies Replies) selectorFixture {
	t.Helper()

	kb, err := NewKnowledgeBase(entries, nil)
	if err != nil {
		t.Fatalf("NewKnowledgeBase() error = %v", err)
	}
	analyzer := NewAnalyzer(DefaultAnalyzerConfig())
	similarity := NewSimilarity(analyzer, DefaultSimilarityConfig())
	classifier := NewClassifier(analyzer, DefaultClassifierConfig())
	context := NewContextManager(DefaultContextConfig(), similarity, classifier)

	selector := NewSelector(SelectorDeps{
		KB:         kb,
		Context:    context,
		Similarity: similarity,
		Classifier: classifier,
		Analyzer:   analyzer,
		Rand:       rand.New(rand.NewPCG(1, 2)),
	}, config, replies)

	return selectorFixture{kb: kb, context: context, selector: selector}
}

func greetingEntries() []KnowledgeEntry {
	return []KnowledgeEntry{
		{ID: "greet", Patterns: []string{"привет", "hello"}, Responses: []string{"Hi!"}},
	}
}

func deterministicConfig() SelectorConfig {
	config := DefaultSelectorConfig()
	config.Temperature = 0
	return config
}

// ═══════════════════════════════════════════════════════════════════════════════
// END-TO-END TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSelector_Generate_MatchesEntry(t *testing.T) {
	config := DefaultSelectorConfig()
	config.MinSimilarity = 0.3
	f := newSelectorFixture(t, greetingEntries(), config, Replies{})

	if got := f.selector.Generate("привет"); got != "Hi!" {
		t.Errorf("Generate(привет) = %q, want Hi!", got)
	}
	if f.kb.Usage("greet") != 1 {
		t.Errorf("Usage(greet) = %d, want 1", f.kb.Usage("greet"))
	}
}

func TestSelector_Generate_GenericFallback(t *testing.T) {
	config := DefaultSelectorConfig()
	config.MinSimilarity = 0.3
	f := newSelectorFixture(t, greetingEntries(), config, Replies{})

	got := f.selector.Generate("совершенно не по теме xyz123")

	if got == "Hi!" {
		t.Fatal("Generate() answered from the entry for an unrelated input")
	}
	if !slices.Contains(DefaultReplies().Generic, got) {
		t.Errorf("Generate() = %q, want a generic reply", got)
	}
	if f.kb.Usage("greet") != 0 {
		t.Errorf("Usage(greet) = %d, want 0", f.kb.Usage("greet"))
	}
}

func TestSelector_Generate_NeverEmpty(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), DefaultSelectorConfig(), Replies{})

	for _, input := range []string{"", "!!!", "   ", "xyz", "привет", "как дела?"} {
		if got := f.selector.Generate(input); got == "" {
			t.Errorf("Generate(%q) returned an empty reply", input)
		}
	}
}

func TestSelector_Generate_PunctuationOnly(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), deterministicConfig(), Replies{Generic: []string{"generic"}})
	f.context.RecordTurn(AuthorUser, "расскажи анекдот")

	for _, input := range []string{"!!!", "?", "..."} {
		if got := f.selector.Generate(input); got != "generic" {
			t.Errorf("Generate(%q) = %q, want generic", input, got)
		}
	}
	if f.kb.Usage("greet") != 0 {
		t.Errorf("Usage(greet) = %d, want 0", f.kb.Usage("greet"))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MATCH TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSelector_Match_Relevance(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), DefaultSelectorConfig(), Replies{})

	got := f.selector.Match("привет")

	if got.Method != MethodRelevance || got.Entry == nil || got.Entry.ID != "greet" {
		t.Fatalf("Match() = %+v, want relevance match on greet", got)
	}
	// tf 1/2, idf ln(2/2)+1 = 1, boost 2
	if !approxEqual(got.Score, 1.0) {
		t.Errorf("Score = %v, want 1.0", got.Score)
	}
}

func TestSelector_Match_SimilarityOnTypo(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), DefaultSelectorConfig(), Replies{})

	got := f.selector.Match("прывет")

	if got.Method != MethodSimilarity || got.Entry == nil || got.Entry.ID != "greet" {
		t.Fatalf("Match() = %+v, want similarity match on greet", got)
	}
	if !approxEqual(got.Score, 0.9*(1-1.0/6.0)) {
		t.Errorf("Score = %v, want %v", got.Score, 0.9*(1-1.0/6.0))
	}
}

func TestSelector_Match_FirstMaximumWins(t *testing.T) {
	entries := []KnowledgeEntry{
		{ID: "first", Patterns: []string{"hello"}, Responses: []string{"1"}},
		{ID: "second", Patterns: []string{"hello"}, Responses: []string{"2"}},
	}
	config := DefaultSelectorConfig()
	config.UseRelevance = false
	f := newSelectorFixture(t, entries, config, Replies{})

	if got := f.selector.Match("hello"); got.Entry.ID != "first" {
		t.Errorf("Match() = %s, want first", got.Entry.ID)
	}
}

func TestSelector_Match_Weight(t *testing.T) {
	entries := []KnowledgeEntry{
		{ID: "light", Patterns: []string{"hello"}, Responses: []string{"1"}, Weight: 0.5},
		{ID: "heavy", Patterns: []string{"hello"}, Responses: []string{"2"}, Weight: 1.2},
	}
	config := DefaultSelectorConfig()
	config.UseRelevance = false
	f := newSelectorFixture(t, entries, config, Replies{})

	got := f.selector.Match("hello")
	if got.Entry.ID != "heavy" || !approxEqual(got.Score, 1.2) {
		t.Errorf("Match() = %s at %v, want heavy at 1.2", got.Entry.ID, got.Score)
	}
}

func TestSelector_Match_SeesLearnedEntries(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), DefaultSelectorConfig(), Replies{})
	f.selector.Match("warmup")

	id, err := f.kb.AddEntry([]string{"любимый цвет"}, []string{"синий"}, EntryMeta{})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	got := f.selector.Match("какой твой любимый цвет")
	if got.Entry == nil || got.Entry.ID != id {
		t.Errorf("Match() = %+v, want learned entry %s", got, id)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RESPONSE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func arithmeticEntries() []KnowledgeEntry {
	return []KnowledgeEntry{
		{
			ID:            "math",
			Patterns:      []string{"посчитай"},
			Responses:     []string{"Type an expression"},
			ResponderName: ArithmeticResponderName,
			Responder:     ArithmeticResponder,
		},
	}
}

func TestSelector_Generate_Responder(t *testing.T) {
	f := newSelectorFixture(t, arithmeticEntries(), deterministicConfig(), Replies{})

	if got := f.selector.Generate("посчитай 2+2*3"); got != "Result: 8" {
		t.Errorf("Generate() = %q, want Result: 8", got)
	}
}

func TestSelector_Generate_ResponderNotApplicable(t *testing.T) {
	f := newSelectorFixture(t, arithmeticEntries(), deterministicConfig(), Replies{})

	if got := f.selector.Generate("посчитай 2+2*"); got != "Type an expression" {
		t.Errorf("Generate() = %q, want the static response", got)
	}
}

func TestSelector_Generate_ResponderPanics(t *testing.T) {
	entries := arithmeticEntries()
	entries[0].Responder = func(string) (string, bool) { panic("boom") }
	f := newSelectorFixture(t, entries, deterministicConfig(), Replies{})

	if got := f.selector.Generate("посчитай"); got != "Type an expression" {
		t.Errorf("Generate() = %q, want the static response", got)
	}
}

func TestSelector_Generate_BareExpression(t *testing.T) {
	entries := append(greetingEntries(), arithmeticEntries()...)
	f := newSelectorFixture(t, entries, deterministicConfig(), Replies{Generic: []string{"generic"}})

	tests := []struct {
		input string
		want  string
	}{
		{"2+2*3", "Result: 8"},
		{"15 * 7 + 3", "Result: 108"},
		{"(1 + 2) / 4", "Result: 0.75"},
		{"2,5 * 4 = ?", "Result: 10"},
	}

	for _, tt := range tests {
		if got := f.selector.Generate(tt.input); got != tt.want {
			t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSelector_Match_BareExpression(t *testing.T) {
	entries := append(greetingEntries(), arithmeticEntries()...)
	f := newSelectorFixture(t, entries, deterministicConfig(), Replies{})

	got := f.selector.Match("15 * 7 + 3")
	if got.Entry == nil || got.Entry.ID != "math" || got.Method != MethodExpression || got.Score != 1 {
		t.Errorf("Match() = %+v, want math via expression with score 1", got)
	}

	for _, input := range []string{"42", "-5", "2+2*", "1/0", "hello 2+2"} {
		if got := f.selector.Match(input); got.Method == MethodExpression {
			t.Errorf("Match(%q) used the expression rule", input)
		}
	}
}

func TestSelector_Match_BareExpressionWithoutResponder(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), deterministicConfig(), Replies{})

	if got := f.selector.Match("2+2*3"); got.Method == MethodExpression {
		t.Errorf("Match() = %+v, want no expression match without an arithmetic entry", got)
	}
}

func TestSelector_Generate_EmptyResponses(t *testing.T) {
	entries := []KnowledgeEntry{{ID: "quiet", Patterns: []string{"hello"}}}
	f := newSelectorFixture(t, entries, deterministicConfig(), Replies{Generic: []string{"generic"}})

	if got := f.selector.Generate("hello"); got != "generic" {
		t.Errorf("Generate() = %q, want generic", got)
	}
	if f.kb.Usage("quiet") != 1 {
		t.Errorf("Usage(quiet) = %d, want 1", f.kb.Usage("quiet"))
	}
}

func TestSelector_Generate_TemperatureZeroPicksFirst(t *testing.T) {
	entries := []KnowledgeEntry{{ID: "greet", Patterns: []string{"hello"}, Responses: []string{"a", "b", "c"}}}
	f := newSelectorFixture(t, entries, deterministicConfig(), Replies{})

	for i := 0; i < 20; i++ {
		if got := f.selector.Generate("hello"); got != "a" {
			t.Fatalf("Generate() = %q, want a", got)
		}
	}
}

func TestSelector_Generate_TemperatureOnePicksFromList(t *testing.T) {
	responses := []string{"a", "b", "c"}
	entries := []KnowledgeEntry{{ID: "greet", Patterns: []string{"hello"}, Responses: responses}}
	config := DefaultSelectorConfig()
	config.Temperature = 1
	f := newSelectorFixture(t, entries, config, Replies{})

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := f.selector.Generate("hello")
		if !slices.Contains(responses, got) {
			t.Fatalf("Generate() = %q, not one of %v", got, responses)
		}
		seen[got] = true
	}
	if len(seen) < 2 {
		t.Errorf("100 replies used only %v", seen)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FALLBACK TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSelector_Generate_TopicFallback(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), deterministicConfig(), Replies{})
	f.context.RecordTurn(AuthorUser, "расскажи про футбол")

	got := f.selector.Generate("футбол")
	want := "Still talking about футбол? Or is this a new question?"

	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestSelector_Generate_IntentFallback(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), deterministicConfig(), Replies{})

	got := f.selector.Generate("how do I cook pasta")

	if want := DefaultReplies().Intent[IntentQuestion]; got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestSelector_Generate_InterestFallback(t *testing.T) {
	f := newSelectorFixture(t, greetingEntries(), deterministicConfig(), Replies{})
	f.context.RecordTurn(AuthorUser, "футбол")

	got := f.selector.Generate("xyz qwerty")
	want := "By the way, you're into футбол. Is this related?"

	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestSelector_Generate_ContextDisabled(t *testing.T) {
	config := deterministicConfig()
	config.UseContext = false
	f := newSelectorFixture(t, greetingEntries(), config, Replies{Generic: []string{"generic"}})
	f.context.RecordTurn(AuthorUser, "расскажи про футбол")

	if got := f.selector.Generate("футбол"); got != "generic" {
		t.Errorf("Generate() = %q, want generic", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PERSONALIZATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSelector_Generate_Personalize(t *testing.T) {
	config := deterministicConfig()
	config.PersonalizeMinTurns = 2
	config.PersonalizeRatio = 0.5
	config.PersonalizeChance = 1
	f := newSelectorFixture(t, greetingEntries(), config, Replies{Energizers: []string{"🔥"}})

	if got := f.selector.Generate("hello"); got != "Hi!" {
		t.Fatalf("Generate() before enough turns = %q, want Hi!", got)
	}

	for i := 0; i < 3; i++ {
		f.context.RecordTurn(AuthorUser, "это отлично")
	}

	if got := f.selector.Generate("hello"); got != "Hi! 🔥" {
		t.Errorf("Generate() = %q, want %q", got, "Hi! 🔥")
	}
}

func TestSelector_Generate_PersonalizeNeedsPositiveMajority(t *testing.T) {
	config := deterministicConfig()
	config.PersonalizeMinTurns = 2
	config.PersonalizeRatio = 0.5
	config.PersonalizeChance = 1
	f := newSelectorFixture(t, greetingEntries(), config, Replies{Energizers: []string{"🔥"}})

	f.context.RecordTurn(AuthorUser, "это отлично")
	f.context.RecordTurn(AuthorUser, "это ужасно")
	f.context.RecordTurn(AuthorUser, "обычный день")

	if got := f.selector.Generate("hello"); got != "Hi!" {
		t.Errorf("Generate() = %q, want Hi!", got)
	}
}
