// ═══════════════════════════════════════════════════════════════════════════════
// MATCH SELECTOR
// ═══════════════════════════════════════════════════════════════════════════════
// The selector turns one user message into one reply. The policy is a chain;
// the first step that produces a reply wins:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ 0. Input with no letters that evaluates as arithmetic        │
//	│    → candidate = the arithmetic responder entry, score 1     │
//	│ 1. Relevance: top TF-IDF document > RelevanceFloor           │
//	│    → candidate = its entry, score × RelevanceBoost           │
//	│ 2. Otherwise similarity scan over every entry × pattern      │
//	│    → candidate = max(score × weight), first max wins         │
//	├──────────────────────────────────────────────────────────────┤
//	│ 3. candidate score ≥ MinSimilarity                           │
//	│    → responder text, else a response from the entry          │
//	│ 4. Context fallback                                          │
//	│    → recent relevant turn's topic / intent reply / interest  │
//	│ 5. Generic fallback                                          │
//	└──────────────────────────────────────────────────────────────┘
//
// Input that normalizes to nothing ("!!!") skips steps 0 to 3.
// Usage counters are recorded on step 3 but never influence scoring.
// ═══════════════════════════════════════════════════════════════════════════════

package banter

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
)

// MatchMethod tells which step produced a candidate.
type MatchMethod string

const (
	MethodNone       MatchMethod = ""
	MethodRelevance  MatchMethod = "relevance"
	MethodSimilarity MatchMethod = "similarity"
	MethodExpression MatchMethod = "expression"
)

// MatchResult is the best candidate entry for an input.
type MatchResult struct {
	Entry  *KnowledgeEntry
	Score  float64
	Method MatchMethod
}

// SelectorConfig holds the thresholds of the selection policy
type SelectorConfig struct {
	MinSimilarity  float64 // Candidate score needed to answer from an entry (default: 0.32)
	RelevanceFloor float64 // Top TF-IDF score needed to skip the similarity scan (default: 0.1)
	RelevanceBoost float64 // Multiplier applied to an accepted TF-IDF score (default: 2)
	UseRelevance   bool    // Enable step 1 (default: true)
	UseContext     bool    // Enable step 4 (default: true)
	Temperature    float64 // Probability of a random response over the first (default: 0.7)

	Personalize         bool    // Append an energizer for upbeat users (default: true)
	PersonalizeMinTurns int     // Tallied user messages needed first (default: 10, exclusive)
	PersonalizeRatio    float64 // Positive share needed (default: 0.6, exclusive)
	PersonalizeChance   float64 // Probability per reply (default: 0.3)
}

// DefaultSelectorConfig returns the standard selection policy
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MinSimilarity:       0.32,
		RelevanceFloor:      0.1,
		RelevanceBoost:      2,
		UseRelevance:        true,
		UseContext:          true,
		Temperature:         0.7,
		Personalize:         true,
		PersonalizeMinTurns: 10,
		PersonalizeRatio:    0.6,
		PersonalizeChance:   0.3,
	}
}

// Replies holds the canned texts used outside knowledge entries.
type Replies struct {
	Generic        []string          // step 5
	Intent         map[Intent]string // step 4, by intent of the input
	TopicFormat    string            // step 4, %s is the topic
	InterestFormat string            // step 4, %s is an interest
	Energizers     []string          // personalization suffixes
}

// DefaultReplies returns the built-in English replies.
func DefaultReplies() Replies {
	return Replies{
		Generic: []string{
			"Interesting question! 🤔 Could you rephrase it or add some detail?",
			"Hmm, I'm not sure yet. Tell me more about what you're after?",
			"That's new to me! Help me understand: try asking it another way.",
			"I learn from every conversation. Let's work it out together, explain a bit more.",
		},
		Intent: map[Intent]string{
			IntentQuestion: "Good question! 🤔 Give me a bit more context: what exactly do you want to know?",
			IntentCommand:  "Got it! I need a few more details though: what exactly should I do?",
			IntentGreeting: "Hi! 👋 How can I help?",
			IntentFarewell: "Bye! 😊 It was nice talking to you!",
		},
		TopicFormat:    "Still talking about %s? Or is this a new question?",
		InterestFormat: "By the way, you're into %s. Is this related?",
		Energizers:     []string{"💪", "🔥", "⚡", "🚀", "✨"},
	}
}

// Selector picks replies from a knowledge base. It is safe for concurrent
// use.
type Selector struct {
	kb         *KnowledgeBase
	context    *ContextManager
	similarity *Similarity
	classifier *Classifier
	analyzer   *Analyzer
	config     SelectorConfig
	replies    Replies

	rngMu sync.Mutex
	rng   *rand.Rand

	corpusMu      sync.Mutex
	corpus        *Corpus
	corpusVersion uint64
}

// SelectorDeps are the collaborators of a Selector. Nil fields get defaults,
// except KB which is required.
type SelectorDeps struct {
	KB         *KnowledgeBase
	Context    *ContextManager
	Similarity *Similarity
	Classifier *Classifier
	Analyzer   *Analyzer
	Rand       *rand.Rand
}

// NewSelector wires a selector.
func NewSelector(deps SelectorDeps, config SelectorConfig, replies Replies) *Selector {
	if deps.Analyzer == nil {
		deps.Analyzer = NewAnalyzer(DefaultAnalyzerConfig())
	}
	if deps.Similarity == nil {
		deps.Similarity = NewSimilarity(deps.Analyzer, DefaultSimilarityConfig())
	}
	if deps.Classifier == nil {
		deps.Classifier = NewClassifier(deps.Analyzer, DefaultClassifierConfig())
	}
	if deps.Context == nil {
		deps.Context = NewContextManager(DefaultContextConfig(), deps.Similarity, deps.Classifier)
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	defaults := DefaultReplies()
	if len(replies.Generic) == 0 {
		replies.Generic = defaults.Generic
	}
	if replies.TopicFormat == "" {
		replies.TopicFormat = defaults.TopicFormat
	}
	if replies.InterestFormat == "" {
		replies.InterestFormat = defaults.InterestFormat
	}

	return &Selector{
		kb:         deps.KB,
		context:    deps.Context,
		similarity: deps.Similarity,
		classifier: deps.Classifier,
		analyzer:   deps.Analyzer,
		config:     config,
		replies:    replies,
		rng:        deps.Rand,
	}
}

// Match finds the best candidate entry for input (steps 1 and 2)
//
// EXAMPLE:
// --------
// input "как дела?" against the built-in entries
//
//	relevance: terms ["дела"] hit only howru_1 → tf=1/4, idf≈2.95 → 0.74
//	0.74 > 0.1 → candidate howru_1, score ≈ 1.47, method relevance
//
// input "прывет" (typo, no shared stems)
//
//	relevance: no candidates → all scores 0
//	similarity: best is "привет" on greet_1 via edit similarity 5/6 → 0.75
func (s *Selector) Match(input string) MatchResult {
	if isBareExpression(input) {
		if entry := s.arithmeticEntry(); entry != nil {
			return MatchResult{Entry: entry, Score: 1, Method: MethodExpression}
		}
	}

	if s.config.UseRelevance {
		ranked := s.corpusFor().Rank(input)
		if len(ranked) > 0 && ranked[0].Score > s.config.RelevanceFloor {
			return MatchResult{
				Entry:  ranked[0].Entry,
				Score:  ranked[0].Score * s.config.RelevanceBoost,
				Method: MethodRelevance,
			}
		}
	}

	best := MatchResult{Method: MethodNone}
	for _, entry := range s.kb.AllEntries() {
		for _, pattern := range entry.Patterns {
			score := s.similarity.Score(input, pattern) * entry.Weight
			if score > best.Score {
				best = MatchResult{Entry: entry, Score: score, Method: MethodSimilarity}
			}
		}
	}
	return best
}

// isBareExpression reports whether input is nothing but an arithmetic
// expression with at least one operator, such as "15 * 7 + 3" or "2+2=?".
func isBareExpression(input string) bool {
	for _, r := range input {
		if unicode.IsLetter(r) {
			return false
		}
	}
	expr := ExtractExpression(input)
	if len(expr) < 2 || !strings.ContainsAny(expr[1:], "+-*/") {
		return false
	}
	_, err := EvaluateExpression(expr)
	return err == nil
}

// arithmeticEntry returns the first entry backed by the arithmetic responder.
func (s *Selector) arithmeticEntry() *KnowledgeEntry {
	for _, entry := range s.kb.AllEntries() {
		if entry.ResponderName == ArithmeticResponderName && entry.HasResponder() {
			return entry
		}
	}
	return nil
}

// corpusFor returns the relevance corpus, rebuilding it when the knowledge
// base has changed since it was last built.
func (s *Selector) corpusFor() *Corpus {
	version := s.kb.Version()

	s.corpusMu.Lock()
	defer s.corpusMu.Unlock()

	if s.corpus == nil || s.corpusVersion != version {
		entries := s.kb.AllEntries()
		docs := make([]Document, len(entries))
		for i, entry := range entries {
			docs[i] = Document{Text: strings.Join(entry.Patterns, " "), Entry: entry}
		}
		s.corpus = NewCorpus(s.analyzer, docs)
		s.corpusVersion = version
	}
	return s.corpus
}

// Generate produces a reply for input. It always returns a non-empty string.
func (s *Selector) Generate(input string) string {
	if Normalize(input) == "" {
		slog.Debug("input has no words, skipping entries")
		return s.fallback(input)
	}

	match := s.Match(input)

	if match.Entry != nil && match.Score >= s.config.MinSimilarity {
		slog.Debug("entry matched",
			slog.String("entry", match.Entry.ID),
			slog.Float64("score", match.Score),
			slog.String("method", string(match.Method)))
		return s.respond(match.Entry, input)
	}

	slog.Debug("no entry matched", slog.Float64("best", match.Score))
	return s.fallback(input)
}

// fallback runs steps 4 and 5.
func (s *Selector) fallback(input string) string {
	if s.config.UseContext {
		if reply, ok := s.contextFallback(input); ok {
			return reply
		}
	}
	return s.choose(s.replies.Generic)
}

// respond answers from a matched entry (step 3).
func (s *Selector) respond(entry *KnowledgeEntry, input string) string {
	reply, ok := callResponder(entry, input)
	if !ok {
		reply = s.selectResponse(entry)
	}
	s.kb.RecordUsage(entry.ID)
	return s.personalize(reply)
}

// callResponder runs the entry's responder, treating a panic or an empty
// reply as "not applicable".
func callResponder(entry *KnowledgeEntry, input string) (reply string, ok bool) {
	if entry.Responder == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("responder panicked",
				slog.String("entry", entry.ID),
				slog.String("panic", fmt.Sprint(r)))
			reply, ok = "", false
		}
	}()

	reply, ok = entry.Responder(input)
	if reply == "" {
		return "", false
	}
	return reply, ok
}

// selectResponse picks a random response with probability Temperature,
// otherwise the first one.
func (s *Selector) selectResponse(entry *KnowledgeEntry) string {
	if len(entry.Responses) == 0 {
		return s.choose(s.replies.Generic)
	}
	if s.float64() < s.config.Temperature {
		return s.choose(entry.Responses)
	}
	return entry.Responses[0]
}

// contextFallback is step 4.
func (s *Selector) contextFallback(input string) (string, bool) {
	if relevant := s.context.RecentRelevant(input); len(relevant) > 0 {
		last := relevant[len(relevant)-1]
		return fmt.Sprintf(s.replies.TopicFormat, s.context.Topic(last.Text)), true
	}

	if reply, ok := s.replies.Intent[s.classifier.ClassifyIntent(input)]; ok && reply != "" {
		return reply, true
	}

	if interests := s.context.Interests(); len(interests) > 0 {
		return fmt.Sprintf(s.replies.InterestFormat, s.choose(interests)), true
	}

	return "", false
}

// personalize appends an energizer for users who are mostly positive.
func (s *Selector) personalize(reply string) string {
	if !s.config.Personalize || len(s.replies.Energizers) == 0 {
		return reply
	}
	tally := s.context.Profile().Sentiment
	total := tally.Total()
	if total <= s.config.PersonalizeMinTurns {
		return reply
	}
	if float64(tally.Positive)/float64(total) <= s.config.PersonalizeRatio {
		return reply
	}
	if s.float64() >= s.config.PersonalizeChance {
		return reply
	}
	return reply + " " + s.choose(s.replies.Energizers)
}

func (s *Selector) float64() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Selector) choose(options []string) string {
	if len(options) == 0 {
		return ""
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return options[s.rng.IntN(len(options))]
}
