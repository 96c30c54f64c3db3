package banter

import (
	"strings"
	"sync"
	"time"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

// Valid reports whether a is one of the known authors.
func (a Author) Valid() bool {
	return a == AuthorUser || a == AuthorBot
}

// Message is one line of the conversation as it is stored and rendered.
type Message struct {
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is a Message with the signals derived from it.
type Turn struct {
	Message
	Intent    Intent         `json:"intent"`
	Sentiment SentimentLabel `json:"sentiment"`
	Entities  Entities       `json:"entities"`
}

// SentimentTally counts user messages per sentiment.
type SentimentTally struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Total returns the number of tallied messages.
func (s SentimentTally) Total() int {
	return s.Positive + s.Neutral + s.Negative
}

// UserProfile is what the bot has picked up about the user.
type UserProfile struct {
	Interests []string       `json:"interests"`
	Topics    map[string]int `json:"topics"`
	Sentiment SentimentTally `json:"sentiment"`
}

// ContextConfig tunes the conversation window.
type ContextConfig struct {
	Capacity           int      // turns kept in the rolling window (default: 10)
	RelevanceThreshold float64  // similarity a turn must exceed to be relevant (default: 0.3)
	RelevanceDepth     int      // relevant turns returned, most recent last (default: 3)
	InterestKeywords   []string // words that mark a user interest
	Topics             []string // words recognized by Topic, in priority order
	DefaultTopic       string   // Topic result when nothing matches (default: "this")
}

// DefaultContextConfig returns the standard window settings.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		Capacity:           10,
		RelevanceThreshold: 0.3,
		RelevanceDepth:     3,
		InterestKeywords: []string{
			"программирование", "футбол", "игры", "музыка", "кино", "учеба", "школа",
			"programming", "football", "games", "music", "movies", "school",
		},
		Topics: []string{
			"программирование", "футбол", "игры", "учеба", "математика",
			"programming", "football", "games", "school", "math",
		},
		DefaultTopic: "this",
	}
}

// ContextManager keeps the rolling conversation window and the user profile.
// It is safe for concurrent use.
type ContextManager struct {
	mu         sync.RWMutex
	config     ContextConfig
	similarity *Similarity
	classifier *Classifier
	now        func() time.Time

	window  []Turn
	profile UserProfile
}

// NewContextManager creates an empty context.
func NewContextManager(config ContextConfig, similarity *Similarity, classifier *Classifier) *ContextManager {
	defaults := DefaultContextConfig()
	if config.Capacity <= 0 {
		config.Capacity = defaults.Capacity
	}
	if config.RelevanceThreshold <= 0 {
		config.RelevanceThreshold = defaults.RelevanceThreshold
	}
	if config.RelevanceDepth <= 0 {
		config.RelevanceDepth = defaults.RelevanceDepth
	}
	if config.DefaultTopic == "" {
		config.DefaultTopic = defaults.DefaultTopic
	}
	config.InterestKeywords = normalizeAll(config.InterestKeywords)
	config.Topics = normalizeAll(config.Topics)

	if similarity == nil {
		similarity = NewSimilarity(nil, DefaultSimilarityConfig())
	}
	if classifier == nil {
		classifier = NewClassifier(nil, DefaultClassifierConfig())
	}

	return &ContextManager{
		config:     config,
		similarity: similarity,
		classifier: classifier,
		now:        time.Now,
		window:     make([]Turn, 0, config.Capacity+1),
		profile:    UserProfile{Topics: make(map[string]int)},
	}
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = Normalize(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// RecordTurn classifies text, appends it to the window and, for user turns,
// updates the profile.
func (c *ContextManager) RecordTurn(author Author, text string) Turn {
	return c.RecordMessage(Message{Author: author, Text: text, Timestamp: c.now()})
}

// RecordMessage is RecordTurn for a message that already carries its
// timestamp, such as one restored from storage.
//
// STEP-BY-STEP:
// -------------
//  1. Derive intent, sentiment and entities
//  2. Append, then evict the oldest turns beyond Capacity
//  3. User turns only: bump the sentiment bucket, then record every interest
//     keyword found as a substring of the normalized text
func (c *ContextManager) RecordMessage(msg Message) Turn {
	turn := Turn{
		Message:   msg,
		Intent:    c.classifier.ClassifyIntent(msg.Text),
		Sentiment: c.classifier.Sentiment(msg.Text),
		Entities:  ExtractEntities(msg.Text),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = append(c.window, turn)
	if over := len(c.window) - c.config.Capacity; over > 0 {
		c.window = append(c.window[:0], c.window[over:]...)
	}

	if msg.Author == AuthorUser {
		c.updateProfile(turn)
	}
	return turn
}

func (c *ContextManager) updateProfile(turn Turn) {
	switch turn.Sentiment {
	case SentimentPositive:
		c.profile.Sentiment.Positive++
	case SentimentNegative:
		c.profile.Sentiment.Negative++
	default:
		c.profile.Sentiment.Neutral++
	}

	normalized := Normalize(turn.Text)
	for _, kw := range c.config.InterestKeywords {
		if !strings.Contains(normalized, kw) {
			continue
		}
		if _, seen := c.profile.Topics[kw]; !seen {
			c.profile.Interests = append(c.profile.Interests, kw)
		}
		c.profile.Topics[kw]++
	}
}

// Recent returns up to depth of the latest turns, oldest first.
func (c *ContextManager) Recent(depth int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if depth <= 0 || depth > len(c.window) {
		depth = len(c.window)
	}
	return append([]Turn(nil), c.window[len(c.window)-depth:]...)
}

// RecentRelevant returns the window turns whose similarity to query exceeds
// the relevance threshold, keeping the most recent RelevanceDepth of them.
//
// The latest user turn is skipped when it is the query itself, so answering
// a message that is already in the window never matches it against itself.
// A query that normalizes to nothing has no relevant turns.
func (c *ContextManager) RecentRelevant(query string) []Turn {
	normalized := Normalize(query)
	if normalized == "" {
		return nil
	}

	window := c.Recent(0)
	self := -1
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Author == AuthorUser {
			if Normalize(window[i].Text) == normalized {
				self = i
			}
			break
		}
	}

	relevant := make([]Turn, 0, len(window))
	for i, turn := range window {
		if i == self {
			continue
		}
		if c.similarity.Score(turn.Text, query) > c.config.RelevanceThreshold {
			relevant = append(relevant, turn)
		}
	}
	if len(relevant) > c.config.RelevanceDepth {
		relevant = relevant[len(relevant)-c.config.RelevanceDepth:]
	}
	return relevant
}

// HasPattern reports whether any of the last lookback turns contains pattern
// (compared after normalization).
func (c *ContextManager) HasPattern(pattern string, lookback int) bool {
	needle := Normalize(pattern)
	if needle == "" {
		return false
	}
	for _, turn := range c.Recent(lookback) {
		if strings.Contains(Normalize(turn.Text), needle) {
			return true
		}
	}
	return false
}

// Topic names the first known topic mentioned in text, or DefaultTopic.
func (c *ContextManager) Topic(text string) string {
	normalized := Normalize(text)
	for _, topic := range c.config.Topics {
		if strings.Contains(normalized, topic) {
			return topic
		}
	}
	return c.config.DefaultTopic
}

// Interests returns the recorded interests in the order they first appeared.
func (c *ContextManager) Interests() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.profile.Interests...)
}

// Profile returns a copy of the user profile.
func (c *ContextManager) Profile() UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make(map[string]int, len(c.profile.Topics))
	for k, v := range c.profile.Topics {
		topics[k] = v
	}
	return UserProfile{
		Interests: append([]string(nil), c.profile.Interests...),
		Topics:    topics,
		Sentiment: c.profile.Sentiment,
	}
}

// Len returns the number of turns in the window.
func (c *ContextManager) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.window)
}

// Clear forgets the window and the profile.
func (c *ContextManager) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = c.window[:0]
	c.profile = UserProfile{Topics: make(map[string]int)}
}
