package banter

import (
	"strings"
)

// Intent is the coarse purpose of a message.
type Intent string

const (
	IntentGreeting  Intent = "greeting"
	IntentFarewell  Intent = "farewell"
	IntentCommand   Intent = "command"
	IntentQuestion  Intent = "question"
	IntentStatement Intent = "statement"
)

// SentimentLabel is the polarity of a message.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// IntentRule maps an intent to the words and phrases that signal it.
type IntentRule struct {
	Intent   Intent
	Keywords []string
}

// ClassifierConfig holds the rule tables of the classifier
//
// IntentRules are checked in slice order and the first rule with a hit wins,
// so a message like "привет, как дела?" is a greeting, not a question.
type ClassifierConfig struct {
	IntentRules      []IntentRule
	PositiveKeywords []string
	NegativeKeywords []string
}

// DefaultClassifierConfig returns the built-in Russian + English tables.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		IntentRules: []IntentRule{
			{Intent: IntentGreeting, Keywords: []string{
				"привет", "здравствуй", "здравствуйте", "доброе утро", "добрый день", "добрый вечер",
				"hi", "hello", "hey", "yo", "good morning",
			}},
			{Intent: IntentFarewell, Keywords: []string{
				"пока", "до свидания", "увидимся", "до встречи",
				"bye", "goodbye", "see you",
			}},
			{Intent: IntentCommand, Keywords: []string{
				"сделай", "создай", "покажи", "напиши", "найди",
				"make", "create", "show", "write", "find",
			}},
			{Intent: IntentQuestion, Keywords: []string{
				"что", "как", "почему", "зачем", "когда", "где", "кто", "какой", "сколько",
				"what", "how", "why", "when", "where", "who", "which",
			}},
		},
		PositiveKeywords: []string{
			"хорошо", "отлично", "супер", "круто", "классно", "здорово", "люблю", "нравится", "рад", "счастлив",
			"good", "great", "awesome", "excellent", "love", "like", "happy",
		},
		NegativeKeywords: []string{
			"плохо", "ужасно", "грустно", "не нравится", "ненавижу", "отвратительно",
			"bad", "terrible", "awful", "hate", "sad", "angry",
		},
	}
}

// Classifier detects intent and sentiment with keyword rules.
// It is read-only after construction and safe for concurrent use.
type Classifier struct {
	analyzer *Analyzer
	rules    []IntentRule

	positiveWords   []string
	positivePhrases []string
	negativeWords   []string
	negativePhrases []string
}

// NewClassifier normalizes the rule tables once.
func NewClassifier(analyzer *Analyzer, config ClassifierConfig) *Classifier {
	if analyzer == nil {
		analyzer = NewAnalyzer(DefaultAnalyzerConfig())
	}

	c := &Classifier{analyzer: analyzer}
	for _, rule := range config.IntentRules {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = Normalize(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		c.rules = append(c.rules, IntentRule{Intent: rule.Intent, Keywords: keywords})
	}
	c.positiveWords, c.positivePhrases = splitPhrases(config.PositiveKeywords)
	c.negativeWords, c.negativePhrases = splitPhrases(config.NegativeKeywords)
	return c
}

func splitPhrases(keywords []string) (words, phrases []string) {
	for _, kw := range keywords {
		kw = Normalize(kw)
		switch {
		case kw == "":
		case strings.Contains(kw, " "):
			phrases = append(phrases, kw)
		default:
			words = append(words, kw)
		}
	}
	return words, phrases
}

// ClassifyIntent returns the intent of the first rule with a whole-word hit,
// or IntentStatement.
//
//	"Привет! Что нового?" → greeting   (greeting outranks question)
//	"покажи погоду"        → command
//	"how old are you"      → question
//	"hint"                 → statement  ("hi" is not a whole word here)
func (c *Classifier) ClassifyIntent(text string) Intent {
	padded := " " + Normalize(text) + " "
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return rule.Intent
			}
		}
	}
	return IntentStatement
}

// Sentiment tallies keyword hits and returns the dominant polarity
//
// ALGORITHM:
// ----------
//  1. Each occurrence of a multi-word keyword ("не нравится") in the
//     normalized text counts once, and is cut out of the text
//  2. Every remaining token counts +1 when it contains a positive keyword
//     and −1 when it contains a negative one
//  3. > 0 positive, < 0 negative, else neutral
//
// Cutting phrases out first keeps "не нравится" from also scoring the
// positive "нравится".
func (c *Classifier) Sentiment(text string) SentimentLabel {
	score := c.SentimentScore(text)
	switch {
	case score > 0:
		return SentimentPositive
	case score < 0:
		return SentimentNegative
	}
	return SentimentNeutral
}

// SentimentScore returns the raw keyword tally behind Sentiment.
func (c *Classifier) SentimentScore(text string) int {
	normalized := " " + Normalize(text) + " "
	score := 0

	normalized, hits := cutPhrases(normalized, c.negativePhrases)
	score -= hits
	normalized, hits = cutPhrases(normalized, c.positivePhrases)
	score += hits

	for _, token := range c.analyzer.Tokenize(normalized, true) {
		if containsAny(token, c.positiveWords) {
			score++
		}
		if containsAny(token, c.negativeWords) {
			score--
		}
	}
	return score
}

func cutPhrases(padded string, phrases []string) (string, int) {
	hits := 0
	for _, phrase := range phrases {
		needle := " " + phrase + " "
		for strings.Contains(padded, needle) {
			hits++
			padded = strings.Replace(padded, needle, "  ", 1)
		}
	}
	return padded, hits
}

func containsAny(token string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(token, kw) {
			return true
		}
	}
	return false
}
