// ═══════════════════════════════════════════════════════════════════════════════
// TEXT ANALYSIS OVERVIEW
// ═══════════════════════════════════════════════════════════════════════════════
// Every scorer in this package (similarity, relevance, intent, sentiment) works
// on the same analyzed form of a message. The pipeline is:
//
//  1. Normalization → NFC, lowercase, fold "ё" to "е", punctuation to spaces
//  2. Tokenization  → split on single spaces
//  3. Filtering     → drop one-letter tokens and stop words (optional)
//  4. Stemming      → strip Russian then English suffixes
//
// EXAMPLE TRANSFORMATION:
// -----------------------
// Input:  "Ещё раз: как ПРОГРАММИРОВАНИЕ?!"
// Step 1: "еще раз как программирование"
// Step 2: ["еще", "раз", "как", "программирование"]
// Step 3: ["еще", "раз", "программирование"]            ("как" is a stop word)
// Step 4: ["еще", "раз", "программиров"]                ("ание" stripped)
//
// The stop-word set, the length filter and the stemmer are all carried by
// AnalyzerConfig so a language pack differs only in data.
// ═══════════════════════════════════════════════════════════════════════════════

package banter

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
	snowballru "github.com/kljensen/snowball/russian"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinStemLength is the shortest token (in runes) the stemmers will touch.
const MinStemLength = 4

// AnalyzerConfig holds configuration options for text analysis
type AnalyzerConfig struct {
	MinTokenLength int                 // Tokens shorter than this (in runes) are dropped (default: 2)
	StopWords      map[string]struct{} // Normalized stop words (default: Russian + English)
	Stemmer        Stemmer             // Token stemmer (default: SuffixStemmer)
}

// DefaultAnalyzerConfig returns the standard analyzer configuration
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinTokenLength: 2,
		StopWords:      DefaultStopWords(),
		Stemmer:        NewSuffixStemmer(),
	}
}

// Analyzer tokenizes and stems text according to an AnalyzerConfig.
//
// An Analyzer is read-only after construction and safe for concurrent use.
type Analyzer struct {
	minTokenLength int
	stopWords      map[string]struct{}
	stemmer        Stemmer
}

// NewAnalyzer creates an analyzer. Zero-valued fields fall back to defaults.
func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	if config.MinTokenLength <= 0 {
		config.MinTokenLength = 2
	}
	if config.StopWords == nil {
		config.StopWords = DefaultStopWords()
	}
	if config.Stemmer == nil {
		config.Stemmer = NewSuffixStemmer()
	}
	return &Analyzer{
		minTokenLength: config.MinTokenLength,
		stopWords:      config.StopWords,
		stemmer:        config.Stemmer,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// NORMALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// Normalize canonicalizes text for matching
//
// ALGORITHM:
// ----------
//  1. NFC composition, so a decomposed "е + U+0308" becomes one rune
//  2. Lowercasing
//  3. Folding "ё" → "е"
//  4. Any rune that is not a letter or a number becomes a space
//  5. Whitespace runs collapse to one space, ends are trimmed
//
// Examples:
//
//	"Привет, МИР!!"   → "привет мир"
//	"Ёлка  —  ёж"     → "елка еж"
//	"user@mail.com"   → "user mail com"
//	""                → ""
//
// Normalize is idempotent: its output only contains letters, numbers and
// single spaces, none of which any step changes again.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Transformers keep internal state, so the chain is built per call.
	chain := transform.Chain(norm.NFC, cases.Lower(language.Und), runes.Map(foldRune))
	folded, _, err := transform.String(chain, text)
	if err != nil {
		folded = strings.Map(foldRune, strings.ToLower(text))
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// foldRune maps the orthographic variant "ё" onto its base letter.
func foldRune(r rune) rune {
	switch r {
	case 'ё':
		return 'е'
	case 'Ё':
		return 'Е'
	}
	return r
}

// ═══════════════════════════════════════════════════════════════════════════════
// TOKENIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// Tokenize splits normalized text into tokens
//
// With removeStopWords set, tokens shorter than MinTokenLength runes and
// tokens in the stop-word set are discarded as well.
//
// Example:
//
//	a.Tokenize("The cat is on the mat", true)  → ["cat", "on", "mat"]
//	a.Tokenize("The cat is on the mat", false) → ["the", "cat", "is", "on", "the", "mat"]
func (a *Analyzer) Tokenize(text string, removeStopWords bool) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return []string{}
	}

	parts := strings.Split(normalized, " ")
	tokens := make([]string, 0, len(parts))
	for _, token := range parts {
		if token == "" {
			continue
		}
		if removeStopWords {
			if utf8.RuneCountInString(token) < a.minTokenLength {
				continue
			}
			if a.IsStopWord(token) {
				continue
			}
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// IsStopWord reports whether a normalized token is in the stop-word set.
func (a *Analyzer) IsStopWord(token string) bool {
	_, exists := a.stopWords[token]
	return exists
}

// Stem reduces a single token with the configured stemmer.
func (a *Analyzer) Stem(token string) string {
	return a.stemmer.Stem(token)
}

// Terms is the full pipeline: tokenize with stop-word removal, then stem.
//
// Both the similarity engine and the relevance corpus compare Terms output,
// so they always agree on what a "word" is.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokenize(text, true)
	for i, token := range tokens {
		tokens[i] = a.stemmer.Stem(token)
	}
	return tokens
}

// ═══════════════════════════════════════════════════════════════════════════════
// STEMMING
// ═══════════════════════════════════════════════════════════════════════════════
// Two stemmers are available:
//
//   - SuffixStemmer: strips the longest suffix from a fixed Russian list, then
//     the longest suffix from a fixed English list. Cheap and predictable.
//   - SnowballStemmer: Snowball (Porter2 family) rules for Russian or English,
//     chosen by the script of the token.
//
// Both leave tokens shorter than MinStemLength untouched and never return an
// empty stem for non-empty input.
// ═══════════════════════════════════════════════════════════════════════════════

// Stemmer reduces a token to an approximate root.
type Stemmer interface {
	Stem(token string) string
}

// SuffixStemmer strips suffixes from ordered families of patterns.
type SuffixStemmer struct {
	families [][]string // each family sorted longest-first
}

// NewSuffixStemmer returns a stemmer over the built-in Russian and English
// suffix families, applied in that order.
func NewSuffixStemmer() *SuffixStemmer {
	return NewSuffixStemmerWithFamilies(russianSuffixes, englishSuffixes)
}

// NewSuffixStemmerWithFamilies builds a stemmer over custom suffix families.
// Families are applied in argument order.
func NewSuffixStemmerWithFamilies(families ...[]string) *SuffixStemmer {
	s := &SuffixStemmer{families: make([][]string, 0, len(families))}
	for _, family := range families {
		sorted := make([]string, 0, len(family))
		for _, suffix := range family {
			if suffix = Normalize(suffix); suffix != "" {
				sorted = append(sorted, suffix)
			}
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
		})
		s.families = append(s.families, sorted)
	}
	return s
}

// Stem strips the longest matching suffix of each family in turn
//
// ALGORITHM:
// ----------
// For each family, find the longest suffix that matches AND leaves at least
// one rune behind. The next family sees the already-stripped token.
//
// Examples:
//
//	"программирование" → "программиров"   (ru: "ание", longer than "ние")
//	"connections"      → "connection"     (en: "s")
//	"ationing"         → "ation"          (en: "ing")
//	"ation"            → "a"              ("ation" would empty it, "tion" fits)
//	"cat"              → "cat"            (shorter than MinStemLength)
func (s *SuffixStemmer) Stem(token string) string {
	if utf8.RuneCountInString(token) < MinStemLength {
		return token
	}
	for _, family := range s.families {
		token = stripLongest(token, family)
	}
	return token
}

func stripLongest(token string, suffixes []string) string {
	for _, suffix := range suffixes {
		if len(suffix) < len(token) && strings.HasSuffix(token, suffix) {
			return token[:len(token)-len(suffix)]
		}
	}
	return token
}

// SnowballStemmer applies the Snowball Russian stemmer to Cyrillic tokens and
// the English one to everything else.
type SnowballStemmer struct{}

// NewSnowballStemmer returns a Snowball-backed stemmer.
func NewSnowballStemmer() SnowballStemmer {
	return SnowballStemmer{}
}

// Stem implements Stemmer.
func (SnowballStemmer) Stem(token string) string {
	if utf8.RuneCountInString(token) < MinStemLength {
		return token
	}

	var stemmed string
	if isCyrillic(token) {
		stemmed = snowballru.Stem(token, false)
	} else {
		stemmed = snowballeng.Stem(token, false)
	}

	if stemmed == "" {
		return token
	}
	return stemmed
}

func isCyrillic(token string) bool {
	for _, r := range token {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// russianSuffixes approximates Russian inflectional endings.
var russianSuffixes = []string{
	"ова", "ева", "ение", "ание", "ость", "ние", "ие", "ей", "ой", "ый",
	"ая", "ое", "ые", "ими", "ами", "его", "ого", "ему", "ому", "ую",
	"юю", "ою", "ею", "ать", "ять", "еть", "ить", "ти", "чь", "ешь",
	"ишь", "ете", "ите", "ут", "ют", "ат", "ят",
}

// englishSuffixes approximates English derivational and inflectional endings.
var englishSuffixes = []string{
	"ational", "tional", "encing", "ancing", "ization", "isation", "ation",
	"ator", "alism", "iveness", "fulness", "ousness", "aliti", "iviti",
	"biliti", "ing", "ed", "es", "s", "ly", "tion", "ment", "ness",
}

// ═══════════════════════════════════════════════════════════════════════════════
// STOP WORDS
// ═══════════════════════════════════════════════════════════════════════════════

// DefaultStopWords returns a fresh copy of the built-in Russian + English
// stop-word set, so callers may add or remove words without affecting others.
func DefaultStopWords() map[string]struct{} {
	words := make(map[string]struct{}, len(stopWordList))
	for _, word := range stopWordList {
		words[Normalize(word)] = struct{}{}
	}
	return words
}

var stopWordList = []string{
	// Russian
	"и", "в", "на", "с", "по", "для", "к", "от", "о", "у", "из", "за", "до", "при",
	"это", "то", "все", "всё", "так", "вот", "быть", "как", "его", "но", "да", "ты", "я",
	// English
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "should", "could",
}
