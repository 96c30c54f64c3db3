// ═══════════════════════════════════════════════════════════════════════════════
// SIMILARITY ENSEMBLE
// ═══════════════════════════════════════════════════════════════════════════════
// Similarity scores how close a user message is to a trigger pattern, on a
// scale from 0 (unrelated) to 1 (identical after normalization).
//
// No single metric works for chat input:
//   - Jaccard over stemmed terms rewards shared vocabulary, ignores repetition
//   - Cosine over term frequencies rewards shared emphasis
//   - Edit similarity over the normalized strings catches typos ("privet" vs
//     "privt") that break term overlap entirely
//
// The final score is the larger of a weighted blend and each metric scaled by
// a floor factor, so one strongly-matching metric is enough to surface a match:
//
//	score = max(wc·cos + wj·jac + we·edit,  0.9·cos,  0.9·jac,  0.9·edit)
//
// EXAMPLE:
// --------
// a = "how are you doing", b = "how are you"
//
//	normalized b is a substring of normalized a → 0.92 (fixed constant)
//
// a = "расскажи шутку", b = "расскажи анекдот"
//
//	terms:   [расскажи шутку] vs [расскажи анекдот]
//	jaccard: 1/3 = 0.333
//	cosine:  1/(√2·√2) = 0.5
//	edit:    1 − 6/16 = 0.625
//	blend:   0.4·0.5 + 0.35·0.333 + 0.25·0.625 ≈ 0.473
//	floors:  0.45, 0.30, 0.5625 → score = 0.5625
// ═══════════════════════════════════════════════════════════════════════════════

package banter

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// SimilarityConfig holds the weights and constants of the ensemble
type SimilarityConfig struct {
	CosineWeight   float64 // Weight of cosine similarity in the blend (default: 0.40)
	JaccardWeight  float64 // Weight of Jaccard similarity in the blend (default: 0.35)
	EditWeight     float64 // Weight of normalized edit similarity (default: 0.25)
	PhoneticWeight float64 // Weight of the phonetic sub-score, 0 disables it (default: 0)
	FloorFactor    float64 // Scale applied to each sub-score as an alternate floor (default: 0.9)
	SubstringScore float64 // Score when one normalized text contains the other (default: 0.92)
}

// DefaultSimilarityConfig returns the standard ensemble weights
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		CosineWeight:   0.40,
		JaccardWeight:  0.35,
		EditWeight:     0.25,
		PhoneticWeight: 0,
		FloorFactor:    0.9,
		SubstringScore: 0.92,
	}
}

// Similarity computes the ensemble score between two texts.
type Similarity struct {
	analyzer *Analyzer
	config   SimilarityConfig
}

// NewSimilarity creates a similarity engine. The blend weights are
// renormalized so that they sum to 1.
func NewSimilarity(analyzer *Analyzer, config SimilarityConfig) *Similarity {
	if analyzer == nil {
		analyzer = NewAnalyzer(DefaultAnalyzerConfig())
	}

	total := config.CosineWeight + config.JaccardWeight + config.EditWeight + config.PhoneticWeight
	if total <= 0 {
		defaults := DefaultSimilarityConfig()
		config.CosineWeight = defaults.CosineWeight
		config.JaccardWeight = defaults.JaccardWeight
		config.EditWeight = defaults.EditWeight
		config.PhoneticWeight = 0
		total = 1
	}
	config.CosineWeight /= total
	config.JaccardWeight /= total
	config.EditWeight /= total
	config.PhoneticWeight /= total

	if config.FloorFactor <= 0 || config.FloorFactor > 1 {
		config.FloorFactor = 0.9
	}
	if config.SubstringScore <= 0 || config.SubstringScore > 1 {
		config.SubstringScore = 0.92
	}

	return &Similarity{analyzer: analyzer, config: config}
}

// Config returns the effective (renormalized) configuration.
func (s *Similarity) Config() SimilarityConfig {
	return s.config
}

// Score returns the similarity of a and b in [0, 1]
//
// ALGORITHM:
// ----------
//  1. Either raw text empty            → 0
//  2. Normalized texts equal           → 1
//  3. One normalized text contains the other → SubstringScore
//     (an empty normalized text is contained in everything)
//  4. Otherwise the ensemble described above
//
// Score is symmetric: Score(a, b) == Score(b, a).
func (s *Similarity) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return s.config.SubstringScore
	}

	termsA := s.analyzer.Terms(a)
	termsB := s.analyzer.Terms(b)

	jaccard := Jaccard(termsA, termsB)
	cosine := Cosine(termsA, termsB)
	edit := EditSimilarity(na, nb)

	blend := s.config.CosineWeight*cosine + s.config.JaccardWeight*jaccard + s.config.EditWeight*edit
	floor := s.config.FloorFactor
	score := math.Max(blend, math.Max(floor*jaccard, math.Max(floor*cosine, floor*edit)))

	if s.config.PhoneticWeight > 0 {
		phonetic := Phonetic(s.analyzer.Tokenize(a, true), s.analyzer.Tokenize(b, true), na, nb)
		blend += s.config.PhoneticWeight * phonetic
		score = math.Max(score, math.Max(blend, floor*phonetic))
	}

	return clamp01(score)
}

// ═══════════════════════════════════════════════════════════════════════════════
// SUB-SCORES
// ═══════════════════════════════════════════════════════════════════════════════

// Jaccard returns |A ∩ B| / |A ∪ B| over the token sets of a and b.
// Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Cosine returns the cosine of the term-frequency vectors of a and b
//
// Counts are integers, so the dot product and squared magnitudes are exact
// regardless of map iteration order.
func Cosine(a, b []string) float64 {
	freqA := termFrequencies(a)
	freqB := termFrequencies(b)

	dot, magA, magB := 0, 0, 0
	for token, countA := range freqA {
		magA += countA * countA
		dot += countA * freqB[token]
	}
	for _, countB := range freqB {
		magB += countB * countB
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float64(dot) / (math.Sqrt(float64(magA)) * math.Sqrt(float64(magB)))
}

// EditSimilarity returns 1 − levenshtein(a, b) / max(len(a), len(b)), with
// lengths counted in runes.
func EditSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	distance := matchr.Levenshtein(a, b)
	return clamp01(1 - float64(distance)/float64(longest))
}

// Phonetic scores how alike two texts sound
//
// ALGORITHM:
// ----------
//  1. Compute Double Metaphone codes (primary + secondary) for every token
//  2. No shared code → 0
//  3. Otherwise the best Jaro-Winkler score of the full normalized strings
//     or any token pair, taken in both directions
//
// Double Metaphone only encodes Latin script, so Cyrillic input scores 0.
func Phonetic(tokensA, tokensB []string, fullA, fullB string) float64 {
	if !metaphoneOverlap(tokensA, tokensB) {
		return 0
	}

	best := symmetricJaroWinkler(fullA, fullB)
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if score := symmetricJaroWinkler(ta, tb); score > best {
				best = score
			}
		}
	}
	return clamp01(best)
}

func metaphoneOverlap(a, b []string) bool {
	codesA := metaphoneCodes(a)
	if len(codesA) == 0 {
		return false
	}
	for code := range metaphoneCodes(b) {
		if _, ok := codesA[code]; ok {
			return true
		}
	}
	return false
}

func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, token := range tokens {
		primary, secondary := matchr.DoubleMetaphone(token)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if secondary != "" {
			codes[secondary] = struct{}{}
		}
	}
	return codes
}

func symmetricJaroWinkler(a, b string) float64 {
	return math.Max(matchr.JaroWinkler(a, b, false), matchr.JaroWinkler(b, a, false))
}

func termFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}
	return freq
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
