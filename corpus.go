// ═══════════════════════════════════════════════════════════════════════════════
// RELEVANCE CORPUS (TF-IDF)
// ═══════════════════════════════════════════════════════════════════════════════
// A Corpus is a small inverted index over knowledge-base patterns. It answers
// one question: "which patterns share the rarest words with this message?"
//
// Architecture:
//
//	Corpus
//	├── docs:       []Document                  (input order, never reordered)
//	├── counts:     []map[string]int            (per document: stem → count)
//	├── lengths:    []int                       (per document: stem count)
//	└── docBitmaps: map[string]*roaring.Bitmap  (stem → document indices)
//
// Document frequency is the cardinality of a stem's bitmap, so IDF is O(1).
//
// SCORING:
// --------
// For each stemmed query token t (duplicates count again):
//
//	tf(t, d) = count(t in d) / len(d)           (0 when d has no tokens)
//	idf(t)   = ln((N + 1) / (1 + df(t))) + 1    (always ≥ 1 for df ≤ N)
//	score(d) = Σ tf(t, d) · idf(t)
//
// EXAMPLE:
// --------
// Documents: 0:"привет" 1:"как дела" 2:"расскажи шутку"
// Query:     "расскажи что-нибудь"
//
//	terms:  ["расскажи", "что", "нибудь"]
//	df:     расскажи→1, others→0
//	doc 2:  tf=1/2, idf=ln(4/2)+1≈1.693 → 0.847
//	doc 0,1 score 0
//	result: [2, 0, 1]   (ties keep input order)
// ═══════════════════════════════════════════════════════════════════════════════

package banter

import (
	"log/slog"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// Document is one rankable text with a back-reference to its owning entry.
type Document struct {
	Text  string
	Entry *KnowledgeEntry
}

// RankedDocument is a Document with its relevance score and its position in
// the corpus input order.
type RankedDocument struct {
	Document
	Index int
	Score float64
}

// Corpus is an immutable TF-IDF index. It is safe for concurrent use.
type Corpus struct {
	analyzer   *Analyzer
	docs       []Document
	counts     []map[string]int
	lengths    []int
	docBitmaps map[string]*roaring.Bitmap
}

// NewCorpus analyzes and indexes docs.
func NewCorpus(analyzer *Analyzer, docs []Document) *Corpus {
	if analyzer == nil {
		analyzer = NewAnalyzer(DefaultAnalyzerConfig())
	}

	c := &Corpus{
		analyzer:   analyzer,
		docs:       make([]Document, len(docs)),
		counts:     make([]map[string]int, len(docs)),
		lengths:    make([]int, len(docs)),
		docBitmaps: make(map[string]*roaring.Bitmap),
	}
	copy(c.docs, docs)

	for i, doc := range c.docs {
		c.indexDocument(i, doc.Text)
	}

	slog.Debug("relevance corpus built",
		slog.Int("documents", len(c.docs)),
		slog.Int("terms", len(c.docBitmaps)))

	return c
}

// indexDocument records the stems of one document
//
// Step 1: terms = analyzer.Terms(text)
// Step 2: counts[i][stem]++ for every occurrence
// Step 3: docBitmaps[stem].Add(i) once per distinct stem
func (c *Corpus) indexDocument(i int, text string) {
	terms := c.analyzer.Terms(text)
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}

	for term := range counts {
		bitmap, exists := c.docBitmaps[term]
		if !exists {
			bitmap = roaring.New()
			c.docBitmaps[term] = bitmap
		}
		bitmap.Add(uint32(i))
	}

	c.counts[i] = counts
	c.lengths[i] = len(terms)
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.docs)
}

// DocumentFrequency returns how many documents contain the stemmed term.
func (c *Corpus) DocumentFrequency(term string) int {
	bitmap, exists := c.docBitmaps[term]
	if !exists {
		return 0
	}
	return int(bitmap.GetCardinality())
}

// calculateIDF computes the smoothed inverse document frequency of a term
//
// IDF FORMULA:
// ------------
// IDF(term) = ln((N + 1) / (1 + df)) + 1
//
// The +1 inside keeps unseen terms finite, the +1 outside keeps a term that
// appears in every document from contributing nothing.
func (c *Corpus) calculateIDF(term string) float64 {
	n := float64(len(c.docs))
	df := float64(c.DocumentFrequency(term))
	return math.Log((n+1)/(1+df)) + 1
}

// termFrequency returns count(term in doc) / len(doc).
func (c *Corpus) termFrequency(i int, term string) float64 {
	if c.lengths[i] == 0 {
		return 0
	}
	return float64(c.counts[i][term]) / float64(c.lengths[i])
}

// Rank scores every document against query and returns them best first
//
// ALGORITHM:
// ----------
//  1. Empty corpus → empty slice
//  2. Stem the query (stop words removed)
//  3. Candidate documents = union of the query stems' bitmaps
//  4. Score candidates with Σ tf·idf; everything else scores 0
//  5. Stable sort by score, descending
//
// A query with no surviving tokens returns every document at score 0 in
// input order.
func (c *Corpus) Rank(query string) []RankedDocument {
	if len(c.docs) == 0 {
		return []RankedDocument{}
	}

	results := make([]RankedDocument, len(c.docs))
	for i, doc := range c.docs {
		results[i] = RankedDocument{Document: doc, Index: i}
	}

	terms := c.analyzer.Terms(query)
	if len(terms) == 0 {
		return results
	}

	candidates := c.findCandidateDocuments(terms)
	iter := candidates.Iterator()
	for iter.HasNext() {
		i := int(iter.Next())
		score := 0.0
		for _, term := range terms {
			if tf := c.termFrequency(i, term); tf > 0 {
				score += tf * c.calculateIDF(term)
			}
		}
		results[i].Score = score
	}

	sortByScore(results)

	slog.Debug("relevance ranking",
		slog.String("query", query),
		slog.Int("candidates", int(candidates.GetCardinality())),
		slog.Float64("top", results[0].Score))

	return results
}

// findCandidateDocuments unions the bitmaps of every query term.
func (c *Corpus) findCandidateDocuments(terms []string) *roaring.Bitmap {
	bitmaps := make([]*roaring.Bitmap, 0, len(terms))
	for _, term := range terms {
		if bitmap, exists := c.docBitmaps[term]; exists {
			bitmaps = append(bitmaps, bitmap)
		}
	}
	if len(bitmaps) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(bitmaps...)
}

// sortByScore sorts in descending score order, keeping input order on ties.
func sortByScore(results []RankedDocument) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// RankByRelevance builds a throwaway corpus over docs and ranks query
// against it.
func RankByRelevance(analyzer *Analyzer, query string, docs []Document) []RankedDocument {
	return NewCorpus(analyzer, docs).Rank(query)
}
