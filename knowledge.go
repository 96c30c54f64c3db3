// ═══════════════════════════════════════════════════════════════════════════════
// KNOWLEDGE BASE
// ═══════════════════════════════════════════════════════════════════════════════
// The knowledge base holds every rule the bot can answer with:
//
//	KnowledgeBase
//	├── builtins: loaded once from knowledge.yaml, never mutated
//	├── learned:  appended at runtime (teach mode), persisted through a hook
//	├── usage:    entry id → times selected (introspection only)
//	└── version:  bumped on every append, lets callers cache derived indexes
//
// AllEntries is always builtins followed by learned entries. Every consumer
// (relevance corpus, similarity scan, MostUsed tie-breaking) iterates in that
// order, so a learned entry can only win a tie it reaches first.
//
// Nothing is ever removed.
// ═══════════════════════════════════════════════════════════════════════════════

package banter

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ERROR DEFINITIONS
// ═══════════════════════════════════════════════════════════════════════════════
var (
	ErrEmptyPattern     = errors.New("entry has no usable pattern")
	ErrDuplicateEntry   = errors.New("duplicate entry id")
	ErrMissingEntryID   = errors.New("entry has no id")
	ErrUnknownResponder = errors.New("unknown responder")
)

// LearnedWeight is the default weight of entries taught at runtime.
const LearnedWeight = 0.8

// LearnedTag marks entries taught at runtime.
const LearnedTag = "learned"

//go:embed knowledge.yaml
var defaultKnowledge []byte

// KnowledgeEntry is one trigger → response rule.
type KnowledgeEntry struct {
	ID        string   `yaml:"id" json:"id"`
	Patterns  []string `yaml:"patterns" json:"patterns"`
	Responses []string `yaml:"responses" json:"responses"`
	Weight    float64  `yaml:"weight" json:"weight"`
	Tags      []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Learned   bool     `yaml:"learned,omitempty" json:"learned,omitempty"`

	// ResponderName refers to an entry in a ResponderRegistry. Responder is
	// resolved from it when the entry is loaded.
	ResponderName    string        `yaml:"responder,omitempty" json:"responder,omitempty"`
	Responder        ResponderFunc `yaml:"-" json:"-"`
	NonDeterministic bool          `yaml:"-" json:"-"`
}

// HasResponder reports whether the entry computes its own reply.
func (e *KnowledgeEntry) HasResponder() bool {
	return e.Responder != nil
}

// validate drops patterns that normalize to nothing (they are contained in
// every input) and checks the structural invariants of what remains.
func (e *KnowledgeEntry) validate() error {
	if e.ID == "" {
		return ErrMissingEntryID
	}
	kept := make([]string, 0, len(e.Patterns))
	for _, pattern := range e.Patterns {
		if Normalize(pattern) != "" {
			kept = append(kept, pattern)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("%s: %w", e.ID, ErrEmptyPattern)
	}
	e.Patterns = kept
	return nil
}

// EntryMeta carries optional metadata for AddEntry.
type EntryMeta struct {
	Weight float64  // defaults to LearnedWeight
	Tags   []string // LearnedTag is always added
}

// KnowledgeBase is safe for concurrent use.
type KnowledgeBase struct {
	mu       sync.RWMutex
	builtins []*KnowledgeEntry
	learned  []*KnowledgeEntry
	ids      map[string]struct{}
	usage    map[string]int
	version  uint64
	persist  func([]KnowledgeEntry)
	registry *ResponderRegistry
}

// NewKnowledgeBase creates a knowledge base from built-in and previously
// learned entries
//
// Built-ins must be valid and uniquely identified. Learned entries come from
// persistent storage and are skipped with a warning when they are not.
func NewKnowledgeBase(builtins []KnowledgeEntry, learned []KnowledgeEntry) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		ids:   make(map[string]struct{}, len(builtins)+len(learned)),
		usage: make(map[string]int),
	}

	for i := range builtins {
		entry := builtins[i]
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("builtin entry %d: %w", i, err)
		}
		if _, exists := kb.ids[entry.ID]; exists {
			return nil, fmt.Errorf("builtin entry %q: %w", entry.ID, ErrDuplicateEntry)
		}
		if entry.Weight <= 0 {
			entry.Weight = 1.0
		}
		kb.ids[entry.ID] = struct{}{}
		kb.builtins = append(kb.builtins, &entry)
	}

	for i := range learned {
		entry := learned[i]
		if err := entry.validate(); err != nil {
			slog.Warn("skipping learned entry", slog.String("id", entry.ID), slog.Any("error", err))
			continue
		}
		if _, exists := kb.ids[entry.ID]; exists {
			slog.Warn("skipping learned entry", slog.String("id", entry.ID), slog.Any("error", ErrDuplicateEntry))
			continue
		}
		if entry.Weight <= 0 {
			entry.Weight = LearnedWeight
		}
		entry.Learned = true
		entry.Responder = nil
		entry.ResponderName = ""
		kb.ids[entry.ID] = struct{}{}
		kb.learned = append(kb.learned, &entry)
	}

	return kb, nil
}

// OnLearn registers the persistence hook. It receives a copy of the full
// learned set after every AddEntry.
func (kb *KnowledgeBase) OnLearn(persist func(learned []KnowledgeEntry)) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.persist = persist
}

// AddEntry appends a learned entry and returns its id
//
// STEP-BY-STEP:
// -------------
//  1. Drop patterns that normalize to nothing, reject the entry if none remain
//  2. Assign "learned_<uuid v7>", retrying on the (theoretical) collision
//  3. Append after every existing entry, bump the version
//  4. Hand the learned set to the persistence hook, outside the lock
func (kb *KnowledgeBase) AddEntry(patterns, responses []string, meta EntryMeta) (string, error) {
	entry := &KnowledgeEntry{
		Patterns:  append([]string(nil), patterns...),
		Responses: append([]string(nil), responses...),
		Weight:    meta.Weight,
		Tags:      withTag(meta.Tags, LearnedTag),
		Learned:   true,
	}
	if entry.Weight <= 0 {
		entry.Weight = LearnedWeight
	}

	kb.mu.Lock()
	for {
		entry.ID = "learned_" + newEntryID()
		if _, exists := kb.ids[entry.ID]; !exists {
			break
		}
	}
	if err := entry.validate(); err != nil {
		kb.mu.Unlock()
		return "", err
	}
	kb.ids[entry.ID] = struct{}{}
	kb.learned = append(kb.learned, entry)
	kb.version++
	persist := kb.persist
	snapshot := kb.learnedLocked()
	kb.mu.Unlock()

	slog.Info("learned entry", slog.String("id", entry.ID), slog.Int("patterns", len(entry.Patterns)))

	if persist != nil {
		persist(snapshot)
	}
	return entry.ID, nil
}

func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func withTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return append(out, tag)
}

// AllEntries returns built-ins followed by learned entries. The entries
// themselves are shared and must not be modified.
func (kb *KnowledgeBase) AllEntries() []*KnowledgeEntry {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	all := make([]*KnowledgeEntry, 0, len(kb.builtins)+len(kb.learned))
	all = append(all, kb.builtins...)
	return append(all, kb.learned...)
}

// Learned returns a copy of the learned entries in insertion order.
func (kb *KnowledgeBase) Learned() []KnowledgeEntry {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.learnedLocked()
}

func (kb *KnowledgeBase) learnedLocked() []KnowledgeEntry {
	out := make([]KnowledgeEntry, len(kb.learned))
	for i, entry := range kb.learned {
		out[i] = *entry
	}
	return out
}

// Entry looks up an entry by id.
func (kb *KnowledgeBase) Entry(id string) (*KnowledgeEntry, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	for _, entry := range kb.builtins {
		if entry.ID == id {
			return entry, true
		}
	}
	for _, entry := range kb.learned {
		if entry.ID == id {
			return entry, true
		}
	}
	return nil, false
}

// Len returns the total number of entries.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.builtins) + len(kb.learned)
}

// Version changes whenever the entry set changes.
func (kb *KnowledgeBase) Version() uint64 {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.version
}

// RecordUsage counts one selection of the entry.
func (kb *KnowledgeBase) RecordUsage(id string) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.usage[id]++
}

// Usage returns how many times the entry was selected.
func (kb *KnowledgeBase) Usage(id string) int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.usage[id]
}

// EntryUsage pairs an entry with its usage count.
type EntryUsage struct {
	Entry *KnowledgeEntry
	Count int
}

// MostUsed returns up to limit entries that were selected at least once,
// most used first, ties in AllEntries order. limit <= 0 means no limit.
func (kb *KnowledgeBase) MostUsed(limit int) []EntryUsage {
	all := kb.AllEntries()

	kb.mu.RLock()
	used := make([]EntryUsage, 0, len(kb.usage))
	for _, entry := range all {
		if count := kb.usage[entry.ID]; count > 0 {
			used = append(used, EntryUsage{Entry: entry, Count: count})
		}
	}
	kb.mu.RUnlock()

	sort.SliceStable(used, func(i, j int) bool {
		return used[i].Count > used[j].Count
	})

	if limit > 0 && len(used) > limit {
		used = used[:limit]
	}
	return used
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOADING
// ═══════════════════════════════════════════════════════════════════════════════

type knowledgeDocument struct {
	Entries []KnowledgeEntry `yaml:"entries"`
}

// LoadKnowledge decodes a YAML knowledge document and resolves responder
// names through registry.
//
// Example document:
//
//	entries:
//	  - id: math_1
//	    patterns: [посчитай, calculate]
//	    responses: ["Type an expression, e.g. 15 * 7 + 3"]
//	    responder: arithmetic
func LoadKnowledge(r io.Reader, registry *ResponderRegistry) ([]KnowledgeEntry, error) {
	var doc knowledgeDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode knowledge: %w", err)
	}

	for i := range doc.Entries {
		entry := &doc.Entries[i]
		if entry.Weight == 0 {
			entry.Weight = 1.0
		}
		if entry.ResponderName == "" {
			continue
		}
		responder, ok := registry.Lookup(entry.ResponderName)
		if !ok {
			return nil, fmt.Errorf("entry %q: %w: %s", entry.ID, ErrUnknownResponder, entry.ResponderName)
		}
		entry.Responder = responder.Func
		entry.NonDeterministic = responder.NonDeterministic
	}

	return doc.Entries, nil
}

// LoadKnowledgeFile reads a knowledge document from disk.
func LoadKnowledgeFile(path string, registry *ResponderRegistry) ([]KnowledgeEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge file: %w", err)
	}
	defer f.Close()
	return LoadKnowledge(f, registry)
}

// DefaultKnowledge returns the built-in entries shipped with the package.
func DefaultKnowledge(registry *ResponderRegistry) ([]KnowledgeEntry, error) {
	return LoadKnowledge(bytes.NewReader(defaultKnowledge), registry)
}
