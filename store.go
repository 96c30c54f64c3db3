package banter

import (
	"context"
	"sync"
)

// Store persists the conversation memory and the learned entries.
//
// Each Save replaces the whole record. Implementations live in the store
// package (SQLite, Redis); MemoryStore keeps everything in process.
type Store interface {
	LoadMemory(ctx context.Context) ([]Message, error)
	SaveMemory(ctx context.Context, messages []Message) error
	LoadLearned(ctx context.Context) ([]KnowledgeEntry, error)
	SaveLearned(ctx context.Context, entries []KnowledgeEntry) error
}

// MemoryStore is a thread-safe in-process Store. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
	learned  []KnowledgeEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadMemory(ctx context.Context) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...), nil
}

func (s *MemoryStore) SaveMemory(ctx context.Context, messages []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]Message(nil), messages...)
	return nil
}

func (s *MemoryStore) LoadLearned(ctx context.Context) ([]KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]KnowledgeEntry(nil), s.learned...), nil
}

func (s *MemoryStore) SaveLearned(ctx context.Context, entries []KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learned = append([]KnowledgeEntry(nil), entries...)
	return nil
}
