// Package banter implements a local, rule-based chat bot.
//
// ═══════════════════════════════════════════════════════════════════════════════
// HOW A MESSAGE IS ANSWERED
// ═══════════════════════════════════════════════════════════════════════════════
// The bot has no model. It answers by finding the knowledge-base rule whose
// trigger patterns look most like the message:
//
//	"Привет! Как дела?"
//	      │
//	      ▼
//	Normalize → Tokenize → Stem          (analyzer.go)
//	      │
//	      ├─▶ TF-IDF over entry patterns  (corpus.go)
//	      └─▶ similarity ensemble         (similarity.go)
//	      │
//	      ▼
//	best entry ≥ threshold? ──no──▶ context / intent / generic fallback
//	      │yes
//	      ▼
//	responder or canned response         (selector.go)
//
// The Engine wraps that pipeline with what a chat front end needs: a
// single-flight guard, an artificial typing delay, persistent memory, a
// message stream, and a teach mode that adds new rules at runtime.
// ═══════════════════════════════════════════════════════════════════════════════
package banter

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrBusy          = errors.New("a reply is already being generated")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNoUserMessage = errors.New("no user message to answer")
)

// persistTimeout bounds each background write to the Store.
const persistTimeout = 5 * time.Second

// Config holds every tunable of the engine
type Config struct {
	Analyzer   AnalyzerConfig
	Similarity SimilarityConfig
	Classifier ClassifierConfig
	Context    ContextConfig
	Selector   SelectorConfig
	Replies    Replies
	Learner    LearnerPrompts

	ResponseDelay time.Duration // Artificial latency before each reply (default: 400ms)
	MemoryLimit   int           // Messages kept in persistent memory (default: 100)

	WelcomeMessage     string // Announced when memory is empty at Open ("" disables)
	ClearedMessage     string // Announced after Clear ("" disables)
	LearningOnMessage  string // Announced when teach mode is switched on
	LearningOffMessage string // Announced when teach mode is switched off
}

// DefaultConfig returns the standard engine configuration
func DefaultConfig() Config {
	return Config{
		Analyzer:      DefaultAnalyzerConfig(),
		Similarity:    DefaultSimilarityConfig(),
		Classifier:    DefaultClassifierConfig(),
		Context:       DefaultContextConfig(),
		Selector:      DefaultSelectorConfig(),
		Replies:       DefaultReplies(),
		Learner:       DefaultLearnerPrompts(),
		ResponseDelay: 400 * time.Millisecond,
		MemoryLimit:   100,
		WelcomeMessage: "Hi! I'm banter, a local chat bot 🤖\n\n" +
			"I can:\n• answer questions\n• help with programming and studies\n• do arithmetic\n" +
			"• chat about all sorts of things\n• learn new answers from you\n\nSay something to get started! 💬",
		ClearedMessage:     "History cleared! Shall we start over? 😊",
		LearningOnMessage:  "🎓 Teach mode is on! Send a phrase I should learn to answer.",
		LearningOffMessage: "Teach mode is off.",
	}
}

// Generator produces a reply for a message. The engine's own selector is the
// default; a remote generator can replace it.
type Generator interface {
	Generate(ctx context.Context, input string) (string, error)
}

// Delayer waits before a reply is produced.
type Delayer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// DelayerFunc adapts a function to Delayer.
type DelayerFunc func(ctx context.Context, d time.Duration) error

func (f DelayerFunc) Wait(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerDelayer sleeps for d or until ctx is done.
type TimerDelayer struct{}

func (TimerDelayer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options are the engine's collaborators. Every field is optional.
type Options struct {
	Store     Store            // default: NewMemoryStore()
	Knowledge []KnowledgeEntry // built-in entries, default: DefaultKnowledge
	Generator Generator        // default: the local selector
	Delayer   Delayer          // default: TimerDelayer
	Rand      *rand.Rand       // default: randomly seeded PCG
	Now       func() time.Time // default: time.Now
}

// EventKind tells subscribers what changed.
type EventKind string

const (
	EventMessage EventKind = "message" // a message was appended
	EventRetract EventKind = "retract" // the message was removed (Regenerate)
	EventClear   EventKind = "clear"   // the whole history was cleared
)

// Event is one change of the conversation, as seen by a rendering surface.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message Message   `json:"message"`
}

// Stats summarizes the conversation.
type Stats struct {
	TotalMessages  int            `json:"totalMessages"`
	UserMessages   int            `json:"userMessages"`
	BotMessages    int            `json:"botMessages"`
	Interests      []string       `json:"interests"`
	LearnedEntries int            `json:"learnedEntries"`
	Entries        int            `json:"entries"`
	Sentiment      SentimentTally `json:"sentiment"`
	Learning       bool           `json:"learning"`
}

// Engine is a chat session. It is safe for concurrent use; replies are
// produced one at a time.
type Engine struct {
	config    Config
	kb        *KnowledgeBase
	context   *ContextManager
	selector  *Selector
	learner   *Learner
	store     Store
	generator Generator
	delayer   Delayer
	now       func() time.Time

	busy atomic.Bool

	mu       sync.Mutex
	memory   []Message
	learning bool

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Open builds an engine and restores its state from opts.Store
//
// STEP-BY-STEP:
// -------------
//  1. Load learned entries; a failing store is logged and treated as empty
//  2. Build the knowledge base (built-ins first, learned after)
//  3. Load memory, keep the last MemoryLimit messages and replay them into
//     the conversation context
//  4. Announce the welcome message when there is no history
func Open(ctx context.Context, config Config, opts Options) (*Engine, error) {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Delayer == nil {
		opts.Delayer = TimerDelayer{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if config.MemoryLimit <= 0 {
		config.MemoryLimit = DefaultConfig().MemoryLimit
	}

	builtins := opts.Knowledge
	if builtins == nil {
		var err error
		builtins, err = DefaultKnowledge(DefaultResponders(opts.Now))
		if err != nil {
			return nil, err
		}
	}

	learned, err := opts.Store.LoadLearned(ctx)
	if err != nil {
		slog.Warn("could not load learned entries", slog.Any("error", err))
		learned = nil
	}

	kb, err := NewKnowledgeBase(builtins, learned)
	if err != nil {
		return nil, err
	}

	analyzer := NewAnalyzer(config.Analyzer)
	similarity := NewSimilarity(analyzer, config.Similarity)
	classifier := NewClassifier(analyzer, config.Classifier)
	contextManager := NewContextManager(config.Context, similarity, classifier)
	contextManager.now = opts.Now

	e := &Engine{
		config:  config,
		kb:      kb,
		context: contextManager,
		selector: NewSelector(SelectorDeps{
			KB:         kb,
			Context:    contextManager,
			Similarity: similarity,
			Classifier: classifier,
			Analyzer:   analyzer,
			Rand:       opts.Rand,
		}, config.Selector, config.Replies),
		learner:   NewLearner(kb, config.Learner),
		store:     opts.Store,
		generator: opts.Generator,
		delayer:   opts.Delayer,
		now:       opts.Now,
		subs:      make(map[int]chan Event),
	}
	kb.OnLearn(e.persistLearned)

	memory, err := opts.Store.LoadMemory(ctx)
	if err != nil {
		slog.Warn("could not load memory", slog.Any("error", err))
		memory = nil
	}
	for _, msg := range memory {
		if !msg.Author.Valid() {
			continue
		}
		e.memory = append(e.memory, msg)
	}
	e.memory = truncateOldest(e.memory, config.MemoryLimit)
	for _, msg := range e.memory {
		contextManager.RecordMessage(msg)
	}

	slog.Info("engine opened",
		slog.Int("entries", kb.Len()),
		slog.Int("learned", len(kb.Learned())),
		slog.Int("memory", len(e.memory)))

	if len(e.memory) == 0 && config.WelcomeMessage != "" {
		e.Announce(config.WelcomeMessage)
	}
	return e, nil
}

// Respond answers one user message
//
// ALGORITHM:
// ----------
//  1. Refuse with ErrBusy if another reply is in flight
//  2. Teach mode: hand the message to the learner (not kept in memory)
//  3. Append the user message to memory and stream it
//  4. Wait ResponseDelay; a cancelled ctx aborts with ctx.Err()
//  5. Generate the reply, then record the user turn in the context, so the
//     message cannot match itself as "recent relevant context"
//  6. Append the reply to memory and stream it
func (e *Engine) Respond(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if !e.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer e.busy.Store(false)

	if e.Learning() {
		e.emit(Event{Kind: EventMessage, Message: e.message(AuthorUser, text)})
		reply := e.message(AuthorBot, e.learner.Process(text))
		e.emit(Event{Kind: EventMessage, Message: reply})
		return reply, nil
	}

	userMsg := e.appendMemory(AuthorUser, text)

	if err := e.delayer.Wait(ctx, e.config.ResponseDelay); err != nil {
		e.context.RecordMessage(userMsg)
		return Message{}, err
	}

	reply := e.generate(ctx, text)
	e.context.RecordMessage(userMsg)

	botMsg := e.appendMemory(AuthorBot, reply)
	e.context.RecordMessage(botMsg)
	return botMsg, nil
}

// Regenerate answers the last user message again, replacing the bot reply
// that followed it.
func (e *Engine) Regenerate(ctx context.Context) (Message, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	lastUser := -1
	for i := len(e.memory) - 1; i >= 0; i-- {
		if e.memory[i].Author == AuthorUser {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		e.mu.Unlock()
		return Message{}, ErrNoUserMessage
	}
	input := e.memory[lastUser].Text

	var retracted *Message
	for i := len(e.memory) - 1; i > lastUser; i-- {
		if e.memory[i].Author == AuthorBot {
			msg := e.memory[i]
			retracted = &msg
			e.memory = append(e.memory[:i], e.memory[i+1:]...)
			break
		}
	}
	e.saveMemoryLocked(ctx)
	e.mu.Unlock()

	if retracted != nil {
		e.emit(Event{Kind: EventRetract, Message: *retracted})
	}

	if err := e.delayer.Wait(ctx, e.config.ResponseDelay); err != nil {
		return Message{}, err
	}

	botMsg := e.appendMemory(AuthorBot, e.generate(ctx, input))
	e.context.RecordMessage(botMsg)
	return botMsg, nil
}

// generate asks the configured generator, falling back to the local
// selector when it fails.
func (e *Engine) generate(ctx context.Context, input string) string {
	if e.generator != nil {
		reply, err := e.generator.Generate(ctx, input)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply
		}
		slog.Warn("remote generator failed, using local rules", slog.Any("error", err))
	}
	return e.selector.Generate(input)
}

// Announce appends a bot message that is not a reply, such as a notice.
func (e *Engine) Announce(text string) Message {
	msg := e.appendMemory(AuthorBot, text)
	e.context.RecordMessage(msg)
	return msg
}

// Clear forgets the conversation and the user profile. Learned entries are
// kept.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	e.memory = nil
	e.saveMemoryLocked(ctx)
	e.mu.Unlock()

	e.context.Clear()
	e.emit(Event{Kind: EventClear})
	slog.Info("conversation cleared")

	if e.config.ClearedMessage != "" {
		e.Announce(e.config.ClearedMessage)
	}
}

// SetLearning switches teach mode and announces the change. Switching it
// off cancels a half-taught entry.
func (e *Engine) SetLearning(on bool) Message {
	e.mu.Lock()
	e.learning = on
	e.mu.Unlock()

	if on {
		return e.Announce(e.config.LearningOnMessage)
	}
	e.learner.Cancel()
	return e.Announce(e.config.LearningOffMessage)
}

// Learning reports whether teach mode is on.
func (e *Engine) Learning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.learning
}

// Busy reports whether a reply is being generated.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// History returns a copy of the persistent memory, oldest first.
func (e *Engine) History() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Message(nil), e.memory...)
}

// Stats summarizes the session.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	stats := Stats{TotalMessages: len(e.memory), Learning: e.learning}
	for _, msg := range e.memory {
		switch msg.Author {
		case AuthorUser:
			stats.UserMessages++
		case AuthorBot:
			stats.BotMessages++
		}
	}
	e.mu.Unlock()

	profile := e.context.Profile()
	stats.Interests = profile.Interests
	stats.Sentiment = profile.Sentiment
	stats.LearnedEntries = len(e.kb.Learned())
	stats.Entries = e.kb.Len()
	return stats
}

// KnowledgeBase exposes the engine's knowledge base.
func (e *Engine) KnowledgeBase() *KnowledgeBase {
	return e.kb
}

// Context exposes the conversation context.
func (e *Engine) Context() *ContextManager {
	return e.context
}

// Match reports the candidate entry for input without answering.
func (e *Engine) Match(input string) MatchResult {
	return e.selector.Match(input)
}

// Subscribe streams every change of the conversation. Slow subscribers miss
// events rather than block the engine. Call the returned function to
// unsubscribe.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.subs, id)
			e.subsMu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) emit(ev Event) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("subscriber lagging, event dropped", slog.Int("subscriber", id))
		}
	}
}

func (e *Engine) message(author Author, text string) Message {
	return Message{Author: author, Text: text, Timestamp: e.now()}
}

// appendMemory records a message, truncates memory to MemoryLimit, persists
// it and streams it.
func (e *Engine) appendMemory(author Author, text string) Message {
	msg := e.message(author, text)

	e.mu.Lock()
	e.memory = append(e.memory, msg)
	e.memory = truncateOldest(e.memory, e.config.MemoryLimit)
	e.saveMemoryLocked(context.Background())
	e.mu.Unlock()

	e.emit(Event{Kind: EventMessage, Message: msg})
	return msg
}

// saveMemoryLocked writes the whole memory. Failures are logged only.
func (e *Engine) saveMemoryLocked(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), persistTimeout)
	defer cancel()
	if err := e.store.SaveMemory(ctx, append([]Message(nil), e.memory...)); err != nil {
		slog.Warn("could not save memory", slog.Any("error", err))
	}
}

func (e *Engine) persistLearned(entries []KnowledgeEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.SaveLearned(ctx, entries); err != nil {
		slog.Warn("could not save learned entries", slog.Any("error", err))
	}
}

func truncateOldest(messages []Message, limit int) []Message {
	if limit > 0 && len(messages) > limit {
		return append([]Message(nil), messages[len(messages)-limit:]...)
	}
	return messages
}
