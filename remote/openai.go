// Package remote provides banter.Generator implementations backed by hosted
// language models.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"github.com/wizenheimer/banter"
)

// ErrEmptyCompletion is returned when the API answers without any text.
var ErrEmptyCompletion = errors.New("completion has no content")

// DefaultSystemPrompt frames the model as the same persona as the local
// rules.
const DefaultSystemPrompt = "You are banter, a friendly chat bot that helps with studies and programming. " +
	"Answer briefly and in the language of the user."

// Config configures an OpenAI-compatible endpoint.
type Config struct {
	APIKey       string
	BaseURL      string // empty = api.openai.com; set for Ollama, OpenRouter and other compatible servers
	Model        string // default: gpt-4o-mini
	SystemPrompt string // default: DefaultSystemPrompt
	MaxTokens    int    // default: 512
	Temperature  float32
	HistoryTurns int // previous messages sent along with the input (default: 6)
}

// OpenAI generates replies with the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	config Config

	mu      sync.RWMutex
	history func() []banter.Message
}

// NewOpenAI creates a generator for cfg.
func NewOpenAI(cfg Config) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.HistoryTurns == 0 {
		cfg.HistoryTurns = 6
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}
}

// UseHistory makes the generator send recent conversation messages as
// context. Typically fn is Engine.History.
func (g *OpenAI) UseHistory(fn func() []banter.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = fn
}

// Generate implements banter.Generator.
func (g *OpenAI) Generate(ctx context.Context, input string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    g.messages(input),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// messages builds the prompt: system, recent history, then the input.
func (g *OpenAI) messages(input string) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: g.config.SystemPrompt},
	}

	g.mu.RLock()
	history := g.history
	g.mu.RUnlock()

	var recent []banter.Message
	if history != nil {
		recent = history()
		// the engine stores the user message before generating
		if n := len(recent); n > 0 && recent[n-1].Author == banter.AuthorUser && recent[n-1].Text == input {
			recent = recent[:n-1]
		}
		if g.config.HistoryTurns > 0 && len(recent) > g.config.HistoryTurns {
			recent = recent[len(recent)-g.config.HistoryTurns:]
		}
	}

	for _, msg := range recent {
		role := openai.ChatMessageRoleAssistant
		if msg.Author == banter.AuthorUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}

	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: input})
}

// Compile-time interface check.
var _ banter.Generator = (*OpenAI)(nil)
