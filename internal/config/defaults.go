package config

import (
	"github.com/wizenheimer/banter/store"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "banter.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Stemmer:  StemmerSuffix,
		Matching: MatchingConfig{
			MinSimilarity: 0.32,
			Temperature:   0.7,
			UseRelevance:  true,
			UseContext:    true,
			Personalize:   true,
		},
		Conversation: ConversationConfig{
			ResponseDelay:   "400ms",
			MemoryLimit:     100,
			ContextCapacity: 10,
		},
		Store: StoreConfig{
			Driver:    store.DriverSQLite,
			Namespace: store.DefaultNamespace,
			Path:      ".banter/banter.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "banter",
			},
		},
		Remote: RemoteConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}
