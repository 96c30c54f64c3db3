// Package config loads the application configuration of the banter binary.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/wizenheimer/banter"
	"github.com/wizenheimer/banter/remote"
	"github.com/wizenheimer/banter/store"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. A double underscore
// descends into a section: BANTER_MATCHING__TEMPERATURE -> matching.temperature.
const EnvPrefix = "BANTER_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BANTER_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var validStemmers = map[StemmerType]bool{
	StemmerSuffix:   true,
	StemmerSnowball: true,
}

var validDrivers = map[string]bool{
	store.DriverMemory: true,
	store.DriverSQLite: true,
	store.DriverRedis:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if !validStemmers[c.Stemmer] {
		return fmt.Errorf("invalid stemmer %q: must be one of suffix, snowball", c.Stemmer)
	}

	m := c.Matching
	if m.MinSimilarity < 0 || m.MinSimilarity > 1 {
		return fmt.Errorf("matching.min_similarity must be within [0, 1]")
	}
	if m.Temperature < 0 || m.Temperature > 1 {
		return fmt.Errorf("matching.temperature must be within [0, 1]")
	}
	if m.PhoneticWeight < 0 {
		return fmt.Errorf("matching.phonetic_weight must be non-negative")
	}

	if _, err := parseDuration(c.Conversation.ResponseDelay); err != nil {
		return fmt.Errorf("conversation.response_delay: %w", err)
	}
	if c.Conversation.MemoryLimit <= 0 {
		return fmt.Errorf("conversation.memory_limit must be positive")
	}
	if c.Conversation.ContextCapacity <= 0 {
		return fmt.Errorf("conversation.context_capacity must be positive")
	}

	if !validDrivers[c.Store.Driver] {
		return fmt.Errorf("invalid store.driver %q: must be one of memory, sqlite, redis", c.Store.Driver)
	}
	if c.Store.Driver == store.DriverSQLite && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite driver")
	}
	if c.Store.Driver == store.DriverRedis && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for the redis driver")
	}
	if _, err := parseDuration(c.Store.Redis.TTL); err != nil {
		return fmt.Errorf("store.redis.ttl: %w", err)
	}

	if c.Remote.Enabled && c.Remote.Model == "" {
		return fmt.Errorf("remote.model is required when remote is enabled")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	return nil
}

// parseDuration accepts "" as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}
	return d, nil
}

// SlogLevel returns the configured log level, info when unrecognized.
func (c *Config) SlogLevel() slog.Level {
	if level, ok := validLogLevels[strings.ToLower(c.LogLevel)]; ok {
		return level
	}
	return slog.LevelInfo
}

// EngineConfig maps the file settings onto banter.DefaultConfig.
func (c *Config) EngineConfig() (banter.Config, error) {
	ec := banter.DefaultConfig()

	if c.Stemmer == StemmerSnowball {
		ec.Analyzer.Stemmer = banter.NewSnowballStemmer()
	}

	ec.Selector.MinSimilarity = c.Matching.MinSimilarity
	ec.Selector.Temperature = c.Matching.Temperature
	ec.Selector.UseRelevance = c.Matching.UseRelevance
	ec.Selector.UseContext = c.Matching.UseContext
	ec.Selector.Personalize = c.Matching.Personalize
	ec.Similarity.PhoneticWeight = c.Matching.PhoneticWeight

	delay, err := parseDuration(c.Conversation.ResponseDelay)
	if err != nil {
		return banter.Config{}, fmt.Errorf("conversation.response_delay: %w", err)
	}
	ec.ResponseDelay = delay
	ec.MemoryLimit = c.Conversation.MemoryLimit
	ec.Context.Capacity = c.Conversation.ContextCapacity

	return ec, nil
}

// BackendConfig returns the store.Open configuration.
func (c *Config) BackendConfig() (store.Config, error) {
	ttl, err := parseDuration(c.Store.Redis.TTL)
	if err != nil {
		return store.Config{}, fmt.Errorf("store.redis.ttl: %w", err)
	}
	return store.Config{
		Driver:    c.Store.Driver,
		Namespace: c.Store.Namespace,
		Path:      c.Store.Path,
		Redis: store.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
			TTL:      ttl,
		},
	}, nil
}

// GeneratorConfig returns the remote generator settings. The API key is read
// from the environment variable named by remote.api_key_env.
func (c *Config) GeneratorConfig() remote.Config {
	var apiKey string
	if c.Remote.APIKeyEnv != "" {
		apiKey = os.Getenv(c.Remote.APIKeyEnv)
	}
	return remote.Config{
		APIKey:  apiKey,
		BaseURL: c.Remote.BaseURL,
		Model:   c.Remote.Model,
	}
}
