package config

// StemmerType selects the token stemmer.
type StemmerType string

const (
	StemmerSuffix   StemmerType = "suffix"
	StemmerSnowball StemmerType = "snowball"
)

// Config is the top-level banter configuration, corresponding to banter.yml.
type Config struct {
	LogLevel      string             `yaml:"log_level" koanf:"log_level"`
	KnowledgeFile string             `yaml:"knowledge_file" koanf:"knowledge_file"`
	Stemmer       StemmerType        `yaml:"stemmer" koanf:"stemmer"`
	Matching      MatchingConfig     `yaml:"matching" koanf:"matching"`
	Conversation  ConversationConfig `yaml:"conversation" koanf:"conversation"`
	Store         StoreConfig        `yaml:"store" koanf:"store"`
	Remote        RemoteConfig       `yaml:"remote" koanf:"remote"`
	Server        ServerConfig       `yaml:"server" koanf:"server"`
}

// MatchingConfig tunes how replies are chosen.
type MatchingConfig struct {
	MinSimilarity  float64 `yaml:"min_similarity" koanf:"min_similarity"`
	Temperature    float64 `yaml:"temperature" koanf:"temperature"`
	UseRelevance   bool    `yaml:"use_relevance" koanf:"use_relevance"`
	UseContext     bool    `yaml:"use_context" koanf:"use_context"`
	Personalize    bool    `yaml:"personalize" koanf:"personalize"`
	PhoneticWeight float64 `yaml:"phonetic_weight" koanf:"phonetic_weight"`
}

// ConversationConfig holds session limits.
type ConversationConfig struct {
	ResponseDelay   string `yaml:"response_delay" koanf:"response_delay"`
	MemoryLimit     int    `yaml:"memory_limit" koanf:"memory_limit"`
	ContextCapacity int    `yaml:"context_capacity" koanf:"context_capacity"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver    string      `yaml:"driver" koanf:"driver"`
	Namespace string      `yaml:"namespace" koanf:"namespace"`
	Path      string      `yaml:"path" koanf:"path"`
	Redis     RedisConfig `yaml:"redis" koanf:"redis"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
	Prefix   string `yaml:"prefix" koanf:"prefix"`
	TTL      string `yaml:"ttl" koanf:"ttl"`
}

// RemoteConfig enables an OpenAI-compatible generator in front of the local
// rules.
type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled" koanf:"enabled"`
	BaseURL   string `yaml:"base_url" koanf:"base_url"`
	Model     string `yaml:"model" koanf:"model"`
	APIKeyEnv string `yaml:"api_key_env" koanf:"api_key_env"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
