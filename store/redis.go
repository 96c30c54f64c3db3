package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wizenheimer/banter"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string        // key prefix, default "banter"
	Namespace string        // conversation namespace, default DefaultNamespace
	TTL       time.Duration // expiry of stored records, 0 = no expiry
}

// Redis stores each record as one JSON value
//
// Keys are "{prefix}:{namespace}:memory" and "{prefix}:{namespace}:learned".
type Redis struct {
	client    redis.UniversalClient
	prefix    string
	namespace string
	ttl       time.Duration
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisFromClient(client, cfg), nil
}

// NewRedisFromClient wraps an existing client. Compatible with go-redis
// Client, ClusterClient and Ring.
func NewRedisFromClient(client redis.UniversalClient, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "banter"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	return &Redis{
		client:    client,
		prefix:    cfg.Prefix,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
	}
}

func (r *Redis) key(record string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, r.namespace, record)
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) load(ctx context.Context, record string, v any) error {
	val, err := r.client.Get(ctx, r.key(record)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("decoding %s: %w", record, err)
	}
	return nil
}

func (r *Redis) save(ctx context.Context, record string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", record, err)
	}
	if err := r.client.Set(ctx, r.key(record), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// LoadMemory returns the stored conversation; a missing key is empty.
func (r *Redis) LoadMemory(ctx context.Context) ([]banter.Message, error) {
	var messages []banter.Message
	if err := r.load(ctx, "memory", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveMemory replaces the stored conversation.
func (r *Redis) SaveMemory(ctx context.Context, messages []banter.Message) error {
	return r.save(ctx, "memory", messages)
}

// LoadLearned returns the stored learned entries; a missing key is empty.
func (r *Redis) LoadLearned(ctx context.Context) ([]banter.KnowledgeEntry, error) {
	var entries []banter.KnowledgeEntry
	if err := r.load(ctx, "learned", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveLearned replaces the stored learned entries.
func (r *Redis) SaveLearned(ctx context.Context, entries []banter.KnowledgeEntry) error {
	return r.save(ctx, "learned", entries)
}

// Compile-time interface check.
var _ banter.Store = (*Redis)(nil)
