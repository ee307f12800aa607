package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedResponse is a stored copy of a successful response.
type CachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Storage keeps cached responses grouped into named generations.
type Storage interface {
	Get(ctx context.Context, generation, key string) (CachedResponse, bool, error)
	Put(ctx context.Context, generation, key string, response CachedResponse) error
	Generations(ctx context.Context) ([]string, error)
	DeleteGeneration(ctx context.Context, generation string) error
}

// MemoryStorage is a process local Storage.
type MemoryStorage struct {
	mu          sync.RWMutex
	generations map[string]map[string]CachedResponse
}

// NewMemoryStorage constructs an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{generations: make(map[string]map[string]CachedResponse)}
}

func (s *MemoryStorage) Get(_ context.Context, generation, key string) (CachedResponse, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.generations[generation][key]
	return entry, ok, nil
}

func (s *MemoryStorage) Put(_ context.Context, generation, key string, response CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.generations[generation]
	if !ok {
		entries = make(map[string]CachedResponse)
		s.generations[generation] = entries
	}
	entries[key] = response
	return nil
}

func (s *MemoryStorage) Generations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.generations))
	for name := range s.generations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) DeleteGeneration(_ context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.generations, generation)
	return nil
}

// RedisStorage shares the cache between client processes on one device. Each
// generation is a hash and the set of generation names is tracked separately.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage constructs a Redis backed storage. prefix namespaces the keys.
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "offline"
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) generationKey(generation string) string {
	return fmt.Sprintf("%s:gen:%s", s.prefix, generation)
}

func (s *RedisStorage) indexKey() string {
	return s.prefix + ":generations"
}

func (s *RedisStorage) Get(ctx context.Context, generation, key string) (CachedResponse, bool, error) {
	raw, err := s.client.HGet(ctx, s.generationKey(generation), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedResponse{}, false, nil
	}
	if err != nil {
		return CachedResponse{}, false, err
	}

	var entry CachedResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return CachedResponse{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	return entry, true, nil
}

func (s *RedisStorage) Put(ctx context.Context, generation, key string, response CachedResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.indexKey(), generation)
	pipe.HSet(ctx, s.generationKey(generation), key, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStorage) Generations(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStorage) DeleteGeneration(ctx context.Context, generation string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.generationKey(generation))
	pipe.SRem(ctx, s.indexKey(), generation)
	_, err := pipe.Exec(ctx)
	return err
}
