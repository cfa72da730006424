package shared

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CacheStore backs the response cache. The memory store is the default;
// the redis store lets multiple instances share cached responses.
type CacheStore interface {
	Get(ctx context.Context, key string) (CachedResponse, bool)
	Set(ctx context.Context, key string, value CachedResponse, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Keys(ctx context.Context) []string
	Flush(ctx context.Context)
	Len(ctx context.Context) int
}

type MemoryCacheStore struct {
	cache *cache.Cache
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *MemoryCacheStore) Get(ctx context.Context, key string) (CachedResponse, bool) {
	value, found := s.cache.Get(key)

	if !found {
		return CachedResponse{}, false
	}

	cached, ok := value.(CachedResponse)

	return cached, ok
}

func (s *MemoryCacheStore) Set(ctx context.Context, key string, value CachedResponse, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

func (s *MemoryCacheStore) Delete(ctx context.Context, key string) {
	s.cache.Delete(key)
}

func (s *MemoryCacheStore) Keys(ctx context.Context) []string {
	items := s.cache.Items()

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}

	return keys
}

func (s *MemoryCacheStore) Flush(ctx context.Context) {
	s.cache.Flush()
}

func (s *MemoryCacheStore) Len(ctx context.Context) int {
	return s.cache.ItemCount()
}

type RedisCacheStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCacheStore(redisURL string) (*RedisCacheStore, error) {
	opts, err := redis.ParseURL(redisURL)

	if err != nil {
		return nil, err
	}

	return &RedisCacheStore{
		client: redis.NewClient(opts),
		prefix: "response_cache:",
	}, nil
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) (CachedResponse, bool) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()

	if err != nil {
		return CachedResponse{}, false
	}

	var cached CachedResponse

	if err := json.Unmarshal(raw, &cached); err != nil {
		return CachedResponse{}, false
	}

	return cached, true
}

func (s *RedisCacheStore) Set(ctx context.Context, key string, value CachedResponse, ttl time.Duration) {
	raw, err := json.Marshal(value)

	if err != nil {
		return
	}

	s.client.Set(ctx, s.prefix+key, raw, ttl)
}

func (s *RedisCacheStore) Delete(ctx context.Context, key string) {
	s.client.Del(ctx, s.prefix+key)
}

func (s *RedisCacheStore) Keys(ctx context.Context) []string {
	raw, err := s.client.Keys(ctx, s.prefix+"*").Result()

	if err != nil {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		keys = append(keys, key[len(s.prefix):])
	}

	return keys
}

func (s *RedisCacheStore) Flush(ctx context.Context) {
	for _, key := range s.Keys(ctx) {
		s.Delete(ctx, key)
	}
}

func (s *RedisCacheStore) Len(ctx context.Context) int {
	return len(s.Keys(ctx))
}
