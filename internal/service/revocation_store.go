package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore registra los jti vigentes por usuario y permite revocarlos
// en bloque (logout, refresh).
type RevocationStore interface {
	Store(jti, userID string, ttl time.Duration) error
	Exists(jti string) (bool, error)
	RevokeAllForUser(userID string) error
}

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

type memoryRevocationStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
}

func NewMemoryRevocationStore() RevocationStore {
	return &memoryRevocationStore{
		items: make(map[string]memoryEntry),
	}
}

func (s *memoryRevocationStore) Store(jti, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	s.items[jti] = memoryEntry{
		userID:    userID,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *memoryRevocationStore) Exists(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

func (s *memoryRevocationStore) RevokeAllForUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, entry := range s.items {
		if entry.userID == userID {
			delete(s.items, jti)
		}
	}
	return nil
}

type redisRevocationClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type redisRevocationStore struct {
	client     redisRevocationClient
	prefix     string
	userPrefix string
}

func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	if client == nil {
		return nil
	}
	return &redisRevocationStore{
		client:     client,
		prefix:     "auth:token:",
		userPrefix: "auth:user:",
	}
}

func (s *redisRevocationStore) Store(jti, userID string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+jti, userID, ttl).Err(); err != nil {
		return err
	}
	userKey := s.userPrefix + userID
	if err := s.client.SAdd(ctx, userKey, jti).Err(); err != nil {
		return err
	}
	// El set por usuario vive al menos tanto como su token más longevo.
	return s.client.Expire(ctx, userKey, ttl).Err()
}

func (s *redisRevocationStore) Exists(jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisRevocationStore) RevokeAllForUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	userKey := s.userPrefix + userID
	jtis, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, s.prefix+jti)
	}
	keys = append(keys, userKey)
	return s.client.Del(ctx, keys...).Err()
}
