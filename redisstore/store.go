// Package redisstore keeps table sessions in Redis hashes, one hash per
// session id.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alp4ka/gotable"
)

const (
	DefaultPrefix = "gotable:session:"
	DefaultTTL    = 14 * 24 * time.Hour
)

type redisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix of the session hashes.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL sets how long an untouched session is kept. Zero keeps sessions
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// Store is a gotable.SessionStore backed by Redis.
type Store struct {
	rdb    redisClient
	prefix string
	ttl    time.Duration
}

func New(rdb redis.UniversalClient, opts ...Option) *Store {
	return newStore(rdb, opts...)
}

func newStore(rdb redisClient, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: DefaultPrefix, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open returns the session with the given id. Nothing is read until the
// first Get.
func (s *Store) Open(_ context.Context, id string) (gotable.Session, error) {
	if id == "" {
		return nil, errors.New("empty session id")
	}

	return &Session{store: s, key: s.prefix + id}, nil
}

// Session is one session hash.
type Session struct {
	store *Store
	key   string
}

// Get - implements gotable.Session.
func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.store.rdb.HGet(ctx, s.key, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("redis hget %s %s: %w", s.key, key, err)
	}

	return value, true, nil
}

// Set - implements gotable.Session. Every write renews the session TTL.
func (s *Session) Set(ctx context.Context, key, value string) error {
	if err := s.store.rdb.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s %s: %w", s.key, key, err)
	}

	if s.store.ttl <= 0 {
		return nil
	}

	if err := s.store.rdb.Expire(ctx, s.key, s.store.ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", s.key, err)
	}

	return nil
}

var (
	_ gotable.SessionStore = (*Store)(nil)
	_ gotable.Session      = (*Session)(nil)
)
