package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRedisClient struct {
	hashes    map[string]map[string]string
	ttls      map[string]time.Duration
	errOnHGet bool
	errOnHSet bool
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockRedisClient) HGet(_ context.Context, key, field string) *redis.StringCmd {
	if m.errOnHGet {
		return redis.NewStringResult("", errors.New("error on HGet"))
	}

	value, ok := m.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(value, nil)
}

func (m *mockRedisClient) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if m.errOnHSet {
		return redis.NewIntResult(0, errors.New("error on HSet"))
	}

	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}

	for i := 0; i+1 < len(values); i += 2 {
		hash[values[i].(string)] = values[i+1].(string)
	}

	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (m *mockRedisClient) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.ttls[key] = expiration

	return redis.NewBoolResult(true, nil)
}

func Test_Store_SetGet(t *testing.T) {
	ctx := context.Background()
	rdb := newMockRedisClient()
	store := newStore(rdb, WithPrefix("test:"), WithTTL(time.Hour))

	session, err := store.Open(ctx, "abc")
	require.NoError(t, err)

	_, ok, err := session.Get(ctx, "tableview_events")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, session.Set(ctx, "tableview_events", "7b7d"))

	value, ok, err := session.Get(ctx, "tableview_events")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7b7d", value)

	assert.Equal(t, time.Hour, rdb.ttls["test:abc"])
	assert.Contains(t, rdb.hashes, "test:abc")
}

func Test_Store_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newStore(newMockRedisClient())

	a, err := store.Open(ctx, "a")
	require.NoError(t, err)
	b, err := store.Open(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "k", "1"))

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Store_NoTTL(t *testing.T) {
	ctx := context.Background()
	rdb := newMockRedisClient()
	store := newStore(rdb, WithTTL(0))

	session, err := store.Open(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, session.Set(ctx, "k", "1"))

	assert.Empty(t, rdb.ttls)
}

func Test_Store_Errors(t *testing.T) {
	ctx := context.Background()
	rdb := newMockRedisClient()
	store := newStore(rdb)

	_, err := store.Open(ctx, "")
	require.Error(t, err)

	session, err := store.Open(ctx, "a")
	require.NoError(t, err)

	rdb.errOnHGet = true
	_, _, err = session.Get(ctx, "k")
	require.Error(t, err)

	rdb.errOnHSet = true
	require.Error(t, session.Set(ctx, "k", "v"))
}
