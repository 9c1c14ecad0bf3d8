package services

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCodeStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	phone := "+15551234567"

	ok, err := store.Consume(ctx, phone, "111111")
	require.NoError(t, err)
	assert.False(t, ok, "unknown phone has no code")

	require.NoError(t, store.Put(ctx, phone, "111111", VerificationCodeTTL))
	require.NoError(t, store.Put(ctx, phone, "222222", VerificationCodeTTL))

	ok, err = store.Consume(ctx, phone, "111111")
	require.NoError(t, err)
	assert.False(t, ok, "a new code replaces the previous one")

	ok, err = store.Consume(ctx, phone, "222222")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, phone, "222222")
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")

	require.NoError(t, store.Put(ctx, phone, "333333", VerificationCodeTTL))
	now = now.Add(VerificationCodeTTL)
	ok, err = store.Consume(ctx, phone, "333333")
	require.NoError(t, err)
	assert.False(t, ok, "code expires after the TTL")
}

func TestMemoryCodeStore_AttemptLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	phone := "+15550000000"

	require.NoError(t, store.Put(ctx, phone, "123456", time.Minute))
	for i := 0; i < MaxCodeAttempts-1; i++ {
		ok, err := store.Consume(ctx, phone, "000000")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := store.Consume(ctx, phone, "123456")
	require.NoError(t, err)
	assert.True(t, ok, "code survives fewer than MaxCodeAttempts misses")

	require.NoError(t, store.Put(ctx, phone, "654321", time.Minute))
	for i := 0; i < MaxCodeAttempts; i++ {
		_, err := store.Consume(ctx, phone, "000000")
		require.NoError(t, err)
	}
	ok, err = store.Consume(ctx, phone, "654321")
	require.NoError(t, err)
	assert.False(t, ok, "code is discarded after MaxCodeAttempts misses")

	require.NoError(t, store.Put(ctx, phone, "777777", time.Minute))
	ok, err = store.Consume(ctx, phone, "777777")
	require.NoError(t, err)
	assert.True(t, ok, "a fresh code resets the attempt counter")
}

func TestMemoryCodeStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	phone := "+15557770000"
	require.NoError(t, store.Put(ctx, phone, "424242", time.Minute))

	var (
		wg      sync.WaitGroup
		matched atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(ctx, phone, "424242")
			assert.NoError(t, err)
			if ok {
				matched.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), matched.Load())
}

// TestRedisCodeStore runs against a live server when REDIS_URL is set
func TestRedisCodeStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	store, err := NewRedisCodeStoreFromURL(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	phone := "+15559990000"
	require.NoError(t, store.Put(ctx, phone, "654321", time.Minute))

	ok, err := store.Consume(ctx, phone, "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(ctx, phone, "654321")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, phone, "654321")
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")

	require.NoError(t, store.Put(ctx, phone, "111111", time.Minute))
	for i := 0; i < MaxCodeAttempts; i++ {
		_, err := store.Consume(ctx, phone, "999999")
		require.NoError(t, err)
	}
	ok, err = store.Consume(ctx, phone, "111111")
	require.NoError(t, err)
	assert.False(t, ok, "code is discarded after MaxCodeAttempts misses")
}

func TestNewRedisCodeStoreFromURL_InvalidURL(t *testing.T) {
	_, err := NewRedisCodeStoreFromURL(context.Background(), "not-a-url")
	assert.Error(t, err)
}
