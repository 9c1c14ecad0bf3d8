package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerificationCodeTTL is how long an SMS code stays valid
const VerificationCodeTTL = 5 * time.Minute

// MaxCodeAttempts is how many wrong guesses a code survives before it is discarded
const MaxCodeAttempts = 5

// CodeStore keeps the last verification code issued per phone number
type CodeStore interface {
	// Put stores code for phone, replacing any previous one and its failed attempts
	Put(ctx context.Context, phone, code string, ttl time.Duration) error
	// Consume atomically checks code against the live code for phone. A match deletes
	// the code; a miss counts as a failed attempt and the code is dropped after
	// MaxCodeAttempts misses.
	Consume(ctx context.Context, phone, code string) (ok bool, err error)
}

type memoryCode struct {
	code      string
	attempts  int
	expiresAt time.Time
}

// MemoryCodeStore is the in-process CodeStore used when Redis is not configured
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*memoryCode
	now   func() time.Time
}

// NewMemoryCodeStore creates an empty in-memory code store
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{
		codes: make(map[string]*memoryCode),
		now:   time.Now,
	}
}

// SetClock overrides the time source (for testing expiry)
func (s *MemoryCodeStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryCodeStore) Put(_ context.Context, phone, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = &memoryCode{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Consume(_ context.Context, phone, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[phone]
	if !ok {
		return false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.codes, phone)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) == 1 {
		delete(s.codes, phone)
		return true, nil
	}

	entry.attempts++
	if entry.attempts >= MaxCodeAttempts {
		delete(s.codes, phone)
	}
	return false, nil
}

// RedisCodeStore keeps codes in Redis so every API instance sees the same state
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore wraps an existing client
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client, prefix: "sms_code:"}
}

// NewRedisCodeStoreFromURL parses a redis:// URL and verifies the connection
func NewRedisCodeStoreFromURL(ctx context.Context, url string) (*RedisCodeStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCodeStore(client), nil
}

func (s *RedisCodeStore) key(phone string) string {
	return s.prefix + phone
}

func (s *RedisCodeStore) Put(ctx context.Context, phone, code string, ttl time.Duration) error {
	key := s.key(phone)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", code, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// consumeScript compares and deletes in one round trip so a code can be used once
var consumeScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
	return 0
end
if code == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if attempts >= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
end
return 0
`)

func (s *RedisCodeStore) Consume(ctx context.Context, phone, code string) (bool, error) {
	matched, err := consumeScript.Run(ctx, s.client, []string{s.key(phone)}, code, MaxCodeAttempts).Int()
	if err != nil {
		return false, err
	}
	return matched == 1, nil
}

// Close releases the underlying client
func (s *RedisCodeStore) Close() error {
	return s.client.Close()
}
