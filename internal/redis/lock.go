package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards the critical section for one (professional, slot time) pair.
// The booking service runs its check-claim-insert sequence inside fn.
type Locker interface {
	WithSlotLock(ctx context.Context, professionalID uuid.UUID, slotTime time.Time, fn func(ctx context.Context) error) error
}

// slotLocker implements Locker with one Redis key per slot. The key holds a
// random token so only the goroutine that acquired the lock can release it.
type slotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &slotLocker{client: client, ttl: ttl}
}

func lockKey(professionalID uuid.UUID, slotTime time.Time) string {
	return fmt.Sprintf("lock:slot:%s:%d", professionalID, slotTime.Unix())
}

func (l *slotLocker) WithSlotLock(ctx context.Context, professionalID uuid.UUID, slotTime time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(professionalID, slotTime)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		return ErrLockNotAcquired
	}

	// Release must run even when the request context was cancelled mid-fn;
	// otherwise the slot stays locked until the TTL expires.
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	fnCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(fnCtx)
}

// releaseScript deletes the key only while we still own it, so a lock that
// expired and was re-acquired by another booker is never removed from under
// them.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *slotLocker) release(ctx context.Context, key, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
