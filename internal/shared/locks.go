package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InvoiceLockKey builds redis keys for billing critical sections.
func InvoiceLockKey(invoiceID int64) string {
	return fmt.Sprintf("billing:invoice:%d:lock", invoiceID)
}

// releaseScript deletes the lock only when still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InvoiceLock serializes payment acceptance per invoice through Redis.
type InvoiceLock struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewInvoiceLock constructs an InvoiceLock with sane defaults.
func NewInvoiceLock(client *redis.Client, ttl time.Duration) *InvoiceLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &InvoiceLock{client: client, ttl: ttl, retry: 50 * time.Millisecond}
}

// Acquire blocks until the per-invoice lock is held or ctx expires.
// The returned release func is safe to call once.
func (l *InvoiceLock) Acquire(ctx context.Context, invoiceID int64) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("invoice lock not initialised")
	}
	token, err := lockToken()
	if err != nil {
		return nil, err
	}
	key := InvoiceLockKey(invoiceID)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("invoice lock: %w", err)
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockNotAcquired
		case <-time.After(l.retry):
		}
	}
}

func lockToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
