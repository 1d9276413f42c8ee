package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestInvoiceLockAcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	lock := NewInvoiceLock(client, time.Second)

	release, err := lock.Acquire(context.Background(), 42)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(ctx, 42)
	require.ErrorIs(t, err, ErrLockNotAcquired)

	release()

	release2, err := lock.Acquire(context.Background(), 42)
	require.NoError(t, err)
	release2()
}

func TestInvoiceLockIsPerInvoice(t *testing.T) {
	client := newTestRedis(t)
	lock := NewInvoiceLock(client, time.Second)

	release1, err := lock.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer release1()

	release2, err := lock.Acquire(context.Background(), 2)
	require.NoError(t, err)
	defer release2()
}
