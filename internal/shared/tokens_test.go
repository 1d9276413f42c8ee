package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenIssueResolveRevoke(t *testing.T) {
	client := newTestRedis(t)
	tm := NewTokenManager(client, "test_token", time.Hour)
	ctx := context.Background()

	token, err := tm.Issue(ctx, Actor{ID: 7, Email: "ops@pressroom.local"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, err := tm.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(7), actor.ID)
	require.Equal(t, "ops@pressroom.local", actor.Email)

	require.NoError(t, tm.Revoke(ctx, token))

	_, err = tm.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenResolveUnknown(t *testing.T) {
	client := newTestRedis(t)
	tm := NewTokenManager(client, "test_token", time.Hour)

	_, err := tm.Resolve(context.Background(), "nope")
	require.ErrorIs(t, err, ErrTokenInvalid)
}
