package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

type memRepo struct {
	users map[string]*User
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memRepo) TouchLastLogin(_ context.Context, _ int64) error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &memRepo{users: map[string]*User{
		"ops@pressroom.example": {
			ID:           1,
			Email:        "ops@pressroom.example",
			Name:         "Ops",
			PasswordHash: string(hash),
			IsActive:     true,
		},
		"gone@pressroom.example": {
			ID:           2,
			Email:        "gone@pressroom.example",
			PasswordHash: string(hash),
			IsActive:     false,
		},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := shared.NewTokenManager(client, "test_token", time.Minute)
	return NewService(repo, tokens)
}

func TestLoginIssuesToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "OPS@pressroom.example ", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(1), user.ID)

	actor, err := svc.ResolveToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(1), actor.ID)
	require.Equal(t, "ops@pressroom.example", actor.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "ops@pressroom.example", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@pressroom.example", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "gone@pressroom.example", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "ops@pressroom.example", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.ResolveToken(ctx, token)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestMiddlewareResolvesActor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "ops@pressroom.example", "secret123")
	require.NoError(t, err)

	var seen *shared.Actor
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := shared.ActorFromContext(r.Context()); ok {
			seen = actor
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	require.Equal(t, int64(1), seen.ID)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Nil(t, seen)
}
