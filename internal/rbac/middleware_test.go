package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

type fakeSource struct {
	perms map[int64][]string
}

func (f *fakeSource) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return f.perms[userID], nil
}

func callWith(t *testing.T, mw func(http.Handler) http.Handler, actor *shared.Actor) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAny(t *testing.T) {
	mw := Middleware{Source: &fakeSource{perms: map[int64][]string{
		1: {shared.PermInvoicesView},
		2: {shared.PermMasterDataView},
	}}}

	guard := mw.RequireAny(shared.PermInvoicesView, shared.PermInvoicesEdit)

	rec := callWith(t, guard, &shared.Actor{ID: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = callWith(t, guard, &shared.Actor{ID: 2})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = callWith(t, guard, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAll(t *testing.T) {
	mw := Middleware{Source: &fakeSource{perms: map[int64][]string{
		1: {shared.PermPaymentsCreate, shared.PermPaymentsVerify},
		2: {shared.PermPaymentsCreate},
	}}}

	guard := mw.RequireAll(shared.PermPaymentsCreate, shared.PermPaymentsVerify)

	rec := callWith(t, guard, &shared.Actor{ID: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = callWith(t, guard, &shared.Actor{ID: 2})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNoPermissionsPassesThrough(t *testing.T) {
	mw := Middleware{Source: &fakeSource{}}
	rec := callWith(t, mw.RequireAny(), &shared.Actor{ID: 9})
	require.Equal(t, http.StatusOK, rec.Code)
}
