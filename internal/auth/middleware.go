package auth

import (
	"net/http"
	"strings"

	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// Middleware resolves the Authorization bearer token into an Actor in the
// request context. Requests without a valid token pass through without an
// actor; route guards decide whether that is acceptable.
func Middleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				if actor, err := service.ResolveToken(r.Context(), token); err == nil {
					r = r.WithContext(shared.ContextWithActor(r.Context(), actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
