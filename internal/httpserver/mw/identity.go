package mw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type userKey struct{}

// UserFrom returns the identity RequireUser stored on ctx.
func UserFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// WithUser returns ctx carrying id.
func WithUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// RequireUser rejects requests without an X-Marks-User header, and when
// apiKey is set, those whose X-Marks-Key does not match it.
func RequireUser(apiKey string, log logger.Logger) func(http.Handler) http.Handler {
	if apiKey == "" {
		log.Warn("RequireUser: no API key configured, trusting identity headers as-is")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" {
				got := r.Header.Get(api.HeaderKey)
				if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
					log.Debugf("RequireUser: bad key from %s", r.RemoteAddr)
					reject(w, http.StatusUnauthorized, "invalid api key")
					return
				}
			}

			user := strings.TrimSpace(r.Header.Get(api.HeaderUser))
			if user == "" {
				reject(w, http.StatusUnauthorized, "missing "+api.HeaderUser)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
