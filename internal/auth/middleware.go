package auth

import (
	"context"
	"net/http"
	"strings"

	"preventivo/internal/httpx"
)

type ctxKey string

const userIDCtxKey = ctxKey("userID")

// UserVerifier checks that a token's user still exists/is allowed.
// Wired to a DB lookup during app bootstrap.
type UserVerifier func(ctx context.Context, uid uint) bool

// WithUserID stores the user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(userIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// Middleware parses the Authorization: Bearer header and, when the token is
// valid and the user passes the verifier, attaches the user id to the request
// context. Requests without a token pass through unauthenticated; RequireAuth
// decides whether that is acceptable.
func Middleware(secret []byte, verify UserVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			uid, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil || uid == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if verify != nil && !verify(r.Context(), uid) {
				// Token refers to a deleted/disabled user.
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// RequireAuth rejects requests that did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusForbidden, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
