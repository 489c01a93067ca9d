package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/pipoca/httpx"
)

type ctxKey string

const userIDCtxKey = ctxKey("userID")

// Authorization header schemes accepted by Middleware.
const (
	SchemeToken  = "Token"
	SchemeBearer = "Bearer"
)

// UserVerifier validates that a token's user still exists, may authenticate
// and has not revoked tokens of that version.
// If nil, no extra verification is performed.
type UserVerifier func(ctx context.Context, uid, version uint) bool

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// TokenFromRequest extracts the raw token from "Authorization: Token <t>" or
// "Authorization: Bearer <t>".
func TokenFromRequest(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	if !strings.EqualFold(scheme, SchemeToken) && !strings.EqualFold(scheme, SchemeBearer) {
		return "", false
	}
	return token, true
}

// Middleware attaches the user id to the request context when a valid token
// for a verified user is present. Requests without a usable token pass through
// anonymously; RequireAuth decides whether that is acceptable.
func Middleware(tokens *Tokens, verify UserVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := TokenFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				httpx.LocalizedError(w, r, http.StatusUnauthorized, "invalid_token", nil)
				return
			}
			uid, _ := claims.UserID()
			if verify != nil && !verify(r.Context(), uid, claims.Version) {
				httpx.LocalizedError(w, r, http.StatusUnauthorized, "invalid_token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// RequireAuth rejects anonymous requests with a 401 JSON error.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", SchemeToken)
			httpx.LocalizedError(w, r, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
