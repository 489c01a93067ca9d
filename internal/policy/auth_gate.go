package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/internal/models"
	"gorm.io/gorm"
)

// AuthGate holds the configured HybridGate with caching.
// Use this as a central authorization point in your application.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate creates the gate used by the HTTP layer: profiles are read
// through a TTL cache, and users may view and update their own account.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewAccountResolver(db), cacheTTL)
	g := gate.NewHybridGate[uint](cached)
	g.Grant(ResourceAccount, NewSelfPolicy())
	return &AuthGate{Gate: g, CacheResolver: cached}
}

// Authorize checks if the current user can perform an action on a resource.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// CanProfile checks only profile permissions (no policy check).
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, userID, action, resourceType)
}

// IsAdmin reports whether the current user holds "*:*".
func (ag *AuthGate) IsAdmin(ctx context.Context) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.HasPermission(ctx, userID, gate.PermissionSuperAdmin)
}

// InvalidateUser clears the cache for a specific user.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// InvalidateAll clears the entire profile cache.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// WriteError maps a gate error to a 401 or 403 JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gate.ErrUnauthorized) {
		w.Header().Set("WWW-Authenticate", auth.SchemeToken)
		httpx.LocalizedError(w, r, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.LocalizedError(w, r, http.StatusForbidden, "forbidden", nil)
}

// RequirePermission returns middleware that checks profile permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				WriteError(w, r, gate.ErrUnauthorized)
				return
			}
			if !ag.CanProfile(r.Context(), action, resourceType) {
				WriteError(w, r, gate.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware that only allows "*:*" holders.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				WriteError(w, r, gate.ErrUnauthorized)
				return
			}
			if !ag.IsAdmin(r.Context()) {
				WriteError(w, r, gate.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActiveUserVerifier accepts tokens only for existing, active, non-deleted
// users whose token version still matches the one the token was issued with.
func ActiveUserVerifier(db *gorm.DB) auth.UserVerifier {
	return func(ctx context.Context, uid, version uint) bool {
		var user models.User
		if err := db.WithContext(ctx).Select("id", "is_active", "is_deleted", "token_version").First(&user, uid).Error; err != nil {
			return false
		}
		return user.IsActiveAccount() && user.TokenVersion == version
	}
}
