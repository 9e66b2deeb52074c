package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"event-checkout-platform/internal/models"
	"event-checkout-platform/internal/services"

	"github.com/gorilla/sessions"
)

type contextKey string

const (
	// UserContextKey is where the authenticated purchaser lives in the
	// request context
	UserContextKey contextKey = "user"
)

// AuthMiddleware resolves the browser session to a purchaser via the
// auth collaborator
type AuthMiddleware struct {
	authService services.AuthServiceInterface
	store       sessions.Store
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService services.AuthServiceInterface, store sessions.Store) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		store:       store,
	}
}

// LoadUser loads the current user from the session token, if any, and
// adds it to the request context. Requests without a valid session
// continue anonymously; the checkout gates decide what needs auth.
func (m *AuthMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, "session")
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := session.Values["auth_token"].(string)
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.authService.ValidateSession(token)
		if err != nil {
			// Invalid or expired token, clear it.
			delete(session.Values, "auth_token")
			session.Save(r, w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth refuses unauthenticated requests
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext returns the purchaser attached to the request, or
// nil for anonymous requests
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
