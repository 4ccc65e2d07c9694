package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrimitra/agrimitra-backend/internal/models"
	"github.com/agrimitra/agrimitra-backend/internal/repository"
	"github.com/agrimitra/agrimitra-backend/internal/services"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// UserFrom returns the user attached by RequireAuth or OptionalAuth.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// resolveUser validates the bearer token on the request and loads the
// matching user. Expired, malformed, and forged tokens all fail the
// same way, as does a token whose user no longer exists.
func resolveUser(r *http.Request, tokens *services.TokenService, repo repository.UserRepository) (*models.User, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return nil, false
	}

	userID, err := tokens.Validate(tokenString)
	if err != nil {
		return nil, false
	}
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	user, err := repo.FindByID(r.Context(), objectID)
	if err != nil {
		return nil, false
	}
	return user, true
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the resolved user to the request context.
func RequireAuth(tokens *services.TokenService, repo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := resolveUser(r, tokens, repo)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
		})
	}
}

// OptionalAuth attaches the user when a valid bearer token is present
// and passes the request through untouched otherwise. Used by the setup
// endpoint, which also accepts a username in the body.
func OptionalAuth(tokens *services.TokenService, repo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := resolveUser(r, tokens, repo); ok {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
