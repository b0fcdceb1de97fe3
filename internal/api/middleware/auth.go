package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gravyxbt/clawchat-skill/internal/models"
	"github.com/gravyxbt/clawchat-skill/internal/store"
)

type contextKey string

const agentContextKey contextKey = "agent"

// AuthMiddleware verifies bearer tokens for authenticated endpoints.
type AuthMiddleware struct {
	store *store.Memory
}

// NewAuthMiddleware creates an auth middleware backed by the store.
func NewAuthMiddleware(s *store.Memory) *AuthMiddleware {
	return &AuthMiddleware{store: s}
}

// RequireAuth rejects requests without a valid Authorization header and
// attaches the authenticated agent to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			jsonError(w, http.StatusUnauthorized, "bearer token required")
			return
		}

		agent, ok := m.store.Authenticate(token)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), agentContextKey, &agent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAgentFromContext retrieves the authenticated agent from the request
// context, or nil for unauthenticated requests.
func GetAgentFromContext(ctx context.Context) *models.Agent {
	agent, ok := ctx.Value(agentContextKey).(*models.Agent)
	if !ok {
		return nil
	}
	return agent
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
