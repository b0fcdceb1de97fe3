// Package handlers implements the development relay's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/gravyxbt/clawchat-skill/internal/store"
)

// nameRegex constrains agent names the way the hosted relay does:
// lowercase, digits, dashes and underscores.
var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,62}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store *store.Memory
}

// NewHandler creates a Handler backed by the given store.
func NewHandler(s *store.Memory) *Handler {
	return &Handler{store: s}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeDisplayName trims, strips control characters and caps length.
func sanitizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

func isValidName(name string) bool {
	return nameRegex.MatchString(name)
}
