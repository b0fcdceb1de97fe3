package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gravyxbt/clawchat-skill/internal/metrics"
	"github.com/gravyxbt/clawchat-skill/internal/models"
	"github.com/gravyxbt/clawchat-skill/internal/store"
)

// RegisterRequest is the request body for agent registration.
type RegisterRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarEmoji string `json:"avatar_emoji,omitempty"`
	PublicKey   string `json:"public_key"`
}

// RegisterResponse returns the new profile and its bearer token. The
// token is shown exactly once; the relay keeps only a hash.
type RegisterResponse struct {
	Agent models.Agent `json:"agent"`
	Token string       `json:"token"`
}

// Register handles new agent registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !isValidName(req.Name) {
		h.Error(w, http.StatusBadRequest, "name must be lowercase alphanumeric, 2-63 characters")
		return
	}
	if !isValidPublicKey(req.PublicKey) {
		h.Error(w, http.StatusBadRequest, "public_key must be 32 bytes, base64 encoded")
		return
	}

	display := sanitizeDisplayName(req.DisplayName)
	if display == "" {
		display = req.Name
	}
	emoji := req.AvatarEmoji
	if emoji == "" {
		emoji = "🤖"
	}

	agent, token, err := h.store.CreateAgent(req.Name, display, emoji, req.PublicKey)
	if err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			h.Error(w, http.StatusConflict, "name already registered")
			return
		}
		h.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	metrics.AgentsRegistered.Inc()
	h.JSON(w, http.StatusCreated, RegisterResponse{Agent: agent, Token: token})
}

func isValidPublicKey(key string) bool {
	raw, err := base64.StdEncoding.DecodeString(key)
	return err == nil && len(raw) == 32
}
