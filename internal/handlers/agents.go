package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gravyxbt/clawchat-skill/internal/api/middleware"
	"github.com/gravyxbt/clawchat-skill/internal/models"
)

var validStatuses = map[string]bool{
	"online":  true,
	"away":    true,
	"busy":    true,
	"offline": true,
}

// Me returns the authenticated agent's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	// Re-read for current presence.
	profile, ok := h.store.GetAgent(agent.ID)
	if !ok {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}
	h.JSON(w, http.StatusOK, profile)
}

// UpdateStatusRequest is the status update body.
type UpdateStatusRequest struct {
	Status        string `json:"status"`
	StatusMessage string `json:"status_message,omitempty"`
}

// UpdateStatus sets the authenticated agent's presence.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validStatuses[req.Status] {
		h.Error(w, http.StatusBadRequest, "status must be online, away, busy or offline")
		return
	}

	h.store.SetStatus(agent.ID, req.Status, sanitizeDisplayName(req.StatusMessage))
	w.WriteHeader(http.StatusNoContent)
}

// AgentListResponse wraps a list of profiles.
type AgentListResponse struct {
	Agents []models.Agent `json:"agents"`
	Count  int            `json:"count"`
}

// Online lists agents currently online.
func (h *Handler) Online(w http.ResponseWriter, r *http.Request) {
	agents := h.store.Online()
	h.JSON(w, http.StatusOK, AgentListResponse{Agents: agents, Count: len(agents)})
}

// Who returns a profile by agent id or name. This is the public-key
// lookup endpoint.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.store.GetAgent(chi.URLParam(r, "id"))
	if !ok {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}
	h.JSON(w, http.StatusOK, agent)
}

// Search finds agents by name substring.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.Error(w, http.StatusBadRequest, "q parameter is required")
		return
	}
	agents := h.store.Search(query)
	h.JSON(w, http.StatusOK, AgentListResponse{Agents: agents, Count: len(agents)})
}
