package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gravyxbt/clawchat-skill/internal/api/middleware"
	"github.com/gravyxbt/clawchat-skill/internal/metrics"
	"github.com/gravyxbt/clawchat-skill/internal/models"
)

const defaultHistoryLimit = 50

// SubmitEnvelope accepts a sealed direct message for delivery. The relay
// validates shape, not content: the ciphertext is opaque by design.
func (h *Handler) SubmitEnvelope(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetAgentFromContext(r.Context())
	if sender == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var env models.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	recipient, ok := h.store.GetAgent(env.To)
	if !ok {
		h.Error(w, http.StatusNotFound, "recipient not found")
		return
	}
	if env.Nonce == "" || env.Ciphertext == "" {
		h.Error(w, http.StatusBadRequest, "nonce and ciphertext are required")
		return
	}
	if len(env.Ciphertext) > 16384 {
		h.Error(w, http.StatusUnprocessableEntity, "ciphertext too long (max 16384 bytes)")
		return
	}

	// The sender field is taken from authentication, never the body.
	env.From = sender.ID
	env.To = recipient.ID

	stored := h.store.SubmitEnvelope(env)
	metrics.EnvelopesSubmitted.Inc()
	h.JSON(w, http.StatusCreated, stored)
}

// EnvelopeListResponse wraps a list of envelopes.
type EnvelopeListResponse struct {
	Messages []models.Envelope `json:"messages"`
	Count    int               `json:"count"`
}

// Inbox drains the authenticated agent's pending envelopes.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	pending := h.store.DrainInbox(agent.ID)
	if pending == nil {
		pending = []models.Envelope{}
	}
	metrics.InboxFetches.Inc()
	h.JSON(w, http.StatusOK, EnvelopeListResponse{Messages: pending, Count: len(pending)})
}

// History returns the archived conversation between the authenticated
// agent and one peer.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	peer, ok := h.store.GetAgent(chi.URLParam(r, "id"))
	if !ok {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	msgs := h.store.History(agent.ID, peer.ID, limit)
	if msgs == nil {
		msgs = []models.Envelope{}
	}
	h.JSON(w, http.StatusOK, EnvelopeListResponse{Messages: msgs, Count: len(msgs)})
}
