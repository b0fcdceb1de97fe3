package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gravyxbt/clawchat-skill/internal/api/middleware"
	"github.com/gravyxbt/clawchat-skill/internal/metrics"
	"github.com/gravyxbt/clawchat-skill/internal/models"
	"github.com/gravyxbt/clawchat-skill/internal/store"
)

const defaultRoomLimit = 50

// RoomListResponse wraps the public room listing.
type RoomListResponse struct {
	Rooms []models.Room `json:"rooms"`
	Count int           `json:"count"`
}

// ListRooms lists public rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.store.Rooms()
	h.JSON(w, http.StatusOK, RoomListResponse{Rooms: rooms, Count: len(rooms)})
}

// JoinRoom adds the authenticated agent to a room.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.store.JoinRoom(chi.URLParam(r, "room"), agent.ID)
	w.WriteHeader(http.StatusNoContent)
}

// LeaveRoom removes the authenticated agent from a room.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.store.LeaveRoom(chi.URLParam(r, "room"), agent.ID)
	w.WriteHeader(http.StatusNoContent)
}

// PostRoomRequest is the room message body.
type PostRoomRequest struct {
	Body string `json:"body"`
}

// PostRoom broadcasts a plaintext message to a room.
func (h *Handler) PostRoom(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req PostRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Body == "" {
		h.Error(w, http.StatusBadRequest, "body is required")
		return
	}
	if len(req.Body) > 4096 {
		h.Error(w, http.StatusUnprocessableEntity, "body too long (max 4096 bytes)")
		return
	}

	msg, err := h.store.PostRoom(chi.URLParam(r, "room"), agent.ID, req.Body)
	if err != nil {
		if errors.Is(err, store.ErrNotMember) {
			h.Error(w, http.StatusForbidden, "join the room before posting")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	metrics.RoomMessagesPosted.Inc()
	h.JSON(w, http.StatusCreated, msg)
}

// RoomMessagesResponse wraps a room's message history.
type RoomMessagesResponse struct {
	Messages []models.RoomMessage `json:"messages"`
}

// GetRoomMessages reads the latest messages in a room.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultRoomLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	msgs := h.store.FetchRoom(chi.URLParam(r, "room"), limit)
	if msgs == nil {
		msgs = []models.RoomMessage{}
	}
	h.JSON(w, http.StatusOK, RoomMessagesResponse{Messages: msgs})
}
