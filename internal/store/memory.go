// Package store holds the development relay's state in memory. The
// relay is a routing surface, not a database: agents, rooms, and pending
// envelopes live for the lifetime of the process, and envelope payloads
// are stored verbatim — the relay never sees a secret key and has no
// decryption path.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravyxbt/clawchat-skill/internal/models"
)

// ErrNameTaken is returned when registering a duplicate agent name.
var ErrNameTaken = fmt.Errorf("agent name already registered")

// ErrNotMember is returned when posting to a room without joining it.
var ErrNotMember = fmt.Errorf("not a member of this room")

type agentRecord struct {
	profile   models.Agent
	tokenHash []byte
}

type roomRecord struct {
	room     models.Room
	members  map[string]bool
	messages []models.RoomMessage
}

// Memory is the in-memory relay store. All methods are safe for
// concurrent use.
type Memory struct {
	mu      sync.RWMutex
	agents  map[string]*agentRecord // by agent id
	names   map[string]string       // name -> agent id
	rooms   map[string]*roomRecord
	inboxes map[string][]models.Envelope
	archive []models.Envelope
}

// NewMemory returns an empty store seeded with the default lobby room.
func NewMemory() *Memory {
	m := &Memory{
		agents:  make(map[string]*agentRecord),
		names:   make(map[string]string),
		rooms:   make(map[string]*roomRecord),
		inboxes: make(map[string][]models.Envelope),
	}
	m.rooms["lobby"] = &roomRecord{
		room:    models.Room{Name: "lobby", Description: "general chat for all agents"},
		members: make(map[string]bool),
	}
	return m
}

// CreateAgent registers a new agent and mints its bearer token. Only a
// bcrypt hash of the token secret is retained.
func (m *Memory) CreateAgent(name, displayName, emoji, publicKey string) (models.Agent, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.names[name]; exists {
		return models.Agent{}, "", ErrNameTaken
	}

	id := uuid.NewString()
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return models.Agent{}, "", err
	}
	secretHex := hex.EncodeToString(secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(secretHex), bcrypt.DefaultCost)
	if err != nil {
		return models.Agent{}, "", err
	}

	agent := models.Agent{
		ID:          id,
		Name:        name,
		DisplayName: displayName,
		AvatarEmoji: emoji,
		PublicKey:   publicKey,
		Status:      "online",
		CreatedAt:   time.Now().UTC(),
	}
	m.agents[id] = &agentRecord{profile: agent, tokenHash: hash}
	m.names[name] = id

	// Token format: "<agent id>.<secret>" so authentication can find the
	// hash without scanning.
	return agent, id + "." + secretHex, nil
}

// Authenticate resolves a bearer token to its agent.
func (m *Memory) Authenticate(token string) (models.Agent, bool) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok {
		return models.Agent{}, false
	}

	m.mu.RLock()
	rec, exists := m.agents[id]
	m.mu.RUnlock()
	if !exists {
		return models.Agent{}, false
	}
	if bcrypt.CompareHashAndPassword(rec.tokenHash, []byte(secret)) != nil {
		return models.Agent{}, false
	}
	return rec.profile, true
}

// GetAgent finds a profile by agent id or name.
func (m *Memory) GetAgent(idOrName string) (models.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(idOrName)
}

func (m *Memory) lookupLocked(idOrName string) (models.Agent, bool) {
	if rec, ok := m.agents[idOrName]; ok {
		return rec.profile, true
	}
	if id, ok := m.names[idOrName]; ok {
		return m.agents[id].profile, true
	}
	return models.Agent{}, false
}

// SetStatus updates an agent's presence.
func (m *Memory) SetStatus(agentID, status, message string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.agents[agentID]
	if !ok {
		return false
	}
	rec.profile.Status = status
	rec.profile.StatusMessage = message
	return true
}

// Online lists agents not marked offline, sorted by name.
func (m *Memory) Online() []models.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Agent
	for _, rec := range m.agents {
		if rec.profile.Status != "offline" {
			out = append(out, rec.profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Search matches agents whose name or display name contains the query.
func (m *Memory) Search(query string) []models.Agent {
	query = strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Agent
	for _, rec := range m.agents {
		name := strings.ToLower(rec.profile.Name)
		display := strings.ToLower(rec.profile.DisplayName)
		if strings.Contains(name, query) || strings.Contains(display, query) {
			out = append(out, rec.profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Rooms lists all rooms with live member counts.
func (m *Memory) Rooms() []models.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Room, 0, len(m.rooms))
	for _, rec := range m.rooms {
		room := rec.room
		room.MemberCount = len(rec.members)
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// JoinRoom adds an agent to a room, creating the room on first join.
func (m *Memory) JoinRoom(room, agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.rooms[room]
	if !ok {
		rec = &roomRecord{
			room:    models.Room{Name: room},
			members: make(map[string]bool),
		}
		m.rooms[room] = rec
	}
	rec.members[agentID] = true
}

// LeaveRoom removes an agent from a room.
func (m *Memory) LeaveRoom(room, agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.rooms[room]; ok {
		delete(rec.members, agentID)
	}
}

// PostRoom appends a plaintext broadcast message. The sender must be a
// member.
func (m *Memory) PostRoom(room, fromID, body string) (models.RoomMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.rooms[room]
	if !ok || !rec.members[fromID] {
		return models.RoomMessage{}, ErrNotMember
	}

	msg := models.RoomMessage{
		ID:     ulid.Make().String(),
		Room:   room,
		From:   fromID,
		Body:   body,
		SentAt: time.Now().UnixMilli(),
	}
	rec.messages = append(rec.messages, msg)
	return msg, nil
}

// FetchRoom returns the most recent messages in a room, oldest first.
func (m *Memory) FetchRoom(room string, limit int) []models.RoomMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rooms[room]
	if !ok {
		return nil
	}
	msgs := rec.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.RoomMessage(nil), msgs...)
}

// SubmitEnvelope accepts a sealed envelope for delivery. The payload is
// stored exactly as received.
func (m *Memory) SubmitEnvelope(env models.Envelope) models.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	env.ID = ulid.Make().String()
	env.SentAt = time.Now().UnixMilli()
	m.inboxes[env.To] = append(m.inboxes[env.To], env)
	m.archive = append(m.archive, env)
	return env
}

// DrainInbox returns and clears an agent's pending envelopes.
func (m *Memory) DrainInbox(agentID string) []models.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.inboxes[agentID]
	delete(m.inboxes, agentID)
	return pending
}

// History returns the archived conversation between two agents, oldest
// first, capped at limit.
func (m *Memory) History(a, b string, limit int) []models.Envelope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Envelope
	for _, env := range m.archive {
		if (env.From == a && env.To == b) || (env.From == b && env.To == a) {
			out = append(out, env)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
