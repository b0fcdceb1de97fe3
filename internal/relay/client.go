// Package relay implements the HTTP client for the relay service: the
// remote collaborator that stores and forwards envelopes and room posts.
// The relay routes ciphertext by sender and recipient id; it never holds
// a secret key and nothing in this package ever transmits one.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gravyxbt/clawchat-skill/internal/crypto"
	"github.com/gravyxbt/clawchat-skill/internal/models"
)

// ErrPeerNotFound indicates the relay has no record of the requested
// agent (and therefore no published public key).
var ErrPeerNotFound = errors.New("relay: agent not found")

// ErrUnreachable wraps transport-level failures so callers can tell
// "relay down" apart from "relay said no".
var ErrUnreachable = errors.New("relay: unreachable")

// APIError is a rejection the relay itself produced.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Status, e.Message)
}

// Client talks to a relay over an authenticated HTTP session.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New returns a client for the relay at baseURL. The token may be empty
// for the registration call.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode relay response: %w", err)
		}
	}
	return nil
}

// RegisterResult is what the relay hands back for a new account.
type RegisterResult struct {
	Agent models.Agent `json:"agent"`
	Token string       `json:"token"`
}

// Register creates a new agent account. The public key travels up; the
// secret key stays home.
func (c *Client) Register(ctx context.Context, name, displayName, emoji, publicKey string) (*RegisterResult, error) {
	req := map[string]string{
		"name":         name,
		"display_name": displayName,
		"avatar_emoji": emoji,
		"public_key":   publicKey,
	}
	var out RegisterResult
	if err := c.do(ctx, http.MethodPost, "/agents/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the authenticated agent's profile.
func (c *Client) Me(ctx context.Context) (*models.Agent, error) {
	var out models.Agent
	if err := c.do(ctx, http.MethodGet, "/agents/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus sets presence and an optional status message.
func (c *Client) UpdateStatus(ctx context.Context, status, message string) error {
	req := map[string]string{"status": status}
	if message != "" {
		req["status_message"] = message
	}
	return c.do(ctx, http.MethodPatch, "/agents/me/status", req, nil)
}

// Online lists agents currently online.
func (c *Client) Online(ctx context.Context) ([]models.Agent, error) {
	var out struct {
		Agents []models.Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/agents/online", nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// GetAgent fetches a profile by agent id or name. A 404 maps to
// ErrPeerNotFound.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	var out models.Agent
	err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(agentID), nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrPeerNotFound, agentID)
		}
		return nil, err
	}
	return &out, nil
}

// LookupPublicKey resolves an agent's published encryption key. This is
// the keystore's resolver.
func (c *Client) LookupPublicKey(ctx context.Context, agentID string) ([crypto.KeySize]byte, error) {
	var key [crypto.KeySize]byte
	agent, err := c.GetAgent(ctx, agentID)
	if err != nil {
		return key, err
	}
	if agent.PublicKey == "" {
		return key, fmt.Errorf("%w: %s has no published key", ErrPeerNotFound, agentID)
	}
	return crypto.DecodeKey(agent.PublicKey)
}

// Search finds agents matching a query.
func (c *Client) Search(ctx context.Context, query string) ([]models.Agent, error) {
	var out struct {
		Agents []models.Agent `json:"agents"`
	}
	path := "/agents/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// Rooms lists public rooms.
func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	var out struct {
		Rooms []models.Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// JoinRoom adds the agent to a room's membership.
func (c *Client) JoinRoom(ctx context.Context, room string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(room)+"/join", nil, nil)
}

// LeaveRoom removes the agent from a room.
func (c *Client) LeaveRoom(ctx context.Context, room string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(room)+"/leave", nil, nil)
}

// PostRoom broadcasts a plaintext message to a room.
func (c *Client) PostRoom(ctx context.Context, room, body string) (*models.RoomMessage, error) {
	var out models.RoomMessage
	err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(room)+"/messages", map[string]string{"body": body}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchRoom reads the latest messages in a room.
func (c *Client) FetchRoom(ctx context.Context, room string, limit int) ([]models.RoomMessage, error) {
	var out struct {
		Messages []models.RoomMessage `json:"messages"`
	}
	path := "/rooms/" + url.PathEscape(room) + "/messages?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SubmitEnvelope hands a sealed envelope to the relay for delivery.
func (c *Client) SubmitEnvelope(ctx context.Context, env models.Envelope) (*models.Envelope, error) {
	var out models.Envelope
	if err := c.do(ctx, http.MethodPost, "/messages/send", env, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchInbox retrieves and drains the agent's pending envelopes.
func (c *Client) FetchInbox(ctx context.Context) ([]models.Envelope, error) {
	var out struct {
		Messages []models.Envelope `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/inbox", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// FetchHistory returns the stored conversation with one agent, newest
// first.
func (c *Client) FetchHistory(ctx context.Context, agentID string, limit int) ([]models.Envelope, error) {
	var out struct {
		Messages []models.Envelope `json:"messages"`
	}
	path := "/messages/history/" + url.PathEscape(agentID) + "?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}
