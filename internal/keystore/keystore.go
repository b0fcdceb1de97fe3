// Package keystore caches peer public keys learned from the relay.
// Public keys are long-lived identity material, so entries are kept
// until explicitly invalidated — there is no TTL. Rotation handling is
// the caller's concern via Invalidate.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/gravyxbt/clawchat-skill/internal/crypto"
	"github.com/gravyxbt/clawchat-skill/internal/lockfile"
	"github.com/gravyxbt/clawchat-skill/internal/statefile"
)

const (
	cacheFile = "peers.json"
	lockName  = "peers.lock"
)

// ErrStorageCorrupt indicates the peer cache file cannot be parsed.
var ErrStorageCorrupt = errors.New("keystore: peer cache corrupt")

// Resolver looks a public key up at the relay. Implemented by the relay
// HTTP client; tests substitute fakes.
type Resolver interface {
	LookupPublicKey(ctx context.Context, agentID string) ([crypto.KeySize]byte, error)
}

// Entry records one cached lookup result. Caching a key implies nothing
// about trust.
type Entry struct {
	AgentID   string    `json:"agent_id"`
	PublicKey string    `json:"public_key"`
	FetchedAt time.Time `json:"fetched_at"`
}

type cacheState struct {
	Peers map[string]Entry `json:"peers"`
}

// PeerCache is the file-backed cache with relay fallback.
type PeerCache struct {
	dir      string
	resolver Resolver
}

// NewPeerCache returns a cache rooted at dir that falls back to resolver
// on a miss.
func NewPeerCache(dir string, resolver Resolver) *PeerCache {
	return &PeerCache{dir: dir, resolver: resolver}
}

// Path returns the location of the cache file.
func (c *PeerCache) Path() string {
	return filepath.Join(c.dir, cacheFile)
}

// Lookup returns the peer's public key, from cache if present, otherwise
// from the relay (recording the result). Relay errors — including peer
// not found — propagate unchanged.
func (c *PeerCache) Lookup(ctx context.Context, agentID string) ([crypto.KeySize]byte, error) {
	if key, ok, err := c.Cached(agentID); err != nil {
		return key, err
	} else if ok {
		return key, nil
	}

	key, err := c.resolver.LookupPublicKey(ctx, agentID)
	if err != nil {
		return key, err
	}
	if err := c.store(agentID, key); err != nil {
		return key, err
	}
	return key, nil
}

// Cached reports the cache entry for agentID without touching the relay.
func (c *PeerCache) Cached(agentID string) ([crypto.KeySize]byte, bool, error) {
	var key [crypto.KeySize]byte
	state, err := c.read()
	if err != nil {
		return key, false, err
	}
	entry, ok := state.Peers[agentID]
	if !ok {
		return key, false, nil
	}
	key, err = crypto.DecodeKey(entry.PublicKey)
	if err != nil {
		return key, false, fmt.Errorf("%w: entry for %s: %v", ErrStorageCorrupt, agentID, err)
	}
	return key, true, nil
}

// Invalidate drops the cached key for agentID so the next Lookup
// re-fetches. This is the key-rotation hook.
func (c *PeerCache) Invalidate(agentID string) error {
	lock, err := lockfile.Acquire(filepath.Join(c.dir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()

	state, err := c.read()
	if err != nil {
		return err
	}
	if _, ok := state.Peers[agentID]; !ok {
		return nil
	}
	delete(state.Peers, agentID)
	return statefile.WriteJSON(c.Path(), state, 0o600)
}

func (c *PeerCache) store(agentID string, key [crypto.KeySize]byte) error {
	lock, err := lockfile.Acquire(filepath.Join(c.dir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()

	state, err := c.read()
	if err != nil {
		return err
	}
	state.Peers[agentID] = Entry{
		AgentID:   agentID,
		PublicKey: crypto.EncodeKey(key),
		FetchedAt: time.Now().UTC(),
	}
	return statefile.WriteJSON(c.Path(), state, 0o600)
}

func (c *PeerCache) read() (cacheState, error) {
	state := cacheState{Peers: make(map[string]Entry)}
	if err := statefile.ReadJSON(c.Path(), &state); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if state.Peers == nil {
		state.Peers = make(map[string]Entry)
	}
	return state, nil
}
