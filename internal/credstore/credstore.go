// Package credstore owns the agent's local identity: who it is on the
// relay and the key pair it encrypts with. Everything lives in a single
// credentials.json with restrictive permissions; writes are atomic and
// serialized by an advisory lock so concurrent invocations never tear
// the file. A malformed file is an error, never a silent fresh identity.
package credstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gravyxbt/clawchat-skill/internal/crypto"
	"github.com/gravyxbt/clawchat-skill/internal/lockfile"
	"github.com/gravyxbt/clawchat-skill/internal/statefile"
)

const (
	credentialsFile = "credentials.json"
	lockName        = "credentials.lock"
)

var (
	// ErrNotRegistered indicates no local identity exists; the agent must
	// run registration first.
	ErrNotRegistered = errors.New("credstore: not registered")

	// ErrStorageCorrupt indicates the credential file exists but cannot be
	// parsed. Recovering by resetting the identity is deliberately not an
	// option: an agent must never start operating as someone it isn't.
	ErrStorageCorrupt = errors.New("credstore: credential file corrupt")
)

// Identity is the account half of the credential record.
type Identity struct {
	Server      string `json:"server"`
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Token       string `json:"token"`
}

// record is the on-disk shape. Unknown fields are ignored on load so
// newer clients can extend the schema without breaking older ones.
type record struct {
	Identity
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// Store persists the credential record under a config directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir. The directory is created on first
// save, not here.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the location of the credential file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, credentialsFile)
}

// Save atomically writes the identity and key pair. The file is created
// with 0600 and replaced via temp-file-then-rename so a crash mid-write
// leaves the previous state intact.
func (s *Store) Save(id Identity, kp crypto.KeyPair) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	lock, err := lockfile.Acquire(filepath.Join(s.dir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()

	rec := record{
		Identity:  id,
		PublicKey: crypto.EncodeKey(kp.Public),
		SecretKey: crypto.EncodeKey(kp.Secret),
	}
	return statefile.WriteJSON(s.Path(), rec, 0o600)
}

// Load reads the credential record. A missing file yields
// ErrNotRegistered; anything unparseable yields ErrStorageCorrupt.
func (s *Store) Load() (Identity, crypto.KeyPair, error) {
	lock, err := lockfile.Acquire(filepath.Join(s.dir, lockName))
	if err != nil {
		return Identity{}, crypto.KeyPair{}, err
	}
	defer lock.Release()

	var rec record
	if err := statefile.ReadJSON(s.Path(), &rec); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Identity{}, crypto.KeyPair{}, ErrNotRegistered
		}
		return Identity{}, crypto.KeyPair{}, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}

	if rec.AgentID == "" || rec.Token == "" {
		return Identity{}, crypto.KeyPair{}, fmt.Errorf("%w: missing identity fields", ErrStorageCorrupt)
	}

	pub, err := crypto.DecodeKey(rec.PublicKey)
	if err != nil {
		return Identity{}, crypto.KeyPair{}, fmt.Errorf("%w: public key: %v", ErrStorageCorrupt, err)
	}
	sec, err := crypto.DecodeKey(rec.SecretKey)
	if err != nil {
		return Identity{}, crypto.KeyPair{}, fmt.Errorf("%w: secret key: %v", ErrStorageCorrupt, err)
	}

	return rec.Identity, crypto.KeyPair{Public: pub, Secret: sec}, nil
}
