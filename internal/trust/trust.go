// Package trust maintains the local buddy list: a file-backed map from
// peer agent id to trust level. The ledger is agent-owned state — the
// relay never sees it. The one hard rule is that blocked is sticky:
// nothing leaves the blocked level without an explicit unblock intent,
// regardless of write interleaving.
package trust

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/gravyxbt/clawchat-skill/internal/lockfile"
	"github.com/gravyxbt/clawchat-skill/internal/statefile"
)

const (
	ledgerFile = "contacts.json"
	lockName   = "contacts.lock"
)

var (
	// ErrBlockedContact indicates a policy denial: either an action was
	// attempted against a blocked peer, or a trust write tried to leave
	// the blocked level without force.
	ErrBlockedContact = errors.New("trust: contact is blocked")

	// ErrStorageCorrupt indicates the ledger file exists but cannot be
	// parsed. It is fatal; the ledger is never silently reset.
	ErrStorageCorrupt = errors.New("trust: ledger file corrupt")
)

// Level is a peer's trust classification.
type Level int

const (
	Stranger Level = iota
	Contact
	Trusted
	Blocked
)

var levelNames = map[Level]string{
	Stranger: "stranger",
	Contact:  "contact",
	Trusted:  "trusted",
	Blocked:  "blocked",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps the documented level names to the closed enum.
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return Stranger, fmt.Errorf("unknown trust level %q", s)
}

// MarshalJSON stores levels by name so the ledger stays readable and
// forward-compatible.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

func (l *Level) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("trust level must be a string: %s", data)
	}
	parsed, err := ParseLevel(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Action is a gated operation. Only direct messaging and key exchange
// are access-gated; levels above blocked are informational ranking.
type Action int

const (
	ActionSendDM Action = iota
	ActionReceiveDM
	ActionKeyExchange
	ActionPostRoom
	ActionReadInbox
)

// Record is one peer's entry in the ledger.
type Record struct {
	AgentID   string    `json:"agent_id"`
	Level     Level     `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ledgerState struct {
	Contacts map[string]Record `json:"contacts"`
}

// Ledger is the file-backed trust store. All mutation happens under an
// advisory lock around the full read-modify-write cycle, so concurrent
// invocations serialize and the blocked-wins rule holds.
type Ledger struct {
	dir string
}

// NewLedger returns a ledger rooted at dir.
func NewLedger(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Path returns the location of the ledger file.
func (l *Ledger) Path() string {
	return filepath.Join(l.dir, ledgerFile)
}

// Set upserts a peer's trust level. Moving into blocked always succeeds;
// moving out of blocked fails with ErrBlockedContact — use ForceSet for
// an explicit unblock.
func (l *Ledger) Set(agentID string, level Level) error {
	return l.write(agentID, level, false)
}

// ForceSet upserts a trust level with explicit unblock intent. This is
// the only transition out of blocked.
func (l *Ledger) ForceSet(agentID string, level Level) error {
	return l.write(agentID, level, true)
}

func (l *Ledger) write(agentID string, level Level, force bool) error {
	lock, err := lockfile.Acquire(filepath.Join(l.dir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()

	state, err := l.read()
	if err != nil {
		return err
	}

	current, exists := state.Contacts[agentID]
	if exists && current.Level == Blocked && level != Blocked && !force {
		return fmt.Errorf("%w: unblocking %s requires explicit intent", ErrBlockedContact, agentID)
	}

	state.Contacts[agentID] = Record{
		AgentID:   agentID,
		Level:     level,
		UpdatedAt: time.Now().UTC(),
	}
	return statefile.WriteJSON(l.Path(), state, 0o600)
}

// Remove deletes a peer's record, reverting it to implicit stranger.
// Removing a blocked record would be a silent unblock, so it is refused;
// unblock explicitly first.
func (l *Ledger) Remove(agentID string) error {
	lock, err := lockfile.Acquire(filepath.Join(l.dir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()

	state, err := l.read()
	if err != nil {
		return err
	}
	current, exists := state.Contacts[agentID]
	if !exists {
		return nil
	}
	if current.Level == Blocked {
		return fmt.Errorf("%w: remove would silently unblock %s", ErrBlockedContact, agentID)
	}
	delete(state.Contacts, agentID)
	return statefile.WriteJSON(l.Path(), state, 0o600)
}

// Get returns a peer's level. Unknown peers are strangers; the read has
// no side effect on the ledger.
func (l *Ledger) Get(agentID string) (Level, error) {
	state, err := l.read()
	if err != nil {
		return Stranger, err
	}
	rec, ok := state.Contacts[agentID]
	if !ok {
		return Stranger, nil
	}
	return rec.Level, nil
}

// List returns all records sorted by agent id.
func (l *Ledger) List() ([]Record, error) {
	state, err := l.read()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(state.Contacts))
	for _, rec := range state.Contacts {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].AgentID < records[j].AgentID })
	return records, nil
}

// IsPermitted applies the policy table: blocked denies direct messaging
// and key exchange; every other level permits every action.
func (l *Ledger) IsPermitted(agentID string, action Action) (bool, error) {
	level, err := l.Get(agentID)
	if err != nil {
		return false, err
	}
	if level != Blocked {
		return true, nil
	}
	switch action {
	case ActionSendDM, ActionReceiveDM, ActionKeyExchange:
		return false, nil
	default:
		return true, nil
	}
}

func (l *Ledger) read() (ledgerState, error) {
	state := ledgerState{Contacts: make(map[string]Record)}
	if err := statefile.ReadJSON(l.Path(), &state); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if state.Contacts == nil {
		state.Contacts = make(map[string]Record)
	}
	return state, nil
}
