package trust

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnknownPeerIsStranger(t *testing.T) {
	l := NewLedger(t.TempDir())

	level, err := l.Get("nobody")
	require.NoError(t, err)
	require.Equal(t, Stranger, level)

	// The read must leave no trace: no ledger file, no record.
	_, err = os.Stat(l.Path())
	require.True(t, os.IsNotExist(err))

	level, err = l.Get("nobody")
	require.NoError(t, err)
	require.Equal(t, Stranger, level)
}

func TestSetAndGet(t *testing.T) {
	l := NewLedger(t.TempDir())

	require.NoError(t, l.Set("bob", Contact))
	level, err := l.Get("bob")
	require.NoError(t, err)
	require.Equal(t, Contact, level)

	require.NoError(t, l.Set("bob", Trusted))
	level, _ = l.Get("bob")
	require.Equal(t, Trusted, level)
}

func TestBlockIsSticky(t *testing.T) {
	l := NewLedger(t.TempDir())
	require.NoError(t, l.Set("mallory", Blocked))

	require.ErrorIs(t, l.Set("mallory", Contact), ErrBlockedContact)
	require.ErrorIs(t, l.Set("mallory", Trusted), ErrBlockedContact)
	require.ErrorIs(t, l.Set("mallory", Stranger), ErrBlockedContact)

	level, _ := l.Get("mallory")
	require.Equal(t, Blocked, level)

	// Re-blocking an already blocked peer is fine.
	require.NoError(t, l.Set("mallory", Blocked))
}

func TestForceSetUnblocks(t *testing.T) {
	l := NewLedger(t.TempDir())
	require.NoError(t, l.Set("mallory", Blocked))

	require.NoError(t, l.ForceSet("mallory", Contact))
	level, _ := l.Get("mallory")
	require.Equal(t, Contact, level)
}

func TestRemoveRefusesBlocked(t *testing.T) {
	l := NewLedger(t.TempDir())
	require.NoError(t, l.Set("bob", Contact))
	require.NoError(t, l.Set("mallory", Blocked))

	require.NoError(t, l.Remove("bob"))
	level, _ := l.Get("bob")
	require.Equal(t, Stranger, level)

	require.ErrorIs(t, l.Remove("mallory"), ErrBlockedContact)
	level, _ = l.Get("mallory")
	require.Equal(t, Blocked, level)

	// Removing an absent record is a no-op.
	require.NoError(t, l.Remove("nobody"))
}

// Concurrent contact/blocked writes for the same peer must always end
// blocked: the block either lands last, or lands first and makes the
// competing write fail.
func TestBlockedWinsUnderConcurrency(t *testing.T) {
	l := NewLedger(t.TempDir())

	for i := 0; i < 20; i++ {
		require.NoError(t, l.ForceSet("x", Stranger))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Set("x", Contact) // may fail with ErrBlockedContact
		}()
		go func() {
			defer wg.Done()
			require.NoError(t, l.Set("x", Blocked))
		}()
		wg.Wait()

		level, err := l.Get("x")
		require.NoError(t, err)
		require.Equal(t, Blocked, level, "iteration %d", i)
	}
}

func TestPolicyTable(t *testing.T) {
	l := NewLedger(t.TempDir())
	require.NoError(t, l.Set("friend", Trusted))
	require.NoError(t, l.Set("mallory", Blocked))

	for _, action := range []Action{ActionSendDM, ActionReceiveDM, ActionKeyExchange, ActionPostRoom, ActionReadInbox} {
		ok, err := l.IsPermitted("friend", action)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.IsPermitted("nobody", action)
		require.NoError(t, err)
		require.True(t, ok, "strangers are not gated")
	}

	for _, action := range []Action{ActionSendDM, ActionReceiveDM, ActionKeyExchange} {
		ok, err := l.IsPermitted("mallory", action)
		require.NoError(t, err)
		require.False(t, ok, "blocked denies %v", action)
	}
	for _, action := range []Action{ActionPostRoom, ActionReadInbox} {
		ok, err := l.IsPermitted("mallory", action)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestCorruptLedgerSurfaces(t *testing.T) {
	l := NewLedger(t.TempDir())
	require.NoError(t, os.WriteFile(l.Path(), []byte("{oops"), 0o600))

	_, err := l.Get("anyone")
	require.ErrorIs(t, err, ErrStorageCorrupt)
	require.ErrorIs(t, l.Set("anyone", Contact), ErrStorageCorrupt)
}

func TestLevelJSONRoundTrip(t *testing.T) {
	l := NewLedger(t.TempDir())
	require.NoError(t, l.Set("a", Trusted))
	require.NoError(t, l.Set("b", Blocked))

	records, err := l.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].AgentID)
	require.Equal(t, Trusted, records[0].Level)
	require.Equal(t, Blocked, records[1].Level)
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"stranger", "contact", "trusted", "blocked"} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, name, level.String())
	}
	_, err := ParseLevel("bestie")
	require.Error(t, err)
}
