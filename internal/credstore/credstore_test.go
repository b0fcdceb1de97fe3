package credstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravyxbt/clawchat-skill/internal/crypto"
)

func testIdentity() Identity {
	return Identity{
		Server:      "http://localhost:8080",
		AgentID:     "agent-1",
		Name:        "alice",
		DisplayName: "Alice",
		Token:       "tok-abc",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	require.NoError(t, s.Save(testIdentity(), kp))

	id, loaded, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, testIdentity(), id)
	require.Equal(t, kp, loaded)
}

func TestLoadMissingIsNotRegistered(t *testing.T) {
	s := New(t.TempDir())
	_, _, err := s.Load()
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestRestrictivePermissions(t *testing.T) {
	s := New(t.TempDir())
	kp, _ := crypto.GenerateKeyPair()
	require.NoError(t, s.Save(testIdentity(), kp))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMalformedFileIsCorruptNotFresh(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	_, _, err := s.Load()
	require.ErrorIs(t, err, ErrStorageCorrupt)
	require.NotErrorIs(t, err, ErrNotRegistered)
}

func TestMissingFieldsAreCorrupt(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"server":"x"}`), 0o600))

	_, _, err := s.Load()
	require.ErrorIs(t, err, ErrStorageCorrupt)
}

func TestBadKeyMaterialIsCorrupt(t *testing.T) {
	s := New(t.TempDir())
	body := `{"server":"x","agent_id":"a","name":"n","token":"t","public_key":"short","secret_key":"short"}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o600))

	_, _, err := s.Load()
	require.ErrorIs(t, err, ErrStorageCorrupt)
}

// Simulates a crash at every byte offset of a rewrite: the truncated
// content lands in a temp file that was never renamed, so the previous
// record must survive untouched.
func TestCrashMidWriteKeepsPriorState(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	kp, _ := crypto.GenerateKeyPair()
	require.NoError(t, s.Save(testIdentity(), kp))

	full, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	for offset := 0; offset < len(full); offset += 37 {
		tmp := filepath.Join(dir, "credentials.json.tmp-crash")
		require.NoError(t, os.WriteFile(tmp, full[:offset], 0o600))

		id, loaded, err := s.Load()
		require.NoError(t, err)
		require.Equal(t, testIdentity(), id)
		require.Equal(t, kp, loaded)
		require.NoError(t, os.Remove(tmp))
	}
}

// A torn in-place write (the failure mode atomic replace exists to
// prevent) must be reported as corruption, never as a fresh identity.
func TestTruncatedFileIsCorrupt(t *testing.T) {
	s := New(t.TempDir())
	kp, _ := crypto.GenerateKeyPair()
	require.NoError(t, s.Save(testIdentity(), kp))

	full, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), full[:len(full)/2], 0o600))

	_, _, err = s.Load()
	require.ErrorIs(t, err, ErrStorageCorrupt)
}

func TestUnknownFieldsIgnored(t *testing.T) {
	s := New(t.TempDir())
	kp, _ := crypto.GenerateKeyPair()
	require.NoError(t, s.Save(testIdentity(), kp))

	// Inject an unknown field the way a future schema version might.
	full, _ := os.ReadFile(s.Path())
	patched := strings.Replace(string(full), "{", `{"future_field": 42,`, 1)
	require.NoError(t, os.WriteFile(s.Path(), []byte(patched), 0o600))

	id, _, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "alice", id.Name)
}
