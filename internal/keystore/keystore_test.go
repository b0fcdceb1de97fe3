package keystore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravyxbt/clawchat-skill/internal/crypto"
)

type fakeResolver struct {
	keys  map[string][crypto.KeySize]byte
	calls int
}

var errNotFound = errors.New("peer not found")

func (f *fakeResolver) LookupPublicKey(_ context.Context, agentID string) ([crypto.KeySize]byte, error) {
	f.calls++
	key, ok := f.keys[agentID]
	if !ok {
		return key, errNotFound
	}
	return key, nil
}

func TestLookupCachesResult(t *testing.T) {
	kp, _ := crypto.GenerateKeyPair()
	resolver := &fakeResolver{keys: map[string][crypto.KeySize]byte{"bob": kp.Public}}
	cache := NewPeerCache(t.TempDir(), resolver)

	key, err := cache.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, kp.Public, key)
	require.Equal(t, 1, resolver.calls)

	// Second lookup is served from disk.
	key, err = cache.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, kp.Public, key)
	require.Equal(t, 1, resolver.calls)
}

func TestLookupUnknownPeerPropagates(t *testing.T) {
	cache := NewPeerCache(t.TempDir(), &fakeResolver{})

	_, err := cache.Lookup(context.Background(), "ghost")
	require.ErrorIs(t, err, errNotFound)

	// A failed lookup must not leave a cache entry behind.
	_, ok, err := cache.Cached("ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	kp1, _ := crypto.GenerateKeyPair()
	resolver := &fakeResolver{keys: map[string][crypto.KeySize]byte{"bob": kp1.Public}}
	cache := NewPeerCache(t.TempDir(), resolver)

	_, err := cache.Lookup(context.Background(), "bob")
	require.NoError(t, err)

	// Peer rotates their key.
	kp2, _ := crypto.GenerateKeyPair()
	resolver.keys["bob"] = kp2.Public

	// Without invalidation the stale key is served forever.
	key, err := cache.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, kp1.Public, key)

	require.NoError(t, cache.Invalidate("bob"))
	key, err = cache.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, kp2.Public, key)
	require.Equal(t, 2, resolver.calls)
}

func TestInvalidateUnknownIsNoop(t *testing.T) {
	cache := NewPeerCache(t.TempDir(), &fakeResolver{})
	require.NoError(t, cache.Invalidate("nobody"))
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	kp, _ := crypto.GenerateKeyPair()
	resolver := &fakeResolver{keys: map[string][crypto.KeySize]byte{"bob": kp.Public}}

	_, err := NewPeerCache(dir, resolver).Lookup(context.Background(), "bob")
	require.NoError(t, err)

	// Fresh instance with a resolver that would fail if consulted.
	key, err := NewPeerCache(dir, &fakeResolver{}).Lookup(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, kp.Public, key)
}

func TestCorruptCacheSurfaces(t *testing.T) {
	dir := t.TempDir()
	cache := NewPeerCache(dir, &fakeResolver{})
	require.NoError(t, os.WriteFile(cache.Path(), []byte("nope"), 0o600))

	_, err := cache.Lookup(context.Background(), "bob")
	require.ErrorIs(t, err, ErrStorageCorrupt)
}
