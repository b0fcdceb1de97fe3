package lockfile

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	l, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// Reacquire after release.
	l2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestSerializesCriticalSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	var (
		wg       sync.WaitGroup
		inside   atomic.Int32
		overlaps atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := Acquire(path)
			require.NoError(t, err)
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			require.NoError(t, l.Release())
		}()
	}
	wg.Wait()
	require.Zero(t, overlaps.Load(), "two holders inside the critical section")
}

func TestDoubleReleaseIsSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	l, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
}
