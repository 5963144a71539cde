package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, ch <-chan struct{}, d time.Duration) bool {
	t.Helper()
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(d):
		return false
	}
}

func TestWatch_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(target, []byte("a\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Watch(ctx, []string{target}, nil)
	require.NoError(t, err)

	t.Run("unrelated file is ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0600))
		assert.False(t, waitSignal(t, ch, 200*time.Millisecond))
	})

	t.Run("write is reported", func(t *testing.T) {
		require.NoError(t, os.WriteFile(target, []byte("a\nb\n"), 0600))
		assert.True(t, waitSignal(t, ch, 2*time.Second))
	})

	t.Run("atomic replace is reported", func(t *testing.T) {
		// Drain anything left from the previous write.
		for waitSignal(t, ch, 100*time.Millisecond) {
		}
		tmp := filepath.Join(dir, "known_hosts.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("c\n"), 0600))
		require.NoError(t, os.Rename(tmp, target))
		assert.True(t, waitSignal(t, ch, 2*time.Second))
	})
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := Watch(ctx, []string{filepath.Join(dir, "config")}, nil)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_NoDirectories(t *testing.T) {
	_, err := Watch(context.Background(), []string{"/nonexistent/dir/file"}, nil)
	assert.ErrorIs(t, err, ErrNothingToWatch)
}
