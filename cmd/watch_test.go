package cmd

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchInputsDebouncesWrites(t *testing.T) {
	orig := watchDebounce
	watchDebounce = 20 * time.Millisecond
	t.Cleanup(func() { watchDebounce = orig })

	dir := t.TempDir()
	watched := filepath.Join(dir, "rows.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("[]"), 0o600))

	var calls atomic.Int32
	stop, err := watchInputs(context.Background(), []string{watched}, func(context.Context) {
		calls.Add(1)
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, calls.Load(), "unrelated files are ignored")

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte(`[{"id": 1}]`), 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchInputsMissingDirectory(t *testing.T) {
	_, err := watchInputs(context.Background(), []string{filepath.Join(t.TempDir(), "gone", "rows.json")}, func(context.Context) {})
	require.Error(t, err)
}
