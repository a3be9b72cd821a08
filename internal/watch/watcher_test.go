package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitBatch(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-ch:
		return paths
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatcherBatchesBlueprintChanges(t *testing.T) {
	root := t.TempDir()
	unitDir := filepath.Join(root, "units", "UEL0101")
	require.NoError(t, os.MkdirAll(unitDir, 0755))

	batches := make(chan []string, 4)
	w, err := New(root, 50*time.Millisecond, func(_ context.Context, paths []string) {
		batches <- paths
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	bp := filepath.Join(unitDir, "UEL0101_unit.bp")
	require.NoError(t, os.WriteFile(bp, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(bp, []byte("{ Damage = 1 }"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(unitDir, "notes.txt"), []byte("x"), 0644))

	paths := waitBatch(t, batches)
	assert.Equal(t, []string{bp}, paths)

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, bp, stats.LastEventPath)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	batches := make(chan []string, 4)
	w, err := New(root, 50*time.Millisecond, func(_ context.Context, paths []string) {
		batches <- paths
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	dir := filepath.Join(root, "URL0106")
	require.NoError(t, os.Mkdir(dir, 0755))
	// let the loop register the new directory
	time.Sleep(100 * time.Millisecond)
	bp := filepath.Join(dir, "URL0106_unit.bp")
	require.NoError(t, os.WriteFile(bp, []byte("{}"), 0644))

	assert.Equal(t, []string{bp}, waitBatch(t, batches))
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()
}

func TestStartFailsForMissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), 0, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
