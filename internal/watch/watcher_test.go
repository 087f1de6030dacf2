package watch

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForChange(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func startWatcher(t *testing.T, dir string) <-chan string {
	t.Helper()

	w, err := NewWatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	changed := make(chan string, 16)
	require.NoError(t, w.Watch(dir, func(rel string) { changed <- rel }))

	time.Sleep(50 * time.Millisecond)
	return changed
}

func TestWatcherReportsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	changed := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "style.css"), []byte("a{}"), 0o644))

	rel, ok := waitForChange(changed, 2*time.Second)
	require.True(t, ok, "expected change for new stylesheet")
	assert.Equal(t, "docs/style.css", rel)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "docs"), 0o755))
	rel, ok := waitForChange(changed, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "docs", rel)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "logo.svg"), []byte("<svg/>"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case rel := <-changed:
			if rel == "docs/logo.svg" {
				return
			}
		case <-deadline:
			t.Fatal("expected change for file in new directory")
		}
	}
}

func TestWatcherIgnoresHiddenAndSwapFiles(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("X=1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html.swp"), []byte("x"), 0o644))

	_, ok := waitForChange(changed, 300*time.Millisecond)
	assert.False(t, ok, "hidden and swap files should not be reported")
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestShouldIgnore(t *testing.T) {
	assert.True(t, shouldIgnore(".git/HEAD"))
	assert.True(t, shouldIgnore("docs/.cache/x.css"))
	assert.True(t, shouldIgnore("index.html~"))
	assert.True(t, shouldIgnore("node_modules/react/index.js"))
	assert.True(t, shouldIgnore("docs/vendor/jquery.js"))
	assert.False(t, shouldIgnore("docs/style.css"))
	assert.False(t, shouldIgnore("docs/dist/app.js"))
}

func TestWatcherSkipsDependencyTrees(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "react", "cjs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor", "lib"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs", "dist"), 0o755))

	w, err := NewWatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	require.NoError(t, w.Watch(dir, func(string) {}))

	watched := make([]string, 0)
	for _, path := range w.fw.WatchList() {
		rel, err := filepath.Rel(dir, path)
		require.NoError(t, err)
		watched = append(watched, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{".", "docs", "docs/dist"}, watched)
}
