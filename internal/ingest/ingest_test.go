package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"b.png", "a.JPG", "notes.txt", "scan.pdf",
		"sub/c.webp", "sub/d.tiff",
		".hidden.png", ".cache/e.png",
	} {
		touch(t, filepath.Join(root, p))
	}
	single := filepath.Join(t.TempDir(), "single.jpeg")
	touch(t, single)

	got, stats, perr, err := Discover(context.Background(), []string{root, single, filepath.Join(root, "b.png")}, Options{})
	require.NoError(t, err)
	assert.Empty(t, perr)
	assert.Equal(t, []string{
		filepath.Join(root, "a.JPG"),
		filepath.Join(root, "b.png"),
		filepath.Join(root, "sub", "c.webp"),
		filepath.Join(root, "sub", "d.tiff"),
		single,
	}, got)
	assert.Equal(t, uint32(6), stats.Matched, "b.png is matched twice but returned once")
	assert.Equal(t, uint32(2), stats.Hidden)
}

func TestDiscoverIncludeHiddenAndExts(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, ".hidden.png"))
	touch(t, filepath.Join(root, "page.txt"))
	touch(t, filepath.Join(root, "img.png"))

	got, _, _, err := Discover(context.Background(), []string{root}, Options{IncludeExts: []string{".txt", "PNG"}, IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, ".hidden.png"),
		filepath.Join(root, "img.png"),
		filepath.Join(root, "page.txt"),
	}, got)
}

func TestDiscoverMissingPath(t *testing.T) {
	got, stats, perr, err := Discover(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, uint32(1), stats.Failed)
	require.Len(t, perr, 1)
	assert.True(t, os.IsNotExist(perr[0].Err))

	_, _, _, err = Discover(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".PNG", nil))
	assert.True(t, AllowedExt("jpeg", nil))
	assert.False(t, AllowedExt(".pdf", nil))
	assert.True(t, AllowedExt(".txt", extSet([]string{"txt"})))
	assert.False(t, AllowedExt(".png", extSet([]string{"txt"})))

	assert.True(t, IsHidden("/a/.b"))
	assert.False(t, IsHidden("/a/b"))
	assert.False(t, IsHidden("."))
}

func TestWatchEmitsNewImages(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.png")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("no watch event")
			return ""
		}
	}
	assert.Equal(t, existing, next())

	touch(t, filepath.Join(root, "ignored.txt"))
	fresh := filepath.Join(root, "new.png")
	touch(t, fresh)
	assert.Equal(t, fresh, next())

	cancel()
	for range events {
	}
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
