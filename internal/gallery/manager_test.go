package gallery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jevicarn/site/internal/store"
)

func setupManager(t *testing.T) (*Manager, *store.SQLiteStore) {
	t.Helper()

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m, err := NewManager(s, filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	return m, s
}

func artifactNames(t *testing.T, m *Manager) []string {
	t.Helper()

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUpload(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	item, err := m.Upload(ctx, strings.NewReader("image-bytes"), "School Photo.JPG", "sports day")
	require.NoError(t, err)

	assert.Equal(t, "sports day", item.Caption)
	assert.True(t, strings.HasSuffix(item.Filename, ".jpg"), "extension lowercased: %s", item.Filename)
	assert.NotContains(t, item.Filename, "School", "stored name must not leak the original")

	path, err := m.ArtifactPath(item.Filename)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestUpload_UnsupportedType(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.Upload(context.Background(), strings.NewReader("#!/bin/sh"), "script.sh", "")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Empty(t, artifactNames(t, m), "rejected upload must leave no artifact")
}

func TestUpload_DistinctNamesForSameOriginal(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	first, err := m.Upload(ctx, strings.NewReader("one"), "photo.png", "")
	require.NoError(t, err)
	second, err := m.Upload(ctx, strings.NewReader("two"), "photo.png", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.Filename, second.Filename)
	assert.Len(t, artifactNames(t, m), 2)
}

func TestReplace(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	item, err := m.Upload(ctx, strings.NewReader("old"), "photo.png", "caption")
	require.NoError(t, err)

	receipt, err := m.Replace(ctx, item.ID, item.Filename, strings.NewReader("new"), "photo2.png")
	require.NoError(t, err)
	require.NoError(t, receipt.Warning)
	assert.NotEqual(t, item.Filename, receipt.Filename)

	// The row points at the new artifact and the caption survives.
	updated, err := s.GetGalleryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Filename, updated.Filename)
	assert.Equal(t, "caption", updated.Caption)

	// Exactly one artifact remains.
	names := artifactNames(t, m)
	require.Len(t, names, 1)
	assert.Equal(t, receipt.Filename, names[0])
}

func TestReplace_StaleObservation(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	item, err := m.Upload(ctx, strings.NewReader("v1"), "photo.png", "")
	require.NoError(t, err)

	winner, err := m.Replace(ctx, item.ID, item.Filename, strings.NewReader("v2"), "photo.png")
	require.NoError(t, err)

	// A second replace still citing the original filename loses.
	_, err = m.Replace(ctx, item.ID, item.Filename, strings.NewReader("v3"), "photo.png")
	assert.ErrorIs(t, err, store.ErrReplaceConflict)

	// The winner's artifact is the only one left and is still referenced.
	names := artifactNames(t, m)
	require.Len(t, names, 1)
	assert.Equal(t, winner.Filename, names[0])

	current, err := s.GetGalleryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.Filename, current.Filename)
}

func TestReplace_Concurrent(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	item, err := m.Upload(ctx, strings.NewReader("v1"), "photo.png", "")
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Replace(ctx, item.ID, item.Filename, strings.NewReader("racer"), "photo.png")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, store.ErrReplaceConflict)
		}
	}
	assert.Equal(t, 1, wins, "exactly one replace wins")

	// One live artifact, and the row references it.
	names := artifactNames(t, m)
	require.Len(t, names, 1)
	current, err := s.GetGalleryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, current.Filename, names[0])
}

func TestReplace_UnknownItem(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.Replace(context.Background(), "no-such-id", "whatever.png", strings.NewReader("x"), "photo.png")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, artifactNames(t, m))
}

func TestDelete(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	item, err := m.Upload(ctx, strings.NewReader("bytes"), "photo.png", "")
	require.NoError(t, err)

	receipt, err := m.Delete(ctx, item.ID)
	require.NoError(t, err)
	require.NoError(t, receipt.Warning)

	_, err = s.GetGalleryItem(ctx, item.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, artifactNames(t, m))
}

func TestDelete_MissingArtifactStillDeletesRow(t *testing.T) {
	m, s := setupManager(t)
	ctx := context.Background()

	item, err := m.Upload(ctx, strings.NewReader("bytes"), "photo.png", "")
	require.NoError(t, err)

	path, err := m.ArtifactPath(item.Filename)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	receipt, err := m.Delete(ctx, item.ID)
	require.NoError(t, err)
	assert.NoError(t, receipt.Warning, "already-gone artifact is not a failure")

	_, err = s.GetGalleryItem(ctx, item.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_Unknown(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.Delete(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveAttachment(t *testing.T) {
	m, s := setupManager(t)

	filename, err := m.SaveAttachment(strings.NewReader("attached"), "note.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"))

	// No gallery row is created for attachments.
	items, err := s.ListGalleryItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = m.SaveAttachment(strings.NewReader("nope"), "note.txt")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestArtifactPath_Escape(t *testing.T) {
	m, _ := setupManager(t)

	for _, name := range []string{"", ".", ".."} {
		_, err := m.ArtifactPath(name)
		assert.ErrorIs(t, err, ErrPathEscape, "name %q", name)
	}

	// Traversal components are stripped, not followed.
	path, err := m.ArtifactPath("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "passwd"), path)
}
