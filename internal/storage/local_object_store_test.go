package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalObjectStore(t *testing.T) {
	store, err := NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.CreateBucket(ctx, "uploads"))

	require.NoError(t, store.PutObject(ctx, "uploads", "abc/orders.xlsx", strings.NewReader("spreadsheet bytes")))
	require.NoError(t, store.PutObject(ctx, "uploads", "abc/notes.txt", strings.NewReader("notes")))
	require.NoError(t, store.PutObject(ctx, "uploads", "def/other.xlsx", strings.NewReader("other")))

	data, err := store.GetObject(ctx, "uploads", "abc/orders.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "spreadsheet bytes", string(data))

	objects, err := store.ListObjects(ctx, "uploads", "abc/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "abc/notes.txt", objects[0].Name)
	assert.Equal(t, "abc/orders.xlsx", objects[1].Name)
	assert.Equal(t, int64(len("spreadsheet bytes")), objects[1].Size)
}

func TestLocalObjectStoreDownload(t *testing.T) {
	store, err := NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.PutObject(ctx, "outputs", "run/archive.zip", strings.NewReader("zip bytes")))

	dest := filepath.Join(t.TempDir(), "nested", "archive.zip")
	require.NoError(t, store.DownloadObject(ctx, "outputs", "run/archive.zip", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(data))
}

func TestLocalObjectStoreMissing(t *testing.T) {
	store, err := NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.GetObject(ctx, "uploads", "missing/key")
	require.Error(t, err)

	require.Error(t, store.DownloadObject(ctx, "uploads", "missing/key", filepath.Join(t.TempDir(), "out")))

	// Listing a bucket that was never created is empty, not an error.
	objects, err := store.ListObjects(ctx, "nosuchbucket", "")
	require.NoError(t, err)
	assert.Empty(t, objects)
}
