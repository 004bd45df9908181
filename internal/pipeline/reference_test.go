package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReferenceDB(t *testing.T) {
	dir := t.TempDir()
	path := writeLogoDatabase(t, dir, "0950", "1200")

	db, err := LoadReferenceDB(path)
	require.NoError(t, err)
	assert.Equal(t, 2, db.Len())

	info, ok := db.Lookup("0950")
	require.True(t, ok)
	assert.Equal(t, "ACME CORP", info.Client)
	assert.Equal(t, "LEFT CHEST", info.Position)
	assert.Equal(t, "5400", info.StitchCount)

	_, ok = db.Lookup("9999")
	assert.False(t, ok)
}

func TestLoadReferenceDBUnpaddedFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeLogoDatabase(t, dir, "950")

	db, err := LoadReferenceDB(path)
	require.NoError(t, err)

	// Stored unpadded as "950", cleaned to "0950" on load.
	_, ok := db.Lookup("0950")
	assert.True(t, ok)
}

func TestLoadReferenceDBMissing(t *testing.T) {
	_, err := LoadReferenceDB(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestLoadReferenceDBMissingSkuColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xlsx")
	writeWorkbook(t, path, [][]interface{}{{"CLIENT", "Notes"}, {"ACME", "n/a"}})

	_, err := LoadReferenceDB(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Logo SKU")
}

func TestImageIndexFind(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0950A.png", "0950B.jpg", "0950_back.tiff", "1200.png", "0950.txt", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0666))
	}

	idx, err := NewImageIndex(dir)
	require.NoError(t, err)

	matches := idx.Find("0950")
	require.Len(t, matches, 3)
	// Sorted by filename, non-image extensions excluded.
	assert.Equal(t, "0950A.png", filepath.Base(matches[0]))
	assert.Equal(t, "0950B.jpg", filepath.Base(matches[1]))
	assert.Equal(t, "0950_back.tiff", filepath.Base(matches[2]))

	assert.Len(t, idx.Find("1200"), 1)
	assert.Empty(t, idx.Find("7777"))
	assert.Empty(t, idx.Find(""))
}

func TestImageIndexCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AB12_front.PNG"), []byte("x"), 0666))

	idx, err := NewImageIndex(dir)
	require.NoError(t, err)

	assert.Len(t, idx.Find("ab12"), 1)
}

func TestImageIndexMissingDir(t *testing.T) {
	idx, err := NewImageIndex(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, idx.Find("0950"))
}
