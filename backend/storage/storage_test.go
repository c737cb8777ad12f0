package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := NewKey("chapters", "Intro.MP4")
	assert.True(t, strings.HasPrefix(key, "chapters/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))

	n, err := store.Save(key, strings.NewReader("frames"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	rc, err := store.Open(key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "frames", string(data))

	require.NoError(t, store.Delete(key))
	_, err = store.Open(key)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Delete(key), "deleting twice is not an error")
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Path("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestPDFPageCountInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	pages, err := PDFPageCount(path)
	assert.Error(t, err)
	assert.Zero(t, pages)
}
