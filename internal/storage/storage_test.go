package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWriterThenOpenReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.bin")

	w, err := CreateWriter(path, 4)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(len("hello world")), r.Size())

	buf := make([]byte, r.Size())
	n, err := r.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestExistsAndUnlink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	assert.False(t, Exists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, Exists(path))

	require.NoError(t, Unlink(path))
	assert.False(t, Exists(path))
}

func TestUnlinkMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Unlink(filepath.Join(dir, "never-existed.bin")))
}

func TestCreateWriterTruncatesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.bin")
	require.NoError(t, os.WriteFile(path, []byte("a much longer previous contents"), 0o644))

	w, err := CreateWriter(path, 4)
	require.NoError(t, err)
	_, err = w.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}
