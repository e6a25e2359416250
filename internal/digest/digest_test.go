package digest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileMatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	data := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(data), got)
}

func TestHashFileEmptyFileMatchesEmptyConstant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, Empty, got)
}

func TestHashFileMissingReturnsError(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
