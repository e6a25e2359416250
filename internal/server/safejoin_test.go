package server

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeJoinConfinesTraversalAttempts(t *testing.T) {
	storageDir := "/var/reliudp/files"
	cases := []string{"../../etc/passwd", "/etc/passwd", "../secret.txt", "a/../../b"}
	for _, name := range cases {
		got := safeJoin(storageDir, name)
		assert.True(t, strings.HasPrefix(got, filepath.Clean(storageDir)+string(filepath.Separator)) || got == filepath.Clean(storageDir),
			"safeJoin(%q) escaped storage dir: %q", name, got)
	}
}

func TestSafeJoinPlainNameStaysInStorageDir(t *testing.T) {
	got := safeJoin("/var/reliudp/files", "report.pdf")
	assert.Equal(t, filepath.Join("/var/reliudp/files", "report.pdf"), got)
}
