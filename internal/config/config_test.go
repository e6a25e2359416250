package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUploadArgsRequiresSrcAndName(t *testing.T) {
	_, err := ParseUploadArgs([]string{"-H", "localhost"})
	assert.Error(t, err)
}

func TestParseUploadArgsDefaults(t *testing.T) {
	cfg, err := ParseUploadArgs([]string{"-s", "/tmp/in", "-n", "file.bin"})
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, StrategySaW, cfg.Strategy)
	assert.Equal(t, VerbosityNormal, cfg.Verbosity)
}

func TestParseUploadArgsRejectsVerboseAndQuietTogether(t *testing.T) {
	_, err := ParseUploadArgs([]string{"-s", "/tmp", "-n", "f", "-v", "-q"})
	assert.Error(t, err)
}

func TestParseUploadArgsSelectsSRStrategy(t *testing.T) {
	cfg, err := ParseUploadArgs([]string{"-s", "/tmp", "-n", "f", "-r", "udp_sr"})
	require.NoError(t, err)
	assert.Equal(t, StrategySR, cfg.Strategy)
}

func TestParseStrategyRejectsUnknown(t *testing.T) {
	_, err := ParseStrategy("udp_magic")
	assert.Error(t, err)
}

func TestParseDownloadArgsRequiresDstAndName(t *testing.T) {
	_, err := ParseDownloadArgs(nil)
	assert.Error(t, err)
}

func TestParseServerArgsDefaultsStrategy(t *testing.T) {
	cfg, err := ParseServerArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, StrategySaW, cfg.Strategy)
}
