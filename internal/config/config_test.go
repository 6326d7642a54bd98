package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfigFile(t, `{"journal": {"rootDir": "/var/lib/hornetq"}}`)

	require.NoError(t, Init(path))

	assert.Equal(t, "/var/lib/hornetq", Keys.Journal.RootDir)
	assert.Equal(t, DefaultExtension, Keys.Journal.Extension)
	assert.Equal(t, DefaultBufferSizeBytes, Keys.Journal.BufferSizeBytes)
	assert.Equal(t, DefaultFlushTimeout, Keys.Journal.FlushTimeout)
	assert.Equal(t, DefaultAdminAddr, Keys.AdminAddr)
}

func TestInitRejectsMissingRootDir(t *testing.T) {
	path := writeConfigFile(t, `{"journal": {"extension": "jnl"}}`)

	err := Init(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rootDir")
}

func TestInitRejectsUnknownFields(t *testing.T) {
	path := writeConfigFile(t, `{"journal": {"rootDir": "/data"}, "bogusField": true}`)

	err := Init(path)

	require.Error(t, err)
}

func TestInitRejectsMissingFile(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"))

	require.Error(t, err)
}

func TestInitPreservesExplicitNonDefaultValues(t *testing.T) {
	path := writeConfigFile(t, `{
		"journal": {
			"rootDir": "/data/journal",
			"extension": "wal",
			"bufferSizeBytes": 8192,
			"flushTimeout": 500000000,
			"catalogPath": "/data/catalog.db"
		},
		"adminAddr": ":9090",
		"transport": {"address": "nats://localhost:4222"}
	}`)

	require.NoError(t, Init(path))

	assert.Equal(t, "wal", Keys.Journal.Extension)
	assert.Equal(t, 8192, Keys.Journal.BufferSizeBytes)
	assert.Equal(t, "/data/catalog.db", Keys.Journal.CatalogPath)
	assert.Equal(t, ":9090", Keys.AdminAddr)
	assert.Equal(t, "nats://localhost:4222", Keys.Transport.Address)
}
