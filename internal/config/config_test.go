package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"listenAddr": ":9090",
		"db": { "path": "/tmp/sheet.db" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, ":9090", GetString("listenAddr"))
	assert.Equal(t, "/tmp/sheet.db", GetString("db.path"))
	assert.Equal(t, "./data/armor", GetString("catalog.dir"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{}`), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, true, GetBool("logPretty"))
	assert.Equal(t, ":8080", GetString("listenAddr"))
	assert.Equal(t, "./armorsheet.db", GetString("db.path"))
	assert.Equal(t, "./data/armor", GetString("catalog.dir"))
	assert.Equal(t, true, GetBool("feed.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
	var notFound viper.ConfigFileNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, "info", GetString("logLevel"), "defaults survive a missing file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("ARMORSHEET_DB_PATH", "/data/env.db")
	t.Setenv("ARMORSHEET_LOGLEVEL", "error")

	_ = Load(t.TempDir())

	assert.Equal(t, "/data/env.db", GetString("db.path"))
	assert.Equal(t, "error", GetString("logLevel"))
}
