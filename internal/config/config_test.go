package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func initTemp(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "jobtrack.yaml")
	require.NoError(t, Initialize(path))
	return path
}

func TestInitialize_CreatesDefaultFile(t *testing.T) {
	path := initTemp(t)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, Default(), onDisk)

	cfg := Get()
	assert.Equal(t, "http://localhost:3000/api", cfg.Server.URL)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, path, Path())
}

func TestInitialize_EnvOverrides(t *testing.T) {
	t.Setenv("JOBTRACK_SERVER_URL", "https://api.example.com")
	initTemp(t)

	v, err := GetValue("server.url")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", v)
	assert.Equal(t, "https://api.example.com", Get().Server.URL)
}

func TestTimeout_Fallback(t *testing.T) {
	cfg := Default()
	cfg.Server.Timeout = "never"
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	cfg.Server.Timeout = "5s"
	assert.Equal(t, 5*time.Second, cfg.Timeout())
}

func TestSetValue(t *testing.T) {
	path := initTemp(t)

	require.NoError(t, SetValue("store.backend", BackendRedis))
	require.NoError(t, SetValue("store.redis.db", "3"))
	require.NoError(t, SetValue("format.colors", "false"))

	assert.Equal(t, BackendRedis, Get().Store.Backend)
	assert.Equal(t, 3, Get().Store.Redis.DB)
	assert.False(t, Get().Format.Colors)

	require.NoError(t, Initialize(path))
	assert.Equal(t, BackendRedis, Get().Store.Backend)
	assert.Equal(t, 3, Get().Store.Redis.DB)
}

func TestSetValue_Rejects(t *testing.T) {
	initTemp(t)

	tests := []struct {
		key, value string
	}{
		{"store.backend", "postgres"},
		{"server.url", "ftp://example.com"},
		{"server.timeout", "-1s"},
		{"store.redis.db", "-2"},
		{"format.colors", "maybe"},
		{"log.level", "trace"},
		{"auth.token", "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			assert.Error(t, SetValue(tc.key, tc.value))
		})
	}
	assert.Equal(t, BackendFile, Get().Store.Backend)
}

func TestAuthEntries(t *testing.T) {
	path := initTemp(t)

	token, user, err := LoadAuth()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, user)

	require.NoError(t, UpdateAuth("tok-1", `{"id":"1"}`))
	require.NoError(t, Initialize(path))
	token, user, err = LoadAuth()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, `{"id":"1"}`, user)

	require.NoError(t, ClearAuth())
	require.NoError(t, Initialize(path))
	token, user, err = LoadAuth()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, user)
}

func TestKeys_Sorted(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "server.url")
	assert.NotContains(t, keys, "auth.token")
	assert.IsIncreasing(t, keys)
}

func TestOutputFormat(t *testing.T) {
	initTemp(t)
	SetOutputFormat("")
	assert.Equal(t, "table", GetOutputFormat())
	SetOutputFormat("json")
	defer SetOutputFormat("")
	assert.Equal(t, "json", GetOutputFormat())
}
