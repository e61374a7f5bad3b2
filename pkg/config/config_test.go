package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"HTTP_ADDR", "GRPC_ADDR", "METRICS_ADDR", "LOG_LEVEL", "LOG_JSON",
	"READ_HEADER_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Empty(t, cfg.GRPCAddr)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, DefaultReadHeaderTimeout, cfg.ReadHeaderTimeout)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
http_addr: 0.0.0.0:8080
grpc_addr: 127.0.0.1:9090
metrics_addr: 127.0.0.1:9100
log_level: debug
log_json: true
read_header_timeout: 2s
shutdown_timeout: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "127.0.0.1:9090", cfg.GRPCAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 2*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "http_addr: 0.0.0.0:8080\nlog_level: debug\n")
	t.Setenv("HTTP_ADDR", "127.0.0.1:4000")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		body string
	}{
		{name: "bad bool", env: map[string]string{"LOG_JSON": "maybe"}},
		{name: "bad duration", env: map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
		{name: "bad level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "bad yaml", body: "http_addr: [unterminated"},
		{name: "negative timeout", body: "read_header_timeout: -1s"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			path := ""
			if c.body != "" {
				path = writeFile(t, c.body)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLogger(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	l := cfg.Logger("pyazkv")
	assert.False(t, l.IsInfo())
	assert.True(t, l.IsWarn())
	assert.Equal(t, "pyazkv", l.Name())
}
