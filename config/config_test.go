package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), false)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "none.yaml"), true)
	require.Error(t, err)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
runner_command: ["npx", "glubean"]
env_file: .env.staging
trace_limit: 10
debug:
  port_base: 9300
  timeout: 2m
`), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.Equal(t, []string{"npx", "glubean"}, cfg.RunnerCommand)
	require.Equal(t, ".env.staging", cfg.EnvFile)
	require.Equal(t, 10, cfg.TraceLimit)
	require.Equal(t, 9300, cfg.Debug.PortBase)
	require.Equal(t, 2*time.Minute, cfg.Debug.Timeout)
	// Untouched fields keep their defaults.
	require.Equal(t, 200*time.Millisecond, cfg.Debug.PollInterval)
	require.Equal(t, 8, cfg.Discovery.Concurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty runner", mutate: func(c *Config) { c.RunnerCommand = nil }, wantErr: "runner_command"},
		{name: "negative trace limit", mutate: func(c *Config) { c.TraceLimit = -1 }, wantErr: "trace_limit"},
		{name: "bad port", mutate: func(c *Config) { c.Debug.PortBase = 70000 }, wantErr: "port_base"},
		{name: "bad glob", mutate: func(c *Config) { c.TestGlobs = []string{"["} }, wantErr: "invalid test glob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIsTestFile(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.IsTestFile("src/api.test.ts"))
	require.False(t, cfg.IsTestFile("src/api.ts"))
}
