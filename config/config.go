package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the config location relative to the workspace root.
const File = ".glubean/testbridge.yaml"

type Config struct {
	// Runner argv prefix; run arguments are appended to it
	RunnerCommand []string `yaml:"runner_command"`
	// Environment file passed to the runner (optional)
	EnvFile string `yaml:"env_file"`
	// Maximum trace files kept per test (0 keeps the runner default)
	TraceLimit int `yaml:"trace_limit"`
	// Globs selecting test source files during discovery
	TestGlobs []string `yaml:"test_globs"`

	Debug DebugConfig `yaml:"debug"`

	// Per-invocation timeout for ordinary runs (0 defers to cancellation)
	RunTimeout time.Duration `yaml:"run_timeout"`

	Discovery DiscoveryConfig `yaml:"discovery"`

	// Quiet period after a file change before rediscovery
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

type DebugConfig struct {
	PortBase     int           `yaml:"port_base"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
	Grace        time.Duration `yaml:"grace"`
	KillDelay    time.Duration `yaml:"kill_delay"`
}

type DiscoveryConfig struct {
	CacheSize   int `yaml:"cache_size"`
	Concurrency int `yaml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RunnerCommand: []string{"glubean"},
		TestGlobs:     []string{"*.test.ts", "*.test.js"},
		Debug: DebugConfig{
			PortBase:     9229,
			Timeout:      5 * time.Minute,
			PollInterval: 200 * time.Millisecond,
			PollTimeout:  15 * time.Second,
			Grace:        1 * time.Second,
			KillDelay:    2 * time.Second,
		},
		Discovery: DiscoveryConfig{
			CacheSize:   256,
			Concurrency: 8,
		},
		WatchDebounce: 300 * time.Millisecond,
	}
}

// Load returns the defaults overlaid with the YAML file at path. A missing
// file is not an error unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the default config location for a workspace root.
func Path(root string) string {
	return filepath.Join(root, File)
}

func (c *Config) Validate() error {
	if len(c.RunnerCommand) == 0 || c.RunnerCommand[0] == "" {
		return errors.New("runner_command must not be empty")
	}
	if c.TraceLimit < 0 {
		return errors.New("trace_limit must not be negative")
	}
	if c.Debug.PortBase <= 0 || c.Debug.PortBase > 65535 {
		return fmt.Errorf("debug.port_base %d is not a valid port", c.Debug.PortBase)
	}
	for _, g := range c.TestGlobs {
		if _, err := filepath.Match(g, ""); err != nil {
			return fmt.Errorf("invalid test glob %q: %w", g, err)
		}
	}
	if c.Discovery.Concurrency <= 0 {
		c.Discovery.Concurrency = 1
	}
	if c.Discovery.CacheSize <= 0 {
		c.Discovery.CacheSize = Default().Discovery.CacheSize
	}
	return nil
}

// IsTestFile reports whether the base name of path matches a test glob.
func (c *Config) IsTestFile(path string) bool {
	base := filepath.Base(path)
	for _, g := range c.TestGlobs {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}
