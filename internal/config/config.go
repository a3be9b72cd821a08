package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"simlint/internal/anomaly"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = ".simlint/config.yaml"

// Config holds all simlint configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Blueprint discovery
	Scan ScanConfig `yaml:"scan"`

	// Cadence simulation
	Simulation SimulationConfig `yaml:"simulation"`

	// Anomaly thresholds
	Anomaly anomaly.Thresholds `yaml:"anomaly"`

	// Report and database output
	Output OutputConfig `yaml:"output"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Terminal rendering
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SimulationConfig configures the micro-scheduler.
type SimulationConfig struct {
	Seconds      float64 `yaml:"seconds"`
	GapTolerance float64 `yaml:"gap_tolerance"`
}

// OutputConfig configures where scan results go.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	DatabaseName string `yaml:"database_name"`
	WriteHTML    bool   `yaml:"write_html"`
	WriteDB      bool   `yaml:"write_db"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// UIConfig configures terminal output.
type UIConfig struct {
	Theme    string `yaml:"theme"` // auto, light, dark
	WordWrap int    `yaml:"word_wrap"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "simlint",
		Version: "0.3.0",

		Scan: DefaultScanConfig(),

		Simulation: SimulationConfig{
			Seconds:      30,
			GapTolerance: 0.05,
		},

		Anomaly: anomaly.DefaultThresholds(),

		Output: OutputConfig{
			Dir:          "out",
			DatabaseName: "scan.sqlite",
			WriteHTML:    true,
			WriteDB:      true,
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 100,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. Unparseable
// values are ignored.
func (c *Config) applyEnvOverrides() {
	if v, ok := envFloat("SIMLINT_SIMULATION_SECONDS"); ok {
		c.Simulation.Seconds = v
	}
	if v, ok := envFloat("SIMLINT_GAP_TOLERANCE"); ok {
		c.Simulation.GapTolerance = v
	}
	if v := os.Getenv("SIMLINT_SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.Workers = n
		}
	}
	if v := os.Getenv("SIMLINT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SIMLINT_OUT_DIR"); v != "" {
		c.Output.Dir = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// DatabasePath is the SQLite file inside the output directory.
func (c *Config) DatabasePath() string {
	name := c.Output.DatabaseName
	if name == "" {
		name = "scan.sqlite"
	}
	return filepath.Join(c.Output.Dir, name)
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ValidateLimits(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output dir must not be empty")
	}
	return nil
}
