package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the backend base URL used when nothing else is configured.
// Release builds may replace it with
//
//	-ldflags "-X cry2care/internal/config.DefaultAPIURL=https://..."
var DefaultAPIURL = "http://localhost:5000/api"

// RecordWindow is the fixed microphone capture length.
const RecordWindow = 5 * time.Second

// Skins.
const (
	SkinClinical = "clinical"
	SkinNight    = "night"
)

// Config holds all cry2care configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Capture    CaptureConfig    `yaml:"capture"`
	Ward       WardConfig       `yaml:"ward"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	UI         UIConfig         `yaml:"ui"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// APIConfig configures the classification backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// CaptureConfig configures the external recorder.
type CaptureConfig struct {
	Tool       string `yaml:"tool"`   // arecord, ffmpeg, sox
	Device     string `yaml:"device"` // tool-specific input device
	SampleRate int    `yaml:"sample_rate"`
}

// WardConfig carries the descriptive fields shown on the settings view.
type WardConfig struct {
	WardID          string `yaml:"ward_id"`
	Clinician       string `yaml:"clinician"`
	RetentionPolicy string `yaml:"retention_policy"`
}

// ThresholdsConfig holds the tunable alert parameters.
type ThresholdsConfig struct {
	SensitivityDB float64 `yaml:"sensitivity_db"`
	DistressAlert float64 `yaml:"distress_alert"` // severity above this is urgent
}

// UIConfig configures the dashboard.
type UIConfig struct {
	Skin string `yaml:"skin"` // clinical, night
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"` // debug, info, warn, error
	Dir       string `yaml:"dir"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIURL,
			Timeout: "30s",
		},
		Capture: CaptureConfig{
			Tool:       "arecord",
			SampleRate: 22050,
		},
		Ward: WardConfig{
			WardID:          "NICU-West-Wing-04",
			Clinician:       "Dr. A. Rivera (ID: 8992)",
			RetentionPolicy: "HIPAA Compliant (30 Days)",
		},
		Thresholds: ThresholdsConfig{
			SensitivityDB: 50,
			DistressAlert: 7,
		},
		UI: UIConfig{
			Skin: SkinClinical,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/cry2care/config.yaml (or the OS equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cry2care", "config.yaml")
}

// Load reads configuration from path. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, replacing the file atomically.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// applyEnvOverrides applies CRY2CARE_* environment variables.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("CRY2CARE_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if skin := os.Getenv("CRY2CARE_SKIN"); skin != "" {
		c.UI.Skin = skin
	}
	if v := os.Getenv("CRY2CARE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

func (c *Config) normalize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = strings.TrimRight(DefaultAPIURL, "/")
	}
	c.UI.Skin = strings.ToLower(strings.TrimSpace(c.UI.Skin))
	if c.UI.Skin == "" {
		c.UI.Skin = SkinClinical
	}
	if c.Capture.SampleRate <= 0 {
		c.Capture.SampleRate = 22050
	}
	if c.Thresholds.DistressAlert == 0 {
		c.Thresholds.DistressAlert = 7
	}
}

// ValidSkins lists the accepted ui.skin values.
var ValidSkins = []string{SkinClinical, SkinNight}

// ValidTools lists the supported recorder front-ends.
var ValidTools = []string{"arecord", "ffmpeg", "sox"}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if !contains(ValidSkins, c.UI.Skin) {
		return fmt.Errorf("invalid ui.skin: %s (valid: %v)", c.UI.Skin, ValidSkins)
	}
	if c.Capture.Tool != "" && !contains(ValidTools, c.Capture.Tool) {
		return fmt.Errorf("invalid capture.tool: %s (valid: %v)", c.Capture.Tool, ValidTools)
	}
	if t := c.Thresholds.DistressAlert; t < 1 || t > 10 {
		return fmt.Errorf("thresholds.distress_alert must be within 1-10, got %v", t)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	return nil
}

// Overrides are per-run values, such as command-line flags, layered over the
// file. They are never written back by Save.
type Overrides struct {
	APIURL string
	Skin   string
}

// Apply returns a copy of c with the non-empty overrides set.
func (o Overrides) Apply(c *Config) *Config {
	out := c.Clone()
	if o.APIURL != "" {
		out.API.BaseURL = strings.TrimRight(o.APIURL, "/")
	}
	if o.Skin != "" {
		out.UI.Skin = o.Skin
	}
	return out
}

// GetAPITimeout returns the request timeout, 30s when unset or malformed.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
