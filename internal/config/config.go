// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines a read-only contract for accessing application configuration.
// Components depend on this rather than on the concrete struct.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Browser() BrowserConfig
	Network() NetworkConfig
	Humanoid() HumanoidConfig
	Engine() EngineConfig
	Decomposer() DecomposerConfig
	Runner() RunnerConfig
}

// Config is the root configuration structure.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	NetworkCfg    NetworkConfig    `mapstructure:"network" yaml:"network"`
	HumanoidCfg   HumanoidConfig   `mapstructure:"humanoid" yaml:"humanoid"`
	EngineCfg     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	DecomposerCfg DecomposerConfig `mapstructure:"decomposer" yaml:"decomposer"`
	RunnerCfg     RunnerConfig     `mapstructure:"runner" yaml:"runner"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Network() NetworkConfig       { return c.NetworkCfg }
func (c *Config) Humanoid() HumanoidConfig     { return c.HumanoidCfg }
func (c *Config) Engine() EngineConfig         { return c.EngineCfg }
func (c *Config) Decomposer() DecomposerConfig { return c.DecomposerCfg }
func (c *Config) Runner() RunnerConfig         { return c.RunnerCfg }

// LoggerConfig defines all the settings for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color settings for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the workflow store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	URL    string `mapstructure:"url" yaml:"url"`
}

// ViewportConfig is the browser window size in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BrowserConfig holds settings for the remote browser and its session pool.
type BrowserConfig struct {
	Headless  bool           `mapstructure:"headless" yaml:"headless"`
	Args      []string       `mapstructure:"args" yaml:"args"`
	UserAgent string         `mapstructure:"user_agent" yaml:"user_agent"`
	Viewport  ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	// MaxSessions caps live sessions across every engine in the process.
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
	// LaunchRate is sessions per second; zero disables the limit.
	LaunchRate  float64 `mapstructure:"launch_rate" yaml:"launch_rate"`
	LaunchBurst int     `mapstructure:"launch_burst" yaml:"launch_burst"`
}

// NetworkConfig holds the page-level time budgets.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	OperationTimeout  time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// EngineConfig tunes step execution.
type EngineConfig struct {
	InterStepMin time.Duration `mapstructure:"inter_step_min" yaml:"inter_step_min"`
	InterStepMax time.Duration `mapstructure:"inter_step_max" yaml:"inter_step_max"`
	// DefaultWait is used by wait steps whose value is missing or unparseable.
	DefaultWait           time.Duration `mapstructure:"default_wait" yaml:"default_wait"`
	AllowScriptConditions bool          `mapstructure:"allow_script_conditions" yaml:"allow_script_conditions"`
	InterpolateVariables  bool          `mapstructure:"interpolate_variables" yaml:"interpolate_variables"`
}

// DecomposerConfig overrides the rule decomposer's search target.
type DecomposerConfig struct {
	DefaultURL           string `mapstructure:"default_url" yaml:"default_url"`
	SearchURL            string `mapstructure:"search_url" yaml:"search_url"`
	SearchInputSelector  string `mapstructure:"search_input_selector" yaml:"search_input_selector"`
	SearchSubmitSelector string `mapstructure:"search_submit_selector" yaml:"search_submit_selector"`
}

// RunnerConfig bounds batch execution.
type RunnerConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "taskflow")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Database --
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.url", "")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)
	v.SetDefault("browser.max_sessions", 4)
	v.SetDefault("browser.launch_rate", 1.0)
	v.SetDefault("browser.launch_burst", 2)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "30s")
	v.SetDefault("network.operation_timeout", "10s")
	v.SetDefault("network.post_load_wait", "500ms")

	// -- Humanoid --
	v.SetDefault("humanoid.keystroke_min", "50ms")
	v.SetDefault("humanoid.keystroke_max", "200ms")
	v.SetDefault("humanoid.settle_min", "100ms")
	v.SetDefault("humanoid.settle_max", "500ms")
	v.SetDefault("humanoid.move_steps_min", 30)
	v.SetDefault("humanoid.move_steps_max", 99)
	v.SetDefault("humanoid.scroll_step_min", 100)
	v.SetDefault("humanoid.scroll_step_max", 300)
	v.SetDefault("humanoid.scroll_pause_min", "100ms")
	v.SetDefault("humanoid.scroll_pause_max", "300ms")
	v.SetDefault("humanoid.click_inset", 0.9)

	// -- Engine --
	v.SetDefault("engine.inter_step_min", "500ms")
	v.SetDefault("engine.inter_step_max", "2s")
	v.SetDefault("engine.default_wait", "1s")
	v.SetDefault("engine.allow_script_conditions", false)
	v.SetDefault("engine.interpolate_variables", true)

	// -- Decomposer --
	v.SetDefault("decomposer.default_url", "https://www.google.com")
	v.SetDefault("decomposer.search_url", "https://www.google.com")
	v.SetDefault("decomposer.search_input_selector", `textarea[name="q"], input[name="q"]`)
	v.SetDefault("decomposer.search_submit_selector", `input[type="submit"], button[type="submit"]`)

	// -- Runner --
	v.SetDefault("runner.concurrency", 2)
}

// NewConfigFromViper unmarshals a viper instance into a validated Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Explicitly bind the database URL so both the prefixed and the
	// conventional variable name are honored.
	if err := v.BindEnv("database.url", "TASKFLOW_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("error binding database.url env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LoggerCfg.Level) {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		errs = append(errs, fmt.Errorf("logger.level %q is not a valid level", c.LoggerCfg.Level))
	}

	switch c.DatabaseCfg.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseCfg.URL == "" {
			errs = append(errs, errors.New("database.url is required when database.driver is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q", DriverMemory, DriverPostgres))
	}

	if c.BrowserCfg.MaxSessions <= 0 {
		errs = append(errs, errors.New("browser.max_sessions must be a positive integer"))
	}
	if c.BrowserCfg.LaunchRate < 0 {
		errs = append(errs, errors.New("browser.launch_rate must not be negative"))
	}
	if c.BrowserCfg.LaunchRate > 0 && c.BrowserCfg.LaunchBurst <= 0 {
		errs = append(errs, errors.New("browser.launch_burst must be a positive integer when browser.launch_rate is set"))
	}
	if c.BrowserCfg.Viewport.Width <= 0 || c.BrowserCfg.Viewport.Height <= 0 {
		errs = append(errs, errors.New("browser.viewport width and height must be positive"))
	}

	if c.NetworkCfg.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("network.navigation_timeout must be positive"))
	}
	if c.NetworkCfg.OperationTimeout <= 0 {
		errs = append(errs, errors.New("network.operation_timeout must be positive"))
	}
	if c.NetworkCfg.PostLoadWait < 0 {
		errs = append(errs, errors.New("network.post_load_wait must not be negative"))
	}

	errs = append(errs, c.HumanoidCfg.validate()...)

	if err := checkRange("engine.inter_step", c.EngineCfg.InterStepMin, c.EngineCfg.InterStepMax); err != nil {
		errs = append(errs, err)
	}
	if c.EngineCfg.DefaultWait <= 0 {
		errs = append(errs, errors.New("engine.default_wait must be positive"))
	}

	if c.RunnerCfg.Concurrency <= 0 {
		errs = append(errs, errors.New("runner.concurrency must be a positive integer"))
	}

	return errors.Join(errs...)
}

func checkRange(key string, min, max time.Duration) error {
	if min < 0 || max < 0 {
		return fmt.Errorf("%s_min and %s_max must not be negative", key, key)
	}
	if min > max {
		return fmt.Errorf("%s_min must not exceed %s_max", key, key)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding path %q: %w", path, err)
	}
	return expanded, nil
}
