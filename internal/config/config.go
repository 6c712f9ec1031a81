package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Target    TargetConfig    `mapstructure:"target"`
	Journey   JourneyConfig   `mapstructure:"journey"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Report    ReportConfig    `mapstructure:"report"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug"`
	Info   string `mapstructure:"info"`
	Warn   string `mapstructure:"warn"`
	Error  string `mapstructure:"error"`
	DPanic string `mapstructure:"dpanic"`
	Panic  string `mapstructure:"panic"`
	Fatal  string `mapstructure:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"`
	AddSource   bool        `mapstructure:"add_source"`
	ServiceName string      `mapstructure:"service_name"`
	LogFile     string      `mapstructure:"log_file"`
	MaxSize     int         `mapstructure:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups"`
	MaxAge      int         `mapstructure:"max_age"`
	Compress    bool        `mapstructure:"compress"`
	Colors      ColorConfig `mapstructure:"colors"`
}

// TargetConfig identifies the web app under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// JourneyConfig tunes the behavior of the six-stage run.
type JourneyConfig struct {
	// Destination to search for. Empty means the first entry of the
	// built-in destination list; RandomDestination picks one at random
	// instead (operators only; tests want determinism).
	Destination       string `mapstructure:"destination"`
	RandomDestination bool   `mapstructure:"random_destination"`
	Adults            int    `mapstructure:"adults"`
	Children          int    `mapstructure:"children"`
	MaxListings       int    `mapstructure:"max_listings"`
	SuggestionCap     int    `mapstructure:"suggestion_cap"`
	OpenerAttempts    int    `mapstructure:"opener_attempts"`
	// TypingDelay is the pause between characters when typing into the
	// search box; autosuggest backends need to see individual keystrokes.
	TypingDelay time.Duration `mapstructure:"typing_delay"`
	// InteractionsPerSecond caps the executor's click/type rate.
	InteractionsPerSecond float64 `mapstructure:"interactions_per_second"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless        bool   `mapstructure:"headless"`
	Mobile          bool   `mapstructure:"mobile"`
	UserAgent       string `mapstructure:"user_agent"`
	WindowWidth     int    `mapstructure:"window_width"`
	WindowHeight    int    `mapstructure:"window_height"`
	ExecPath        string `mapstructure:"exec_path"`
	IgnoreTLSErrors bool   `mapstructure:"ignore_tls_errors"`
	// Args are extra Chrome flags, "--name=value" or bare "--name".
	Args []string `mapstructure:"args"`
}

// TimeoutsConfig bounds every wait in the system. There are no unbounded
// waits anywhere; each of these feeds a context deadline or poll budget.
type TimeoutsConfig struct {
	Navigation    time.Duration `mapstructure:"navigation"`
	Stage         time.Duration `mapstructure:"stage"`
	ProbeDeadline time.Duration `mapstructure:"probe_deadline"`
	// ResultsDeadline replaces ProbeDeadline for the results stage, which
	// waits on a full search round-trip rather than a widget render.
	ResultsDeadline time.Duration `mapstructure:"results_deadline"`
	ProbeInterval   time.Duration `mapstructure:"probe_interval"`
	Resolve         time.Duration `mapstructure:"resolve"`
	Interaction     time.Duration `mapstructure:"interaction"`
	StabilizeQuiet  time.Duration `mapstructure:"stabilize_quiet"`
	Shutdown        time.Duration `mapstructure:"shutdown"`
}

// PostgresConfig holds settings for the result sink. An empty URL disables
// persistence entirely.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// ArtifactsConfig controls what gets written next to the run.
type ArtifactsConfig struct {
	Dir            string `mapstructure:"dir"`
	Screenshots    bool   `mapstructure:"screenshots"`
	Snapshots      bool   `mapstructure:"snapshots"`
	CaptureNetwork bool   `mapstructure:"capture_network"`
}

// ReportConfig controls the reports written when a run finalizes. An
// empty Output writes the primary report to stdout; an empty JUnitOutput
// disables the JUnit report.
type ReportConfig struct {
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
	JUnitOutput string `mapstructure:"junit_output"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wayfarer-cli")
	v.SetDefault("logger.log_file", "wayfarer.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Target --
	v.SetDefault("target.base_url", "https://www.airbnb.com")

	// -- Journey --
	v.SetDefault("journey.destination", "")
	v.SetDefault("journey.random_destination", false)
	v.SetDefault("journey.adults", 3)
	v.SetDefault("journey.children", 2)
	v.SetDefault("journey.max_listings", 20)
	v.SetDefault("journey.suggestion_cap", 8)
	v.SetDefault("journey.opener_attempts", 3)
	v.SetDefault("journey.typing_delay", "120ms")
	v.SetDefault("journey.interactions_per_second", 4.0)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.mobile", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.window_width", 1440)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.args", []string{})

	// -- Timeouts --
	v.SetDefault("timeouts.navigation", "45s")
	v.SetDefault("timeouts.stage", "90s")
	v.SetDefault("timeouts.probe_deadline", "4s")
	v.SetDefault("timeouts.results_deadline", "12s")
	v.SetDefault("timeouts.probe_interval", "120ms")
	v.SetDefault("timeouts.resolve", "2s")
	v.SetDefault("timeouts.interaction", "4s")
	v.SetDefault("timeouts.stabilize_quiet", "800ms")
	v.SetDefault("timeouts.shutdown", "15s")

	// -- Postgres --
	v.SetDefault("postgres.url", "")

	// -- Artifacts --
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.screenshots", true)
	v.SetDefault("artifacts.snapshots", true)
	v.SetDefault("artifacts.capture_network", true)

	// -- Report --
	v.SetDefault("report.format", "json")
	v.SetDefault("report.output", "")
	v.SetDefault("report.junit_output", "")
}

// NewConfigFromViper builds and validates a Config from a prepared viper
// instance. Defaults are applied first so a bare viper yields a runnable
// configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the run cannot proceed with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil {
		return fmt.Errorf("target.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target.base_url must be http or https, got %q", c.Target.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("target.base_url has no host: %q", c.Target.BaseURL)
	}

	// The guest picker invariant starts here: a journey may never ask for
	// zero adults.
	if c.Journey.Adults < 1 {
		return fmt.Errorf("journey.adults must be at least 1, got %d", c.Journey.Adults)
	}
	if c.Journey.Children < 0 {
		return fmt.Errorf("journey.children cannot be negative, got %d", c.Journey.Children)
	}
	if c.Journey.MaxListings < 1 {
		return fmt.Errorf("journey.max_listings must be at least 1, got %d", c.Journey.MaxListings)
	}
	if c.Journey.OpenerAttempts < 1 {
		return fmt.Errorf("journey.opener_attempts must be at least 1, got %d", c.Journey.OpenerAttempts)
	}
	if c.Journey.InteractionsPerSecond <= 0 {
		return fmt.Errorf("journey.interactions_per_second must be positive, got %v", c.Journey.InteractionsPerSecond)
	}

	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive, got %dx%d",
			c.Browser.WindowWidth, c.Browser.WindowHeight)
	}

	if c.Timeouts.ProbeInterval <= 0 {
		return fmt.Errorf("timeouts.probe_interval must be positive, got %v", c.Timeouts.ProbeInterval)
	}
	if c.Timeouts.ProbeDeadline < c.Timeouts.ProbeInterval {
		return fmt.Errorf("timeouts.probe_deadline (%v) cannot be shorter than timeouts.probe_interval (%v)",
			c.Timeouts.ProbeDeadline, c.Timeouts.ProbeInterval)
	}

	level := strings.ToLower(c.Logger.Level)
	switch level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("logger.level %q is not a recognized zap level", c.Logger.Level)
	}

	switch strings.ToLower(c.Report.Format) {
	case "json", "junit":
	default:
		return fmt.Errorf("report.format must be json or junit, got %q", c.Report.Format)
	}

	return nil
}
