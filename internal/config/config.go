// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is populated from
// config.yaml plus STUDYFLOW_* environment variables via Viper, starting from
// the defaults in NewDefaultConfig.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Humanoid HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
	Fill     FillConfig     `mapstructure:"fill" yaml:"fill"`
	Drafting DraftingConfig `mapstructure:"drafting" yaml:"drafting"`
	Style    StyleConfig    `mapstructure:"style" yaml:"style"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File logging (rotated by lumberjack). Disabled when LogFile is empty.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the chromedp session.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// UserDataDir preserves cookies between runs so the authenticated
	// platform session survives process restarts.
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// NetworkIdleTimeout bounds the post-load settle wait; extraction
	// proceeds regardless once it elapses.
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout" yaml:"network_idle_timeout"`
	// SettleGrace is the fixed sleep applied after the network-idle signal.
	SettleGrace time.Duration `mapstructure:"settle_grace" yaml:"settle_grace"`
	Debug       bool          `mapstructure:"debug" yaml:"debug"`
}

// HumanoidConfig is the tunable human-pacing policy injected into the typing
// primitive. Tests swap it for ZeroPacing-equivalent values.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Per-keystroke delay bounds in milliseconds.
	KeyDelayMinMs int `mapstructure:"key_delay_min_ms" yaml:"key_delay_min_ms"`
	KeyDelayMaxMs int `mapstructure:"key_delay_max_ms" yaml:"key_delay_max_ms"`
	// Words are typed in bursts of this size range with an occasional pause
	// between bursts.
	BurstMin         int     `mapstructure:"burst_min" yaml:"burst_min"`
	BurstMax         int     `mapstructure:"burst_max" yaml:"burst_max"`
	PauseProbability float64 `mapstructure:"pause_probability" yaml:"pause_probability"`
	PauseMinMs       int     `mapstructure:"pause_min_ms" yaml:"pause_min_ms"`
	PauseMaxMs       int     `mapstructure:"pause_max_ms" yaml:"pause_max_ms"`
}

// FillConfig holds the Smart-Fill engine tunables. The defaults mirror the
// empirically chosen values the engine shipped with; none of them are
// load-bearing business logic.
type FillConfig struct {
	// MatchThreshold is the minimum similarity score for a greedy
	// field/answer assignment; below it the matcher falls back to positional
	// pairing.
	MatchThreshold float64 `mapstructure:"match_threshold" yaml:"match_threshold"`
	// MaxFields caps the prompt list extracted from a document export.
	MaxFields int `mapstructure:"max_fields" yaml:"max_fields"`
	// TableRowPairs is the minimum number of qualifying rows (or row pairs)
	// for a side/below table classification.
	TableRowPairs int `mapstructure:"table_row_pairs" yaml:"table_row_pairs"`
	// Retry policy for the whole fill pass.
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	// Character ceilings applied before placement.
	MaxAnswerChars int `mapstructure:"max_answer_chars" yaml:"max_answer_chars"`
	MaxDraftChars  int `mapstructure:"max_draft_chars" yaml:"max_draft_chars"`
	// FieldPause bounds the randomized sleep between consecutive field
	// fills.
	FieldPauseMin time.Duration `mapstructure:"field_pause_min" yaml:"field_pause_min"`
	FieldPauseMax time.Duration `mapstructure:"field_pause_max" yaml:"field_pause_max"`
	// DebugDir, when set, receives per-field screenshots.
	DebugDir string `mapstructure:"debug_dir" yaml:"debug_dir"`
}

// DraftingConfig controls the answer-generation client.
type DraftingConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// RequestsPerMinute paces outbound generation calls.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// StyleConfig locates the prior-writing samples used to steer generation.
type StyleConfig struct {
	SamplesDir     string `mapstructure:"samples_dir" yaml:"samples_dir"`
	MaxSamples     int    `mapstructure:"max_samples" yaml:"max_samples"`
	MaxSampleChars int    `mapstructure:"max_sample_chars" yaml:"max_sample_chars"`
}

// WorkflowConfig controls the run pipeline and the schedule loop.
type WorkflowConfig struct {
	StateFile string `mapstructure:"state_file" yaml:"state_file"`
	LockFile  string `mapstructure:"lock_file" yaml:"lock_file"`
	// Randomized delay between assignments within one run.
	DelayMin time.Duration `mapstructure:"delay_min" yaml:"delay_min"`
	DelayMax time.Duration `mapstructure:"delay_max" yaml:"delay_max"`
	// Per-assignment delivery attempts and per-attempt timeout.
	PasteAttempts       int           `mapstructure:"paste_attempts" yaml:"paste_attempts"`
	PasteAttemptTimeout time.Duration `mapstructure:"paste_attempt_timeout" yaml:"paste_attempt_timeout"`
	// Schedule mode.
	ScheduleInterval time.Duration `mapstructure:"schedule_interval" yaml:"schedule_interval"`
	// FailedRetryAfter is the cool-off before a failed assignment is
	// retried by the schedule loop.
	FailedRetryAfter time.Duration `mapstructure:"failed_retry_after" yaml:"failed_retry_after"`
	// BootstrapExisting baselines already-visible assignments on the first
	// scheduled scan instead of processing them.
	BootstrapExisting bool `mapstructure:"bootstrap_existing" yaml:"bootstrap_existing"`
	// TodoURL is the platform page listing pending work.
	TodoURL string `mapstructure:"todo_url" yaml:"todo_url"`
}

// NewDefaultConfig returns the configuration the application runs with when
// no config file or environment overrides are present.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "studyflow-cli",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Browser: BrowserConfig{
			Headless:           true,
			NavigationTimeout:  90 * time.Second,
			NetworkIdleTimeout: 45 * time.Second,
			SettleGrace:        5 * time.Second,
		},
		Humanoid: HumanoidConfig{
			Enabled:          true,
			KeyDelayMinMs:    20,
			KeyDelayMaxMs:    48,
			BurstMin:         2,
			BurstMax:         5,
			PauseProbability: 0.2,
			PauseMinMs:       60,
			PauseMaxMs:       250,
		},
		Fill: FillConfig{
			MatchThreshold: 0.15,
			MaxFields:      24,
			TableRowPairs:  2,
			RetryAttempts:  3,
			RetryBackoff:   2 * time.Second,
			MaxAnswerChars: 4000,
			MaxDraftChars:  14000,
			FieldPauseMin:  800 * time.Millisecond,
			FieldPauseMax:  1800 * time.Millisecond,
		},
		Drafting: DraftingConfig{
			Model:             "gemini-2.0-flash",
			Temperature:       0.7,
			APITimeout:        2 * time.Minute,
			RequestsPerMinute: 6,
		},
		Style: StyleConfig{
			SamplesDir:     "style_samples",
			MaxSamples:     5,
			MaxSampleChars: 3500,
		},
		Workflow: WorkflowConfig{
			StateFile:           ".studyflow_state.json",
			LockFile:            ".studyflow_run.lock",
			DelayMin:            10 * time.Second,
			DelayMax:            30 * time.Second,
			PasteAttempts:       3,
			PasteAttemptTimeout: 4 * time.Minute,
			ScheduleInterval:    15 * time.Minute,
			FailedRetryAfter:    45 * time.Minute,
			BootstrapExisting:   true,
		},
	}
}

// Load builds a Config from the supplied viper instance layered over the
// defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Fill.MatchThreshold < 0 || c.Fill.MatchThreshold > 1 {
		return fmt.Errorf("fill.match_threshold must be in [0,1], got %v", c.Fill.MatchThreshold)
	}
	if c.Fill.MaxFields <= 0 {
		return fmt.Errorf("fill.max_fields must be a positive integer")
	}
	if c.Fill.TableRowPairs < 1 {
		return fmt.Errorf("fill.table_row_pairs must be at least 1")
	}
	if c.Fill.RetryAttempts < 1 {
		return fmt.Errorf("fill.retry_attempts must be at least 1")
	}
	if c.Humanoid.BurstMin < 1 || c.Humanoid.BurstMax < c.Humanoid.BurstMin {
		return fmt.Errorf("humanoid burst range is invalid: [%d,%d]", c.Humanoid.BurstMin, c.Humanoid.BurstMax)
	}
	if c.Humanoid.KeyDelayMaxMs < c.Humanoid.KeyDelayMinMs {
		return fmt.Errorf("humanoid key delay range is invalid: [%d,%d]", c.Humanoid.KeyDelayMinMs, c.Humanoid.KeyDelayMaxMs)
	}
	if c.Workflow.DelayMax < c.Workflow.DelayMin {
		return fmt.Errorf("workflow delay range is invalid: [%v,%v]", c.Workflow.DelayMin, c.Workflow.DelayMax)
	}
	if c.Workflow.PasteAttempts < 1 {
		return fmt.Errorf("workflow.paste_attempts must be at least 1")
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	return nil
}
