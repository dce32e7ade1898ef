package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"attblink/internal/stimulus"
	"attblink/internal/trial"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config struct is the top-level configuration structure.
type Config struct {
	Experiment  ExperimentConfig  `mapstructure:"experiment"`
	Timing      TimingConfig      `mapstructure:"timing"`
	Output      OutputConfig      `mapstructure:"output"`
	Participant ParticipantConfig `mapstructure:"participant"`
	Display     DisplayConfig     `mapstructure:"display"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`

	v *viper.Viper
}

// ExperimentConfig fixes the shape of every trial. It is read once and never changes
// during a run.
type ExperimentConfig struct {
	Streams       int          `mapstructure:"streams"`
	Radius        float64      `mapstructure:"radius"`
	IntervalMs    int          `mapstructure:"interval_ms"`
	FramesMax     int          `mapstructure:"frames_max"`
	TrialMax      int          `mapstructure:"trial_max"`
	Practice      bool         `mapstructure:"practice"`
	PracticeCount int          `mapstructure:"practice_count"`
	Targets       []int        `mapstructure:"targets"`
	Distractors   []string     `mapstructure:"distractors"`
	TargetWindow  WindowConfig `mapstructure:"target_window"`
	Seed          uint64       `mapstructure:"seed"` // 0 seeds from the clock
}

// WindowConfig bounds the frames the two targets may land on.
type WindowConfig struct {
	FirstMin int `mapstructure:"first_min"`
	FirstMax int `mapstructure:"first_max"`
	Last     int `mapstructure:"last"`
	LagMin   int `mapstructure:"lag_min"`
	LagMax   int `mapstructure:"lag_max"`
}

// TimingConfig holds the pauses around the stream, in milliseconds.
type TimingConfig struct {
	FixationMs      int `mapstructure:"fixation_ms"`
	ResponseDelayMs int `mapstructure:"response_delay_ms"`
	FeedbackDelayMs int `mapstructure:"feedback_delay_ms"`
	InterTrialMs    int `mapstructure:"inter_trial_ms"`
}

type OutputConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

type ParticipantConfig struct {
	File string `mapstructure:"file"`
}

type DisplayConfig struct {
	Sound bool `mapstructure:"sound"`
}

// ServerConfig holds settings for the results viewer.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Experiment defaults
	v.SetDefault("experiment.streams", 7)
	v.SetDefault("experiment.radius", 180.0)
	v.SetDefault("experiment.interval_ms", 140)
	v.SetDefault("experiment.frames_max", 30)
	v.SetDefault("experiment.trial_max", 7)
	v.SetDefault("experiment.practice", true)
	v.SetDefault("experiment.practice_count", 1)
	v.SetDefault("experiment.targets", []int{2, 3, 4, 5, 6, 7, 8, 9})
	v.SetDefault("experiment.distractors", strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXYZ", ""))
	v.SetDefault("experiment.target_window.first_min", stimulus.DefaultFrameWindow.FirstMin)
	v.SetDefault("experiment.target_window.first_max", stimulus.DefaultFrameWindow.FirstMax)
	v.SetDefault("experiment.target_window.last", stimulus.DefaultFrameWindow.Last)
	v.SetDefault("experiment.target_window.lag_min", stimulus.DefaultFrameWindow.LagMin)
	v.SetDefault("experiment.target_window.lag_max", stimulus.DefaultFrameWindow.LagMax)
	v.SetDefault("experiment.seed", 0)

	// Timing defaults
	v.SetDefault("timing.fixation_ms", 1000)
	v.SetDefault("timing.response_delay_ms", 1500)
	v.SetDefault("timing.feedback_delay_ms", 1000)
	v.SetDefault("timing.inter_trial_ms", 3000)

	v.SetDefault("output.csv_path", "attentionalBlink.csv")
	v.SetDefault("participant.file", "config/participant.yaml")
	v.SetDefault("display.sound", true)

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", "5050")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "attblink")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
	v.SetDefault("logging.console", false) // The terminal presenter owns the screen
}

// Load reads the configuration with Viper from projectRoot/config/config.yaml, the
// BLINK_ environment and the defaults, in that order of precedence after the
// environment.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// e.g. BLINK_EXPERIMENT_STREAMS
	v.SetEnvPrefix("BLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	conf := &Config{v: v}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, nil
}

// File is the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch logs edits to the config file. The experiment settings are frozen for the
// running session, so a change only takes effect on the next start.
func (c *Config) Watch(log *zap.Logger) {
	if c.File() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		log.Warn("Configuration file changed; the new settings apply to the next run",
			zap.String("file", e.Name),
			zap.String("op", e.Op.String()),
		)
	})
	c.v.WatchConfig()
}

// Validate rejects settings no trial could run with.
func (c *Config) Validate() error {
	e := c.Experiment
	switch {
	case e.Streams <= 0:
		return fmt.Errorf("experiment.streams must be positive, got %d", e.Streams)
	case e.Radius <= 0:
		return fmt.Errorf("experiment.radius must be positive, got %g", e.Radius)
	case e.IntervalMs <= 0:
		return fmt.Errorf("experiment.interval_ms must be positive, got %d", e.IntervalMs)
	case e.FramesMax <= 0:
		return fmt.Errorf("experiment.frames_max must be positive, got %d", e.FramesMax)
	case e.TrialMax <= 0:
		return fmt.Errorf("experiment.trial_max must be positive, got %d", e.TrialMax)
	case e.PracticeCount < 0:
		return fmt.Errorf("experiment.practice_count must not be negative, got %d", e.PracticeCount)
	}

	t := c.Timing
	if t.FixationMs < 0 || t.ResponseDelayMs < 0 || t.FeedbackDelayMs < 0 || t.InterTrialMs < 0 {
		return errors.New("timing values must not be negative")
	}
	if t.InterTrialMs < t.FeedbackDelayMs {
		return fmt.Errorf("timing.inter_trial_ms (%d) must not be shorter than timing.feedback_delay_ms (%d)",
			t.InterTrialMs, t.FeedbackDelayMs)
	}

	if err := c.Window().Validate(e.FramesMax); err != nil {
		return fmt.Errorf("experiment.target_window: %w", err)
	}
	if c.Output.CSVPath == "" && !c.Database.Enabled {
		return errors.New("no trial store configured: set output.csv_path or enable the database")
	}
	return stimulus.CheckPools(e.Targets, e.Distractors, e.Streams)
}

// Window is the configured target frame window.
func (c *Config) Window() stimulus.FrameWindow {
	w := c.Experiment.TargetWindow
	return stimulus.FrameWindow{
		FirstMin: w.FirstMin,
		FirstMax: w.FirstMax,
		Last:     w.Last,
		LagMin:   w.LagMin,
		LagMax:   w.LagMax,
	}
}

// TrialConfig is the engine's view of the experiment settings.
func (c *Config) TrialConfig() trial.Config {
	e := c.Experiment
	return trial.Config{
		Streams:     e.Streams,
		Radius:      e.Radius,
		FramesMax:   e.FramesMax,
		Targets:     e.Targets,
		Distractors: e.Distractors,
		Window:      c.Window(),
	}
}

// Interval is the time each frame stays on screen.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Experiment.IntervalMs) * time.Millisecond
}

// PracticeTrials is the number of leading trials that are not stored.
func (c *Config) PracticeTrials() int {
	if !c.Experiment.Practice {
		return 0
	}
	return c.Experiment.PracticeCount
}

// TotalTrials counts practice and stored trials together.
func (c *Config) TotalTrials() int {
	return c.Experiment.TrialMax + c.PracticeTrials()
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (t TimingConfig) Fixation() time.Duration      { return ms(t.FixationMs) }
func (t TimingConfig) ResponseDelay() time.Duration { return ms(t.ResponseDelayMs) }
func (t TimingConfig) FeedbackDelay() time.Duration { return ms(t.FeedbackDelayMs) }
func (t TimingConfig) InterTrial() time.Duration    { return ms(t.InterTrialMs) }

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port)
}
