// Package config loads bubblescan settings from defaults, an optional YAML
// file and BUBBLESCAN_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ironsheep/bubblescan/internal/detection"
	"github.com/ironsheep/bubblescan/internal/form"
	"github.com/ironsheep/bubblescan/internal/grid"
	"github.com/ironsheep/bubblescan/internal/sheet"
)

// Config holds bubblescan configuration.
type Config struct {
	// Variant is a built-in variant name ("75q", "150q") or the path of a
	// YAML variant file.
	Variant string `mapstructure:"variant" yaml:"variant"`

	CellCropFraction  float64 `mapstructure:"cell_crop_fraction" yaml:"cell_crop_fraction"`
	MaskCropFraction  float64 `mapstructure:"mask_crop_fraction" yaml:"mask_crop_fraction"`
	Mask              string  `mapstructure:"mask" yaml:"mask"` // "circle" or "rect"
	ThresholdFraction float64 `mapstructure:"threshold_fraction" yaml:"threshold_fraction"`

	DarkLevel     int     `mapstructure:"dark_level" yaml:"dark_level"`
	MinPixels     int     `mapstructure:"min_pixels" yaml:"min_pixels"`
	ApproxEpsilon float64 `mapstructure:"approx_epsilon" yaml:"approx_epsilon"`

	MultiAnswersAsF bool `mapstructure:"multi_answers_as_f" yaml:"multi_answers_as_f"`
	EmptyAnswersAsG bool `mapstructure:"empty_answers_as_g" yaml:"empty_answers_as_g"`
	SortResults     bool `mapstructure:"sort_results" yaml:"sort_results"`

	// KeysFile and ArrangementFile name optional CSV inputs to grading.
	KeysFile        string `mapstructure:"keys_file" yaml:"keys_file"`
	ArrangementFile string `mapstructure:"arrangement_file" yaml:"arrangement_file"`
	MCTA            bool   `mapstructure:"mcta" yaml:"mcta"`
	TimestampFiles  bool   `mapstructure:"timestamp_files" yaml:"timestamp_files"`

	Workers  int    `mapstructure:"workers" yaml:"workers"`
	DebugDir string `mapstructure:"debug_dir" yaml:"debug_dir"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Variant:           form.Form75.Name,
		CellCropFraction:  grid.DefaultOptions.CellCrop,
		MaskCropFraction:  grid.DefaultOptions.MaskCrop,
		Mask:              grid.DefaultOptions.Mask.String(),
		ThresholdFraction: grid.DefaultThresholdFraction,
		DarkLevel:         int(detection.DefaultPolygonOptions.DarkLevel),
		MinPixels:         detection.DefaultPolygonOptions.MinPixels,
		ApproxEpsilon:     detection.DefaultPolygonOptions.Epsilon,
		SortResults:       true,
		Workers:           runtime.NumCPU(),
		LogLevel:          "info",
	}
}

// Manager loads configuration and optionally reloads it when the file
// changes.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads configuration. An empty cfgFile searches for
// bubblescan.yaml in the working directory and $HOME/.bubblescan; a missing
// file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	v := m.v
	d := DefaultConfig()
	v.SetDefault("variant", d.Variant)
	v.SetDefault("cell_crop_fraction", d.CellCropFraction)
	v.SetDefault("mask_crop_fraction", d.MaskCropFraction)
	v.SetDefault("mask", d.Mask)
	v.SetDefault("threshold_fraction", d.ThresholdFraction)
	v.SetDefault("dark_level", d.DarkLevel)
	v.SetDefault("min_pixels", d.MinPixels)
	v.SetDefault("approx_epsilon", d.ApproxEpsilon)
	v.SetDefault("multi_answers_as_f", d.MultiAnswersAsF)
	v.SetDefault("empty_answers_as_g", d.EmptyAnswersAsG)
	v.SetDefault("sort_results", d.SortResults)
	v.SetDefault("keys_file", d.KeysFile)
	v.SetDefault("arrangement_file", d.ArrangementFile)
	v.SetDefault("mcta", d.MCTA)
	v.SetDefault("timestamp_files", d.TimestampFiles)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("debug_dir", d.DebugDir)
	v.SetDefault("log_level", d.LogLevel)

	// Environment variables with BUBBLESCAN_ prefix
	v.SetEnvPrefix("BUBBLESCAN")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bubblescan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bubblescan")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Set overrides a single key, as a command-line flag would.
func (m *Manager) Set(key string, value interface{}) error {
	m.v.Set(key, value)
	cfg, err := m.load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// ConfigFile returns the file the configuration was read from, if any.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// OnChange registers a callback for configuration reloads.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig reloads the configuration whenever the config file changes.
// Reloads that fail to parse are ignored.
func (m *Manager) WatchConfig() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

// SheetOptions resolves the configuration into reader options.
func (c *Config) SheetOptions() (sheet.Options, error) {
	variant, err := form.Lookup(c.Variant)
	if err != nil {
		return sheet.Options{}, err
	}
	mask, err := grid.ParseMask(c.Mask)
	if err != nil {
		return sheet.Options{}, err
	}
	if c.DarkLevel < 1 || c.DarkLevel > 255 {
		return sheet.Options{}, fmt.Errorf("dark_level must be in [1, 255], got %d", c.DarkLevel)
	}

	opts := sheet.Options{
		Variant: variant,
		Grid: grid.Options{
			CellCrop: c.CellCropFraction,
			MaskCrop: c.MaskCropFraction,
			Mask:     mask,
		},
		Polygons: detection.PolygonOptions{
			DarkLevel: uint8(c.DarkLevel),
			MinPixels: c.MinPixels,
			Epsilon:   c.ApproxEpsilon,
		},
		ThresholdFraction: c.ThresholdFraction,
		MultiAnswersAsF:   c.MultiAnswersAsF,
		DebugDir:          c.DebugDir,
		Workers:           c.Workers,
		Export: sheet.ExportOptions{
			EmptyAnswersAsG: c.EmptyAnswersAsG,
			Sort:            c.SortResults,
			KeysFile:        c.KeysFile,
			ArrangementFile: c.ArrangementFile,
			MCTA:            c.MCTA,
			Timestamp:       c.TimestampFiles,
		},
	}
	if err := opts.Validate(); err != nil {
		return sheet.Options{}, err
	}
	return opts, nil
}

// ParseLevel parses a log level name such as "debug" or "warn".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
