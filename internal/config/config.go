// Package config loads application configuration from file and environment
// and installs the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Features FeaturesConfig `yaml:"features" mapstructure:"features"`
	Split    SplitConfig    `yaml:"split" mapstructure:"split"`
	CV       CVConfig       `yaml:"cv" mapstructure:"cv"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// IngestConfig configures raw feed parsing and enrichment.
type IngestConfig struct {
	// Timezone is the single fixed civil zone the whole dataset is
	// interpreted in. Timestamps are wall-clock values in this zone; there
	// is no per-record conversion and no DST adjustment.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
	// TimestampLayout is the feed's timestamp format.
	TimestampLayout string `yaml:"timestamp_layout" mapstructure:"timestamp_layout"`
	// CategoryMapping is an optional path to a YAML collapse table.
	// Empty means the compiled-in default vocabulary.
	CategoryMapping string `yaml:"category_mapping" mapstructure:"category_mapping"`
}

// FeaturesConfig configures the rolling history engine.
type FeaturesConfig struct {
	// Windows are the trailing window sizes in days.
	Windows []int `yaml:"windows" mapstructure:"windows"`
	// Workers bounds beat-level parallelism; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// SplitConfig configures the chronological train/validation split.
type SplitConfig struct {
	TrainFraction float64 `yaml:"train_fraction" mapstructure:"train_fraction"`
}

// CVConfig configures the model comparison harness.
type CVConfig struct {
	Folds      int `yaml:"folds" mapstructure:"folds"`
	Repeats    int `yaml:"repeats" mapstructure:"repeats"`
	TuneLength int `yaml:"tune_length" mapstructure:"tune_length"`
	// Seed fixes fold assignment for reproducible comparisons.
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Location resolves the configured timezone.
func (c IngestConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %s", c.Timezone)
	}
	return loc, nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BEATCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "beatcast.db")
	v.SetDefault("ingest.timezone", "America/Chicago")
	v.SetDefault("ingest.timestamp_layout", "01/02/2006 03:04:05 PM")
	v.SetDefault("features.windows", []int{1, 7, 30})
	v.SetDefault("features.workers", 0)
	v.SetDefault("split.train_fraction", 0.90)
	v.SetDefault("cv.folds", 10)
	v.SetDefault("cv.repeats", 1)
	v.SetDefault("cv.tune_length", 5)
	v.SetDefault("cv.seed", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks configuration consistency for the named subsystem.
func (c *Config) Validate(subsystem string) error {
	switch subsystem {
	case "ingest":
		if _, err := c.Ingest.Location(); err != nil {
			return err
		}
	case "features":
		if len(c.Features.Windows) == 0 {
			return eris.New("config: at least one window size required")
		}
		for _, w := range c.Features.Windows {
			if w < 1 {
				return eris.Errorf("config: window size %d must be >= 1", w)
			}
		}
	case "split":
		if c.Split.TrainFraction <= 0 || c.Split.TrainFraction >= 1 {
			return eris.Errorf("config: train fraction %.2f outside (0,1)", c.Split.TrainFraction)
		}
	case "cv":
		if c.CV.Folds < 2 {
			return eris.Errorf("config: cv folds %d must be >= 2", c.CV.Folds)
		}
		if c.CV.Repeats < 1 {
			return eris.Errorf("config: cv repeats %d must be >= 1", c.CV.Repeats)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
