package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset selection
	Target        string   `mapstructure:"target" yaml:"target" validate:"required"`
	StationColumn string   `mapstructure:"station_column" yaml:"station_column"`
	Station       string   `mapstructure:"station" yaml:"station"`
	SkipColumns   []string `mapstructure:"skip_columns" yaml:"skip_columns"`
	Delimiter     string   `mapstructure:"delimiter" yaml:"delimiter"`
	Decimal       string   `mapstructure:"decimal" yaml:"decimal" validate:"omitempty,oneof=. comma"`
	Sheet         string   `mapstructure:"sheet" yaml:"sheet"`

	// Hand-chosen drop lists
	DropMissing        []string `mapstructure:"drop_missing" yaml:"drop_missing"`
	DropCollinear      []string `mapstructure:"drop_collinear" yaml:"drop_collinear"`
	MaxMissingFraction float64  `mapstructure:"max_missing_fraction" yaml:"max_missing_fraction" validate:"gte=0,lte=1"`

	// Subset selection and cross-validation
	NVMax         int    `mapstructure:"nvmax" yaml:"nvmax" validate:"gte=1"`
	Method        string `mapstructure:"method" yaml:"method" validate:"oneof=exhaustive forward backward"`
	Folds         int    `mapstructure:"folds" yaml:"folds" validate:"gte=2"`
	Seed          int64  `mapstructure:"seed" yaml:"seed"`
	ReferenceSize int    `mapstructure:"reference_size" yaml:"reference_size" validate:"gte=0"`
	Workers       int    `mapstructure:"workers" yaml:"workers" validate:"gte=0"`

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Validate checks field constraints declared on Global.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// commas cannot be expressed inside a validator tag
	if c.Delimiter != "" && c.DelimiterRune() == 0 {
		return fmt.Errorf("invalid config: unsupported delimiter %q (use ',' ';' or 'tab')", c.Delimiter)
	}
	return nil
}

// DelimiterRune maps the configured delimiter name to a rune; 0 means sniff.
func (c *Global) DelimiterRune() rune {
	if c.Delimiter == "\t" {
		return '\t'
	}
	switch strings.ToLower(strings.TrimSpace(c.Delimiter)) {
	case ",":
		return ','
	case ";":
		return ';'
	case "tab":
		return '\t'
	}
	return 0
}

// DecimalRune maps the configured decimal separator to a rune; 0 means auto-detect.
func (c *Global) DecimalRune() rune {
	switch strings.ToLower(strings.TrimSpace(c.Decimal)) {
	case ",", "comma":
		return ','
	case ".", "dot":
		return '.'
	}
	return 0
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".airfit"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.airfit/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("AIRFIT")
	v.AutomaticEnv()

	// Defaults reproduce the single-station SO2 study.
	v.SetDefault("target", "SO2")
	v.SetDefault("station_column", "station")
	v.SetDefault("station", "")
	v.SetDefault("skip_columns", []string{"No", "wd", "station"})
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal", "")
	v.SetDefault("sheet", "")
	v.SetDefault("drop_missing", []string{})
	v.SetDefault("drop_collinear", []string{})
	v.SetDefault("max_missing_fraction", 0.0)
	v.SetDefault("nvmax", 8)
	v.SetDefault("method", "exhaustive")
	v.SetDefault("folds", 10)
	v.SetDefault("seed", 1)
	v.SetDefault("reference_size", 0)
	v.SetDefault("workers", 0)
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a present but malformed file is an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
