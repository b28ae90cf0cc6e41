// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. INE_LOG_LEVEL.
const EnvPrefix = "INE"

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	INE        INEConfig        `mapstructure:"ine" yaml:"ine"`
	Paths      PathsConfig      `mapstructure:"paths" yaml:"paths"`
	CSV        CSVConfig        `mapstructure:"csv" yaml:"csv"`
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing"`
	Datasets   CatalogueConfig  `mapstructure:"datasets" yaml:"datasets"`
	Regions    CatalogueConfig  `mapstructure:"regions" yaml:"regions"`
}

// LogConfig controls the logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// INEConfig describes how to reach the statistics API.
type INEConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Language       string `mapstructure:"language" yaml:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (c INEConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PathsConfig holds the intermediate and final output directories.
type PathsConfig struct {
	ExtractionDir string `mapstructure:"extraction_dir" yaml:"extraction_dir"`
	ProcessedDir  string `mapstructure:"processed_dir" yaml:"processed_dir"`
}

// CSVConfig controls CSV formatting of both output files.
type CSVConfig struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// DelimiterRune returns the configured delimiter as a rune.
func (c CSVConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	return []rune(c.Delimiter)[0]
}

// ProcessingConfig tunes the transform stage.
type ProcessingConfig struct {
	// StrictRegions aborts a dataset when any region name is unmapped.
	StrictRegions bool `mapstructure:"strict_regions" yaml:"strict_regions"`
}

// CatalogueConfig points at an optional external YAML file that replaces
// the embedded one.
type CatalogueConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// InitializeConfig loads configuration from the default locations.
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load initializes Viper configuration with hierarchical loading. When
// configFile is empty the standard search path is used and a missing file
// is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.ine-csv")
		v.AddConfigPath(".ine-csv")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults always decode cleanly.
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("ine.base_url", "https://servicios.ine.es/wstempus/js")
	v.SetDefault("ine.language", "ES")
	v.SetDefault("ine.timeout_seconds", 30)

	v.SetDefault("paths.extraction_dir", "extraction_folder")
	v.SetDefault("paths.processed_dir", "processed_folder")

	v.SetDefault("csv.delimiter", ",")

	v.SetDefault("processing.strict_regions", true)

	v.SetDefault("datasets.file", "")
	v.SetDefault("regions.file", "")
}

// Validate checks the configuration values.
func Validate(config *Config) error {
	if _, err := logrus.ParseLevel(strings.ToLower(config.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	format := strings.ToLower(config.Log.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	u, err := url.Parse(config.INE.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid ine.base_url: %q", config.INE.BaseURL)
	}

	switch strings.ToUpper(config.INE.Language) {
	case "ES", "EN":
	default:
		return fmt.Errorf("invalid ine.language: %s (must be 'ES' or 'EN')", config.INE.Language)
	}

	if config.INE.TimeoutSeconds < 1 || config.INE.TimeoutSeconds > 300 {
		return fmt.Errorf("ine.timeout_seconds must be between 1 and 300, got: %d", config.INE.TimeoutSeconds)
	}

	if config.Paths.ExtractionDir == "" || config.Paths.ProcessedDir == "" {
		return fmt.Errorf("paths.extraction_dir and paths.processed_dir must be set")
	}

	if len([]rune(config.CSV.Delimiter)) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}
	if !validDelimiter([]rune(config.CSV.Delimiter)[0]) {
		return fmt.Errorf("CSV delimiter %q cannot be used as a field separator", config.CSV.Delimiter)
	}

	return nil
}

// validDelimiter mirrors the runes encoding/csv refuses as a separator.
func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}
