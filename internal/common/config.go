package common

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	OCR        OCRConfig        `mapstructure:"ocr"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Normalize  NormalizeConfig  `mapstructure:"normalize"`
	Export     ExportConfig     `mapstructure:"export"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Log        LogConfig        `mapstructure:"log"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract           string  `mapstructure:"tesseract"`
	Lang                string  `mapstructure:"lang"`
	TessdataDir         string  `mapstructure:"tessdata_dir"`
	HeicConverter       string  `mapstructure:"heic_converter"`
	PSM                 int     `mapstructure:"psm"`
	OEM                 int     `mapstructure:"oem"`
	EnableTSVConfidence bool    `mapstructure:"enable_tsv_confidence"`
	RatePerSecond       float64 `mapstructure:"rate_per_second"`
}

// BatchConfig holds worker-pool configuration
type BatchConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClassifierConfig holds document classification thresholds
type ClassifierConfig struct {
	MinScore float64 `mapstructure:"min_score"`
}

// NormalizeConfig holds field normalization thresholds
type NormalizeConfig struct {
	MinFieldConfidence float64 `mapstructure:"min_field_confidence"`
}

// ExportConfig holds spreadsheet export configuration
type ExportConfig struct {
	Sheet       string        `mapstructure:"sheet"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// RulesConfig points at an optional directory of rule tables overriding the embedded ones
type RulesConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from an optional YAML file and UPIX_* environment variables.
// An empty path looks for ./upix.yaml and silently continues when it is absent.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("upix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("UPIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.tessdata_dir", os.Getenv("TESSDATA_PREFIX"))
	v.SetDefault("ocr.heic_converter", "")
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.enable_tsv_confidence", true)
	v.SetDefault("ocr.rate_per_second", 0.0)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.timeout", 3*time.Minute)
	v.SetDefault("classifier.min_score", 1.5)
	v.SetDefault("normalize.min_field_confidence", 0.6)
	v.SetDefault("export.sheet", "Transactions")
	v.SetDefault("export.lock_timeout", 30*time.Second)
	v.SetDefault("export.retry_delay", 500*time.Millisecond)
	v.SetDefault("rules.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "unmarshal config", err)
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.Tesseract == "" {
		return NewAppError(CodeConfig, "ocr.tesseract is required", ErrInvalidInput)
	}
	if c.Batch.Workers < 1 {
		return NewAppError(CodeConfig, fmt.Sprintf("batch.workers must be >= 1, got %d", c.Batch.Workers), ErrInvalidInput)
	}
	if c.OCR.RatePerSecond < 0 {
		return NewAppError(CodeConfig, "ocr.rate_per_second must be >= 0", ErrInvalidInput)
	}
	if c.Normalize.MinFieldConfidence < 0 || c.Normalize.MinFieldConfidence > 1 {
		return NewAppError(CodeConfig, "normalize.min_field_confidence must be within [0,1]", ErrInvalidInput)
	}
	if c.Export.Sheet == "" {
		return NewAppError(CodeConfig, "export.sheet is required", ErrInvalidInput)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return NewAppError(CodeConfig, "log.level", err)
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// NewLogger builds the process logger the same way every command does.
func NewLogger(cfg LogConfig, verbose bool) *slog.Logger {
	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
