package config

import (
	"errors"
	"fmt"
	"time"
)

// Wire encodings a connection can request.
const (
	EncodingEvents = "events"
	EncodingUpdate = "update"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTRequired bool   `mapstructure:"jwt_required" yaml:"jwt_required"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	BoardRows       int           `mapstructure:"board_rows" yaml:"board_rows"`
	BoardCols       int           `mapstructure:"board_cols" yaml:"board_cols"`
	EndGracePeriod  time.Duration `mapstructure:"end_grace_period" yaml:"end_grace_period"`
	DefaultEncoding string        `mapstructure:"default_encoding" yaml:"default_encoding"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		DatabasePath:       "sidestacker.db",
		JWTSecret:          "change-me-in-production",
		JWTIssuer:          "sidestacker",
		JWTAudience:        "sidestacker",
		MaxMessageBytes:    64 * 1024,
		RateLimitPerMinute: 120,
		BoardRows:          7,
		BoardCols:          7,
		EndGracePeriod:     3 * time.Second,
		DefaultEncoding:    EncodingEvents,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Booleans are only ever switched on. Callers that need an explicit zero,
// such as an immediate end grace, must set the field directly.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTRequired {
		c.JWTRequired = true
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.BoardRows != 0 {
		c.BoardRows = other.BoardRows
	}
	if other.BoardCols != 0 {
		c.BoardCols = other.BoardCols
	}
	if other.EndGracePeriod != 0 {
		c.EndGracePeriod = other.EndGracePeriod
	}
	if other.DefaultEncoding != "" {
		c.DefaultEncoding = other.DefaultEncoding
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.BoardRows < 1 || c.BoardCols < 1 {
		errs = append(errs, fmt.Errorf("board must be at least 1x1, got %dx%d", c.BoardRows, c.BoardCols))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_message_bytes must be positive, got %d", c.MaxMessageBytes))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_minute must not be negative, got %d", c.RateLimitPerMinute))
	}
	if c.EndGracePeriod < 0 {
		errs = append(errs, fmt.Errorf("end_grace_period must not be negative, got %s", c.EndGracePeriod))
	}
	if !ValidEncoding(c.DefaultEncoding) {
		errs = append(errs, fmt.Errorf("unknown default_encoding %q", c.DefaultEncoding))
	}
	if c.JWTRequired && c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required when jwt_required is set"))
	}
	return errors.Join(errs...)
}

// ValidEncoding reports whether enc names a supported wire encoding.
func ValidEncoding(enc string) bool {
	return enc == EncodingEvents || enc == EncodingUpdate
}
