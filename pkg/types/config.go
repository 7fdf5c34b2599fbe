package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds the client settings loaded by the CLI.
type Config struct {
	Server   string        `json:"server" yaml:"server"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	PageSize int           `json:"page_size" yaml:"page_size"`
	LogLevel string        `json:"log_level" yaml:"log_level"`
	DataDir  string        `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
}

// Default client settings.
const (
	DefaultServer   = "http://localhost:8080"
	DefaultTimeout  = 10 * time.Second
	DefaultLogLevel = "info"
)

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Server:   DefaultServer,
		Timeout:  DefaultTimeout,
		PageSize: DefaultPageSize,
		LogLevel: DefaultLogLevel,
	}
}

// Config validation errors.
var (
	ErrServerEmpty     = errors.New("server must not be empty")
	ErrServerInvalid   = errors.New("server must be an http or https URL")
	ErrTimeoutInvalid  = errors.New("timeout must be positive")
	ErrPageSizeInvalid = errors.New("page size must be positive")
	ErrLogLevelUnknown = errors.New("unknown log level")
)

// knownLogLevels lists the levels that Validate accepts.
var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Server == "" {
		return ErrServerEmpty
	}
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrServerInvalid
	}
	if c.Timeout <= 0 {
		return ErrTimeoutInvalid
	}
	if c.PageSize <= 0 {
		return ErrPageSizeInvalid
	}
	if c.LogLevel != "" && !knownLogLevels[c.LogLevel] {
		return ErrLogLevelUnknown
	}
	return nil
}
