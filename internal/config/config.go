// Package config resolves the client's settings from flags, the environment,
// an optional .env file and ~/.studyplan/config.yaml, in that order of
// precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// Defaults.
const (
	DefaultAPIURL     = "http://localhost:8000"
	DefaultAPITimeout = 30 * time.Second
	DefaultFormat     = "text"
	DefaultLogLevel   = "warn"
	DefaultLogFormat  = "text"

	// DirName is the home directory name under the user's home.
	DirName = ".studyplan"
	// FileName is the config file inside the home directory.
	FileName = "config.yaml"
)

// Formats accepted for command output.
var Formats = []string{"text", "json", "yaml"}

// File is the on-disk configuration.
type File struct {
	API      APISettings     `yaml:"api"`
	Defaults CommandDefaults `yaml:"defaults,omitempty"`
	Logging  LoggingSettings `yaml:"logging,omitempty"`
}

// APISettings locate the backend.
type APISettings struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CommandDefaults apply when the matching flag is not given.
type CommandDefaults struct {
	Format  string `yaml:"format,omitempty"` // "text", "json", "yaml"
	NoColor bool   `yaml:"no_color,omitempty"`
}

// LoggingSettings configure the diagnostic log.
type LoggingSettings struct {
	Level  string `yaml:"level,omitempty"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format,omitempty"` // "text", "json"
	File   bool   `yaml:"file,omitempty"`   // <home>/logs/studyplan.log instead of stderr
}

// Default returns the configuration written on first use.
func Default() *File {
	return &File{
		API: APISettings{
			URL:     DefaultAPIURL,
			Timeout: DefaultAPITimeout,
		},
		Defaults: CommandDefaults{
			Format: DefaultFormat,
		},
		Logging: LoggingSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultHome returns ~/.studyplan.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Path returns the config file inside home.
func Path(home string) string {
	return filepath.Join(home, FileName)
}

// LoadFile reads path. A missing file yields Default.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read config", err)
	}

	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "YAML", err)
	}
	return f, nil
}

// Save writes f to path, creating the directory.
func (f *File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write config", err)
	}
	return nil
}

// Keys lists the keys Get and Set accept.
func Keys() []string {
	return []string{
		"api.url",
		"api.timeout",
		"defaults.format",
		"defaults.no_color",
		"logging.level",
		"logging.format",
		"logging.file",
	}
}

// Get returns the value of a dotted key.
func (f *File) Get(key string) (string, error) {
	switch key {
	case "api.url":
		return f.API.URL, nil
	case "api.timeout":
		return f.API.Timeout.String(), nil
	case "defaults.format":
		return f.Defaults.Format, nil
	case "defaults.no_color":
		return strconv.FormatBool(f.Defaults.NoColor), nil
	case "logging.level":
		return f.Logging.Level, nil
	case "logging.format":
		return f.Logging.Format, nil
	case "logging.file":
		return strconv.FormatBool(f.Logging.File), nil
	default:
		return "", errors.NewConfigKeyError(key)
	}
}

// Set assigns a dotted key after validating value.
func (f *File) Set(key, value string) error {
	switch key {
	case "api.url":
		if err := ValidateURL(value); err != nil {
			return err
		}
		f.API.URL = strings.TrimRight(value, "/")
	case "api.timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return invalid("api.timeout must be a positive duration such as 30s")
		}
		f.API.Timeout = d
	case "defaults.format":
		if err := ValidateFormat(value); err != nil {
			return err
		}
		f.Defaults.Format = value
	case "defaults.no_color":
		f.Defaults.NoColor = parseBool(value)
	case "logging.level":
		if err := validateLevel(value); err != nil {
			return err
		}
		f.Logging.Level = strings.ToLower(value)
	case "logging.format":
		if value != "text" && value != "json" {
			return invalid("logging.format must be text or json")
		}
		f.Logging.Format = value
	case "logging.file":
		f.Logging.File = parseBool(value)
	default:
		return errors.NewConfigKeyError(key)
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(fmt.Sprintf("invalid API URL %q: expected http(s)://host[:port]", raw))
	}
	return nil
}

// ValidateFormat accepts one of Formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if format == f {
			return nil
		}
	}
	return invalid(fmt.Sprintf("unsupported format %q (use text, json or yaml)", format))
}

func validateLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return invalid(fmt.Sprintf("unsupported log level %q (use debug, info, warn or error)", level))
}

func invalid(msg string) error {
	return errors.New(errors.ErrCodeConfigInvalid, msg).
		WithSuggestion("Run 'studyplan config view' to see the current values")
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "yes" || s == "1"
}
