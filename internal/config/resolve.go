package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// Env holds the environment overrides.
type Env struct {
	APIURL     string        `env:"STUDYPLAN_API_URL"`
	APITimeout time.Duration `env:"STUDYPLAN_API_TIMEOUT"`
	Home       string        `env:"STUDYPLAN_HOME"`
	LogLevel   string        `env:"STUDYPLAN_LOG_LEVEL"`
	LogFormat  string        `env:"STUDYPLAN_LOG_FORMAT"`
}

// Flags are the command-line overrides. Empty fields are unset.
type Flags struct {
	Home     string
	APIURL   string
	Format   string
	LogLevel string
	NoColor  bool
}

// Config is the resolved configuration.
type Config struct {
	Home       string
	File       string
	APIURL     string
	APITimeout time.Duration
	Format     string
	NoColor    bool
	LogLevel   string
	LogFormat  string
	// LogFile is set when logs go to a file under Home.
	LogFile string
}

// Loader resolves a Config.
type Loader struct {
	// Environ replaces the process environment when non-nil.
	Environ map[string]string
	// DotEnv lists .env files to read. Missing files are skipped. Values
	// already present in the environment win.
	DotEnv []string
}

// Load resolves cfg with flags over environment over file over defaults.
func Load(flags Flags) (*Config, error) {
	return Loader{DotEnv: []string{".env"}}.Load(flags)
}

// Home resolves the home directory the same way Load does.
func Home(flags Flags) (string, error) {
	return Loader{DotEnv: []string{".env"}}.Home(flags)
}

// Load resolves a Config.
func (l Loader) Load(flags Flags) (*Config, error) {
	e, err := l.environment()
	if err != nil {
		return nil, err
	}

	home, err := resolveHome(flags, e)
	if err != nil {
		return nil, err
	}

	path := Path(home)
	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Home:       home,
		File:       path,
		APIURL:     strings.TrimRight(first(flags.APIURL, e.APIURL, file.API.URL, DefaultAPIURL), "/"),
		APITimeout: DefaultAPITimeout,
		Format:     first(flags.Format, file.Defaults.Format, DefaultFormat),
		NoColor:    flags.NoColor || file.Defaults.NoColor,
		LogLevel:   strings.ToLower(first(flags.LogLevel, e.LogLevel, file.Logging.Level, DefaultLogLevel)),
		LogFormat:  first(e.LogFormat, file.Logging.Format, DefaultLogFormat),
	}
	switch {
	case e.APITimeout > 0:
		cfg.APITimeout = e.APITimeout
	case file.API.Timeout > 0:
		cfg.APITimeout = file.API.Timeout
	}
	if file.Logging.File {
		cfg.LogFile = filepath.Join(home, "logs", "studyplan.log")
	}

	if err := ValidateURL(cfg.APIURL); err != nil {
		return nil, err
	}
	if err := ValidateFormat(cfg.Format); err != nil {
		return nil, err
	}
	if err := validateLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Home resolves only the home directory, without reading the config file.
func (l Loader) Home(flags Flags) (string, error) {
	e, err := l.environment()
	if err != nil {
		return "", err
	}
	return resolveHome(flags, e)
}

func resolveHome(flags Flags, e Env) (string, error) {
	home := first(flags.Home, e.Home)
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return "", err
		}
	}
	return expandHome(home), nil
}

func (l Loader) environment() (Env, error) {
	vars := map[string]string{}
	for _, name := range l.DotEnv {
		values, err := godotenv.Read(name)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Env{}, errors.NewFileUnmarshalError(name, "dotenv", err)
		}
		for k, v := range values {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
	}

	environ := l.Environ
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	for k, v := range environ {
		vars[k] = v
	}

	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid environment: %v", err), err)
	}
	return e, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
