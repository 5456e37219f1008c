package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

func TestLoadFile_MissingYieldsDefaults(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	f := Default()
	require.NoError(t, f.Set("api.url", "https://planner.example.com/"))
	require.NoError(t, f.Set("api.timeout", "5s"))
	require.NoError(t, f.Set("logging.file", "yes"))
	require.NoError(t, f.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://planner.example.com", loaded.API.URL)
	assert.Equal(t, 5*time.Second, loaded.API.Timeout)
	assert.True(t, loaded.Logging.File)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := LoadFile(path)
	var perr *errors.PlannerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeFileUnmarshal, perr.Code)
}

func TestFile_GetSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    string
		wantErr errors.ErrorCode
	}{
		{key: "api.url", value: "http://127.0.0.1:9000", want: "http://127.0.0.1:9000"},
		{key: "api.url", value: "localhost:8000", wantErr: errors.ErrCodeConfigInvalid},
		{key: "api.timeout", value: "1m", want: "1m0s"},
		{key: "api.timeout", value: "-1s", wantErr: errors.ErrCodeConfigInvalid},
		{key: "defaults.format", value: "yaml", want: "yaml"},
		{key: "defaults.format", value: "xml", wantErr: errors.ErrCodeConfigInvalid},
		{key: "defaults.no_color", value: "TRUE", want: "true"},
		{key: "logging.level", value: "DEBUG", want: "debug"},
		{key: "logging.level", value: "loud", wantErr: errors.ErrCodeConfigInvalid},
		{key: "logging.format", value: "json", want: "json"},
		{key: "logging.file", value: "0", want: "false"},
		{key: "budget.max", value: "1", wantErr: errors.ErrCodeConfigKey},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			f := Default()
			err := f.Set(tt.key, tt.value)
			if tt.wantErr != "" {
				var perr *errors.PlannerError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantErr, perr.Code)
				return
			}
			require.NoError(t, err)

			got, err := f.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeys_AllGettable(t *testing.T) {
	f := Default()
	for _, key := range Keys() {
		_, err := f.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestLoader_Precedence(t *testing.T) {
	home := t.TempDir()
	f := Default()
	require.NoError(t, f.Set("api.url", "http://file.example:8000"))
	require.NoError(t, f.Set("api.timeout", "10s"))
	require.NoError(t, f.Set("logging.level", "error"))
	require.NoError(t, f.Set("defaults.format", "yaml"))
	require.NoError(t, f.Save(Path(home)))

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Loader{Environ: map[string]string{"STUDYPLAN_HOME": home}}.Load(Flags{})
		require.NoError(t, err)
		assert.Equal(t, "http://file.example:8000", cfg.APIURL)
		assert.Equal(t, 10*time.Second, cfg.APITimeout)
		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, "yaml", cfg.Format)
		assert.Equal(t, Path(home), cfg.File)
		assert.Empty(t, cfg.LogFile)
	})

	t.Run("env over file", func(t *testing.T) {
		cfg, err := Loader{Environ: map[string]string{
			"STUDYPLAN_HOME":        home,
			"STUDYPLAN_API_URL":     "http://env.example:8000/",
			"STUDYPLAN_API_TIMEOUT": "3s",
			"STUDYPLAN_LOG_LEVEL":   "INFO",
			"STUDYPLAN_LOG_FORMAT":  "json",
		}}.Load(Flags{})
		require.NoError(t, err)
		assert.Equal(t, "http://env.example:8000", cfg.APIURL)
		assert.Equal(t, 3*time.Second, cfg.APITimeout)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("flags over env", func(t *testing.T) {
		cfg, err := Loader{Environ: map[string]string{
			"STUDYPLAN_HOME":    "/does/not/matter",
			"STUDYPLAN_API_URL": "http://env.example:8000",
		}}.Load(Flags{Home: home, APIURL: "http://flag.example:8000", Format: "json", LogLevel: "debug", NoColor: true})
		require.NoError(t, err)
		assert.Equal(t, home, cfg.Home)
		assert.Equal(t, "http://flag.example:8000", cfg.APIURL)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.NoColor)
	})
}

func TestLoader_DotEnv(t *testing.T) {
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("STUDYPLAN_API_URL=http://dotenv.example:8000\nSTUDYPLAN_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := Loader{
		Environ: map[string]string{"STUDYPLAN_HOME": home, "STUDYPLAN_LOG_LEVEL": "error"},
		DotEnv:  []string{dotenv, filepath.Join(dir, "missing.env")},
	}.Load(Flags{})
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example:8000", cfg.APIURL)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over .env")
}

func TestLoader_InvalidEnvironment(t *testing.T) {
	home := t.TempDir()

	_, err := Loader{Environ: map[string]string{
		"STUDYPLAN_HOME":        home,
		"STUDYPLAN_API_TIMEOUT": "soon",
	}}.Load(Flags{})
	var perr *errors.PlannerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeConfigInvalid, perr.Code)

	_, err = Loader{Environ: map[string]string{"STUDYPLAN_HOME": home}}.Load(Flags{Format: "xml"})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeConfigInvalid, perr.Code)
}

func TestLoader_LogFile(t *testing.T) {
	home := t.TempDir()
	f := Default()
	f.Logging.File = true
	require.NoError(t, f.Save(Path(home)))

	cfg, err := Loader{Environ: map[string]string{}}.Load(Flags{Home: home})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs", "studyplan.log"), cfg.LogFile)
}

func TestLoader_HomeIgnoresBrokenFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(Path(home), []byte("api: [broken"), 0o600))

	l := Loader{Environ: map[string]string{"STUDYPLAN_HOME": home}}
	_, err := l.Load(Flags{})
	require.Error(t, err)

	got, err := l.Home(Flags{})
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = l.Home(Flags{Home: "/flag/home"})
	require.NoError(t, err)
	assert.Equal(t, "/flag/home", got)
}
