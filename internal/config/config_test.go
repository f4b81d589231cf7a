package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/lhviewer/constants"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, constants.DefaultListenAddr, cfg.GetListenAddr())
	assert.Equal(t, constants.DefaultLocale, cfg.GetLocale())
	assert.Equal(t, constants.CurrentVersion, cfg.GetCurrentVersion())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DefaultConfig)
		wantErr string
	}{
		{name: "empty listen addr", mutate: func(c *DefaultConfig) { c.SetListenAddr(" ") }, wantErr: constants.ErrListenAddrRequired},
		{name: "bad locale", mutate: func(c *DefaultConfig) { c.SetLocale("not a locale!") }, wantErr: "invalid locale"},
		{name: "bad timezone", mutate: func(c *DefaultConfig) { c.SetTimezone("Mars/Olympus") }, wantErr: "invalid timezone"},
		{name: "bad version", mutate: func(c *DefaultConfig) { c.SetCurrentVersion("latest") }, wantErr: "invalid current version"},
		{name: "bad log level", mutate: func(c *DefaultConfig) { c.SetLogLevel("loud") }, wantErr: "invalid log level"},
		{name: "zero gist timeout", mutate: func(c *DefaultConfig) { c.SetGistTimeout(0) }, wantErr: "gist timeout"},
		{name: "missing store path", mutate: func(c *DefaultConfig) { c.SetStorePath("") }, wantErr: "store path"},
		{name: "disabled store needs no path", mutate: func(c *DefaultConfig) {
			c.SetStorePath("")
			c.SetStoreDisabled(true)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lhviewer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen_addr = ":9000"
shutdown_timeout = "3s"

[github]
token = "from-file"
timeout = "5s"

[render]
locale = "de-DE"
timezone = "Europe/Berlin"
`), constants.DefaultFilePermissions))

	t.Setenv("LHVIEWER_GITHUB_TOKEN", "from-env")
	t.Setenv("LHVIEWER_STORE_PATH", "/tmp/reports.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9000", cfg.GetListenAddr())
	assert.Equal(t, 3*time.Second, cfg.GetShutdownTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetGistTimeout())
	assert.Equal(t, "from-env", cfg.GetGitHubToken())
	assert.Equal(t, "/tmp/reports.db", cfg.GetStorePath())
	assert.Equal(t, "de-DE", cfg.GetLocale())
	assert.Equal(t, constants.DefaultGitHubAPIURL, cfg.GetGitHubAPIURL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "github.api_url", envKey("LHVIEWER_GITHUB_API_URL"))
	assert.Equal(t, "log.level", envKey("LHVIEWER_LOG_LEVEL"))
}

func TestGitHubTokenRedacted(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetGitHubToken("ghp_abcdefgh1234")

	assert.Equal(t, "****1234", cfg.GitHubTokenRedacted())

	cfg.SetGitHubToken("abc")
	assert.Equal(t, "***", cfg.GitHubTokenRedacted())
}
