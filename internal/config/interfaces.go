package config

import (
	"time"

	"golang.org/x/text/language"
)

// Config defines the interface for tool configuration.
type Config interface {
	// Viewer server
	GetListenAddr() string
	GetMaxUploadBytes() int64
	GetShutdownTimeout() time.Duration

	// Report store
	GetStorePath() string
	IsStoreDisabled() bool

	// GitHub gists
	GetGitHubToken() string
	GetGitHubAPIURL() string
	GetGistTimeout() time.Duration
	GitHubTokenRedacted() string

	// Rendering
	GetLocale() string
	GetTimezone() string
	GetCurrentVersion() string
	GetComponentsPath() string
	Language() (language.Tag, error)
	Location() (*time.Location, error)

	GetLogLevel() string
	Validate() error
}

// fileConfig mirrors the TOML layout:
//
//	[server]
//	listen_addr = ":8085"
//	[github]
//	token = "..."
type fileConfig struct {
	Server struct {
		ListenAddr      string        `koanf:"listen_addr"`
		MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"server"`

	Store struct {
		Path     string `koanf:"path"`
		Disabled bool   `koanf:"disabled"`
	} `koanf:"store"`

	GitHub struct {
		Token   string        `koanf:"token"`
		APIURL  string        `koanf:"api_url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"github"`

	Render struct {
		Locale         string `koanf:"locale"`
		Timezone       string `koanf:"timezone"`
		CurrentVersion string `koanf:"current_version"`
		Components     string `koanf:"components"`
	} `koanf:"render"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}
