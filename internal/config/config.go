package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/ethpandaops/lhviewer/constants"
)

var _ Config = (*DefaultConfig)(nil)

// DefaultConfig implements the Config interface.
type DefaultConfig struct {
	// Viewer server
	listenAddr      string
	maxUploadBytes  int64
	shutdownTimeout time.Duration

	// Report store
	storePath     string
	storeDisabled bool

	// GitHub gists
	githubToken  string
	githubAPIURL string
	gistTimeout  time.Duration

	// Rendering
	locale         string
	timezone       string
	currentVersion string
	componentsPath string

	logLevel string
}

// NewDefaultConfig creates a new configuration with default values.
func NewDefaultConfig() *DefaultConfig {
	return &DefaultConfig{
		listenAddr:      constants.DefaultListenAddr,
		maxUploadBytes:  constants.DefaultMaxUploadBytes,
		shutdownTimeout: constants.DefaultShutdownTimeout,
		storePath:       constants.DefaultStorePath,
		githubAPIURL:    constants.DefaultGitHubAPIURL,
		gistTimeout:     constants.DefaultGistTimeout,
		locale:          constants.DefaultLocale,
		timezone:        constants.DefaultTZ,
		currentVersion:  constants.CurrentVersion,
		logLevel:        logrus.InfoLevel.String(),
	}
}

// GetListenAddr returns the viewer listen address.
func (c *DefaultConfig) GetListenAddr() string {
	return c.listenAddr
}

// GetMaxUploadBytes returns the request body limit.
func (c *DefaultConfig) GetMaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// GetShutdownTimeout returns the graceful shutdown timeout.
func (c *DefaultConfig) GetShutdownTimeout() time.Duration {
	return c.shutdownTimeout
}

// GetStorePath returns the SQLite database path.
func (c *DefaultConfig) GetStorePath() string {
	return c.storePath
}

// IsStoreDisabled returns whether reports are kept only in memory.
func (c *DefaultConfig) IsStoreDisabled() bool {
	return c.storeDisabled
}

// GetGitHubToken returns the token used to create gists.
func (c *DefaultConfig) GetGitHubToken() string {
	return c.githubToken
}

// GetGitHubAPIURL returns the GitHub API base URL.
func (c *DefaultConfig) GetGitHubAPIURL() string {
	return c.githubAPIURL
}

// GetGistTimeout returns the gist request timeout.
func (c *DefaultConfig) GetGistTimeout() time.Duration {
	return c.gistTimeout
}

// GetLocale returns the number formatting locale.
func (c *DefaultConfig) GetLocale() string {
	return c.locale
}

// GetTimezone returns the timezone used for report dates.
func (c *DefaultConfig) GetTimezone() string {
	return c.timezone
}

// GetCurrentVersion returns the version reports are compared against.
func (c *DefaultConfig) GetCurrentVersion() string {
	return c.currentVersion
}

// GetComponentsPath returns the component template override, if any.
func (c *DefaultConfig) GetComponentsPath() string {
	return c.componentsPath
}

// GetLogLevel returns the log level name.
func (c *DefaultConfig) GetLogLevel() string {
	return c.logLevel
}

// Language parses the configured locale.
func (c *DefaultConfig) Language() (language.Tag, error) {
	tag, err := language.Parse(c.locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", c.locale, err)
	}

	return tag, nil
}

// Location loads the configured timezone.
func (c *DefaultConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.timezone, err)
	}

	return loc, nil
}

// SetListenAddr sets the viewer listen address.
func (c *DefaultConfig) SetListenAddr(addr string) {
	c.listenAddr = addr
}

// SetMaxUploadBytes sets the request body limit.
func (c *DefaultConfig) SetMaxUploadBytes(n int64) {
	c.maxUploadBytes = n
}

// SetShutdownTimeout sets the graceful shutdown timeout.
func (c *DefaultConfig) SetShutdownTimeout(d time.Duration) {
	c.shutdownTimeout = d
}

// SetStorePath sets the SQLite database path.
func (c *DefaultConfig) SetStorePath(path string) {
	c.storePath = path
}

// SetStoreDisabled sets whether persistence is disabled.
func (c *DefaultConfig) SetStoreDisabled(disabled bool) {
	c.storeDisabled = disabled
}

// SetGitHubToken sets the GitHub token.
func (c *DefaultConfig) SetGitHubToken(token string) {
	c.githubToken = token
}

// SetGitHubAPIURL sets the GitHub API base URL.
func (c *DefaultConfig) SetGitHubAPIURL(url string) {
	c.githubAPIURL = url
}

// SetGistTimeout sets the gist request timeout.
func (c *DefaultConfig) SetGistTimeout(d time.Duration) {
	c.gistTimeout = d
}

// SetLocale sets the number formatting locale.
func (c *DefaultConfig) SetLocale(locale string) {
	c.locale = locale
}

// SetTimezone sets the report date timezone.
func (c *DefaultConfig) SetTimezone(tz string) {
	c.timezone = tz
}

// SetCurrentVersion sets the comparison version.
func (c *DefaultConfig) SetCurrentVersion(version string) {
	c.currentVersion = version
}

// SetComponentsPath sets the component template override.
func (c *DefaultConfig) SetComponentsPath(path string) {
	c.componentsPath = path
}

// SetLogLevel sets the log level name.
func (c *DefaultConfig) SetLogLevel(level string) {
	c.logLevel = level
}

// Validate validates the configuration.
func (c *DefaultConfig) Validate() error {
	if strings.TrimSpace(c.listenAddr) == "" {
		return fmt.Errorf(constants.ErrListenAddrRequired)
	}

	if c.maxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.shutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	if !c.storeDisabled && strings.TrimSpace(c.storePath) == "" {
		return fmt.Errorf("store path is required unless the store is disabled")
	}

	if c.gistTimeout <= 0 {
		return fmt.Errorf("gist timeout must be positive")
	}

	if _, err := c.Language(); err != nil {
		return err
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := semver.NewVersion(c.currentVersion); err != nil {
		return fmt.Errorf("invalid current version %q: %w", c.currentVersion, err)
	}

	if _, err := logrus.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

// GitHubTokenRedacted returns the token with all but its last four characters masked.
func (c *DefaultConfig) GitHubTokenRedacted() string {
	return redactSecret(c.githubToken)
}

func redactSecret(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}

	return strings.Repeat("*", 4) + secret[len(secret)-4:]
}
