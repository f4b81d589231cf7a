package constants

import "time"

// Default configuration values
const (
	// Renderer constants
	CurrentVersion = "2.0.0"
	DefaultLocale  = "en-US"
	DefaultTZ      = "UTC"

	// Viewer server constants
	DefaultListenAddr      = ":8085"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxUploadBytes  = 16 << 20
	DefaultGistTimeout     = 30 * time.Second
	DefaultGitHubAPIURL    = "https://api.github.com"

	// Websocket constants
	DefaultWSWriteWait  = 10 * time.Second
	DefaultWSPongWait   = 60 * time.Second
	DefaultWSSendBuffer = 16

	// File and data constants
	DefaultFilePermissions = 0644
	DefaultDirPermissions  = 0o755
	DefaultStorePath       = "lhviewer.db"
	DefaultConfigFile      = "lhviewer.toml"
	EnvPrefix              = "LHVIEWER_"
)

// Rating thresholds
const (
	PassMinScore    = 75
	AverageMinScore = 45
	PerfectScore    = 100
)

// Ratings
const (
	RatingPass    = "pass"
	RatingAverage = "average"
	RatingFail    = "fail"
)

// Template selectors
const (
	TmplAuditScore    = "#tmpl-lighthouse-audit-score"
	TmplCategoryScore = "#tmpl-lighthouse-category-score"
	TmplHeading       = "#tmpl-lighthouse-heading"
	TmplEnvItems      = "#tmpl-lighthouse-env__items"
	TmplFooter        = "#tmpl-lighthouse-footer"
)

// Default filenames
const (
	DefaultHTMLReportFile = "lighthouse-report.html"
	GistFilenamePrefix    = "lighthouse-"
)

// Error messages
const (
	ErrNotJSONMessage       = "could not parse JSON file"
	ErrNotLighthouseMessage = "JSON file was not generated by Lighthouse"
	ErrInvalidGistMessage   = "invalid gist URL or id"
	ErrListenAddrRequired   = "listen address is required for serve mode"
)
