package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ethpandaops/lhviewer/constants"
)

// Load builds a configuration from defaults, an optional TOML file and
// LHVIEWER_* environment variables, in that order of precedence.
// An empty path falls back to lhviewer.toml in the working directory when present.
func Load(path string) (*DefaultConfig, error) {
	k := koanf.New(".")
	defaults := NewDefaultConfig()

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.listen_addr":      defaults.listenAddr,
		"server.max_upload_bytes": defaults.maxUploadBytes,
		"server.shutdown_timeout": defaults.shutdownTimeout.String(),
		"store.path":              defaults.storePath,
		"store.disabled":          false,
		"github.api_url":          defaults.githubAPIURL,
		"github.timeout":          defaults.gistTimeout.String(),
		"render.locale":           defaults.locale,
		"render.timezone":         defaults.timezone,
		"render.current_version":  defaults.currentVersion,
		"log.level":               defaults.logLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	switch {
	case path != "":
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	default:
		if _, err := os.Stat(constants.DefaultConfigFile); err == nil {
			if err := k.Load(file.Provider(constants.DefaultConfigFile), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", constants.DefaultConfigFile, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(constants.EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var fc fileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg := &DefaultConfig{
		listenAddr:      fc.Server.ListenAddr,
		maxUploadBytes:  fc.Server.MaxUploadBytes,
		shutdownTimeout: fc.Server.ShutdownTimeout,
		storePath:       fc.Store.Path,
		storeDisabled:   fc.Store.Disabled,
		githubToken:     fc.GitHub.Token,
		githubAPIURL:    fc.GitHub.APIURL,
		gistTimeout:     fc.GitHub.Timeout,
		locale:          fc.Render.Locale,
		timezone:        fc.Render.Timezone,
		currentVersion:  fc.Render.CurrentVersion,
		componentsPath:  fc.Render.Components,
		logLevel:        fc.Log.Level,
	}

	return cfg, nil
}

// envKey maps LHVIEWER_GITHUB_API_URL to github.api_url: the first segment
// names the section, the rest is the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, constants.EnvPrefix))

	return strings.Replace(key, "_", ".", 1)
}
