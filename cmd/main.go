package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/cli"
	"github.com/ethpandaops/lhviewer/internal/config"
)

var version = "dev"

// Persistent flags shared by all commands
var (
	configPath string
	logLevel   string
	locale     string
	timezone   string
	components string
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	rootCmd := &cobra.Command{
		Use:   "lhviewer",
		Short: "Render and view Lighthouse reports",
		Long: `lhviewer renders Lighthouse JSON reports into standalone HTML pages and
serves a viewer that accepts uploads, pasted reports, gists and live reports
posted over a websocket.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file (default ./"+constants.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "Locale used to format numbers, e.g. en-US")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "Timezone used to format report dates")
	rootCmd.PersistentFlags().StringVar(&components, "components", "", "Component template document overriding the embedded one")

	rootCmd.AddCommand(renderCmd(logger))
	rootCmd.AddCommand(serveCmd(logger))
	rootCmd.AddCommand(summaryCmd(logger))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Application error: %v", err)
	}
}

func renderCmd(logger *logrus.Logger) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <report.json>",
		Short: "Render a report JSON file to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}

			out, err := cli.NewHandler(logger, cfg).Render(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output HTML file (default: input name with .html)")

	return cmd
}

func serveCmd(logger *logrus.Logger) *cobra.Command {
	var (
		listenAddr  string
		storePath   string
		noStore     bool
		githubToken string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the report viewer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("listen") {
				cfg.SetListenAddr(listenAddr)
			}

			if cmd.Flags().Changed("store") {
				cfg.SetStorePath(storePath)
			}

			if cmd.Flags().Changed("no-store") {
				cfg.SetStoreDisabled(noStore)
			}

			if githubToken == "" {
				githubToken = os.Getenv("GITHUB_TOKEN")
			}

			if githubToken != "" && cfg.GetGitHubToken() == "" {
				cfg.SetGitHubToken(githubToken)
			}

			return cli.NewHandler(logger, cfg).Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", constants.DefaultListenAddr, "Listen address")
	cmd.Flags().StringVar(&storePath, "store", constants.DefaultStorePath, "SQLite database for saved reports")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not persist viewed reports")
	cmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub token for saving gists (can also be set via GITHUB_TOKEN env var)")

	return cmd
}

func summaryCmd(logger *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <report.json>",
		Short: "Print category and failing audit scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}

			return cli.NewHandler(logger, cfg).Summary(cmd.OutOrStdout(), args[0])
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lhviewer version and the report version it targets",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lhviewer %s (Lighthouse %s)\n", version, constants.CurrentVersion)
		},
	}
}

// loadConfig loads file and environment configuration, applies persistent
// flag overrides and configures the logger.
func loadConfig(cmd *cobra.Command, logger *logrus.Logger) (*config.DefaultConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if logLevel != "" {
		cfg.SetLogLevel(logLevel)
	}

	if locale != "" {
		cfg.SetLocale(locale)
	}

	if timezone != "" {
		cfg.SetTimezone(timezone)
	}

	if components != "" {
		cfg.SetComponentsPath(components)
	}

	level, err := logrus.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"command": cmd.Name(),
		"locale":  cfg.GetLocale(),
		"tz":      cfg.GetTimezone(),
	}).Debug("Configuration loaded")

	return cfg, nil
}
