package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/config"
	"github.com/ethpandaops/lhviewer/internal/gist"
	"github.com/ethpandaops/lhviewer/internal/renderer"
	"github.com/ethpandaops/lhviewer/internal/report"
	"github.com/ethpandaops/lhviewer/internal/reports"
	"github.com/ethpandaops/lhviewer/internal/reports/templates"
	"github.com/ethpandaops/lhviewer/internal/store"
	"github.com/ethpandaops/lhviewer/internal/viewer"
)

var (
	ratingPass    = color.New(color.FgGreen).SprintFunc()
	ratingAverage = color.New(color.FgYellow).SprintFunc()
	ratingFail    = color.New(color.FgRed).SprintFunc()
	heading       = color.New(color.Bold, color.Underline).SprintFunc()
)

// Handler manages CLI operations and command routing
type Handler struct {
	cfg    config.Config
	logger logrus.FieldLogger
}

// NewHandler creates a new CLI handler
func NewHandler(logger logrus.FieldLogger, cfg config.Config) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger.WithField("component", "cli_handler"),
	}
}

// Render renders a report JSON file into a standalone HTML page.
func (h *Handler) Render(ctx context.Context, inputFile, outputFile string) (string, error) {
	if inputFile == "" {
		return "", fmt.Errorf("input JSON file must be specified")
	}

	if outputFile == "" {
		outputFile = generateHTMLFilename(inputFile)
	}

	gen, err := h.newGenerator()
	if err != nil {
		return "", err
	}

	h.logger.WithFields(logrus.Fields{
		"input":  inputFile,
		"output": outputFile,
	}).Info("Generating HTML report from JSON")

	if err := gen.GenerateHTMLFromJSON(ctx, inputFile, outputFile); err != nil {
		return "", fmt.Errorf("failed to generate HTML report: %w", err)
	}

	return outputFile, nil
}

// Serve runs the viewer until interrupted.
func (h *Handler) Serve(ctx context.Context) error {
	if err := h.cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	gen, err := h.newGenerator()
	if err != nil {
		return err
	}

	var st store.Store
	if !h.cfg.IsStoreDisabled() {
		sqlStore, err := store.Open(ctx, h.logger, h.cfg.GetStorePath())
		if err != nil {
			return fmt.Errorf("failed to open report store: %w", err)
		}
		defer func() {
			if err := sqlStore.Close(); err != nil {
				h.logger.WithError(err).Error("Error closing report store")
			}
		}()
		st = sqlStore
	}

	gists := gist.NewClient(h.logger, h.cfg.GetGitHubAPIURL(), h.cfg.GetGitHubToken(), h.cfg.GetGistTimeout())

	h.logger.WithFields(logrus.Fields{
		"listen_addr":  h.cfg.GetListenAddr(),
		"store":        h.cfg.GetStorePath(),
		"store_off":    h.cfg.IsStoreDisabled(),
		"github_token": h.cfg.GitHubTokenRedacted(),
	}).Info("Starting viewer")

	srv := viewer.NewServer(h.logger, gen, gen.Templates(), gists, st, viewer.Options{
		ListenAddr:      h.cfg.GetListenAddr(),
		MaxUploadBytes:  h.cfg.GetMaxUploadBytes(),
		ShutdownTimeout: h.cfg.GetShutdownTimeout(),
	})

	ctx, cancel := h.setupGracefulShutdown(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		h.logger.Info("Viewer shutting down")

		return nil
	})

	return g.Wait()
}

// Summary prints category and failing audit scores for a report file.
func (h *Handler) Summary(w io.Writer, inputFile string) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	rep, err := report.Parse(data)
	if err != nil {
		return err
	}

	if err := rep.DecodeError(); err != nil {
		return err
	}

	locale, err := h.cfg.Language()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n", heading(rep.URL))
	fmt.Fprintf(w, "Lighthouse %s, generated %s\n", rep.LighthouseVersion, rep.GeneratedTime)

	if warning := report.VersionWarning(rep.LighthouseVersion, h.cfg.GetCurrentVersion()); warning != "" {
		fmt.Fprintf(w, "%s\n", ratingAverage(strings.ReplaceAll(warning, "\n", " ")))
	}

	for i := range rep.ReportCategories {
		category := &rep.ReportCategories[i]
		failing, passed := category.PassedAudits()

		fmt.Fprintf(w, "\n%-32s %s  (%d passed)\n", category.Name,
			colorize(category.Score, renderer.FormatNumber(locale, category.Score)), len(passed))

		for _, audit := range failing {
			description := audit.ID
			if audit.Result != nil {
				description = audit.Result.Description
			}

			fmt.Fprintf(w, "  %-30s %s\n", description, colorize(audit.Score, renderer.FormatNumber(locale, audit.Score)))
		}
	}

	return nil
}

func (h *Handler) newGenerator() (*reports.DefaultGenerator, error) {
	locale, err := h.cfg.Language()
	if err != nil {
		return nil, err
	}

	location, err := h.cfg.Location()
	if err != nil {
		return nil, err
	}

	manager := templates.NewManager(h.logger)
	if err := manager.LoadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	if path := h.cfg.GetComponentsPath(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open component templates: %w", err)
		}
		defer f.Close()

		if err := manager.LoadComponentsFromFile(f); err != nil {
			return nil, err
		}
	}

	gen, err := reports.NewGeneratorWithTemplates(h.logger, manager, renderer.Options{
		Logger:         h.logger,
		Locale:         locale,
		Location:       location,
		CurrentVersion: h.cfg.GetCurrentVersion(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report generator: %w", err)
	}

	return gen, nil
}

func colorize(score float64, text string) string {
	switch renderer.CalculateRating(score) {
	case constants.RatingPass:
		return ratingPass(text)
	case constants.RatingAverage:
		return ratingAverage(text)
	default:
		return ratingFail(text)
	}
}

// setupGracefulShutdown configures signal handling for graceful shutdown
func (h *Handler) setupGracefulShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case <-sigChan:
			h.logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// generateHTMLFilename generates HTML filename from JSON filename
func generateHTMLFilename(jsonFile string) string {
	if strings.HasSuffix(jsonFile, ".json") {
		return strings.TrimSuffix(jsonFile, ".json") + ".html"
	}

	return jsonFile + ".html"
}
