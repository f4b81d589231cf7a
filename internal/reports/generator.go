package reports

import (
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/dom"
	"github.com/ethpandaops/lhviewer/internal/renderer"
	"github.com/ethpandaops/lhviewer/internal/report"
	"github.com/ethpandaops/lhviewer/internal/reports/templates"
)

var _ Generator = (*DefaultGenerator)(nil)

// DefaultGenerator implements the Generator interface
type DefaultGenerator struct {
	templateManager *templates.Manager
	renderer        *renderer.ReportRenderer
	fileManager     FileManager
	logger          logrus.FieldLogger
}

// NewGenerator creates a new report generator using the embedded templates
func NewGenerator(logger logrus.FieldLogger, opts renderer.Options) (*DefaultGenerator, error) {
	templateManager := templates.NewManager(logger)

	if err := templateManager.LoadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return NewGeneratorWithTemplates(logger, templateManager, opts)
}

// NewGeneratorWithTemplates creates a generator around an already loaded template manager
func NewGeneratorWithTemplates(logger logrus.FieldLogger, templateManager *templates.Manager, opts renderer.Options) (*DefaultGenerator, error) {
	d, err := dom.New(templateManager.Components())
	if err != nil {
		return nil, fmt.Errorf("failed to load component templates: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = logger
	}

	return &DefaultGenerator{
		templateManager: templateManager,
		renderer:        renderer.NewReportRenderer(d, opts),
		fileManager:     NewDefaultFileManager(logger),
		logger:          logger.WithField("component", "report_generator"),
	}, nil
}

// RenderPage renders rep into a complete HTML page. Rendering failures do not
// produce an error: the page then carries the exception view and Failed is set.
func (g *DefaultGenerator) RenderPage(ctx context.Context, rep *report.Report) (*Page, error) {
	container := dom.CreateElement("div", "lighthouse-root", nil)
	el := g.renderer.RenderReport(ctx, rep, container)

	fragment, err := dom.RenderString(el)
	if err != nil {
		return nil, fmt.Errorf("failed to serialise report: %w", err)
	}

	page := &Page{
		Fragment: fragment,
		Failed:   dom.HasClass(el, constants.ClassException),
	}

	title := "Lighthouse Report"
	if rep != nil {
		page.Warning = report.VersionWarning(rep.LighthouseVersion, g.renderer.CurrentVersion())
		if rep.URL != "" {
			title += " - " + rep.URL
		}
	}

	if page.Warning != "" {
		g.logger.WithField("report_version", rep.LighthouseVersion).Warn(page.Warning)
	}

	//nolint:gosec // fragment is serialised by x/net/html, which escapes text and attributes.
	htmlContent, err := g.templateManager.RenderReport(map[string]interface{}{
		"Title":   title,
		"CSS":     g.templateManager.Stylesheet(),
		"Body":    template.HTML(fragment),
		"Warning": page.Warning,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	page.HTML = htmlContent

	return page, nil
}

// GenerateHTML renders rep and saves it. An empty outputFile gets a timestamped default name.
func (g *DefaultGenerator) GenerateHTML(ctx context.Context, rep *report.Report, outputFile string) (string, error) {
	page, err := g.RenderPage(ctx, rep)
	if err != nil {
		return "", err
	}

	if outputFile == "" {
		outputFile = g.generateTimestampedFilename(constants.DefaultHTMLReportFile, time.Now())
	}

	if err := g.fileManager.SaveHTML(outputFile, page.HTML); err != nil {
		return "", fmt.Errorf("failed to save HTML report: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"html_file": outputFile,
		"failed":    page.Failed,
	}).Info("HTML report generated")

	return outputFile, nil
}

// GenerateHTMLFromJSON generates an HTML report from an existing JSON file
func (g *DefaultGenerator) GenerateHTMLFromJSON(ctx context.Context, jsonFile, outputFile string) error {
	if !g.fileManager.FileExists(jsonFile) {
		return fmt.Errorf("input JSON file does not exist: %s", jsonFile)
	}

	jsonData, err := g.fileManager.ReadFile(jsonFile)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}

	rep, err := report.Parse(jsonData)
	if err != nil {
		return fmt.Errorf("failed to parse JSON report: %w", err)
	}

	if _, err := g.GenerateHTML(ctx, rep, outputFile); err != nil {
		return err
	}

	g.logger.WithFields(logrus.Fields{
		"input":  jsonFile,
		"output": outputFile,
	}).Info("HTML report generated from JSON")

	return nil
}

// Templates returns the template manager backing this generator
func (g *DefaultGenerator) Templates() *templates.Manager {
	return g.templateManager
}

// Renderer returns the report renderer
func (g *DefaultGenerator) Renderer() *renderer.ReportRenderer {
	return g.renderer
}

// generateTimestampedFilename inserts a timestamp before the extension
func (g *DefaultGenerator) generateTimestampedFilename(baseFilename string, timestamp time.Time) string {
	ext := filepath.Ext(baseFilename)
	nameWithoutExt := strings.TrimSuffix(baseFilename, ext)

	return fmt.Sprintf("%s-%s%s", nameWithoutExt, timestamp.Format("2006-01-02_15-04-05"), ext)
}

// SetFileManager allows injecting a different file manager (for testing)
func (g *DefaultGenerator) SetFileManager(fm FileManager) {
	g.fileManager = fm
}
