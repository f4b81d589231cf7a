package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

//go:embed *.html *.css components/*.html
var templateFS embed.FS

const (
	componentsDir      = "components"
	componentsDocument = "components/lighthouse.html"
	stylesheet         = "report.css"
)

// Manager handles page template loading, parsing, and rendering, and serves the
// component template document the DOM helper clones from.
type Manager struct {
	templates  map[string]*template.Template
	components []byte
	css        string
	logger     logrus.FieldLogger
}

// NewManager creates a new template manager.
func NewManager(logger logrus.FieldLogger) *Manager {
	return &Manager{
		templates: make(map[string]*template.Template),
		logger:    logger.WithField("component", "template_manager"),
	}
}

// LoadTemplates loads all page templates, the component document and the
// stylesheet from the embedded filesystem.
func (m *Manager) LoadTemplates() error {
	m.logger.Debug("Loading HTML templates")

	err := fs.WalkDir(templateFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == componentsDir {
				return fs.SkipDir
			}

			return nil
		}

		if !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := templateFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		templateName := strings.TrimSuffix(filepath.Base(path), ".html")

		tmpl, err := template.New(templateName).Parse(string(content))
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		m.templates[templateName] = tmpl
		m.logger.WithField("template", templateName).Debug("Loaded template")

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	components, err := templateFS.ReadFile(componentsDocument)
	if err != nil {
		return fmt.Errorf("failed to read component templates: %w", err)
	}
	m.components = components

	css, err := templateFS.ReadFile(stylesheet)
	if err != nil {
		return fmt.Errorf("failed to read stylesheet: %w", err)
	}
	m.css = string(css)

	m.logger.WithField("template_count", len(m.templates)).Debug("Templates loaded successfully")

	return nil
}

// LoadComponentsFromFile replaces the embedded component document with one read
// from disk, so designers can iterate on markup without rebuilding.
func (m *Manager) LoadComponentsFromFile(r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read component templates: %w", err)
	}

	m.components = content
	m.logger.Info("Loaded component templates override")

	return nil
}

// Components returns a reader over the component template document.
func (m *Manager) Components() io.Reader {
	return bytes.NewReader(m.components)
}

// Stylesheet returns the report stylesheet.
func (m *Manager) Stylesheet() template.CSS {
	//nolint:gosec // embedded, trusted stylesheet.
	return template.CSS(m.css)
}

// RenderReport renders the report page shell with the given data.
func (m *Manager) RenderReport(data interface{}) (string, error) {
	return m.RenderTemplate("report", data)
}

// RenderViewer renders the viewer landing page.
func (m *Manager) RenderViewer(data interface{}) (string, error) {
	return m.RenderTemplate("viewer", data)
}

// RenderTemplate renders a template with the given name and data.
func (m *Manager) RenderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := m.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var output strings.Builder
	if err := tmpl.Execute(&output, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return output.String(), nil
}
