package reports

import (
	"context"

	"github.com/ethpandaops/lhviewer/internal/report"
)

// Generator defines the interface for report page generation
type Generator interface {
	RenderPage(ctx context.Context, rep *report.Report) (*Page, error)
	GenerateHTML(ctx context.Context, rep *report.Report, outputFile string) (string, error)
	GenerateHTMLFromJSON(ctx context.Context, jsonFile, outputFile string) error
}

// FileManager defines the interface for file operations
type FileManager interface {
	SaveHTML(filename string, content string) error
	FileExists(filename string) bool
	ReadFile(filename string) ([]byte, error)
}

// Page is a rendered, self-contained HTML report page.
type Page struct {
	HTML string
	// Fragment is the serialised report element without the page shell.
	Fragment string
	// Warning is a non-fatal notice, e.g. the report predates the renderer.
	Warning string
	// Failed is set when the exception view was rendered instead of the report.
	Failed bool
}
