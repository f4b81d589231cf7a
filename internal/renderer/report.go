// Package renderer converts a parsed report into an HTML node tree.
//
// ReportRenderer.Render is the single fault-isolation boundary: any error or
// panic raised while walking the report is returned from it, and RenderReport
// substitutes an exception view so callers always get something to show.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/dom"
	"github.com/ethpandaops/lhviewer/internal/report"
)

// ErrMalformedReport wraps panics recovered while walking a report.
var ErrMalformedReport = errors.New("malformed report")

// RenderError carries the diagnostic for a failed render.
type RenderError struct {
	Err   error
	Stack string
}

func (e *RenderError) Error() string {
	return e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the text shown in the exception view.
func (e *RenderError) Diagnostic() string {
	if e.Stack == "" {
		return e.Err.Error()
	}

	return e.Err.Error() + "\n" + e.Stack
}

// Options are the explicit dependencies of a ReportRenderer.
type Options struct {
	Logger         logrus.FieldLogger
	Tracer         trace.Tracer
	Locale         language.Tag
	Location       *time.Location
	CurrentVersion string
}

// ReportRenderer assembles the header, categories, audits and footer of a report.
// It holds no per-render state and may be shared between goroutines.
type ReportRenderer struct {
	dom      *dom.DOM
	details  *DetailsRenderer
	logger   logrus.FieldLogger
	tracer   trace.Tracer
	locale   language.Tag
	location *time.Location
	version  string
}

// NewReportRenderer creates a report renderer.
func NewReportRenderer(d *dom.DOM, opts Options) *ReportRenderer {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("lhviewer")
	}

	locale := opts.Locale
	if locale == language.Und {
		locale = language.MustParse(constants.DefaultLocale)
	}

	location := opts.Location
	if location == nil {
		location = time.UTC
	}

	version := opts.CurrentVersion
	if version == "" {
		version = constants.CurrentVersion
	}

	return &ReportRenderer{
		dom:      d,
		details:  NewDetailsRenderer(d),
		logger:   logger.WithField("component", "report_renderer"),
		tracer:   tracer,
		locale:   locale,
		location: location,
		version:  version,
	}
}

// CurrentVersion returns the renderer version reports are compared against.
func (r *ReportRenderer) CurrentVersion() string {
	return r.version
}

// RenderReport clears container and appends the rendered report, or an
// exception view when rendering fails. It returns the appended element.
func (r *ReportRenderer) RenderReport(ctx context.Context, rep *report.Report, container *html.Node) *html.Node {
	dom.Clear(container)

	el, err := r.Render(ctx, rep)
	if err != nil {
		r.logger.WithError(err).Warn("Report rendering failed, showing exception view")
		el = r.renderException(err)
	}
	container.AppendChild(el)

	return el
}

// Render builds the report tree. A report whose body failed to decode, and
// panics raised while walking the report, are returned as a *RenderError
// wrapping ErrMalformedReport.
func (r *ReportRenderer) Render(ctx context.Context, rep *report.Report) (el *html.Node, err error) {
	_, span := r.tracer.Start(ctx, "renderer.render_report")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			el = nil
			err = &RenderError{
				Err:   fmt.Errorf("%w: %v", ErrMalformedReport, rec),
				Stack: string(debug.Stack()),
			}
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if rep != nil && rep.DecodeError() != nil {
		return nil, &RenderError{Err: fmt.Errorf("%w: %w", ErrMalformedReport, rep.DecodeError())}
	}

	el, err = r.renderReport(rep)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	span.SetAttributes(
		attribute.String("report.url", rep.URL),
		attribute.String("report.version", rep.LighthouseVersion),
		attribute.Int("report.categories", len(rep.ReportCategories)),
	)

	return el, nil
}

func (r *ReportRenderer) renderException(err error) *html.Node {
	el := r.dom.CreateElement("div", constants.ClassException, nil)

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		dom.SetText(el, renderErr.Diagnostic())
	} else {
		dom.SetText(el, err.Error())
	}

	return el
}

func (r *ReportRenderer) renderReport(rep *report.Report) (*html.Node, error) {
	el := r.dom.CreateElement("div", constants.ClassReport, nil)

	header, err := r.renderReportHeader(rep)
	if err != nil {
		return nil, err
	}
	dom.Append(el, header)

	categories := r.dom.CreateElement("div", constants.ClassCategories, nil)
	for i := range rep.ReportCategories {
		category, err := r.renderCategory(&rep.ReportCategories[i])
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", rep.ReportCategories[i].Name, err)
		}
		categories.AppendChild(category)
	}
	el.AppendChild(categories)

	footer, err := r.renderReportFooter(rep)
	if err != nil {
		return nil, err
	}
	dom.Append(el, footer)

	return el, nil
}

func (r *ReportRenderer) renderReportHeader(rep *report.Report) (*html.Node, error) {
	header, err := r.dom.CloneTemplate(constants.TmplHeading)
	if err != nil {
		return nil, err
	}

	timestamp, err := dom.QuerySelector(header, "."+constants.ClassConfigTimestamp)
	if err != nil {
		return nil, err
	}
	dom.SetText(timestamp, FormatDateTime(rep.GeneratedTime, r.location, r.locale))

	url, err := dom.QuerySelector(header, "."+constants.ClassMetadataURL)
	if err != nil {
		return nil, err
	}
	dom.SetAttr(url, "href", rep.URL)
	dom.SetText(url, rep.URL)

	env, err := dom.QuerySelector(header, "."+constants.ClassEnvItems)
	if err != nil {
		return nil, err
	}

	if rep.RuntimeConfig == nil {
		return nil, fmt.Errorf("%w: report has no runtimeConfig", ErrMalformedReport)
	}

	for _, runtime := range rep.RuntimeConfig.Environment {
		item, err := r.renderEnvItem(runtime)
		if err != nil {
			return nil, err
		}
		dom.Append(env, item)
	}

	return header, nil
}

func (r *ReportRenderer) renderEnvItem(runtime report.EnvironmentItem) (*html.Node, error) {
	item, err := r.dom.CloneTemplate(constants.TmplEnvItems)
	if err != nil {
		return nil, err
	}

	enabled := "Disabled"
	if runtime.Enabled {
		enabled = "Enabled"
	}

	for class, text := range map[string]string{
		constants.ClassEnvName:        runtime.Name,
		constants.ClassEnvDescription: runtime.Description,
		constants.ClassEnvEnabled:     enabled,
	} {
		n, err := dom.QuerySelector(item, "."+class)
		if err != nil {
			return nil, err
		}
		dom.SetText(n, text)
	}

	return item, nil
}

func (r *ReportRenderer) renderReportFooter(rep *report.Report) (*html.Node, error) {
	footer, err := r.dom.CloneTemplate(constants.TmplFooter)
	if err != nil {
		return nil, err
	}

	version, err := dom.QuerySelector(footer, "."+constants.ClassFooterVersion)
	if err != nil {
		return nil, err
	}
	dom.SetText(version, rep.LighthouseVersion)

	timestamp, err := dom.QuerySelector(footer, "."+constants.ClassFooterTimestamp)
	if err != nil {
		return nil, err
	}
	dom.SetText(timestamp, FormatDateTime(rep.GeneratedTime, r.location, r.locale))

	return footer, nil
}

func (r *ReportRenderer) renderCategory(category *report.Category) (*html.Node, error) {
	el := r.dom.CreateElement("div", constants.ClassCategory, nil)

	score, err := r.renderCategoryScore(category)
	if err != nil {
		return nil, err
	}
	dom.Append(el, score)

	failing, passed := category.PassedAudits()
	for i := range failing {
		audit, err := r.renderAudit(&failing[i])
		if err != nil {
			return nil, err
		}
		el.AppendChild(audit)
	}

	if len(passed) == 0 {
		return el, nil
	}

	passedEl := r.dom.CreateElement("details", constants.ClassPassedAudits, nil)
	summary := r.dom.CreateElement("summary", constants.ClassPassedSummary, nil)
	dom.SetText(summary, fmt.Sprintf("View %d passed items", len(passed)))
	passedEl.AppendChild(summary)

	for i := range passed {
		audit, err := r.renderAudit(&passed[i])
		if err != nil {
			return nil, err
		}
		passedEl.AppendChild(audit)
	}
	el.AppendChild(passedEl)

	return el, nil
}

func (r *ReportRenderer) renderAudit(audit *report.Audit) (*html.Node, error) {
	el := r.dom.CreateElement("div", constants.ClassAudit, nil)

	score, err := r.renderAuditScore(audit)
	if err != nil {
		return nil, fmt.Errorf("audit %q: %w", audit.ID, err)
	}
	dom.Append(el, score)

	return el, nil
}

func (r *ReportRenderer) renderAuditScore(audit *report.Audit) (*html.Node, error) {
	tmpl, err := r.dom.CloneTemplate(constants.TmplAuditScore)
	if err != nil {
		return nil, err
	}

	result := audit.Result
	title := result.Description
	if result.DisplayValue != "" {
		title += ":  " + result.DisplayValue
	}
	if result.OptimalValue != "" {
		title += " (target: " + result.OptimalValue + ")"
	}

	header, err := dom.QuerySelector(tmpl, "."+constants.ClassScoreHeader)
	if err != nil {
		return nil, err
	}

	// Failed audits start expanded.
	if audit.Score < constants.PerfectScore {
		dom.SetAttr(header, "open", "")
	} else {
		dom.RemoveAttr(header, "open")
	}

	if result.Details != nil {
		detailsEl, err := r.details.Render(result.Details)
		if err != nil {
			return nil, err
		}
		header.AppendChild(detailsEl)
	}

	return r.populateScore(tmpl, audit.Score, result.ScoringMode, title, result.HelpText)
}

func (r *ReportRenderer) renderCategoryScore(category *report.Category) (*html.Node, error) {
	tmpl, err := r.dom.CloneTemplate(constants.TmplCategoryScore)
	if err != nil {
		return nil, err
	}

	score := roundHalfUp(category.Score)

	return r.populateScore(tmpl, score, constants.ScoringModeNumeric, category.Name, category.Description)
}

func (r *ReportRenderer) populateScore(el *html.Node, score float64, scoringMode, title, description string) (*html.Node, error) {
	value, err := dom.QuerySelector(el, "."+constants.ClassScoreValue)
	if err != nil {
		return nil, err
	}
	dom.SetText(value, FormatNumber(r.locale, score))
	dom.AddClass(value, constants.ClassScoreValue+"--"+CalculateRating(score))
	if scoringMode != "" {
		dom.AddClass(value, constants.ClassScoreValue+"--"+scoringMode)
	}

	titleEl, err := dom.QuerySelector(el, "."+constants.ClassScoreTitle)
	if err != nil {
		return nil, err
	}
	dom.SetText(titleEl, title)

	descEl, err := dom.QuerySelector(el, "."+constants.ClassScoreDescription)
	if err != nil {
		return nil, err
	}
	descEl.AppendChild(r.dom.CreateSpanFromMarkdown(description))

	return el, nil
}

// roundHalfUp matches Math.round: halves round towards +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
