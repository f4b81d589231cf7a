package renderer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/dom"
	"github.com/ethpandaops/lhviewer/internal/report"
	"github.com/ethpandaops/lhviewer/internal/report/details"
)

func newContainer() *html.Node {
	container := dom.CreateElement("main", "container", nil)
	stale := dom.CreateElement("div", "stale", nil)
	container.AppendChild(stale)

	return container
}

func TestRenderReportWellFormed(t *testing.T) {
	r := newTestRenderer(t)
	container := newContainer()

	el := r.RenderReport(context.Background(), sampleReport(), container)
	require.NotNil(t, el)

	assert.True(t, dom.HasClass(el, constants.ClassReport))

	children := dom.Children(container)
	require.Len(t, children, 1, "previous content must be replaced")
	assert.Same(t, el, children[0])

	url, err := dom.QuerySelector(el, "."+constants.ClassMetadataURL)
	require.NoError(t, err)
	href, _ := dom.Attr(url, "href")
	assert.Equal(t, "https://example.com/", href)

	envNames, err := dom.QuerySelectorAll(el, "."+constants.ClassEnvName)
	require.NoError(t, err)
	require.Len(t, envNames, 2)
	assert.Equal(t, "Device Emulation", dom.TextContent(envNames[0]))

	enabled, err := dom.QuerySelectorAll(el, "."+constants.ClassEnvEnabled)
	require.NoError(t, err)
	assert.Equal(t, "Enabled", dom.TextContent(enabled[0]))
	assert.Equal(t, "Disabled", dom.TextContent(enabled[1]))

	version, err := dom.QuerySelector(el, "."+constants.ClassFooterVersion)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", dom.TextContent(version))

	timestamp, err := dom.QuerySelector(el, "."+constants.ClassFooterTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "4/28/2017, 11:43 PM UTC", dom.TextContent(timestamp))
}

func TestRenderReportCategoryLayout(t *testing.T) {
	r := newTestRenderer(t)

	el, err := r.Render(context.Background(), sampleReport())
	require.NoError(t, err)

	categories, err := dom.QuerySelectorAll(el, "."+constants.ClassCategory)
	require.NoError(t, err)
	require.Len(t, categories, 1)

	categoryValue, err := dom.QuerySelector(categories[0], ".lighthouse-score--category ."+constants.ClassScoreValue)
	require.NoError(t, err)
	assert.Equal(t, "63", dom.TextContent(categoryValue))
	assert.True(t, dom.HasClass(categoryValue, "lighthouse-score__value--average"))
	assert.True(t, dom.HasClass(categoryValue, "lighthouse-score__value--numeric"))

	links, err := dom.QuerySelectorAll(categories[0], ".lighthouse-score--category a")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "the docs", dom.TextContent(links[0]))

	passed, err := dom.QuerySelector(categories[0], "."+constants.ClassPassedAudits)
	require.NoError(t, err)

	summary, err := dom.QuerySelector(passed, "."+constants.ClassPassedSummary)
	require.NoError(t, err)
	assert.Equal(t, "View 1 passed items", dom.TextContent(summary))

	passedTitle, err := dom.QuerySelector(passed, "."+constants.ClassScoreTitle)
	require.NoError(t, err)
	assert.Equal(t, "Uses HTTPS", dom.TextContent(passedTitle))

	binary, err := dom.QuerySelector(passed, "."+constants.ClassScoreValue)
	require.NoError(t, err)
	assert.True(t, dom.HasClass(binary, "lighthouse-score__value--binary"))
	assert.True(t, dom.HasClass(binary, "lighthouse-score__value--pass"))
}

func TestRenderAuditTitleAndDetails(t *testing.T) {
	r := newTestRenderer(t)

	el, err := r.Render(context.Background(), sampleReport())
	require.NoError(t, err)

	audits, err := dom.QuerySelectorAll(el, "."+constants.ClassAudit)
	require.NoError(t, err)
	require.Len(t, audits, 2)

	title, err := dom.QuerySelector(audits[0], "."+constants.ClassScoreTitle)
	require.NoError(t, err)
	assert.Equal(t, "First meaningful paint:  3,200 ms (target: < 1,600 ms)", dom.TextContent(title))

	cards, err := dom.QuerySelector(audits[0], "."+constants.ClassScoreHeader+" > ."+constants.ClassDetails)
	require.NoError(t, err)
	assert.Contains(t, dom.TextContent(cards), "target: 1.6s")
}

func TestRenderAuditOpenState(t *testing.T) {
	r := newTestRenderer(t)

	el, err := r.Render(context.Background(), sampleReport())
	require.NoError(t, err)

	headers, err := dom.QuerySelectorAll(el, "."+constants.ClassAudit+" ."+constants.ClassScoreHeader)
	require.NoError(t, err)
	require.Len(t, headers, 2)

	_, open := dom.Attr(headers[0], "open")
	assert.True(t, open, "audit with score < 100 starts expanded")

	_, open = dom.Attr(headers[1], "open")
	assert.False(t, open, "audit with score 100 starts collapsed")
}

func TestRenderScoreBoundaries(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		score  float64
		text   string
		rating string
	}{
		{75, "75", "pass"},
		{74.9, "74.9", "average"},
		{45, "45", "average"},
		{44.9, "44.9", "fail"},
		{99.94, "99.9", "pass"},
	}

	rep := sampleReport()
	rep.ReportCategories[0].Audits = nil
	for _, tt := range tests {
		rep.ReportCategories[0].Audits = append(rep.ReportCategories[0].Audits, report.Audit{
			ID:     "a",
			Score:  tt.score,
			Result: &report.AuditResult{Description: "d", ScoringMode: "numeric"},
		})
	}

	el, err := r.Render(context.Background(), rep)
	require.NoError(t, err)

	values, err := dom.QuerySelectorAll(el, "."+constants.ClassAudit+" ."+constants.ClassScoreValue)
	require.NoError(t, err)
	require.Len(t, values, len(tests))

	for i, tt := range tests {
		assert.Equal(t, tt.text, dom.TextContent(values[i]), "score %v", tt.score)
		assert.True(t, dom.HasClass(values[i], "lighthouse-score__value--"+tt.rating), "score %v", tt.score)
	}
}

func TestRenderReportMissingResultShowsException(t *testing.T) {
	r := newTestRenderer(t)
	container := newContainer()

	rep := sampleReport()
	rep.ReportCategories[0].Audits[0].Result = nil

	el := r.RenderReport(context.Background(), rep, container)
	require.NotNil(t, el)

	assert.True(t, dom.HasClass(el, constants.ClassException))
	assert.Contains(t, dom.TextContent(el), ErrMalformedReport.Error())
	require.Len(t, dom.Children(container), 1)

	_, err := r.Render(context.Background(), rep)
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestRenderReportNilReportShowsException(t *testing.T) {
	r := newTestRenderer(t)

	el := r.RenderReport(context.Background(), nil, newContainer())
	assert.True(t, dom.HasClass(el, constants.ClassException))
}

func TestRenderReportUnknownDetailsShowsException(t *testing.T) {
	r := newTestRenderer(t)

	rep := sampleReport()
	rep.ReportCategories[0].Audits[0].Result.Details = &details.Block{Items: []details.Node{
		&details.Unknown{Type: "table"},
	}}

	el := r.RenderReport(context.Background(), rep, newContainer())
	assert.True(t, dom.HasClass(el, constants.ClassException))
	assert.Contains(t, dom.TextContent(el), `"table"`)

	reportEls, err := dom.QuerySelectorAll(el, "."+constants.ClassReport)
	require.NoError(t, err)
	assert.Empty(t, reportEls, "no partial render survives a failure")
}

func TestRenderReportMissingTemplateShowsException(t *testing.T) {
	d, err := dom.New(strings.NewReader(`<html><body></body></html>`))
	require.NoError(t, err)

	r := NewReportRenderer(d, Options{Logger: testLogger()})

	el := r.RenderReport(context.Background(), sampleReport(), newContainer())
	assert.True(t, dom.HasClass(el, constants.ClassException))
	assert.Contains(t, dom.TextContent(el), "template not found")
	assert.Contains(t, dom.TextContent(el), constants.TmplHeading)
}

func TestRenderReportMissingRuntimeConfig(t *testing.T) {
	r := newTestRenderer(t)

	rep := sampleReport()
	rep.RuntimeConfig = nil

	_, err := r.Render(context.Background(), rep)
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestRenderReportMalformedDocumentShowsException(t *testing.T) {
	r := newTestRenderer(t)

	rep, err := report.Parse([]byte(`{"lighthouseVersion": "2.0.0", "url": "https://example.com/",
		"reportCategories": [{"name": "Performance", "score": "high"}]}`))
	require.NoError(t, err)

	_, err = r.Render(context.Background(), rep)
	assert.ErrorIs(t, err, ErrMalformedReport)
	assert.ErrorIs(t, err, report.ErrMalformedDocument)

	container := newContainer()
	el := r.RenderReport(context.Background(), rep, container)
	require.NotNil(t, el)
	assert.True(t, dom.HasClass(el, constants.ClassException))
	assert.Contains(t, dom.TextContent(el), "cannot unmarshal string")
	assert.Len(t, dom.Children(container), 1)
}

func TestRendererLocale(t *testing.T) {
	d := newTestDOM(t)
	r := NewReportRenderer(d, Options{Logger: testLogger(), Locale: language.German})

	rep := sampleReport()
	rep.ReportCategories[0].Audits = []report.Audit{{
		ID:     "a",
		Score:  74.9,
		Result: &report.AuditResult{Description: "d", ScoringMode: "numeric"},
	}}

	el, err := r.Render(context.Background(), rep)
	require.NoError(t, err)

	value, err := dom.QuerySelector(el, "."+constants.ClassAudit+" ."+constants.ClassScoreValue)
	require.NoError(t, err)
	assert.Equal(t, "74,9", dom.TextContent(value))

	timestamp, err := dom.QuerySelector(el, "."+constants.ClassFooterTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "28.4.2017, 23:43 UTC", dom.TextContent(timestamp))
}

func TestRenderAuditWithoutScoringMode(t *testing.T) {
	r := newTestRenderer(t)

	rep := sampleReport()
	rep.ReportCategories[0].Audits = []report.Audit{{
		ID:     "a",
		Score:  50,
		Result: &report.AuditResult{Description: "d"},
	}}

	el, err := r.Render(context.Background(), rep)
	require.NoError(t, err)

	value, err := dom.QuerySelector(el, "."+constants.ClassAudit+" ."+constants.ClassScoreValue)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ClassScoreValue, constants.ClassScoreValue + "--" + constants.RatingAverage}, dom.Classes(value))
}

func TestCalculateRating(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "pass"},
		{75, "pass"},
		{74.9, "average"},
		{45, "average"},
		{44.9, "fail"},
		{0, "fail"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateRating(tt.score), "score %v", tt.score)
	}
}

func TestFormatNumber(t *testing.T) {
	tag := language.AmericanEnglish

	assert.Equal(t, "3,200.5", FormatNumber(tag, 3200.5))
	assert.Equal(t, "63", FormatNumber(tag, 63))
	assert.Equal(t, "0.1", FormatNumber(tag, 0.12))
}

func TestFormatDateTime(t *testing.T) {
	const ts = "2017-04-28T23:43:37.145Z"

	tests := []struct {
		name string
		tag  language.Tag
		want string
	}{
		{name: "american english", tag: language.AmericanEnglish, want: "4/28/2017, 11:43 PM UTC"},
		{name: "undetermined", tag: language.Und, want: "4/28/2017, 11:43 PM UTC"},
		{name: "german", tag: language.MustParse("de-DE"), want: "28.4.2017, 23:43 UTC"},
		{name: "japanese", tag: language.Japanese, want: "2017/4/28 23:43 UTC"},
		{name: "unlisted language", tag: language.Swedish, want: "2017-04-28 23:43 UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDateTime(ts, nil, tt.tag))
		})
	}

	assert.Equal(t, "not a date", FormatDateTime("not a date", nil, language.AmericanEnglish))
}
