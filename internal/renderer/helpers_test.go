package renderer

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/lhviewer/internal/dom"
	"github.com/ethpandaops/lhviewer/internal/report"
	"github.com/ethpandaops/lhviewer/internal/report/details"
	"github.com/ethpandaops/lhviewer/internal/reports/templates"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return logger
}

func newTestDOM(t *testing.T) *dom.DOM {
	t.Helper()

	m := templates.NewManager(testLogger())
	require.NoError(t, m.LoadTemplates())

	d, err := dom.New(m.Components())
	require.NoError(t, err)

	return d
}

func newTestRenderer(t *testing.T) *ReportRenderer {
	t.Helper()

	return NewReportRenderer(newTestDOM(t), Options{Logger: testLogger()})
}

func ptr(s string) *string {
	return &s
}

func sampleReport() *report.Report {
	return &report.Report{
		URL:               "https://example.com/",
		GeneratedTime:     "2017-04-28T23:43:37.145Z",
		LighthouseVersion: "2.0.0",
		RuntimeConfig: &report.RuntimeConfig{
			Environment: []report.EnvironmentItem{
				{Name: "Device Emulation", Description: "Nexus 5X", Enabled: true},
				{Name: "Network Throttling", Description: "562.5ms RTT", Enabled: false},
			},
		},
		ReportCategories: []report.Category{
			{
				Name:        "Performance",
				Weight:      1,
				Score:       63.4,
				Description: "See [the docs](https://developers.google.com/web/tools/lighthouse).",
				Audits: []report.Audit{
					{
						ID:    "first-meaningful-paint",
						Score: 45,
						Result: &report.AuditResult{
							Description:  "First meaningful paint",
							DisplayValue: "3,200 ms",
							OptimalValue: "< 1,600 ms",
							HelpText:     "Measures when content is visible.",
							ScoringMode:  "numeric",
							Details: &details.Cards{
								Header: &details.Text{Text: "Timings"},
								Items:  []details.Card{{Title: "FMP", Value: "3.2s", Target: ptr("1.6s")}},
							},
						},
					},
					{
						ID:    "is-on-https",
						Score: 100,
						Result: &report.AuditResult{
							Description: "Uses HTTPS",
							HelpText:    "All sites should be on HTTPS.",
							ScoringMode: "binary",
						},
					},
				},
			},
		},
	}
}
