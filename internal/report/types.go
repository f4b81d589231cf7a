// Package report defines the report document consumed by the renderer and the
// validation the viewer applies before handing a report to it.
package report

import (
	"encoding/json"

	"github.com/ethpandaops/lhviewer/internal/report/details"
)

// Report is a complete audit run.
type Report struct {
	ReportCategories  []Category     `json:"reportCategories"`
	URL               string         `json:"url"`
	GeneratedTime     string         `json:"generatedTime"`
	LighthouseVersion string         `json:"lighthouseVersion"`
	RuntimeConfig     *RuntimeConfig `json:"runtimeConfig"`

	decodeErr error
}

// DecodeError returns the error raised while decoding the report body, if
// any. Only the version and URL of such a report are populated.
func (r *Report) DecodeError() error {
	return r.decodeErr
}

// Category is a named group of audits with an aggregate score.
type Category struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	Audits      []Audit `json:"audits"`
}

// Audit is a single automated check within a category.
type Audit struct {
	ID     string       `json:"id"`
	Weight float64      `json:"weight"`
	Score  float64      `json:"score"`
	Result *AuditResult `json:"result"`
}

// AuditResult carries the descriptive output of an audit.
type AuditResult struct {
	Description  string       `json:"description"`
	DisplayValue string       `json:"displayValue,omitempty"`
	HelpText     string       `json:"helpText"`
	ScoringMode  string       `json:"scoringMode"`
	OptimalValue string       `json:"optimalValue,omitempty"`
	Details      details.Node `json:"-"`
}

type auditResultWire struct {
	Description  string            `json:"description"`
	DisplayValue json.RawMessage   `json:"displayValue,omitempty"`
	HelpText     string            `json:"helpText"`
	ScoringMode  string            `json:"scoringMode"`
	OptimalValue json.RawMessage   `json:"optimalValue,omitempty"`
	Details      *details.Document `json:"details,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. displayValue and optimalValue may
// be emitted as numbers by some audits, so both are accepted as scalars.
func (r *AuditResult) UnmarshalJSON(data []byte) error {
	var wire auditResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.Description = wire.Description
	r.HelpText = wire.HelpText
	r.ScoringMode = wire.ScoringMode
	r.DisplayValue = scalarString(wire.DisplayValue)
	r.OptimalValue = scalarString(wire.OptimalValue)
	r.Details = nil

	if wire.Details != nil {
		r.Details = wire.Details.Node
	}

	return nil
}

// scalarString renders a JSON string, number or boolean as plain text.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}

// RuntimeConfig describes the environment the audits ran in.
type RuntimeConfig struct {
	Environment        []EnvironmentItem `json:"environment"`
	BlockedURLPatterns []string          `json:"blockedUrlPatterns,omitempty"`
}

// EnvironmentItem is one emulation or throttling descriptor.
type EnvironmentItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// PassedAudits splits a category's audits into non-passed and passed, keeping
// source order within each group.
func (c *Category) PassedAudits() (failing, passed []Audit) {
	for _, audit := range c.Audits {
		if audit.Score == 100 {
			passed = append(passed, audit)
		} else {
			failing = append(failing, audit)
		}
	}

	return failing, passed
}
