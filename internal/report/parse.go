package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ethpandaops/lhviewer/constants"
)

var (
	// ErrNotJSON is returned when input cannot be parsed as JSON.
	ErrNotJSON = errors.New(constants.ErrNotJSONMessage)
	// ErrNotLighthouseReport is returned when JSON lacks a version marker.
	ErrNotLighthouseReport = errors.New(constants.ErrNotLighthouseMessage)
	// ErrMalformedDocument is carried by a Report whose body does not match
	// the report structure.
	ErrMalformedDocument = errors.New("report document is malformed")
)

// Parse validates raw input and decodes it into a Report.
//
// Only input that is not JSON (ErrNotJSON) or lacks a version marker
// (ErrNotLighthouseReport) is rejected. A document that passes both checks but
// does not match the report structure still yields a Report; its DecodeError
// is set so the renderer can show the failure in place of the report.
func Parse(data []byte) (*Report, error) {
	if !json.Valid(data) {
		var v interface{}
		err := json.Unmarshal(data, &v)

		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, ErrNotLighthouseReport
	}

	rawVersion, ok := fields["lighthouseVersion"]
	if !ok {
		return nil, ErrNotLighthouseReport
	}

	var version string
	if err := json.Unmarshal(rawVersion, &version); err != nil || strings.TrimSpace(version) == "" {
		return nil, ErrNotLighthouseReport
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		partial := &Report{
			LighthouseVersion: version,
			decodeErr:         fmt.Errorf("%w: %v", ErrMalformedDocument, err),
		}

		var url string
		if json.Unmarshal(fields["url"], &url) == nil {
			partial.URL = url
		}

		return partial, nil
	}

	return &r, nil
}

// FromValue converts an already-decoded JSON value (e.g. a websocket payload
// field) into a Report, applying the same validation as Parse.
func FromValue(v json.RawMessage) (*Report, error) {
	if len(v) == 0 {
		return nil, ErrNotLighthouseReport
	}

	return Parse(v)
}

// VersionWarning returns a user-facing warning when the report was produced by
// an older major.minor version than current. Unparseable versions yield no
// warning.
func VersionWarning(reportVersion, current string) string {
	rv, err := semver.NewVersion(reportVersion)
	if err != nil {
		return ""
	}

	cv, err := semver.NewVersion(current)
	if err != nil {
		return ""
	}

	if rv.Major() < cv.Major() || (rv.Major() == cv.Major() && rv.Minor() < cv.Minor()) {
		return fmt.Sprintf("Results may not display properly.\n"+
			"Report was created with an earlier version of Lighthouse (%s). "+
			"The latest version is %s.", reportVersion, current)
	}

	return ""
}
