package renderer

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ethpandaops/lhviewer/constants"
)

// dateLayouts are numeric date/time layouts with a short zone name, keyed by
// base language. Languages without an entry use defaultDateLayout.
var dateLayouts = map[string]string{
	"en": "1/2/2006, 3:04 PM MST",
	"de": "2.1.2006, 15:04 MST",
	"ru": "02.01.2006, 15:04 MST",
	"fr": "02/01/2006 15:04 MST",
	"es": "2/1/2006, 15:04 MST",
	"it": "2/1/2006, 15:04 MST",
	"pt": "02/01/2006, 15:04 MST",
	"nl": "2-1-2006, 15:04 MST",
	"ja": "2006/1/2 15:04 MST",
	"zh": "2006/1/2 15:04 MST",
	"ko": "2006. 1. 2. 15:04 MST",
}

const defaultDateLayout = "2006-01-02 15:04 MST"

// CalculateRating maps a score onto pass, average or fail.
func CalculateRating(score float64) string {
	switch {
	case score >= constants.PassMinScore:
		return constants.RatingPass
	case score >= constants.AverageMinScore:
		return constants.RatingAverage
	default:
		return constants.RatingFail
	}
}

// FormatNumber formats v for the given locale with at most one fractional digit.
func FormatNumber(tag language.Tag, v float64) string {
	return message.NewPrinter(tag).Sprint(number.Decimal(v, number.MaxFractionDigits(1)))
}

// FormatDateTime renders an RFC 3339 timestamp in loc using the numeric layout
// of tag's language. Unparseable input is returned unchanged.
func FormatDateTime(raw string, loc *time.Location, tag language.Tag) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}

	if loc == nil {
		loc = time.UTC
	}

	return t.In(loc).Format(dateLayout(tag))
}

func dateLayout(tag language.Tag) string {
	if tag == language.Und {
		return dateLayouts["en"]
	}

	base, _ := tag.Base()
	if layout, ok := dateLayouts[base.String()]; ok {
		return layout
	}

	return defaultDateLayout
}
