package constants

// Scoring modes.
const (
	ScoringModeNumeric = "numeric"
	ScoringModeBinary  = "binary"
)

// Stable class names shared with report.css.
const (
	ClassReport           = "lighthouse-report"
	ClassCategories       = "lighthouse-categories"
	ClassCategory         = "lighthouse-category"
	ClassAudit            = "lighthouse-audit"
	ClassException        = "lighthouse-exception"
	ClassPassedAudits     = "lighthouse-passed-audits"
	ClassPassedSummary    = "lighthouse-passed-audits-summary"
	ClassScoreValue       = "lighthouse-score__value"
	ClassScoreTitle       = "lighthouse-score__title"
	ClassScoreDescription = "lighthouse-score__description"
	ClassScoreHeader      = "lighthouse-score__header"
	ClassText             = "lighthouse-text"
	ClassBlock            = "lighthouse-block"
	ClassList             = "lighthouse-list"
	ClassListHeader       = "lighthouse-list__header"
	ClassListItems        = "lighthouse-list__items"
	ClassDetails          = "lighthouse-details"
	ClassScorecards       = "lighthouse-scorecards"
	ClassScorecard        = "lighthouse-scorecard"
	ClassScorecardTitle   = "lighthouse-scorecard__title"
	ClassScorecardValue   = "lighthouse-scorecard__value"
	ClassScorecardTarget  = "lighthouse-scorecard__target"
	ClassConfigTimestamp  = "lighthouse-config__timestamp"
	ClassMetadataURL      = "lighthouse-metadata__url"
	ClassEnvItems         = "lighthouse-env__items"
	ClassEnvName          = "lighthouse-env__name"
	ClassEnvDescription   = "lighthouse-env__description"
	ClassEnvEnabled       = "lighthouse-env__enabled"
	ClassFooterVersion    = "lighthouse-footer__version"
	ClassFooterTimestamp  = "lighthouse-footer__timestamp"
)
