package reporting

import "time"

// Report summarizes labeled outcomes and score calibration for one
// feature version.
type Report struct {
	// Metadata
	GeneratedAt    time.Time
	FeatureVersion int

	// Data Summary
	Summary Summary

	// Outcome distribution (SUCCESS, FAILED, EXPIRED)
	Outcomes []OutcomeRow

	// Reason distribution within each outcome
	Reasons []ReasonRow

	// Score tier vs realized outcome
	Calibration []CalibrationRow

	// Per-token rows (labeled first, then still-open tokens)
	Tokens []TokenRow
}

// Summary describes the snapshot/label population.
type Summary struct {
	SnapshottedTokens int
	LabeledTokens     int
	OpenTokens        int     // snapshotted but not yet labeled
	SuccessRate       float64 // successes / labeled, 0 when nothing labeled
	FirstLabeledAt    int64   // Unix ms
	LastLabeledAt     int64   // Unix ms
}

// OutcomeRow aggregates one terminal outcome.
type OutcomeRow struct {
	Outcome               string
	Count                 int
	Share                 float64 // of all labeled tokens
	MeanMaxMultiplier     float64
	MedianTimeToOutcomeMS int64 // 0 when no row carried a time
}

// ReasonRow counts one (outcome, reason) pair.
type ReasonRow struct {
	Outcome string
	Reason  string
	Count   int
}

// CalibrationRow relates a score tier to realized outcomes.
type CalibrationRow struct {
	Tier              string
	Tokens            int
	Labeled           int
	Successes         int
	SuccessRate       float64 // successes / labeled in this tier
	MeanScore         float64
	MeanMaxMultiplier float64 // over labeled tokens in this tier
}

// TokenRow is one token's snapshot score joined with its label, if any.
type TokenRow struct {
	TokenID         string
	Address         string
	Score           float64
	Tier            string
	Outcome         string // empty while unresolved
	Reason          string
	MaxMultiplier   float64
	TimeToOutcomeMS int64 // 0 when unknown
	LabeledAt       int64 // 0 while unresolved
	VolumeUSD       float64
}
