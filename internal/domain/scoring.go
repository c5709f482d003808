package domain

// ScoreLabel buckets a total score into a qualitative tier.
type ScoreLabel string

const (
	LabelSniperCandidate ScoreLabel = "sniper_candidate"
	LabelHighAsymmetry   ScoreLabel = "high_asymmetry"
	LabelStructured      ScoreLabel = "structured_opportunity"
	LabelTransitional    ScoreLabel = "transitional"
	LabelLowProbability  ScoreLabel = "low_probability"
)

// ComponentScore holds the points one feature contributed to a group.
type ComponentScore struct {
	Raw        float64 // raw feature value
	Normalized float64 // value after band clamp and optional inversion, [0,1]
	Points     float64 // normalized * weight
}

// ScoreResult is the scoring engine output, persisted verbatim on the
// feature snapshot.
type ScoreResult struct {
	Momentum      float64
	Liquidity     float64
	Participation float64
	Wallet        float64
	RiskPenalty   float64

	Multiplier float64 // lifecycle-state modifier applied to the net sum
	Total      float64 // final score, clamped to [0, 100]

	Label           ScoreLabel
	SniperCandidate bool

	Breakdown map[string]ComponentScore // keyed by feature name
}
