package domain

// Outcome is the terminal classification of a monitored token.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeExpired Outcome = "EXPIRED"
)

// Failure and expiry reason codes written to lifecycle labels.
const (
	ReasonSuccess5x         = "5x_multiplier_hit"
	ReasonPriceFailure      = "price_failure"
	ReasonLiquidityCollapse = "liquidity_collapse"
	ReasonVolumeCollapse    = "volume_collapse"
	ReasonEarlyWalletExit   = "early_wallet_exit"
	ReasonTimeout           = "72h_timeout"
	ReasonNoTrades          = "no_trades_found"
)

// LifecycleLabel is the terminal outcome record, written exactly once per
// token by the lifecycle resolver. Corresponds to lifecycle_labels table;
// uniqueness on token_id.
type LifecycleLabel struct {
	TokenID       string
	Outcome       Outcome
	Reason        string
	MaxMultiplier float64 // peak price / baseline within the observation window
	TimeToOutcome *int64  // ms from detected_at to the outcome trade, if known
	LabeledAt     int64   // record creation timestamp (ms)
}

// StageForOutcome maps a terminal outcome to the token lifecycle stage.
func StageForOutcome(o Outcome) LifecycleStage {
	switch o {
	case OutcomeSuccess:
		return StageSuccess
	case OutcomeFailed:
		return StageFailed
	default:
		return StageExpired
	}
}
