package domain

// EligibilityStatus tracks a token's progress through the eligibility gate.
type EligibilityStatus string

const (
	EligibilityPreEligible EligibilityStatus = "PRE_ELIGIBLE"
	EligibilityPending     EligibilityStatus = "ELIGIBLE_PENDING"
	EligibilityEligible    EligibilityStatus = "ELIGIBLE"
	EligibilityRejected    EligibilityStatus = "REJECTED"
)

// LifecycleStage tracks a token's monitoring lifecycle after eligibility.
type LifecycleStage string

const (
	StageInactive         LifecycleStage = "INACTIVE"
	StageActiveMonitoring LifecycleStage = "ACTIVE_MONITORING"
	StageSuccess          LifecycleStage = "SUCCESS"
	StageFailed           LifecycleStage = "FAILED"
	StageExpired          LifecycleStage = "EXPIRED"
)

// Token represents a tracked token and its classification state.
// Corresponds to tokens table in PostgreSQL.
//
// Ownership: the eligibility gate mutates tokens until they reach ELIGIBLE;
// the lifecycle resolver mutates them from ACTIVE_MONITORING onward. The
// snapshot engine only advances the stage to ACTIVE_MONITORING as part of
// its atomic snapshot write.
type Token struct {
	TokenID         string // PRIMARY KEY, deterministic hash of (chain, address)
	Chain           string // chain identifier, e.g. "solana"
	Address         string // token mint address
	PrimaryPair     string // highest-liquidity pool address, assigned by the gate
	Eligibility     EligibilityStatus
	Stage           LifecycleStage
	DetectedAt      *int64  // anchor timestamp (ms), set exactly once on promotion
	RunStartAt      *int64  // start of the current sustained-liquidity run (ms)
	PeakLiquidity   float64 // max observed pool liquidity in USD
	HasSnapshot     bool    // set when a feature snapshot exists
	IsActive        bool    // cleared when a lifecycle label is written
	RejectionReason string  // gate filter that rejected the token, if any
	CreatedAt       int64   // record creation timestamp (ms)
}

// CanTransition reports whether an eligibility transition is allowed.
// Transitions are monotonic forward with one documented exception:
// ELIGIBLE_PENDING resets to PRE_ELIGIBLE when sustained liquidity is lost
// before the run completes.
func CanTransition(from, to EligibilityStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case EligibilityPreEligible:
		return to == EligibilityPending || to == EligibilityEligible || to == EligibilityRejected
	case EligibilityPending:
		return to == EligibilityEligible || to == EligibilityRejected || to == EligibilityPreEligible
	default:
		// ELIGIBLE and REJECTED are terminal for the gate.
		return false
	}
}

// IsTerminalStage reports whether a lifecycle stage is terminal.
func IsTerminalStage(stage LifecycleStage) bool {
	return stage == StageSuccess || stage == StageFailed || stage == StageExpired
}
