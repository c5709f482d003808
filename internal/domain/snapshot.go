package domain

// LifecycleState is the coarse market-structure tag derived from the
// feature vector via ordered threshold rules.
type LifecycleState string

const (
	StateFragile      LifecycleState = "fragile"
	StateDistribution LifecycleState = "distribution"
	StateMomentum     LifecycleState = "momentum"
	StateAccumulation LifecycleState = "accumulation"
	StateDormant      LifecycleState = "dormant"
)

// FeatureVector is the fixed-schema input to the scoring engine.
// All window metrics are anchored to the token's detected_at timestamp;
// nothing here ever depends on wall-clock time.
type FeatureVector struct {
	// Momentum
	VolumeAcceleration float64 // 5m volume rate vs 30m baseline rate
	VolumeGrowth1h     float64 // 1h volume vs 6h baseline rate, relative growth
	TradeFrequency     float64 // 5m trade-count rate vs 30m baseline rate

	// Liquidity
	LiquidityGrowth     float64 // (current - window start) / window start
	LiquidityStability  float64 // current / 6h peak
	LiquidityVolatility float64 // population stddev of 1h liquidity samples, relative to mean

	// Participation
	UniqueWalletGrowth float64 // 1h distinct wallets vs 6h hourly baseline
	BuySellRatio       float64 // 1h buy volume / sell volume
	WalletEntropy      float64 // Shannon entropy of wallet balance distribution

	// Wallet conviction
	Top10Concentration   float64 // top-10 wallet share of tracked balances
	EarlyWalletRetention float64 // early buyers with still-positive balance
	EarlyNetAccumulation float64 // early buyers' net position / their buy volume

	// Risk
	PriceVolatility1h   float64 // population stddev of 1h trade prices / mean price
	DrawdownDepth1h     float64 // (1h peak - last) / 1h peak
	VolumeCollapseRatio float64 // 1h volume / trailing 6h hourly average

	EarlyWalletCount int // wallets that bought in the token's first 30 minutes
}

// FeatureSnapshot is the immutable, versioned snapshot written once per
// eligible token. Corresponds to feature_snapshots table in PostgreSQL;
// uniqueness on (token_id, feature_version). Any second write must be
// rejected by the store, never overwrite.
type FeatureSnapshot struct {
	TokenID        string
	FeatureVersion int
	SnapshotTime   int64 // equals the token's detected_at (ms)

	Features FeatureVector
	State    LifecycleState

	// Score breakdown persisted at snapshot time.
	Score ScoreResult

	// Dollar thresholds locked at snapshot time for downstream consumers.
	LiquidityCollapseUSD float64 // collapse floor derived from the 6h liquidity peak
	PriceFailureUSD      float64 // failure floor derived from the 6h price peak

	// DataGaps lists windows that had insufficient trade history; the
	// affected features default to zero instead of blocking the snapshot.
	DataGaps []string

	CreatedAt int64 // record creation timestamp (ms)
}
