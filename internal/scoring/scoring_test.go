package scoring

import (
	"math"
	"testing"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testEngine() *Engine {
	return NewEngine(config.Default().Scoring)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		band config.Band
		want float64
	}{
		{"below min clamps to 0", 0.1, config.Band{Min: 0.5, Max: 5.0}, 0},
		{"above max clamps to 1", 9.0, config.Band{Min: 0.5, Max: 5.0}, 1},
		{"midpoint", 2.75, config.Band{Min: 0.5, Max: 5.0}, 0.5},
		{"at min", 0.5, config.Band{Min: 0.5, Max: 5.0}, 0},
		{"at max", 5.0, config.Band{Min: 0.5, Max: 5.0}, 1},
		{"inverted low raw scores high", 0.2, config.Band{Min: 0.2, Max: 0.8, Invert: true}, 1},
		{"inverted high raw scores low", 0.8, config.Band{Min: 0.2, Max: 0.8, Invert: true}, 0},
		{"degenerate band", 1.0, config.Band{Min: 1.0, Max: 1.0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.raw, tt.band)
			if !almostEqual(got, tt.want) {
				t.Errorf("normalize(%f) = %f, want %f", tt.raw, got, tt.want)
			}
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	engine := testEngine()
	fv := domain.FeatureVector{
		VolumeAcceleration:   2.5,
		VolumeGrowth1h:       1.2,
		TradeFrequency:       2.0,
		LiquidityGrowth:      0.4,
		LiquidityStability:   0.9,
		UniqueWalletGrowth:   1.1,
		BuySellRatio:         1.4,
		WalletEntropy:        0.7,
		EarlyWalletRetention: 0.8,
		EarlyNetAccumulation: 0.3,
		Top10Concentration:   0.35,
		DrawdownDepth1h:      0.1,
		VolumeCollapseRatio:  0.9,
		LiquidityVolatility:  0.05,
	}

	first := engine.Score(fv, domain.StateMomentum)
	second := engine.Score(fv, domain.StateMomentum)

	if first.Total != second.Total {
		t.Errorf("Score not deterministic: %f vs %f", first.Total, second.Total)
	}
	if len(first.Breakdown) != 14 {
		t.Errorf("Expected 14 breakdown entries, got %d", len(first.Breakdown))
	}
}

func TestScore_GroupSumsMatchBreakdown(t *testing.T) {
	engine := testEngine()
	fv := domain.FeatureVector{
		VolumeAcceleration: 3.0,
		BuySellRatio:       1.2,
		LiquidityStability: 0.6,
		DrawdownDepth1h:    0.3,
	}

	result := engine.Score(fv, domain.StateDormant)

	momentum := result.Breakdown[FeatVolumeAcceleration].Points +
		result.Breakdown[FeatVolumeGrowth1h].Points +
		result.Breakdown[FeatTradeFrequency].Points
	if !almostEqual(momentum, result.Momentum) {
		t.Errorf("Momentum sum mismatch: %f vs %f", momentum, result.Momentum)
	}

	risk := result.Breakdown[FeatDrawdownDepth1h].Points +
		result.Breakdown[FeatVolumeCollapseRatio].Points +
		result.Breakdown[FeatLiquidityVolatility].Points
	if !almostEqual(risk, result.RiskPenalty) {
		t.Errorf("Risk sum mismatch: %f vs %f", risk, result.RiskPenalty)
	}

	net := (result.Momentum + result.Liquidity + result.Participation +
		result.Wallet - result.RiskPenalty) * result.Multiplier
	if !almostEqual(clampForTest(net), result.Total) {
		t.Errorf("Total mismatch: %f vs %f", net, result.Total)
	}
}

func clampForTest(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func TestScore_LifecycleMultiplier(t *testing.T) {
	engine := testEngine()
	fv := domain.FeatureVector{
		VolumeAcceleration:   3.0,
		VolumeGrowth1h:       1.0,
		LiquidityGrowth:      0.5,
		LiquidityStability:   0.8,
		BuySellRatio:         1.5,
		EarlyWalletRetention: 0.7,
	}

	dormant := engine.Score(fv, domain.StateDormant)
	momentum := engine.Score(fv, domain.StateMomentum)
	fragile := engine.Score(fv, domain.StateFragile)

	if dormant.Multiplier != 1.0 || momentum.Multiplier != 1.05 || fragile.Multiplier != 0.8 {
		t.Fatalf("Unexpected multipliers: %f %f %f",
			dormant.Multiplier, momentum.Multiplier, fragile.Multiplier)
	}
	if momentum.Total <= dormant.Total {
		t.Errorf("Momentum state should outscore dormant: %f vs %f", momentum.Total, dormant.Total)
	}
	if fragile.Total >= dormant.Total {
		t.Errorf("Fragile state should underscore dormant: %f vs %f", fragile.Total, dormant.Total)
	}
}

func TestScore_TotalStaysInRange(t *testing.T) {
	engine := testEngine()

	// All risk, no upside: net sum would be negative without the clamp.
	worst := domain.FeatureVector{
		DrawdownDepth1h:     1.0,
		VolumeCollapseRatio: 0.0,
		LiquidityVolatility: 1.0,
	}
	result := engine.Score(worst, domain.StateFragile)
	if result.Total != 0 {
		t.Errorf("Expected floor of 0, got %f", result.Total)
	}

	// Everything maxed: cannot exceed 100.
	best := domain.FeatureVector{
		VolumeAcceleration:   99,
		VolumeGrowth1h:       99,
		TradeFrequency:       99,
		LiquidityGrowth:      99,
		LiquidityStability:   1.0,
		UniqueWalletGrowth:   99,
		BuySellRatio:         99,
		WalletEntropy:        1.0,
		EarlyWalletRetention: 1.0,
		EarlyNetAccumulation: 1.0,
		Top10Concentration:   0.0,
		DrawdownDepth1h:      0.0,
		VolumeCollapseRatio:  1.0,
		LiquidityVolatility:  0.0,
	}
	result = engine.Score(best, domain.StateMomentum)
	if result.Total > 100 {
		t.Errorf("Expected ceiling of 100, got %f", result.Total)
	}
}

// Moving any single feature toward its favorable band end must never
// lower the total. Upside features favor a higher normalized value,
// risk features a lower one, and Invert flips which raw end that is.
func TestScore_MonotoneInEachFeature(t *testing.T) {
	engine := testEngine()
	cfg := config.Default().Scoring

	base := domain.FeatureVector{
		VolumeAcceleration:   2.5,
		VolumeGrowth1h:       1.2,
		TradeFrequency:       2.0,
		LiquidityGrowth:      0.4,
		LiquidityStability:   0.6,
		UniqueWalletGrowth:   1.1,
		BuySellRatio:         1.4,
		WalletEntropy:        0.7,
		EarlyWalletRetention: 0.6,
		EarlyNetAccumulation: 0.3,
		Top10Concentration:   0.35,
		DrawdownDepth1h:      0.2,
		VolumeCollapseRatio:  0.7,
		LiquidityVolatility:  0.15,
	}

	risk := map[string]bool{
		FeatDrawdownDepth1h:     true,
		FeatVolumeCollapseRatio: true,
		FeatLiquidityVolatility: true,
	}

	for name, band := range cfg.Bands {
		favorsHighRaw := !band.Invert
		if risk[name] {
			favorsHighRaw = !favorsHighRaw
		}
		// Raw samples ordered from the worst band end to the best.
		samples := []float64{band.Min, (band.Min + band.Max) / 2, band.Max}
		if !favorsHighRaw {
			samples = []float64{band.Max, (band.Min + band.Max) / 2, band.Min}
		}

		prev := math.Inf(-1)
		for _, raw := range samples {
			fv := base
			setFeature(t, &fv, name, raw)
			total := engine.Score(fv, domain.StateDormant).Total
			if total < prev-1e-9 {
				t.Errorf("%s: total dropped from %f to %f at raw %f", name, prev, total, raw)
			}
			prev = total
		}
	}
}

func setFeature(t *testing.T, fv *domain.FeatureVector, name string, v float64) {
	t.Helper()
	switch name {
	case FeatVolumeAcceleration:
		fv.VolumeAcceleration = v
	case FeatVolumeGrowth1h:
		fv.VolumeGrowth1h = v
	case FeatTradeFrequency:
		fv.TradeFrequency = v
	case FeatLiquidityGrowth:
		fv.LiquidityGrowth = v
	case FeatLiquidityStability:
		fv.LiquidityStability = v
	case FeatUniqueWalletGrowth:
		fv.UniqueWalletGrowth = v
	case FeatBuySellRatio:
		fv.BuySellRatio = v
	case FeatWalletEntropy:
		fv.WalletEntropy = v
	case FeatEarlyWalletRetention:
		fv.EarlyWalletRetention = v
	case FeatEarlyNetAccumulation:
		fv.EarlyNetAccumulation = v
	case FeatTop10Concentration:
		fv.Top10Concentration = v
	case FeatDrawdownDepth1h:
		fv.DrawdownDepth1h = v
	case FeatVolumeCollapseRatio:
		fv.VolumeCollapseRatio = v
	case FeatLiquidityVolatility:
		fv.LiquidityVolatility = v
	default:
		t.Fatalf("unknown feature %s", name)
	}
}

func TestLabelFor(t *testing.T) {
	engine := testEngine()

	tests := []struct {
		total float64
		want  domain.ScoreLabel
	}{
		{90, domain.LabelSniperCandidate},
		{85, domain.LabelSniperCandidate},
		{80, domain.LabelHighAsymmetry},
		{75, domain.LabelHighAsymmetry},
		{65, domain.LabelStructured},
		{60, domain.LabelStructured},
		{45, domain.LabelTransitional},
		{30, domain.LabelTransitional},
		{10, domain.LabelLowProbability},
		{0, domain.LabelLowProbability},
	}
	for _, tt := range tests {
		if got := engine.labelFor(tt.total); got != tt.want {
			t.Errorf("labelFor(%f) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestIsSniperCandidate(t *testing.T) {
	engine := testEngine()

	good := domain.FeatureVector{LiquidityStability: 0.8, EarlyWalletRetention: 0.7}
	if !engine.isSniperCandidate(80, good) {
		t.Error("Expected sniper candidate")
	}
	if engine.isSniperCandidate(75, good) {
		t.Error("Score must exceed the threshold, not equal it")
	}

	unstable := domain.FeatureVector{LiquidityStability: 0.5, EarlyWalletRetention: 0.7}
	if engine.isSniperCandidate(90, unstable) {
		t.Error("Unstable liquidity must block the sniper flag")
	}

	churned := domain.FeatureVector{LiquidityStability: 0.8, EarlyWalletRetention: 0.4}
	if engine.isSniperCandidate(90, churned) {
		t.Error("Low retention must block the sniper flag")
	}
}
