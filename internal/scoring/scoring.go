// Package scoring converts a feature vector into a composite score.
// Everything here is pure: same features, same config, same result.
package scoring

import (
	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
)

// Feature names used as band, weight and breakdown keys.
const (
	FeatVolumeAcceleration   = "volume_acceleration"
	FeatVolumeGrowth1h       = "volume_growth_1h"
	FeatTradeFrequency       = "trade_frequency"
	FeatLiquidityGrowth      = "liquidity_growth"
	FeatLiquidityStability   = "liquidity_stability"
	FeatUniqueWalletGrowth   = "unique_wallet_growth"
	FeatBuySellRatio         = "buy_sell_ratio"
	FeatWalletEntropy        = "wallet_entropy"
	FeatEarlyWalletRetention = "early_wallet_retention"
	FeatEarlyNetAccumulation = "early_net_accumulation"
	FeatTop10Concentration   = "top10_concentration"
	FeatDrawdownDepth1h      = "drawdown_depth_1h"
	FeatVolumeCollapseRatio  = "volume_collapse_ratio"
	FeatLiquidityVolatility  = "liquidity_volatility"
)

// Group membership. Risk features are summed separately and subtracted.
var (
	momentumFeatures      = []string{FeatVolumeAcceleration, FeatVolumeGrowth1h, FeatTradeFrequency}
	liquidityFeatures     = []string{FeatLiquidityGrowth, FeatLiquidityStability}
	participationFeatures = []string{FeatUniqueWalletGrowth, FeatBuySellRatio, FeatWalletEntropy}
	walletFeatures        = []string{FeatEarlyWalletRetention, FeatEarlyNetAccumulation, FeatTop10Concentration}
	riskFeatures          = []string{FeatDrawdownDepth1h, FeatVolumeCollapseRatio, FeatLiquidityVolatility}
)

// Engine scores feature vectors against a fixed configuration.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates a scoring engine.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score computes the composite score for one feature vector. The
// lifecycle state selects the multiplier applied to the net group sum.
func (e *Engine) Score(fv domain.FeatureVector, state domain.LifecycleState) domain.ScoreResult {
	raw := rawValues(fv)
	breakdown := make(map[string]domain.ComponentScore, len(raw))

	sumGroup := func(features []string) float64 {
		total := 0.0
		for _, name := range features {
			cs := e.component(name, raw[name])
			breakdown[name] = cs
			total += cs.Points
		}
		return total
	}

	momentum := sumGroup(momentumFeatures)
	liquidity := sumGroup(liquidityFeatures)
	participation := sumGroup(participationFeatures)
	wallet := sumGroup(walletFeatures)
	risk := sumGroup(riskFeatures)

	multiplier := e.multiplierFor(state)
	total := (momentum + liquidity + participation + wallet - risk) * multiplier
	total = clamp(total, 0, 100)

	return domain.ScoreResult{
		Momentum:        momentum,
		Liquidity:       liquidity,
		Participation:   participation,
		Wallet:          wallet,
		RiskPenalty:     risk,
		Multiplier:      multiplier,
		Total:           total,
		Label:           e.labelFor(total),
		SniperCandidate: e.isSniperCandidate(total, fv),
		Breakdown:       breakdown,
	}
}

// component normalizes one raw value through its band and applies the
// feature weight. Unknown features score zero.
func (e *Engine) component(name string, raw float64) domain.ComponentScore {
	band, ok := e.cfg.Bands[name]
	if !ok {
		return domain.ComponentScore{Raw: raw}
	}

	normalized := normalize(raw, band)
	return domain.ComponentScore{
		Raw:        raw,
		Normalized: normalized,
		Points:     normalized * e.cfg.Weights[name],
	}
}

// normalize maps raw onto [0,1] by clamped linear interpolation.
func normalize(raw float64, band config.Band) float64 {
	if band.Max == band.Min {
		return 0
	}
	v := clamp((raw-band.Min)/(band.Max-band.Min), 0, 1)
	if band.Invert {
		v = 1 - v
	}
	return v
}

func (e *Engine) multiplierFor(state domain.LifecycleState) float64 {
	if m, ok := e.cfg.LifecycleMultipliers[string(state)]; ok {
		return m
	}
	return 1.0
}

func (e *Engine) labelFor(total float64) domain.ScoreLabel {
	switch {
	case total >= e.cfg.LabelSniperCandidate:
		return domain.LabelSniperCandidate
	case total >= e.cfg.LabelHighAsymmetry:
		return domain.LabelHighAsymmetry
	case total >= e.cfg.LabelStructuredOpportunity:
		return domain.LabelStructured
	case total >= e.cfg.LabelTransitional:
		return domain.LabelTransitional
	default:
		return domain.LabelLowProbability
	}
}

// isSniperCandidate flags high-conviction tokens: strong score with both
// stable liquidity and retained early buyers.
func (e *Engine) isSniperCandidate(total float64, fv domain.FeatureVector) bool {
	return total > e.cfg.SniperMinScore &&
		fv.LiquidityStability > e.cfg.SniperMinStability &&
		fv.EarlyWalletRetention > e.cfg.SniperMinRetention
}

func rawValues(fv domain.FeatureVector) map[string]float64 {
	return map[string]float64{
		FeatVolumeAcceleration:   fv.VolumeAcceleration,
		FeatVolumeGrowth1h:       fv.VolumeGrowth1h,
		FeatTradeFrequency:       fv.TradeFrequency,
		FeatLiquidityGrowth:      fv.LiquidityGrowth,
		FeatLiquidityStability:   fv.LiquidityStability,
		FeatUniqueWalletGrowth:   fv.UniqueWalletGrowth,
		FeatBuySellRatio:         fv.BuySellRatio,
		FeatWalletEntropy:        fv.WalletEntropy,
		FeatEarlyWalletRetention: fv.EarlyWalletRetention,
		FeatEarlyNetAccumulation: fv.EarlyNetAccumulation,
		FeatTop10Concentration:   fv.Top10Concentration,
		FeatDrawdownDepth1h:      fv.DrawdownDepth1h,
		FeatVolumeCollapseRatio:  fv.VolumeCollapseRatio,
		FeatLiquidityVolatility:  fv.LiquidityVolatility,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
