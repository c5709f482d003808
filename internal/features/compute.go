package features

import (
	"math"
	"sort"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
)

// Window names recorded in data_gaps when a window has no trades.
const (
	gapShort  = "5m"
	gapMedium = "30m"
	gapLong   = "1h"
	gapFull   = "6h"
	gapEarly  = "early"
)

// vector holds the computed features plus bookkeeping the engine needs
// beyond the persisted vector itself.
type vector struct {
	features domain.FeatureVector
	dataGaps []string

	peakLiquidity6h float64
	peakPrice6h     float64
}

// computeVector derives the full feature vector from time-ordered trades
// of the token's primary pair. Every window ends at anchor (detected_at);
// trades after the anchor are ignored so recomputation with a longer
// history yields identical results.
func computeVector(trades []*domain.Trade, anchor int64, cfg config.FeaturesConfig) vector {
	visible := truncateAfter(trades, anchor)

	short := sliceWindow(visible, anchor-cfg.ShortWindow.Milliseconds(), anchor)
	medium := sliceWindow(visible, anchor-cfg.MediumWindow.Milliseconds(), anchor)
	long := sliceWindow(visible, anchor-cfg.LongWindow.Milliseconds(), anchor)
	full := sliceWindow(visible, anchor-cfg.FullWindow.Milliseconds(), anchor)

	v := vector{}
	gap := func(name string) {
		v.dataGaps = append(v.dataGaps, name)
	}
	if len(short) == 0 {
		gap(gapShort)
	}
	if len(medium) == 0 {
		gap(gapMedium)
	}
	if len(long) == 0 {
		gap(gapLong)
	}
	if len(full) == 0 {
		gap(gapFull)
	}

	shortMinutes := cfg.ShortWindow.Minutes()
	mediumMinutes := cfg.MediumWindow.Minutes()
	fullHours := cfg.FullWindow.Hours()

	// Momentum: short-window rates against their longer baselines.
	volShort := volumeUSD(short)
	volMedium := volumeUSD(medium)
	volLong := volumeUSD(long)
	volFull := volumeUSD(full)

	if volMedium > 0 {
		v.features.VolumeAcceleration = (volShort / shortMinutes) / (volMedium / mediumMinutes)
	}
	hourlyBaseline := volFull / fullHours
	if hourlyBaseline > 0 {
		v.features.VolumeGrowth1h = (volLong - hourlyBaseline) / hourlyBaseline
		v.features.VolumeCollapseRatio = volLong / hourlyBaseline
	}
	if len(medium) > 0 {
		v.features.TradeFrequency = (float64(len(short)) / shortMinutes) /
			(float64(len(medium)) / mediumMinutes)
	}

	// Liquidity: growth over the long window, stability against the full
	// window peak, relative volatility of long-window samples.
	v.peakLiquidity6h = peakLiquidity(full)
	if len(long) > 0 {
		first := long[0].Liquidity
		last := long[len(long)-1].Liquidity
		if first > 0 {
			v.features.LiquidityGrowth = (last - first) / first
		}
		if v.peakLiquidity6h > 0 {
			v.features.LiquidityStability = last / v.peakLiquidity6h
		}
		v.features.LiquidityVolatility = relativeStddev(liquiditySamples(long))
	}

	// Participation.
	uniqueLong := uniqueWallets(long)
	uniqueFull := uniqueWallets(full)
	walletBaseline := float64(uniqueFull) / fullHours
	if walletBaseline > 0 {
		v.features.UniqueWalletGrowth = (float64(uniqueLong) - walletBaseline) / walletBaseline
	}
	v.features.BuySellRatio = buySellRatio(long)

	balances := netBalances(visible)
	v.features.WalletEntropy = balanceEntropy(balances)
	v.features.Top10Concentration = topConcentration(balances, 10)

	// Wallet conviction over the token's first 30 minutes of trading.
	early := earlyWindow(visible, cfg.MediumWindow.Milliseconds())
	if len(early) == 0 {
		gap(gapEarly)
	}
	buyers := earlyBuyers(early)
	v.features.EarlyWalletCount = len(buyers)
	v.features.EarlyWalletRetention = retention(buyers, balances)
	v.features.EarlyNetAccumulation = netAccumulation(buyers, visible)

	// Risk.
	prices := priceSamples(long)
	v.features.PriceVolatility1h = relativeStddev(prices)
	v.features.DrawdownDepth1h = drawdownDepth(prices)
	v.peakPrice6h = peakPrice(full)

	return v
}

// classify derives the coarse lifecycle state via ordered threshold
// rules; the first match wins, dormant is the default.
func classify(fv domain.FeatureVector, cfg config.FeaturesConfig) domain.LifecycleState {
	switch {
	case fv.VolumeCollapseRatio < cfg.FragileMaxCollapseRatio:
		return domain.StateFragile
	case fv.BuySellRatio < cfg.DistributionMaxBuySell && fv.Top10Concentration > cfg.DistributionMinTop10:
		return domain.StateDistribution
	case fv.VolumeGrowth1h > cfg.MomentumMinVolumeGrowth && fv.BuySellRatio > cfg.MomentumMinBuySell:
		return domain.StateMomentum
	case fv.BuySellRatio > cfg.AccumulationMinBuySell && fv.VolumeAcceleration < cfg.AccumulationMaxVolumeAcc:
		return domain.StateAccumulation
	default:
		return domain.StateDormant
	}
}

func truncateAfter(trades []*domain.Trade, anchor int64) []*domain.Trade {
	var out []*domain.Trade
	for _, t := range trades {
		if t.Timestamp <= anchor {
			out = append(out, t)
		}
	}
	return out
}

func sliceWindow(trades []*domain.Trade, start, end int64) []*domain.Trade {
	var out []*domain.Trade
	for _, t := range trades {
		if t.Timestamp > start && t.Timestamp <= end {
			out = append(out, t)
		}
	}
	return out
}

// earlyWindow returns trades within the first span after the very first
// trade of the token.
func earlyWindow(trades []*domain.Trade, span int64) []*domain.Trade {
	if len(trades) == 0 {
		return nil
	}
	first := trades[0].Timestamp
	var out []*domain.Trade
	for _, t := range trades {
		if t.Timestamp <= first+span {
			out = append(out, t)
		}
	}
	return out
}

func volumeUSD(trades []*domain.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.AmountUSD
	}
	return total
}

func peakLiquidity(trades []*domain.Trade) float64 {
	peak := 0.0
	for _, t := range trades {
		if t.Liquidity > peak {
			peak = t.Liquidity
		}
	}
	return peak
}

func peakPrice(trades []*domain.Trade) float64 {
	peak := 0.0
	for _, t := range trades {
		if t.PriceUSD > peak {
			peak = t.PriceUSD
		}
	}
	return peak
}

func liquiditySamples(trades []*domain.Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.Liquidity
	}
	return out
}

func priceSamples(trades []*domain.Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PriceUSD
	}
	return out
}

func uniqueWallets(trades []*domain.Trade) int {
	seen := make(map[string]struct{})
	for _, t := range trades {
		seen[t.Wallet] = struct{}{}
	}
	return len(seen)
}

// buySellRatio returns buy volume over sell volume. With no sells the
// ratio saturates at 2.0 when any buying happened, 1.0 on an empty
// window, keeping the value inside the scoring band.
func buySellRatio(trades []*domain.Trade) float64 {
	buys, sells := 0.0, 0.0
	for _, t := range trades {
		if t.Side == domain.TradeSideBuy {
			buys += t.AmountUSD
		} else {
			sells += t.AmountUSD
		}
	}
	if sells == 0 {
		if buys > 0 {
			return 2.0
		}
		return 1.0
	}
	return buys / sells
}

// netBalances accumulates per-wallet net token positions.
func netBalances(trades []*domain.Trade) map[string]float64 {
	balances := make(map[string]float64)
	for _, t := range trades {
		if t.Side == domain.TradeSideBuy {
			balances[t.Wallet] += t.AmountToken
		} else {
			balances[t.Wallet] -= t.AmountToken
		}
	}
	return balances
}

// balanceEntropy is the Shannon entropy of the positive-balance
// distribution, normalized to [0,1] by log(n). A single holder scores 0.
func balanceEntropy(balances map[string]float64) float64 {
	var positive []float64
	total := 0.0
	for _, b := range balances {
		if b > 0 {
			positive = append(positive, b)
			total += b
		}
	}
	n := len(positive)
	if n < 2 || total <= 0 {
		return 0
	}

	entropy := 0.0
	for _, b := range positive {
		p := b / total
		entropy -= p * math.Log(p)
	}
	return entropy / math.Log(float64(n))
}

// topConcentration is the share of the k largest positive balances.
func topConcentration(balances map[string]float64, k int) float64 {
	var positive []float64
	total := 0.0
	for _, b := range balances {
		if b > 0 {
			positive = append(positive, b)
			total += b
		}
	}
	if total <= 0 {
		return 0
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(positive)))
	if k > len(positive) {
		k = len(positive)
	}
	top := 0.0
	for i := 0; i < k; i++ {
		top += positive[i]
	}
	return top / total
}

// earlyBuyers returns the distinct wallets that bought in the early
// window, sorted for deterministic iteration.
func earlyBuyers(early []*domain.Trade) []string {
	seen := make(map[string]struct{})
	for _, t := range early {
		if t.Side == domain.TradeSideBuy {
			seen[t.Wallet] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// retention is the fraction of early buyers still holding a positive
// balance at the anchor.
func retention(buyers []string, balances map[string]float64) float64 {
	if len(buyers) == 0 {
		return 0
	}
	held := 0
	for _, w := range buyers {
		if balances[w] > 0 {
			held++
		}
	}
	return float64(held) / float64(len(buyers))
}

// netAccumulation is the early buyers' aggregate net position relative
// to what they bought, in [-1, 1].
func netAccumulation(buyers []string, trades []*domain.Trade) float64 {
	early := make(map[string]struct{}, len(buyers))
	for _, w := range buyers {
		early[w] = struct{}{}
	}

	bought, net := 0.0, 0.0
	for _, t := range trades {
		if _, ok := early[t.Wallet]; !ok {
			continue
		}
		if t.Side == domain.TradeSideBuy {
			bought += t.AmountToken
			net += t.AmountToken
		} else {
			net -= t.AmountToken
		}
	}
	if bought <= 0 {
		return 0
	}
	v := net / bought
	if v < -1 {
		v = -1
	}
	return v
}

// relativeStddev is the population standard deviation divided by the
// mean, 0 for degenerate inputs.
func relativeStddev(samples []float64) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(n)
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(n)

	return math.Sqrt(variance) / math.Abs(mean)
}

// drawdownDepth is (peak - last) / peak over ordered price samples.
func drawdownDepth(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := 0.0
	for _, p := range prices {
		if p > peak {
			peak = p
		}
	}
	if peak <= 0 {
		return 0
	}
	last := prices[len(prices)-1]
	return (peak - last) / peak
}
