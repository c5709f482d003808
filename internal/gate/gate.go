// Package gate decides whether a token's trading environment is real
// enough to analyze. Tokens move PRE_ELIGIBLE -> ELIGIBLE_PENDING ->
// ELIGIBLE through an ordered filter cascade; structural failures are
// terminal REJECTED, missing history just leaves the token waiting.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// Rejection reasons written to tokens.
const (
	RejectInvalidBaseToken = "invalid_base_token"
	RejectSelfPaired       = "self_paired"
	RejectEarlyVolume      = "insufficient_early_volume"
	RejectTradeGap         = "trade_gap_exceeded"
)

// Result summarizes one gate pass.
type Result struct {
	Evaluated int
	Promoted  int
	Pending   int
	Reset     int
	Rejected  int
	Skipped   int
	Delayed   int
	Errors    []string
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the wall clock, used for staleness checks only.
// Promotion timestamps never come from the clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// Gate runs the eligibility filter cascade as a batch pass.
type Gate struct {
	cfg    config.GateConfig
	tokens storage.TokenStore
	trades storage.TradeStore
	now    func() time.Time
}

// New creates a Gate.
func New(cfg config.GateConfig, tokens storage.TokenStore, trades storage.TradeStore, opts ...Option) *Gate {
	g := &Gate{
		cfg:    cfg,
		tokens: tokens,
		trades: trades,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run evaluates every PRE_ELIGIBLE and ELIGIBLE_PENDING token. Per-token
// failures are collected, never abort the pass.
func (g *Gate) Run(ctx context.Context) (*Result, error) {
	candidates, err := g.tokens.GetByEligibility(ctx,
		domain.EligibilityPreEligible, domain.EligibilityPending)
	if err != nil {
		return nil, fmt.Errorf("load gate candidates: %w", err)
	}

	result := &Result{}
	for _, tok := range candidates {
		if ctx.Err() != nil {
			// Stop starting new tokens; what finished stays finished.
			break
		}
		result.Evaluated++
		if err := g.evaluate(ctx, tok, result); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("token %s: %v", tok.TokenID, err))
		}
	}
	return result, nil
}

// evaluate runs the filter cascade for one token.
func (g *Gate) evaluate(ctx context.Context, tok *domain.Token, result *Result) error {
	trades, err := g.trades.GetByToken(ctx, tok.TokenID)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	if len(trades) == 0 {
		result.Skipped++
		return nil
	}

	// Filter 1: primary pair = pool with max observed liquidity.
	primary := selectPrimaryPair(trades)
	tok.PrimaryPair = primary

	// Filter 2: the pool's counter asset must be a canonical quote.
	if g.cfg.RequireCanonicalQuote && !domain.IsCanonicalQuoteAsset(quoteMintFor(trades, primary)) {
		return g.reject(ctx, tok, RejectInvalidBaseToken, result)
	}

	// Filter 3: not paired against itself.
	if primary == tok.Address {
		return g.reject(ctx, tok, RejectSelfPaired, result)
	}

	// Filter 4: enough trades observed. Not terminal; history accrues.
	if len(trades) < g.cfg.MinTradeCount {
		result.Skipped++
		return nil
	}

	pairTrades := filterByPair(trades, primary)
	tok.PeakLiquidity = peakLiquidity(pairTrades)

	// Filter 5: peak liquidity must have reached the floor at least once.
	if tok.PeakLiquidity < g.cfg.MinLiquidityUSD {
		result.Skipped++
		return g.persist(ctx, tok)
	}

	// Filter 6: sustained liquidity run detection.
	runStart, detectedAt, qualified := g.detectRun(pairTrades)
	if !qualified {
		if runStart != nil {
			// Run in progress: hold the token with its run pointer.
			tok.Eligibility = domain.EligibilityPending
			tok.RunStartAt = &runStart.value
			result.Pending++
			return g.persist(ctx, tok)
		}
		if tok.Eligibility == domain.EligibilityPending {
			// Liquidity fell below threshold mid-run: the one
			// documented backward transition.
			tok.Eligibility = domain.EligibilityPreEligible
			tok.RunStartAt = nil
			result.Reset++
			return g.persist(ctx, tok)
		}
		result.Skipped++
		return g.persist(ctx, tok)
	}

	// Stale rolling metrics delay promotion, they never reject it.
	if g.isStale(pairTrades) {
		tok.Eligibility = domain.EligibilityPending
		tok.RunStartAt = &runStart.value
		result.Delayed++
		return g.persist(ctx, tok)
	}

	early := windowTrades(pairTrades, runStart.value, runStart.value+g.cfg.EarlyVolumeWindow.Milliseconds())

	// Filter 7: early volume over the first window after the run start.
	if sumVolume(early) < g.cfg.MinEarlyVolumeUSD {
		return g.reject(ctx, tok, RejectEarlyVolume, result)
	}

	// Filter 8: no large gaps between consecutive early trades.
	// Fewer than two trades cannot prove continuity and fails too.
	if hasTradeGap(early, g.cfg.TradeGapLimit.Milliseconds()) {
		return g.reject(ctx, tok, RejectTradeGap, result)
	}

	tok.Eligibility = domain.EligibilityEligible
	tok.DetectedAt = &detectedAt
	tok.RunStartAt = &runStart.value
	result.Promoted++
	return g.persist(ctx, tok)
}

// runPointer wraps the run start so callers can distinguish "no run"
// from a run starting at timestamp zero.
type runPointer struct {
	value int64
}

// detectRun scans time-ordered liquidity samples with a running
// segment-start pointer. The run completes at the first sample observed
// at or after runStart + sustain with liquidity still above threshold;
// detected_at is runStart + sustain, never wall-clock now.
func (g *Gate) detectRun(trades []*domain.Trade) (*runPointer, int64, bool) {
	sustain := g.cfg.LiquiditySustain.Milliseconds()
	var run *runPointer

	for _, t := range trades {
		if t.Liquidity < g.cfg.MinLiquidityUSD {
			run = nil
			continue
		}
		if run == nil {
			run = &runPointer{value: t.Timestamp}
		}
		if t.Timestamp-run.value >= sustain {
			return run, run.value + sustain, true
		}
	}
	return run, 0, false
}

// isStale reports whether the newest trade is older than the freshness
// limit. A zero limit disables the check for replay and backfill runs.
func (g *Gate) isStale(trades []*domain.Trade) bool {
	if g.cfg.StaleMetricsLimit <= 0 || len(trades) == 0 {
		return false
	}
	newest := trades[len(trades)-1].Timestamp
	return g.now().UnixMilli()-newest > g.cfg.StaleMetricsLimit.Milliseconds()
}

func (g *Gate) reject(ctx context.Context, tok *domain.Token, reason string, result *Result) error {
	tok.Eligibility = domain.EligibilityRejected
	tok.RejectionReason = reason
	tok.RunStartAt = nil
	result.Rejected++
	return g.persist(ctx, tok)
}

func (g *Gate) persist(ctx context.Context, tok *domain.Token) error {
	if err := g.tokens.Update(ctx, tok); err != nil {
		// A concurrent pass already moved the token forward.
		if errors.Is(err, storage.ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// selectPrimaryPair picks the pair with the highest liquidity sample.
// Ties break on pair address for determinism.
func selectPrimaryPair(trades []*domain.Trade) string {
	best := ""
	bestLiquidity := -1.0
	for _, t := range trades {
		if t.Liquidity > bestLiquidity ||
			(t.Liquidity == bestLiquidity && t.PairAddress < best) {
			best = t.PairAddress
			bestLiquidity = t.Liquidity
		}
	}
	return best
}

// quoteMintFor returns the counter-asset mint recorded on the primary
// pair's trades.
func quoteMintFor(trades []*domain.Trade, pair string) string {
	for _, t := range trades {
		if t.PairAddress == pair {
			return t.QuoteMint
		}
	}
	return ""
}

func filterByPair(trades []*domain.Trade, pair string) []*domain.Trade {
	var out []*domain.Trade
	for _, t := range trades {
		if t.PairAddress == pair {
			out = append(out, t)
		}
	}
	return out
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

// windowTrades returns trades with start <= timestamp <= end. Input must
// be time-ordered.
func windowTrades(trades []*domain.Trade, start, end int64) []*domain.Trade {
	var out []*domain.Trade
	for _, t := range trades {
		if t.Timestamp >= start && t.Timestamp <= end {
			out = append(out, t)
		}
	}
	return out
}

func sumVolume(trades []*domain.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.AmountUSD
	}
	return total
}

// hasTradeGap reports whether consecutive trades are ever further apart
// than limit. Fewer than two trades counts as a gap.
func hasTradeGap(trades []*domain.Trade, limit int64) bool {
	if len(trades) < 2 {
		return true
	}
	for i := 1; i < len(trades); i++ {
		if trades[i].Timestamp-trades[i-1].Timestamp > limit {
			return true
		}
	}
	return false
}
