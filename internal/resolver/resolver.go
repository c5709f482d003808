// Package resolver decides each monitored token's terminal outcome. It
// runs as a periodic batch pass over ACTIVE_MONITORING tokens, checking
// an ordered rule cascade against the trades observed since detection;
// the first matching rule wins and success is checked before every
// failure mode, so a 5x breakout recorded at hour 5 stands even if the
// token's liquidity collapses at hour 40.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// Result summarizes one resolver pass.
type Result struct {
	Evaluated   int
	Labeled     int
	Unresolved  int
	AlreadyDone int
	Errors      []string
}

// verdict is one resolved outcome before it becomes a label.
type verdict struct {
	outcome       domain.Outcome
	reason        string
	timeToOutcome *int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used for token age and label stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver runs the outcome pass over actively monitored tokens.
type Resolver struct {
	cfg    config.ResolverConfig
	tokens storage.TokenStore
	trades storage.TradeStore
	labels storage.LabelStore
	now    func() time.Time
}

// New creates a Resolver.
func New(
	cfg config.ResolverConfig,
	tokens storage.TokenStore,
	trades storage.TradeStore,
	labels storage.LabelStore,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		cfg:    cfg,
		tokens: tokens,
		trades: trades,
		labels: labels,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves every ACTIVE_MONITORING token it can. Tokens without a
// baseline price stay unresolved until the observation horizon passes.
// Per-token failures are collected, never abort the pass.
func (r *Resolver) Run(ctx context.Context) (*Result, error) {
	active, err := r.tokens.GetByStage(ctx, domain.StageActiveMonitoring)
	if err != nil {
		return nil, fmt.Errorf("load active tokens: %w", err)
	}

	result := &Result{}
	for _, tok := range active {
		if ctx.Err() != nil {
			break
		}
		result.Evaluated++
		if err := r.resolve(ctx, tok, result); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("token %s: %v", tok.TokenID, err))
		}
	}
	return result, nil
}

// resolve evaluates one token against the rule cascade and writes its
// label when a rule matches.
func (r *Resolver) resolve(ctx context.Context, tok *domain.Token, result *Result) error {
	if tok.DetectedAt == nil {
		result.Unresolved++
		return nil
	}
	anchor := *tok.DetectedAt
	now := r.now().UnixMilli()
	age := now - anchor

	all, err := r.trades.GetByTokenPair(ctx, tok.TokenID, tok.PrimaryPair)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	window := observationWindow(all, anchor, anchor+r.cfg.ObservationWindow.Milliseconds())
	if len(window) == 0 {
		if age >= r.cfg.ObservationWindow.Milliseconds() {
			return r.writeLabel(ctx, tok, &verdict{
				outcome: domain.OutcomeExpired,
				reason:  domain.ReasonNoTrades,
			}, 0, result)
		}
		result.Unresolved++
		return nil
	}
	baseline := window[0].PriceUSD
	if baseline <= 0 {
		result.Unresolved++
		return nil
	}

	maxMultiplier := 0.0
	for _, t := range window {
		if m := t.PriceUSD / baseline; m > maxMultiplier {
			maxMultiplier = m
		}
	}

	verdict := r.evaluate(all, window, baseline, anchor, age)
	if verdict == nil {
		return nil
	}
	return r.writeLabel(ctx, tok, verdict, maxMultiplier, result)
}

// evaluate walks the rule cascade in priority order; nil means no rule
// matched yet and the token stays under observation.
func (r *Resolver) evaluate(
	all, window []*domain.Trade,
	baseline float64,
	anchor, age int64,
) *verdict {
	if v := r.checkSuccess(window, baseline, anchor); v != nil {
		return v
	}

	failureEnd := anchor + r.cfg.FailureWindow.Milliseconds()
	sub := observationWindow(window, anchor, failureEnd)

	if v := r.checkPriceFailure(sub, baseline, anchor); v != nil {
		return v
	}
	if v := r.checkLiquidityCollapse(sub, anchor); v != nil {
		return v
	}
	horizon := min(anchor+age, anchor+r.cfg.ObservationWindow.Milliseconds())
	if v := r.checkVolumeCollapse(window, anchor, horizon); v != nil {
		return v
	}
	if v := r.checkEarlyWalletExit(all, anchor, age); v != nil {
		return v
	}
	if age >= r.cfg.ObservationWindow.Milliseconds() {
		ttl := r.cfg.ObservationWindow.Milliseconds()
		return &verdict{
			outcome:       domain.OutcomeExpired,
			reason:        domain.ReasonTimeout,
			timeToOutcome: &ttl,
		}
	}
	return nil
}

// checkSuccess fires on the first trade reaching the success multiple of
// the baseline, anywhere in the observation window.
func (r *Resolver) checkSuccess(window []*domain.Trade, baseline float64, anchor int64) *verdict {
	target := baseline * r.cfg.SuccessMultiplier
	for _, t := range window {
		if t.PriceUSD >= target {
			tto := t.Timestamp - anchor
			return &verdict{
				outcome:       domain.OutcomeSuccess,
				reason:        domain.ReasonSuccess5x,
				timeToOutcome: &tto,
			}
		}
	}
	return nil
}

// checkPriceFailure fires on the first trade at or below the failure
// fraction of the baseline within the failure sub-window.
func (r *Resolver) checkPriceFailure(sub []*domain.Trade, baseline float64, anchor int64) *verdict {
	floor := baseline * r.cfg.PriceFailureFraction
	for _, t := range sub {
		if t.PriceUSD <= floor {
			tto := t.Timestamp - anchor
			return &verdict{
				outcome:       domain.OutcomeFailed,
				reason:        domain.ReasonPriceFailure,
				timeToOutcome: &tto,
			}
		}
	}
	return nil
}

// checkLiquidityCollapse compares the minimum liquidity inside the
// failure sub-window against the peak inside that same sub-window. Peak
// and trough share one window so no sample from outside the evaluation
// horizon leaks into the comparison.
func (r *Resolver) checkLiquidityCollapse(sub []*domain.Trade, anchor int64) *verdict {
	if len(sub) == 0 {
		return nil
	}
	peak, minLiq := 0.0, 0.0
	var minAt int64
	for i, t := range sub {
		if t.Liquidity > peak {
			peak = t.Liquidity
		}
		if i == 0 || t.Liquidity < minLiq {
			minLiq = t.Liquidity
			minAt = t.Timestamp
		}
	}
	if peak <= 0 || minLiq > peak*r.cfg.LiquidityCollapseFraction {
		return nil
	}
	tto := minAt - anchor
	return &verdict{
		outcome:       domain.OutcomeFailed,
		reason:        domain.ReasonLiquidityCollapse,
		timeToOutcome: &tto,
	}
}

// checkVolumeCollapse buckets post-anchor volume hourly and fires when
// the configured number of consecutive complete buckets each fall below
// the collapse fraction of their trailing six-hour average. Buckets
// without six hours of trailing history never qualify.
func (r *Resolver) checkVolumeCollapse(window []*domain.Trade, anchor, horizon int64) *verdict {
	hour := time.Hour.Milliseconds()
	completeBuckets := int((horizon - anchor) / hour)
	if completeBuckets <= 0 {
		return nil
	}

	volumes := make([]float64, completeBuckets)
	for _, t := range window {
		idx := (t.Timestamp - anchor) / hour
		if idx >= 0 && idx < int64(completeBuckets) {
			volumes[idx] += t.AmountUSD
		}
	}

	trailing := int(r.cfg.VolumeHistoryBuffer / time.Hour)
	if trailing <= 0 || r.cfg.VolumeCollapseBuckets <= 0 {
		return nil
	}
	run := 0
	for i := trailing; i < completeBuckets; i++ {
		avg := 0.0
		for j := i - trailing; j < i; j++ {
			avg += volumes[j]
		}
		avg /= float64(trailing)
		if avg > 0 && volumes[i] < avg*r.cfg.VolumeCollapseFraction {
			run++
		} else {
			run = 0
		}
		if run >= r.cfg.VolumeCollapseBuckets {
			tto := int64(i+1) * hour
			return &verdict{
				outcome:       domain.OutcomeFailed,
				reason:        domain.ReasonVolumeCollapse,
				timeToOutcome: &tto,
			}
		}
	}
	return nil
}

// checkEarlyWalletExit fires when, by the configured mark after
// detection, more than the exit ratio of the wallets that bought in the
// token's first trading minutes hold a net non-positive position. Only
// evaluated once the token is old enough for the mark to have passed.
func (r *Resolver) checkEarlyWalletExit(all []*domain.Trade, anchor, age int64) *verdict {
	mark := r.cfg.EarlyExitMark.Milliseconds()
	if age < mark || len(all) == 0 {
		return nil
	}

	earlyEnd := all[0].Timestamp + r.cfg.EarlyWalletWindow.Milliseconds()
	buyers := make(map[string]struct{})
	for _, t := range all {
		if t.Timestamp > earlyEnd {
			break
		}
		if t.Side == domain.TradeSideBuy {
			buyers[t.Wallet] = struct{}{}
		}
	}
	if len(buyers) < r.cfg.EarlyWalletMinCount {
		return nil
	}

	balances := make(map[string]float64, len(buyers))
	cutoff := anchor + mark
	for _, t := range all {
		if t.Timestamp > cutoff {
			break
		}
		if _, ok := buyers[t.Wallet]; !ok {
			continue
		}
		if t.Side == domain.TradeSideBuy {
			balances[t.Wallet] += t.AmountToken
		} else {
			balances[t.Wallet] -= t.AmountToken
		}
	}

	exited := 0
	for w := range buyers {
		if balances[w] <= 0 {
			exited++
		}
	}
	if float64(exited)/float64(len(buyers)) <= r.cfg.EarlyExitRatio {
		return nil
	}
	return &verdict{
		outcome:       domain.OutcomeFailed,
		reason:        domain.ReasonEarlyWalletExit,
		timeToOutcome: &mark,
	}
}

// writeLabel persists the verdict and deactivates the token in one
// atomic store operation. A duplicate label means another pass already
// resolved this token; that is a no-op, never an error.
func (r *Resolver) writeLabel(ctx context.Context, tok *domain.Token, v *verdict, maxMultiplier float64, result *Result) error {
	label := &domain.LifecycleLabel{
		TokenID:       tok.TokenID,
		Outcome:       v.outcome,
		Reason:        v.reason,
		MaxMultiplier: maxMultiplier,
		TimeToOutcome: v.timeToOutcome,
		LabeledAt:     r.now().UnixMilli(),
	}
	if err := r.labels.Insert(ctx, label); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			result.AlreadyDone++
			return nil
		}
		return fmt.Errorf("insert label: %w", err)
	}
	result.Labeled++
	return nil
}

// observationWindow returns the trades with timestamps in [start, end],
// assuming the input is time-ordered.
func observationWindow(trades []*domain.Trade, start, end int64) []*domain.Trade {
	var out []*domain.Trade
	for _, t := range trades {
		if t.Timestamp < start {
			continue
		}
		if t.Timestamp > end {
			break
		}
		out = append(out, t)
	}
	return out
}
