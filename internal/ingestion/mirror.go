package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// MirrorResult summarizes one rollup mirror pass.
type MirrorResult struct {
	Tokens   int
	Inserted int
	Errors   []string
}

// Mirror replicates complete hourly volume buckets for eligible tokens
// into the analytics store. Only hours that have fully elapsed are
// mirrored, so a bucket is written once with its final value and the
// append-only rollup store never needs updates.
type Mirror struct {
	tokens  storage.TokenStore
	trades  storage.TradeStore
	rollups storage.RollupStore
	logger  zerolog.Logger
	now     func() time.Time
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithMirrorClock overrides the clock bounding complete buckets.
func WithMirrorClock(now func() time.Time) MirrorOption {
	return func(m *Mirror) { m.now = now }
}

// NewMirror creates a rollup Mirror.
func NewMirror(
	tokens storage.TokenStore,
	trades storage.TradeStore,
	rollups storage.RollupStore,
	logger zerolog.Logger,
	opts ...MirrorOption,
) *Mirror {
	m := &Mirror{
		tokens:  tokens,
		trades:  trades,
		rollups: rollups,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunOnce mirrors missing complete buckets for every eligible token.
// Per-token failures are collected, never abort the pass.
func (m *Mirror) RunOnce(ctx context.Context) (*MirrorResult, error) {
	eligible, err := m.tokens.GetByEligibility(ctx, domain.EligibilityEligible)
	if err != nil {
		return nil, fmt.Errorf("load eligible tokens: %w", err)
	}

	result := &MirrorResult{}
	for _, tok := range eligible {
		if ctx.Err() != nil {
			break
		}
		result.Tokens++
		n, err := m.mirrorToken(ctx, tok.TokenID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("token %s: %v", tok.TokenID, err))
			continue
		}
		result.Inserted += n
	}
	return result, nil
}

// mirrorToken computes the token's complete hourly buckets and inserts
// the ones the analytics store does not have yet.
func (m *Mirror) mirrorToken(ctx context.Context, tokenID string) (int, error) {
	trades, err := m.trades.GetByToken(ctx, tokenID)
	if err != nil {
		return 0, fmt.Errorf("load trades: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	existing, err := m.rollups.GetByToken(ctx, tokenID)
	if err != nil {
		return 0, fmt.Errorf("load rollups: %w", err)
	}
	have := make(map[int64]struct{}, len(existing))
	for _, r := range existing {
		have[r.HourStart] = struct{}{}
	}

	missing := buildRollups(tokenID, trades, m.now().UnixMilli(), have)
	if len(missing) == 0 {
		return 0, nil
	}
	if err := m.rollups.InsertBulk(ctx, missing); err != nil {
		return 0, fmt.Errorf("insert rollups: %w", err)
	}
	return len(missing), nil
}

// buildRollups buckets time-ordered trades into hour-aligned rollups,
// keeping only complete hours absent from the analytics store.
func buildRollups(tokenID string, trades []*domain.Trade, now int64, have map[int64]struct{}) []*domain.VolumeRollup {
	hour := time.Hour.Milliseconds()
	byHour := make(map[int64]*domain.VolumeRollup)
	var order []int64

	for _, t := range trades {
		start := t.Timestamp - t.Timestamp%hour
		if start+hour > now {
			continue
		}
		if _, ok := have[start]; ok {
			continue
		}
		r, ok := byHour[start]
		if !ok {
			r = &domain.VolumeRollup{TokenID: tokenID, HourStart: start}
			byHour[start] = r
			order = append(order, start)
		}
		r.Volume += t.AmountUSD
		r.TradeCount++
		if t.Side == domain.TradeSideBuy {
			r.BuyVolume += t.AmountUSD
		} else {
			r.SellVolume += t.AmountUSD
		}
	}

	out := make([]*domain.VolumeRollup, 0, len(order))
	for _, start := range order {
		out = append(out, byHour[start])
	}
	return out
}
