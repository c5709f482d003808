package gate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage/memory"
)

const (
	t0       = int64(1700000000000)
	minute   = int64(60_000)
	testMint = "MintAddr1111111111111111111111111111111111"
	testPair = "PairAddr1111111111111111111111111111111111"
)

type fixture struct {
	gate   *Gate
	tokens *memory.TokenStore
	trades *memory.TradeStore
}

func newFixture(t *testing.T, mutate ...func(*config.GateConfig)) *fixture {
	t.Helper()

	cfg := config.Default().Gate
	cfg.StaleMetricsLimit = 0 // replay mode unless a test turns it on
	for _, m := range mutate {
		m(&cfg)
	}

	tokens := memory.NewTokenStore()
	trades := memory.NewTradeStore()
	clock := func() time.Time { return time.UnixMilli(t0 + 60*minute) }
	return &fixture{
		gate:   New(cfg, tokens, trades, WithClock(clock)),
		tokens: tokens,
		trades: trades,
	}
}

func (f *fixture) addToken(t *testing.T, tokenID string) {
	t.Helper()
	err := f.tokens.Insert(context.Background(), &domain.Token{
		TokenID:     tokenID,
		Chain:       "solana",
		Address:     testMint,
		Eligibility: domain.EligibilityPreEligible,
		Stage:       domain.StageInactive,
		IsActive:    true,
		CreatedAt:   t0,
	})
	if err != nil {
		t.Fatalf("insert token: %v", err)
	}
}

// addTrades writes one buy per minute offset with the given liquidity.
func (f *fixture) addTrades(t *testing.T, tokenID string, liquidityAt func(minuteOffset int) float64, minutes int) {
	t.Helper()
	var trades []*domain.Trade
	for i := 0; i < minutes; i++ {
		trades = append(trades, &domain.Trade{
			TradeID:     fmt.Sprintf("%s-tr-%03d", tokenID, i),
			TokenID:     tokenID,
			Wallet:      fmt.Sprintf("wallet-%d", i),
			Side:        domain.TradeSideBuy,
			AmountToken: 100,
			AmountUSD:   500,
			PriceUSD:    5,
			Liquidity:   liquidityAt(i),
			PairAddress: testPair,
			QuoteMint:   domain.WSOLAddress,
			Timestamp:   t0 + int64(i)*minute,
			TxSignature: fmt.Sprintf("sig-%d", i),
		})
	}
	if _, err := f.trades.InsertBulk(context.Background(), trades); err != nil {
		t.Fatalf("insert trades: %v", err)
	}
}

func TestGate_ScenarioA_DetectedAtIsRunStartPlusSustain(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	// Liquidity crosses $50k at T0+10m and stays above until T0+50m.
	f.addTrades(t, "tok1", func(m int) float64 {
		if m >= 10 && m <= 50 {
			return 60000
		}
		return 10000
	}, 51)

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Promoted != 1 {
		t.Fatalf("Expected 1 promoted, got %+v", result)
	}

	tok, err := f.tokens.GetByID(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if tok.Eligibility != domain.EligibilityEligible {
		t.Fatalf("Expected ELIGIBLE, got %s", tok.Eligibility)
	}
	wantDetected := t0 + 40*minute
	if tok.DetectedAt == nil || *tok.DetectedAt != wantDetected {
		t.Errorf("detected_at = %v, want %d", tok.DetectedAt, wantDetected)
	}
	if tok.PrimaryPair != testPair {
		t.Errorf("primary pair = %s, want %s", tok.PrimaryPair, testPair)
	}
}

func TestGate_InProgressRunHoldsPending(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	// 20 minutes above threshold, run not yet complete.
	f.addTrades(t, "tok1", func(m int) float64 { return 60000 }, 21)

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Pending != 1 {
		t.Fatalf("Expected 1 pending, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.Eligibility != domain.EligibilityPending {
		t.Errorf("Expected ELIGIBLE_PENDING, got %s", tok.Eligibility)
	}
	if tok.RunStartAt == nil || *tok.RunStartAt != t0 {
		t.Errorf("run_start_at = %v, want %d", tok.RunStartAt, t0)
	}
	if tok.DetectedAt != nil {
		t.Errorf("detected_at must not be set while pending")
	}
}

func TestGate_LiquidityDropResetsPending(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	// First pass: 25 minutes above threshold -> pending.
	f.addTrades(t, "tok1", func(m int) float64 { return 60000 }, 26)
	if _, err := f.gate.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Liquidity collapses before the run completes.
	var late []*domain.Trade
	for i := 26; i < 46; i++ {
		late = append(late, &domain.Trade{
			TradeID: fmt.Sprintf("late-%d", i), TokenID: "tok1",
			Wallet: "w", Side: domain.TradeSideBuy, AmountUSD: 100,
			Liquidity: 5000, PairAddress: testPair, QuoteMint: domain.WSOLAddress,
			Timestamp: t0 + int64(i)*minute, TxSignature: fmt.Sprintf("ls-%d", i),
		})
	}
	if _, err := f.trades.InsertBulk(context.Background(), late); err != nil {
		t.Fatal(err)
	}

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if result.Reset != 1 {
		t.Fatalf("Expected 1 reset, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.Eligibility != domain.EligibilityPreEligible {
		t.Errorf("Expected reset to PRE_ELIGIBLE, got %s", tok.Eligibility)
	}
	if tok.RunStartAt != nil {
		t.Errorf("run_start_at should be cleared, got %v", tok.RunStartAt)
	}
}

func TestGate_NonCanonicalQuoteRejected(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	trade := &domain.Trade{
		TradeID: "tr1", TokenID: "tok1", Wallet: "w", Side: domain.TradeSideBuy,
		AmountUSD: 100, Liquidity: 60000, PairAddress: testPair,
		QuoteMint: "SomeRandomMint", Timestamp: t0, TxSignature: "s1",
	}
	if err := f.trades.Insert(context.Background(), trade); err != nil {
		t.Fatal(err)
	}

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Rejected != 1 {
		t.Fatalf("Expected 1 rejected, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.Eligibility != domain.EligibilityRejected {
		t.Errorf("Expected REJECTED, got %s", tok.Eligibility)
	}
	if tok.RejectionReason != RejectInvalidBaseToken {
		t.Errorf("Expected %s, got %s", RejectInvalidBaseToken, tok.RejectionReason)
	}
}

func TestGate_CanonicalQuoteCheckCanBeDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.GateConfig) {
		cfg.RequireCanonicalQuote = false
	})
	f.addToken(t, "tok1")

	// Same shape as scenario A but quoted in an unlisted asset.
	var trades []*domain.Trade
	for i := 0; i <= 50; i++ {
		liq := 10000.0
		if i >= 10 {
			liq = 60000
		}
		trades = append(trades, &domain.Trade{
			TradeID:     fmt.Sprintf("tok1-tr-%03d", i),
			TokenID:     "tok1",
			Wallet:      fmt.Sprintf("wallet-%d", i),
			Side:        domain.TradeSideBuy,
			AmountToken: 100,
			AmountUSD:   500,
			PriceUSD:    5,
			Liquidity:   liq,
			PairAddress: testPair,
			QuoteMint:   "SomeRandomMint",
			Timestamp:   t0 + int64(i)*minute,
			TxSignature: fmt.Sprintf("sig-%d", i),
		})
	}
	if _, err := f.trades.InsertBulk(context.Background(), trades); err != nil {
		t.Fatalf("insert trades: %v", err)
	}

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Rejected != 0 {
		t.Fatalf("Expected 0 rejected, got %+v", result)
	}
	if result.Promoted != 1 {
		t.Fatalf("Expected 1 promoted, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.Eligibility != domain.EligibilityEligible {
		t.Errorf("Expected ELIGIBLE, got %s", tok.Eligibility)
	}
}

func TestGate_SelfPairedRejected(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	trade := &domain.Trade{
		TradeID: "tr1", TokenID: "tok1", Wallet: "w", Side: domain.TradeSideBuy,
		AmountUSD: 100, Liquidity: 60000, PairAddress: testMint,
		QuoteMint: domain.WSOLAddress, Timestamp: t0, TxSignature: "s1",
	}
	if err := f.trades.Insert(context.Background(), trade); err != nil {
		t.Fatal(err)
	}

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Rejected != 1 {
		t.Fatalf("Expected 1 rejected, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.RejectionReason != RejectSelfPaired {
		t.Errorf("Expected %s, got %s", RejectSelfPaired, tok.RejectionReason)
	}
}

func TestGate_FewTradesWait(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	// 5 trades, below the minimum count: the token just waits.
	f.addTrades(t, "tok1", func(m int) float64 { return 60000 }, 5)

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Fatalf("Expected 1 skipped, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.Eligibility != domain.EligibilityPreEligible {
		t.Errorf("Expected PRE_ELIGIBLE, got %s", tok.Eligibility)
	}
}

func TestGate_EarlyVolumeRejected(t *testing.T) {
	f := newFixture(t, func(cfg *config.GateConfig) {
		cfg.MinEarlyVolumeUSD = 1_000_000 // unreachable
	})
	f.addToken(t, "tok1")
	f.addTrades(t, "tok1", func(m int) float64 { return 60000 }, 45)

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Rejected != 1 {
		t.Fatalf("Expected 1 rejected, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.RejectionReason != RejectEarlyVolume {
		t.Errorf("Expected %s, got %s", RejectEarlyVolume, tok.RejectionReason)
	}
}

func TestGate_TradeGapRejected(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok1")

	// Trades at 0..4m then a 16-minute silence, then 21m..45m. The run
	// still completes but the early window has a >10m gap.
	var trades []*domain.Trade
	n := 0
	add := func(m int) {
		trades = append(trades, &domain.Trade{
			TradeID: fmt.Sprintf("tr-%03d", n), TokenID: "tok1",
			Wallet: fmt.Sprintf("w-%d", n), Side: domain.TradeSideBuy,
			AmountUSD: 2000, Liquidity: 60000, PairAddress: testPair,
			QuoteMint: domain.WSOLAddress, Timestamp: t0 + int64(m)*minute,
			TxSignature: fmt.Sprintf("s-%d", n),
		})
		n++
	}
	for m := 0; m <= 4; m++ {
		add(m)
	}
	for m := 21; m <= 45; m++ {
		add(m)
	}
	if _, err := f.trades.InsertBulk(context.Background(), trades); err != nil {
		t.Fatal(err)
	}

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Rejected != 1 {
		t.Fatalf("Expected 1 rejected, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.RejectionReason != RejectTradeGap {
		t.Errorf("Expected %s, got %s", RejectTradeGap, tok.RejectionReason)
	}
}

func TestGate_StaleMetricsDelayPromotion(t *testing.T) {
	f := newFixture(t, func(cfg *config.GateConfig) {
		cfg.StaleMetricsLimit = 10 * time.Minute
	})
	f.addToken(t, "tok1")

	// A qualifying run, but the newest trade is 19 minutes before the
	// fixture clock (t0+60m): promotion is delayed, not rejected.
	f.addTrades(t, "tok1", func(m int) float64 { return 60000 }, 42)

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Delayed != 1 {
		t.Fatalf("Expected 1 delayed, got %+v", result)
	}

	tok, _ := f.tokens.GetByID(context.Background(), "tok1")
	if tok.Eligibility != domain.EligibilityPending {
		t.Errorf("Expected ELIGIBLE_PENDING, got %s", tok.Eligibility)
	}
	if tok.DetectedAt != nil {
		t.Errorf("detected_at must not be set while delayed")
	}
}

func TestGate_TerminalTokensNotReprocessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	detected := t0 + 40*minute
	err := f.tokens.Insert(ctx, &domain.Token{
		TokenID: "tok-done", Chain: "solana", Address: testMint,
		Eligibility: domain.EligibilityEligible, Stage: domain.StageActiveMonitoring,
		DetectedAt: &detected, IsActive: true, CreatedAt: t0,
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.gate.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Evaluated != 0 {
		t.Errorf("Terminal token was evaluated: %+v", result)
	}
}

func TestGate_PerTokenIsolation(t *testing.T) {
	f := newFixture(t)
	f.addToken(t, "tok-good")
	f.addTrades(t, "tok-good", func(m int) float64 { return 60000 }, 45)

	// A token with trades referencing a non-canonical quote plus a good
	// one: both are evaluated, the pass never aborts.
	err := f.tokens.Insert(context.Background(), &domain.Token{
		TokenID: "tok-bad", Chain: "solana", Address: "OtherMint",
		Eligibility: domain.EligibilityPreEligible, Stage: domain.StageInactive,
		IsActive: true, CreatedAt: t0,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = f.trades.Insert(context.Background(), &domain.Trade{
		TradeID: "bad-tr", TokenID: "tok-bad", Wallet: "w",
		Side: domain.TradeSideBuy, AmountUSD: 10, Liquidity: 60000,
		PairAddress: "p", QuoteMint: "junk", Timestamp: t0, TxSignature: "s",
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Evaluated != 2 {
		t.Errorf("Expected 2 evaluated, got %+v", result)
	}
	if result.Promoted != 1 || result.Rejected != 1 {
		t.Errorf("Expected 1 promoted and 1 rejected, got %+v", result)
	}
}
