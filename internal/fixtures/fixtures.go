// Package fixtures provides deterministic synthetic trade histories for
// pipeline demonstration runs and tests. Each scenario is one feed
// payload whose token walks a different path through the classifier:
// a 5x breakout, a liquidity rug, an early-wallet dump, and a quiet
// token that never clears the gate.
package fixtures

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// Names of the built-in scenarios, in load order.
const (
	ScenarioBreakout  = "breakout"
	ScenarioRugPull   = "rugpull"
	ScenarioEarlyExit = "earlyexit"
	ScenarioQuiet     = "quiet"
)

// Source is the queue source tag for fixture payloads.
const Source = "fixtures"

// Base is the first trade timestamp: 2024-01-01 00:00:00 UTC.
const Base = int64(1704067200000)

const (
	minuteMS = int64(60_000)
	hourMS   = int64(3_600_000)
)

// event mirrors the feed wire format.
type event struct {
	Chain        string  `json:"chain"`
	TxSignature  string  `json:"tx_signature"`
	Wallet       string  `json:"wallet"`
	Mint         string  `json:"mint"`
	Side         string  `json:"side"`
	AmountToken  float64 `json:"amount_token"`
	AmountUSD    float64 `json:"amount_usd"`
	PriceUSD     float64 `json:"price_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	PairAddress  string  `json:"pair_address"`
	QuoteMint    string  `json:"quote_mint"`
	TimestampMS  int64   `json:"timestamp_ms"`
}

// Load enqueues every scenario payload onto the ingest queue.
func Load(ctx context.Context, jobs storage.IngestJobStore) error {
	for _, name := range []string{ScenarioBreakout, ScenarioRugPull, ScenarioEarlyExit, ScenarioQuiet} {
		payload, err := Payload(name)
		if err != nil {
			return err
		}
		if _, err := jobs.Enqueue(ctx, Source, payload); err != nil {
			return fmt.Errorf("enqueue %s: %w", name, err)
		}
	}
	return nil
}

// Payload builds one scenario's feed payload.
func Payload(scenario string) ([]byte, error) {
	var events []event
	switch scenario {
	case ScenarioBreakout:
		events = breakout()
	case ScenarioRugPull:
		events = rugPull()
	case ScenarioEarlyExit:
		events = earlyExit()
	case ScenarioQuiet:
		events = quiet()
	default:
		return nil, fmt.Errorf("unknown scenario %q", scenario)
	}
	return json.Marshal(events)
}

// Mint returns the scenario token's mint address.
func Mint(scenario string) string {
	return derivedAddress("mint|" + scenario)
}

// breakout qualifies in the first hour at 0.001, then prints a 6x an
// hour five later. Success overrides everything that follows.
func breakout() []event {
	events := minuteQualifier(ScenarioBreakout, 60, 0.001, 60000, 500)
	events = append(events, trade(ScenarioBreakout, len(events), wallet(ScenarioBreakout, 0),
		domain.TradeSideBuy, 0.006, 70000, 800, Base+5*hourMS))
	return events
}

// rugPull qualifies, peaks at 100k liquidity, then gets drained to 45k
// inside the failure window.
func rugPull() []event {
	events := minuteQualifier(ScenarioRugPull, 60, 0.002, 80000, 400)
	events = append(events,
		trade(ScenarioRugPull, len(events), wallet(ScenarioRugPull, 0),
			domain.TradeSideBuy, 0.002, 100000, 400, Base+6*hourMS),
		trade(ScenarioRugPull, len(events)+1, wallet(ScenarioRugPull, 1),
			domain.TradeSideSell, 0.0019, 45000, 400, Base+10*hourMS),
	)
	return events
}

// earlyExit has fourteen first-half-hour buyers of which eleven dump
// their full position before the two-hour mark, while steady hourly
// prints from the holdouts keep volume alive through the horizon.
func earlyExit() []event {
	const (
		price = 0.001
		liq   = 60000
		usd   = 400
	)
	var events []event
	add := func(walletIdx int, side string, ts int64) {
		events = append(events, trade(ScenarioEarlyExit, len(events),
			wallet(ScenarioEarlyExit, walletIdx), side, price, liq, usd, ts))
	}

	// Fourteen distinct buyers within the early window.
	for i := 0; i < 14; i++ {
		add(i, domain.TradeSideBuy, Base+int64(2*i)*minuteMS)
	}
	// Holdout buys keep the liquidity run and trade continuity going.
	for i, m := range []int64{28, 30, 32, 34, 36, 40, 45, 50, 55, 59} {
		add(11+i%3, domain.TradeSideBuy, Base+m*minuteMS)
	}
	// Eleven buyers exit completely well before the two-hour mark.
	for i := 0; i < 11; i++ {
		add(i, domain.TradeSideSell, Base+int64(70+i)*minuteMS)
	}
	// One small print per hour so no volume bucket ever starves.
	for k := int64(1); k <= 71; k++ {
		add(12, domain.TradeSideBuy, Base+30*minuteMS+k*hourMS+5*minuteMS)
	}
	return events
}

// quiet never reaches the liquidity floor and stays pre-eligible.
func quiet() []event {
	return minuteQualifier(ScenarioQuiet, 25, 0.0005, 10000, 50)
}

// minuteQualifier emits one buy per minute over a constant book.
func minuteQualifier(scenario string, n int, price, liq, usd float64) []event {
	events := make([]event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, trade(scenario, i, wallet(scenario, i%4),
			domain.TradeSideBuy, price, liq, usd, Base+int64(i)*minuteMS))
	}
	return events
}

func trade(scenario string, seq int, wallet, side string, price, liq, usd float64, ts int64) event {
	return event{
		Chain:        "solana",
		TxSignature:  fmt.Sprintf("%s-%04d", scenario, seq),
		Wallet:       wallet,
		Mint:         Mint(scenario),
		Side:         side,
		AmountToken:  usd / price,
		AmountUSD:    usd,
		PriceUSD:     price,
		LiquidityUSD: liq,
		PairAddress:  derivedAddress("pair|" + scenario),
		QuoteMint:    domain.WSOLAddress,
		TimestampMS:  ts,
	}
}

// wallet derives a deterministic on-curve address from a scenario-local
// index, so the ingest normalizer accepts it as a wallet.
func wallet(scenario string, i int) string {
	seed := sha256.Sum256([]byte(fmt.Sprintf("wallet|%s|%d", scenario, i)))
	scalar, err := new(edwards25519.Scalar).SetBytesWithClamping(seed[:])
	if err != nil {
		panic(err)
	}
	return base58.Encode(new(edwards25519.Point).ScalarBaseMult(scalar).Bytes())
}

func derivedAddress(tag string) string {
	sum := sha256.Sum256([]byte(tag))
	return base58.Encode(sum[:])
}
