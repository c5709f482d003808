// Package ingestion drains the raw trade-feed queue into the canonical
// trade ledger. A worker claims pending jobs with competing-consumer
// semantics, normalizes their payloads, and marks each job done or
// failed; failed jobs stay failed and are never retried.
package ingestion

import (
	"encoding/json"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/idhash"
)

// feedEvent is one raw trade event as delivered by the feed. Payloads
// carry a JSON array of these.
type feedEvent struct {
	Chain       string  `json:"chain"`
	TxSignature string  `json:"tx_signature"`
	Wallet      string  `json:"wallet"`
	Mint        string  `json:"mint"`
	Side        string  `json:"side"`
	AmountToken float64 `json:"amount_token"`
	AmountUSD   float64 `json:"amount_usd"`
	PriceUSD    float64 `json:"price_usd"`
	Liquidity   float64 `json:"liquidity_usd"`
	PairAddress string  `json:"pair_address"`
	QuoteMint   string  `json:"quote_mint"`
	Timestamp   int64   `json:"timestamp_ms"`
}

// normalizePayload decodes a feed payload into canonical trades plus
// the chain/mint pair behind each referenced token_id, so the worker can
// register unseen tokens without re-parsing the payload. Any invalid
// event fails the whole payload: the job queue marks the job failed and
// a human looks at it, rather than silently dropping events.
func normalizePayload(payload []byte, createdAt int64, requireOnCurve bool) ([]*domain.Trade, map[string]tokenKey, error) {
	var events []feedEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(events) == 0 {
		return nil, nil, fmt.Errorf("empty payload")
	}

	trades := make([]*domain.Trade, 0, len(events))
	mints := make(map[string]tokenKey)
	for i, ev := range events {
		t, err := normalizeEvent(ev, createdAt, requireOnCurve)
		if err != nil {
			return nil, nil, fmt.Errorf("event %d: %w", i, err)
		}
		trades = append(trades, t)
		if ev.Chain == "" {
			ev.Chain = "solana"
		}
		mints[t.TokenID] = tokenKey{chain: ev.Chain, mint: ev.Mint}
	}
	return trades, mints, nil
}

// tokenKey is the natural key behind a token_id.
type tokenKey struct {
	chain string
	mint  string
}

// normalizeEvent validates one feed event and derives its canonical
// trade, including the deterministic trade and token identifiers.
func normalizeEvent(ev feedEvent, createdAt int64, requireOnCurve bool) (*domain.Trade, error) {
	if ev.Chain == "" {
		ev.Chain = "solana"
	}
	if ev.TxSignature == "" {
		return nil, fmt.Errorf("missing tx_signature")
	}
	if ev.Mint == "" || ev.PairAddress == "" {
		return nil, fmt.Errorf("missing mint or pair_address")
	}
	if ev.Side != domain.TradeSideBuy && ev.Side != domain.TradeSideSell {
		return nil, fmt.Errorf("invalid side %q", ev.Side)
	}
	if ev.AmountToken <= 0 || ev.AmountUSD <= 0 || ev.PriceUSD <= 0 {
		return nil, fmt.Errorf("non-positive amounts")
	}
	if ev.Liquidity < 0 {
		return nil, fmt.Errorf("negative liquidity")
	}
	if ev.Timestamp <= 0 {
		return nil, fmt.Errorf("missing timestamp_ms")
	}
	if err := validateWallet(ev.Wallet, requireOnCurve); err != nil {
		return nil, fmt.Errorf("wallet %q: %w", ev.Wallet, err)
	}
	if err := validateAddress(ev.PairAddress); err != nil {
		return nil, fmt.Errorf("pair_address %q: %w", ev.PairAddress, err)
	}

	return &domain.Trade{
		TradeID:     idhash.TradeID(ev.Chain, ev.TxSignature, ev.Wallet),
		TokenID:     idhash.TokenID(ev.Chain, ev.Mint),
		Wallet:      ev.Wallet,
		Side:        ev.Side,
		AmountToken: ev.AmountToken,
		AmountUSD:   ev.AmountUSD,
		PriceUSD:    ev.PriceUSD,
		Liquidity:   ev.Liquidity,
		PairAddress: ev.PairAddress,
		QuoteMint:   ev.QuoteMint,
		Timestamp:   ev.Timestamp,
		TxSignature: ev.TxSignature,
		CreatedAt:   createdAt,
	}, nil
}

// validateWallet checks that a wallet is a 32-byte base58 address, and
// when requireOnCurve is set, that it lies on the ed25519 curve.
// Program-derived pool addresses live off the curve, so the curve check
// rejects feeds that put a pool where a wallet belongs. Feeds that carry
// synthetic wallets can switch it off.
func validateWallet(wallet string, requireOnCurve bool) error {
	raw, err := decodeAddress(wallet)
	if err != nil {
		return err
	}
	if !requireOnCurve {
		return nil
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("not an on-curve address")
	}
	return nil
}

// validateAddress checks base58 shape only; pool addresses are PDAs and
// legitimately off-curve.
func validateAddress(address string) error {
	_, err := decodeAddress(address)
	return err
}

func decodeAddress(address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address is %d bytes, want 32", len(raw))
	}
	return raw, nil
}
