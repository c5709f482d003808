package domain

// Trade represents a deduplicated on-chain trade for a tracked token.
// Corresponds to trades table in PostgreSQL. Append-only; uniqueness is
// enforced on trade_id = hash(chain, tx_signature, wallet).
type Trade struct {
	TradeID     string  // PRIMARY KEY, deterministic hash
	TokenID     string  // FK to tokens
	Wallet      string  // trading wallet address
	Side        string  // "buy" | "sell"
	AmountToken float64 // token amount traded
	AmountUSD   float64 // quote amount in USD
	PriceUSD    float64 // execution price in USD
	Liquidity   float64 // pool liquidity in USD at trade time
	PairAddress string  // pool the trade executed on
	QuoteMint   string  // counter-asset mint of the pool
	Timestamp   int64   // Unix timestamp in milliseconds
	TxSignature string  // chain transaction signature
	CreatedAt   int64   // record creation timestamp (ms)
}

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)
