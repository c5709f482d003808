package domain

// Canonical quote assets a valid primary pair must be denominated in.
const (
	WSOLAddress = "So11111111111111111111111111111111111111112"
	USDCAddress = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTAddress = "Es9vMFrzaCERmZp4pC8F5zw6rH6YhZC8Yz1KJk9gP3Rz"
)

// canonicalQuoteAssets indexes the known quote assets by address.
var canonicalQuoteAssets = map[string]struct{}{
	WSOLAddress: {},
	USDCAddress: {},
	USDTAddress: {},
}

// IsCanonicalQuoteAsset reports whether an address is a known quote asset
// (native coin or major stablecoin).
func IsCanonicalQuoteAsset(address string) bool {
	_, ok := canonicalQuoteAssets[address]
	return ok
}
