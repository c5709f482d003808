package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-token rows as CSV string.
func RenderCSV(rows []TokenRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("token_id,address,score,tier,outcome,reason,max_multiplier,")
	sb.WriteString("time_to_outcome_ms,labeled_at,volume_usd\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%s,%s,%s,%.6f,%d,%d,%.6f\n",
			row.TokenID,
			row.Address,
			row.Score,
			row.Tier,
			row.Outcome,
			row.Reason,
			row.MaxMultiplier,
			row.TimeToOutcomeMS,
			row.LabeledAt,
			row.VolumeUSD,
		))
	}

	return sb.String()
}
