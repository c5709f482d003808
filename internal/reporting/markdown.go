package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Token Outcome Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Feature Version: %d\n\n", r.FeatureVersion))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Snapshotted Tokens | %d |\n", r.Summary.SnapshottedTokens))
	sb.WriteString(fmt.Sprintf("| Labeled Tokens | %d |\n", r.Summary.LabeledTokens))
	sb.WriteString(fmt.Sprintf("| Open Tokens | %d |\n", r.Summary.OpenTokens))
	sb.WriteString(fmt.Sprintf("| Success Rate | %.4f |\n", r.Summary.SuccessRate))
	sb.WriteString(fmt.Sprintf("| First Labeled At (ms) | %d |\n", r.Summary.FirstLabeledAt))
	sb.WriteString(fmt.Sprintf("| Last Labeled At (ms) | %d |\n", r.Summary.LastLabeledAt))
	sb.WriteString("\n")

	// Outcome distribution
	sb.WriteString("## Outcomes\n\n")
	if len(r.Outcomes) > 0 {
		sb.WriteString("| Outcome | Count | Share | Mean MaxMult | Median TimeToOutcome (ms) |\n")
		sb.WriteString("|---------|-------|-------|--------------|---------------------------|\n")
		for _, o := range r.Outcomes {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %d |\n",
				o.Outcome, o.Count, o.Share, o.MeanMaxMultiplier, o.MedianTimeToOutcomeMS))
		}
	} else {
		sb.WriteString("No tokens labeled yet.\n")
	}
	sb.WriteString("\n")

	// Reason distribution
	sb.WriteString("## Reasons\n\n")
	if len(r.Reasons) > 0 {
		sb.WriteString("| Outcome | Reason | Count |\n")
		sb.WriteString("|---------|--------|-------|\n")
		for _, row := range r.Reasons {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", row.Outcome, row.Reason, row.Count))
		}
	} else {
		sb.WriteString("No tokens labeled yet.\n")
	}
	sb.WriteString("\n")

	// Score calibration
	sb.WriteString("## Score Calibration\n\n")
	if len(r.Calibration) > 0 {
		sb.WriteString("| Tier | Tokens | Labeled | Successes | SuccessRate | Mean Score | Mean MaxMult |\n")
		sb.WriteString("|------|--------|---------|-----------|-------------|------------|--------------|\n")
		for _, c := range r.Calibration {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f | %.2f | %.4f |\n",
				c.Tier, c.Tokens, c.Labeled, c.Successes, c.SuccessRate, c.MeanScore, c.MeanMaxMultiplier))
		}
	} else {
		sb.WriteString("No snapshots available.\n")
	}
	sb.WriteString("\n")

	// Per-token rows
	sb.WriteString("## Tokens\n\n")
	if len(r.Tokens) > 0 {
		sb.WriteString("| Token | Address | Score | Tier | Outcome | Reason | MaxMult | TimeToOutcome (ms) |\n")
		sb.WriteString("|-------|---------|-------|------|---------|--------|---------|--------------------|\n")
		for _, row := range r.Tokens {
			outcome := row.Outcome
			if outcome == "" {
				outcome = "OPEN"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s | %s | %s | %.4f | %d |\n",
				row.TokenID, row.Address, row.Score, row.Tier,
				outcome, row.Reason, row.MaxMultiplier, row.TimeToOutcomeMS))
		}
	} else {
		sb.WriteString("No snapshots available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
