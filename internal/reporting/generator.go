package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	tokens    storage.TokenStore
	snapshots storage.SnapshotStore
	labels    storage.LabelStore
	rollups   storage.RollupStore // optional volume column
	now       func() time.Time    // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	tokens storage.TokenStore,
	snapshots storage.SnapshotStore,
	labels storage.LabelStore,
) *Generator {
	return &Generator{
		tokens:    tokens,
		snapshots: snapshots,
		labels:    labels,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRollups adds a per-token traded volume column sourced from the
// analytics mirror.
func (g *Generator) WithRollups(rollups storage.RollupStore) *Generator {
	g.rollups = rollups
	return g
}

// Generate produces a complete outcome report for one feature version.
func (g *Generator) Generate(ctx context.Context, featureVersion int) (*Report, error) {
	snaps, err := g.snapshots.GetAll(ctx, featureVersion)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	labels, err := g.labels.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	labelByToken := make(map[string]*domain.LifecycleLabel, len(labels))
	for _, l := range labels {
		labelByToken[l.TokenID] = l
	}

	rows, err := g.generateTokenRows(ctx, snaps, labelByToken)
	if err != nil {
		return nil, err
	}

	// Every label counts in the outcome distribution, including tokens
	// that never got a snapshot in this version (e.g. no-trade
	// expiries). Open counts only snapshotted tokens awaiting a label.
	open := 0
	for _, snap := range snaps {
		if labelByToken[snap.TokenID] == nil {
			open++
		}
	}

	return &Report{
		GeneratedAt:    g.now(),
		FeatureVersion: featureVersion,
		Summary:        generateSummary(len(snaps), open, labels),
		Outcomes:       generateOutcomes(labels),
		Reasons:        generateReasons(labels),
		Calibration:    generateCalibration(rows),
		Tokens:         rows,
	}, nil
}

// generateTokenRows joins snapshots with labels and resolves addresses.
func (g *Generator) generateTokenRows(
	ctx context.Context,
	snaps []*domain.FeatureSnapshot,
	labelByToken map[string]*domain.LifecycleLabel,
) ([]TokenRow, error) {
	rows := make([]TokenRow, 0, len(snaps))
	for _, snap := range snaps {
		tok, err := g.tokens.GetByID(ctx, snap.TokenID)
		if err != nil {
			return nil, fmt.Errorf("load token %s: %w", snap.TokenID, err)
		}

		row := TokenRow{
			TokenID: snap.TokenID,
			Address: tok.Address,
			Score:   snap.Score.Total,
			Tier:    string(snap.Score.Label),
		}
		if l := labelByToken[snap.TokenID]; l != nil {
			row.Outcome = string(l.Outcome)
			row.Reason = l.Reason
			row.MaxMultiplier = l.MaxMultiplier
			row.LabeledAt = l.LabeledAt
			if l.TimeToOutcome != nil {
				row.TimeToOutcomeMS = *l.TimeToOutcome
			}
		}
		if g.rollups != nil {
			points, err := g.rollups.GetByToken(ctx, snap.TokenID)
			if err != nil {
				return nil, fmt.Errorf("load rollups %s: %w", snap.TokenID, err)
			}
			for _, p := range points {
				row.VolumeUSD += p.Volume
			}
		}
		rows = append(rows, row)
	}

	// Labeled rows first in label order, open rows after by token_id.
	sort.Slice(rows, func(i, j int) bool {
		li, lj := rows[i].LabeledAt > 0, rows[j].LabeledAt > 0
		if li != lj {
			return li
		}
		if li && rows[i].LabeledAt != rows[j].LabeledAt {
			return rows[i].LabeledAt < rows[j].LabeledAt
		}
		return rows[i].TokenID < rows[j].TokenID
	})
	return rows, nil
}

func generateSummary(snapshotted, open int, labeled []*domain.LifecycleLabel) Summary {
	s := Summary{
		SnapshottedTokens: snapshotted,
		LabeledTokens:     len(labeled),
		OpenTokens:        open,
	}

	successes := 0
	for _, l := range labeled {
		if l.Outcome == domain.OutcomeSuccess {
			successes++
		}
		if s.FirstLabeledAt == 0 || l.LabeledAt < s.FirstLabeledAt {
			s.FirstLabeledAt = l.LabeledAt
		}
		if l.LabeledAt > s.LastLabeledAt {
			s.LastLabeledAt = l.LabeledAt
		}
	}
	if len(labeled) > 0 {
		s.SuccessRate = float64(successes) / float64(len(labeled))
	}
	return s
}

// generateOutcomes builds the outcome distribution in cascade order.
func generateOutcomes(labeled []*domain.LifecycleLabel) []OutcomeRow {
	order := []domain.Outcome{domain.OutcomeSuccess, domain.OutcomeFailed, domain.OutcomeExpired}

	var rows []OutcomeRow
	for _, outcome := range order {
		var (
			count      int
			multiplier float64
			times      []int64
		)
		for _, l := range labeled {
			if l.Outcome != outcome {
				continue
			}
			count++
			multiplier += l.MaxMultiplier
			if l.TimeToOutcome != nil {
				times = append(times, *l.TimeToOutcome)
			}
		}
		if count == 0 {
			continue
		}
		rows = append(rows, OutcomeRow{
			Outcome:               string(outcome),
			Count:                 count,
			Share:                 float64(count) / float64(len(labeled)),
			MeanMaxMultiplier:     multiplier / float64(count),
			MedianTimeToOutcomeMS: medianInt64(times),
		})
	}
	return rows
}

// generateReasons counts (outcome, reason) pairs, most frequent first.
func generateReasons(labeled []*domain.LifecycleLabel) []ReasonRow {
	type key struct {
		Outcome domain.Outcome
		Reason  string
	}
	counts := make(map[key]int)
	for _, l := range labeled {
		counts[key{Outcome: l.Outcome, Reason: l.Reason}]++
	}

	rows := make([]ReasonRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, ReasonRow{Outcome: string(k.Outcome), Reason: k.Reason, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Reason < rows[j].Reason
	})
	return rows
}

// generateCalibration groups token rows by score tier, best tier first.
func generateCalibration(rows []TokenRow) []CalibrationRow {
	order := []domain.ScoreLabel{
		domain.LabelSniperCandidate,
		domain.LabelHighAsymmetry,
		domain.LabelStructured,
		domain.LabelTransitional,
		domain.LabelLowProbability,
	}

	var out []CalibrationRow
	for _, tier := range order {
		var (
			c          CalibrationRow
			score      float64
			multiplier float64
		)
		c.Tier = string(tier)
		for _, row := range rows {
			if row.Tier != string(tier) {
				continue
			}
			c.Tokens++
			score += row.Score
			if row.Outcome == "" {
				continue
			}
			c.Labeled++
			multiplier += row.MaxMultiplier
			if row.Outcome == string(domain.OutcomeSuccess) {
				c.Successes++
			}
		}
		if c.Tokens == 0 {
			continue
		}
		c.MeanScore = score / float64(c.Tokens)
		if c.Labeled > 0 {
			c.SuccessRate = float64(c.Successes) / float64(c.Labeled)
			c.MeanMaxMultiplier = multiplier / float64(c.Labeled)
		}
		out = append(out, c)
	}
	return out
}

func medianInt64(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
