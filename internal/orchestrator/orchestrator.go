// Package orchestrator coordinates one full pipeline cycle:
// ingest queue drain → eligibility gate → feature snapshots → lifecycle
// resolution, with an optional analytics mirror at the end. Each stage
// owns a disjoint token partition, so the stages run back to back
// without contending on any token.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"solana-token-screener/internal/features"
	"solana-token-screener/internal/gate"
	"solana-token-screener/internal/ingestion"
	"solana-token-screener/internal/resolver"
)

// Orchestrator drives the pipeline stages in order.
type Orchestrator struct {
	worker    *ingestion.Worker
	gate      *gate.Gate
	snapshots *features.Engine
	resolver  *resolver.Resolver
	mirror    *ingestion.Mirror
	logger    zerolog.Logger
}

// Options configures an Orchestrator. Gate, Snapshots and Resolver are
// required; Worker and Mirror are optional stages.
type Options struct {
	Worker    *ingestion.Worker
	Gate      *gate.Gate
	Snapshots *features.Engine
	Resolver  *resolver.Resolver
	Mirror    *ingestion.Mirror
	Logger    zerolog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		worker:    opts.Worker,
		gate:      opts.Gate,
		snapshots: opts.Snapshots,
		resolver:  opts.Resolver,
		mirror:    opts.Mirror,
		logger:    opts.Logger,
	}
}

// RunResult aggregates the per-stage results of one cycle.
type RunResult struct {
	Ingest    *ingestion.Result
	Gate      *gate.Result
	Snapshots *features.Result
	Resolver  *resolver.Result
	Mirror    *ingestion.MirrorResult

	// Errors collects every per-token error the stages isolated.
	Errors []string
}

// Run executes one pipeline cycle. A stage-level failure aborts the
// cycle; per-token failures inside a stage are collected and the cycle
// continues.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	if o.worker != nil {
		ingest, err := o.worker.RunOnce(ctx)
		if err != nil {
			return nil, fmt.Errorf("ingest stage: %w", err)
		}
		result.Ingest = ingest
		o.logger.Debug().
			Int("claimed", ingest.Claimed).
			Int("trades", ingest.TradesInserted).
			Msg("ingest stage done")
	}

	gateResult, err := o.gate.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("gate stage: %w", err)
	}
	result.Gate = gateResult
	result.Errors = append(result.Errors, gateResult.Errors...)
	o.logger.Debug().
		Int("evaluated", gateResult.Evaluated).
		Int("promoted", gateResult.Promoted).
		Int("rejected", gateResult.Rejected).
		Msg("gate stage done")

	snapResult, err := o.snapshots.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot stage: %w", err)
	}
	result.Snapshots = snapResult
	result.Errors = append(result.Errors, snapResult.Errors...)
	o.logger.Debug().
		Int("written", snapResult.Written).
		Msg("snapshot stage done")

	resolveResult, err := o.resolver.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver stage: %w", err)
	}
	result.Resolver = resolveResult
	result.Errors = append(result.Errors, resolveResult.Errors...)
	o.logger.Debug().
		Int("labeled", resolveResult.Labeled).
		Msg("resolver stage done")

	if o.mirror != nil {
		mirrorResult, err := o.mirror.RunOnce(ctx)
		if err != nil {
			return nil, fmt.Errorf("mirror stage: %w", err)
		}
		result.Mirror = mirrorResult
		result.Errors = append(result.Errors, mirrorResult.Errors...)
	}

	o.logger.Info().
		Int("promoted", gateResult.Promoted).
		Int("snapshots", snapResult.Written).
		Int("labeled", resolveResult.Labeled).
		Int("errors", len(result.Errors)).
		Msg("pipeline cycle complete")

	return result, nil
}
