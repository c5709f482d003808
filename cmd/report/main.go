// Package main generates the outcome report from stored snapshots and
// labels, optionally joined with ClickHouse volume rollups.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/reporting"
	chstore "solana-token-screener/internal/storage/clickhouse"
	pgstore "solana-token-screener/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	outputDir := flag.String("output-dir", "docs", "Output directory for report files")
	withRollups := flag.Bool("with-rollups", false, "Join ClickHouse volume rollups into the report")
	flag.Parse()

	ctx := context.Background()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, *outputDir, *withRollups); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, outputDir string, withRollups bool) error {
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		pgstore.NewTokenStore(pool),
		pgstore.NewSnapshotStore(pool),
		pgstore.NewLabelStore(pool),
	)

	if withRollups {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseAddr, cfg.Storage.ClickHouseDB)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()
		gen = gen.WithRollups(chstore.NewRollupStore(conn))
	}

	report, err := gen.Generate(ctx, cfg.Features.FeatureVersion)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	mdPath := filepath.Join(outputDir, "REPORT.md")
	csvPath := filepath.Join(outputDir, "tokens.csv")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Tokens)), 0o644); err != nil {
		return err
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  %s\n", mdPath)
	fmt.Printf("  %s\n", csvPath)
	fmt.Printf("  Snapshotted: %d, labeled: %d, success rate: %.4f\n",
		report.Summary.SnapshottedTokens, report.Summary.LabeledTokens, report.Summary.SuccessRate)
	return nil
}
