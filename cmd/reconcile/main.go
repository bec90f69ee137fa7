// Package main runs a one-shot ledger reconciliation: every material's
// cached average cost is recomputed from its movements, then materials
// whose lots disagree with the ledger balance are reported.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"clinicstock/internal/app"
	"clinicstock/internal/config"
	"clinicstock/pkg/logger"
)

func main() {
	skipRecompute := flag.Bool("skip-recompute", false, "only report lot discrepancies")
	failOnGap := flag.Bool("fail-on-gap", false, "exit with status 2 when discrepancies are found")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	log = log.WithComponent("reconcile")

	os.Exit(run(log, cfg, *skipRecompute, *failOnGap))
}

func run(log *logger.Logger, cfg *config.Config, skipRecompute, failOnGap bool) int {
	ctx := context.Background()
	container, err := app.Build(ctx, cfg)
	if err != nil {
		log.Errorw("failed to initialize services", "error", err)
		return 1
	}
	defer container.Close()

	if !skipRecompute {
		n, err := container.Costing.RecomputeAll(ctx)
		if err != nil {
			log.Errorw("average cost recompute failed", "error", err, "recomputed", n)
			return 1
		}
		log.Infow("average costs recomputed", "materials", n)
	}

	gaps, err := container.Costing.LotDiscrepancies(ctx)
	if err != nil {
		log.Errorw("lot reconciliation failed", "error", err)
		return 1
	}
	container.Pool.LogStats(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(gaps); err != nil {
		log.Errorw("failed to write report", "error", err)
		return 1
	}

	log.Infow("reconciliation finished", "discrepancies", len(gaps))
	if failOnGap && len(gaps) > 0 {
		return 2
	}
	return 0
}
