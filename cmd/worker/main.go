// Package main provides the unified worker command that fetches raw pages,
// normalizes them, and exports the cleaned table.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"recnorm/internal/config"
	"recnorm/internal/export"
	"recnorm/internal/ingest"
	"recnorm/internal/logger"
	"recnorm/internal/normalizer"
	"recnorm/internal/report"
)

func main() {
	configPath := flag.String("config", "configs/news.yaml", "Path to pipeline config YAML")
	baseURL := flag.String("base-url", "", "Override fetch.base_url from config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("❌ Config error: %v\n", err)
		os.Exit(1)
	}

	if *baseURL != "" {
		cfg.Fetch.BaseURL = *baseURL
	}

	log := logger.NewLogger(cfg.Logging.Level)

	if cfg.Fetch.BaseURL == "" {
		log.Error("No fetch.base_url configured; use -base-url or the config file")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Info("🚀 Starting normalizer worker pipeline")
	log.Info(fmt.Sprintf("📍 Source: %s (%d pages)", cfg.Fetch.BaseURL, cfg.Fetch.Pages))
	log.Info(fmt.Sprintf("🎯 Output: %s", cfg.Output.Path))

	// Phase 1: Ingestion
	log.Info("Phase 1: Ingestion (Fetching)...")

	startTime := time.Now()

	fetcher := ingest.NewFetcher(&cfg.Fetch, log)

	table, err := fetcher.FetchTable()
	if err != nil {
		log.Error(fmt.Sprintf("❌ Fetch failed: %v", err))
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("✅ Fetched %d rows in %v", len(table.Rows), time.Since(startTime)))

	// Phase 2: Normalization
	log.Info("Phase 2: Processing (Normalization)...")

	processor, err := normalizer.NewProcessor(cfg, log)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Processor setup failed: %v", err))
		os.Exit(1)
	}

	result, err := processor.Process(table)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Normalization failed: %v", err))
		os.Exit(1)
	}

	// Phase 3: Export
	log.Info("Phase 3: Export (Writing)...")

	columns := []string{}
	if len(result.Records) > 0 {
		columns = result.Records[0].Columns
	}

	if err := export.WriteTable(cfg.Output.Path, columns, result.Records, cfg.Output.Unknown()); err != nil {
		log.Error(fmt.Sprintf("❌ Export failed: %v", err))
		os.Exit(1)
	}

	if cfg.Output.DroppedPath != "" && len(result.Dropped) > 0 {
		if err := export.WriteDropped(cfg.Output.DroppedPath, table.Columns, result.Dropped); err != nil {
			log.Error(fmt.Sprintf("❌ Sidecar export failed: %v", err))
			os.Exit(1)
		}
	}

	// Final report
	log.Info("✨ Pipeline Complete!")
	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Summary Report\n")
	fmt.Println("------------------------------------------------")
	fmt.Print(report.Render(result.Summary))
	fmt.Printf("Total Duration: %v\n", time.Since(startTime))
	fmt.Println("------------------------------------------------")
}
