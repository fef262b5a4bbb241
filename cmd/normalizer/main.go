// Package main provides the normalizer command-line tool for cleaning a
// delimited file in place.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"recnorm/internal/config"
	"recnorm/internal/export"
	"recnorm/internal/ingest"
	"recnorm/internal/logger"
	"recnorm/internal/normalizer"
	"recnorm/internal/report"
)

func main() {
	configPath := flag.String("config", "configs/clinic.yaml", "Path to pipeline config YAML")
	inputPath := flag.String("input", "", "Path to input CSV file")
	outputPath := flag.String("output", "", "Path to output CSV file (overrides config)")
	droppedPath := flag.String("dropped", "", "Path to dropped-rows sidecar CSV (overrides config)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("Usage: normalizer -config <pipeline.yaml> -input <raw.csv> [-output <clean.csv>] [-dropped <dropped.csv>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}

	if *outputPath == "" {
		*outputPath = cfg.Output.Path
	}

	if *droppedPath == "" {
		*droppedPath = cfg.Output.DroppedPath
	}

	logg := logger.NewLogger(cfg.Logging.Level)

	// Read raw table
	table, err := ingest.ReadCSVFile(*inputPath)
	if err != nil {
		log.Fatalf("Error reading input: %v\n", err)
	}

	fmt.Printf("📂 Read %d rows, %d columns from %s\n", len(table.Rows), len(table.Columns), *inputPath)

	// Normalize
	processor, err := normalizer.NewProcessor(cfg, logg)
	if err != nil {
		log.Fatalf("Error building processor: %v\n", err)
	}

	result, err := processor.Process(table)
	if err != nil {
		log.Fatalf("Error normalizing: %v\n", err)
	}

	// Write normalized table
	columns := []string{}
	if len(result.Records) > 0 {
		columns = result.Records[0].Columns
	}

	if err := export.WriteTable(*outputPath, columns, result.Records, cfg.Output.Unknown()); err != nil {
		log.Fatalf("Error writing output: %v\n", err)
	}

	fmt.Printf("✅ Saved %d records to: %s\n", len(result.Records), *outputPath)

	// Optional dropped-rows sidecar
	if *droppedPath != "" && len(result.Dropped) > 0 {
		if err := export.WriteDropped(*droppedPath, table.Columns, result.Dropped); err != nil {
			log.Fatalf("Error writing dropped rows: %v\n", err)
		}

		fmt.Printf("🗑️  Saved %d dropped rows to: %s\n", len(result.Dropped), *droppedPath)
	}

	fmt.Println()
	fmt.Print(report.Render(result.Summary))
}
