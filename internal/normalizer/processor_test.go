package normalizer

import (
	"io"
	"testing"

	"recnorm/internal/config"
	"recnorm/internal/logger"
	"recnorm/internal/models"
)

func processorConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			Fields: []config.FieldRule{
				{Name: "title", Rule: config.RuleText},
				{Name: "url", Rule: config.RuleURL, Placeholder: "https://example.invalid/"},
				{Name: "arrival_date", Rule: config.RuleDate},
				{Name: "first_consultation", Rule: config.RuleDate},
				{Name: "next_visit", Rule: config.RuleDate},
			},
			Chronology: config.ChronologyConfig{
				Arrival:      "arrival_date",
				Consultation: "first_consultation",
				NextVisit:    "next_visit",
			},
			Dedupe: config.DedupeConfig{Title: "title", URL: "url"},
		},
		Output:  config.OutputConfig{Path: "out.csv"},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	log := logger.NewLoggerWithWriter("error", io.Discard)

	p, err := NewProcessor(processorConfig(), log)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	return p
}

func row(line int, fields map[string]string) models.RawRecord {
	return models.RawRecord{Line: line, Fields: fields}
}

func TestProcessor_Process(t *testing.T) {
	p := newTestProcessor(t)

	table := &models.Table{
		Columns: []string{"title", "url", "arrival_date", "first_consultation", "next_visit"},
		Rows: []models.RawRecord{
			// Kept, all consistent.
			row(2, map[string]string{
				"title":              "First Story",
				"url":                "https://example.com/a",
				"arrival_date":       "2020-01-01",
				"first_consultation": "2020-01-05",
				"next_visit":         "2020-02-01",
			}),
			// Dropped: consultation precedes arrival.
			row(3, map[string]string{
				"title":              "Second Story",
				"url":                "https://example.com/b",
				"arrival_date":       "2020-01-10",
				"first_consultation": "2020-01-05",
				"next_visit":         "",
			}),
			// Flagged: next visit before consultation.
			row(4, map[string]string{
				"title":              "Third Story",
				"url":                "https://example.com/c",
				"arrival_date":       "",
				"first_consultation": "2020-01-05",
				"next_visit":         "2020-01-01",
			}),
			// Dropped: duplicate of the first row.
			row(5, map[string]string{
				"title":              "  FIRST story ",
				"url":                "https://example.com/a",
				"arrival_date":       "2020-01-01",
				"first_consultation": "2020-01-05",
				"next_visit":         "2020-02-01",
			}),
		},
	}

	result, err := p.Process(table)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	s := result.Summary
	if s.Input != 4 {
		t.Errorf("Input = %d, want 4", s.Input)
	}

	if s.Kept != 1 {
		t.Errorf("Kept = %d, want 1", s.Kept)
	}

	if s.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", s.Dropped)
	}

	if s.Flagged != 1 {
		t.Errorf("Flagged = %d, want 1", s.Flagged)
	}

	if s.BatchID == "" {
		t.Error("BatchID is empty")
	}

	// Every input row got exactly one disposition.
	if len(result.Records)+len(result.Dropped) != s.Input {
		t.Errorf("records(%d) + dropped(%d) != input(%d)",
			len(result.Records), len(result.Dropped), s.Input)
	}

	// Dropped records never appear in output.
	for _, rec := range result.Records {
		if rec.Disposition.Kind == models.Dropped {
			t.Errorf("dropped record at line %d leaked into output", rec.Line)
		}
	}

	if s.Reasons[ReasonConsultationPrecedesArrival] != 1 {
		t.Errorf("reason tally for %q = %d, want 1",
			ReasonConsultationPrecedesArrival, s.Reasons[ReasonConsultationPrecedesArrival])
	}

	if s.Reasons[ReasonDuplicate] != 1 {
		t.Errorf("reason tally for %q = %d, want 1", ReasonDuplicate, s.Reasons[ReasonDuplicate])
	}
}

func TestProcessor_DerivedFieldReplacesOriginal(t *testing.T) {
	cfg := processorConfig()
	cfg.Pipeline.Fields = append(cfg.Pipeline.Fields, config.FieldRule{
		Name:   "source",
		Rule:   config.RuleExtract,
		Key:    "id",
		Rename: "source_id",
	})
	cfg.Pipeline.Chronology = config.ChronologyConfig{}
	cfg.Pipeline.Dedupe = config.DedupeConfig{}

	log := logger.NewLoggerWithWriter("error", io.Discard)

	p, err := NewProcessor(cfg, log)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	table := &models.Table{
		Columns: []string{"title", "source"},
		Rows: []models.RawRecord{
			row(2, map[string]string{
				"title":  "Story",
				"source": "id=bbc-news;name=BBC News",
			}),
		},
	}

	result, err := p.Process(table)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	rec := result.Records[0]

	if got := rec.Get("source_id").Text; got != "bbc-news" {
		t.Errorf("source_id = %q, want bbc-news", got)
	}

	for _, col := range rec.Columns {
		if col == "source" {
			t.Error("original column survived alongside its derived replacement")
		}
	}
}

func TestProcessor_BadRecordDoesNotHaltBatch(t *testing.T) {
	p := newTestProcessor(t)

	table := &models.Table{
		Columns: []string{"title", "url", "arrival_date", "first_consultation", "next_visit"},
		Rows: []models.RawRecord{
			row(2, map[string]string{
				"title":        "Garbage dates",
				"url":          "::::",
				"arrival_date": "not a date at all",
			}),
			row(3, map[string]string{
				"title": "Fine",
				"url":   "https://example.com/x",
			}),
		},
	}

	result, err := p.Process(table)
	if err != nil {
		t.Fatalf("Process failed on a bad record: %v", err)
	}

	if result.Summary.Kept != 2 {
		t.Errorf("Kept = %d, want 2 (unparseable values become sentinels, not failures)", result.Summary.Kept)
	}
}
