package normalizer

import (
	"fmt"
	"time"

	"recnorm/internal/config"
	"recnorm/internal/logger"
	"recnorm/internal/models"

	"github.com/google/uuid"
)

// Processor runs the whole normalization pass over one in-memory table:
// field rules, chronology checks, deduplication, imputation. A bad record
// never halts the batch; faults are isolated to the record and counted.
type Processor struct {
	cfg    *config.Config
	fields *FieldNormalizer
	chrono *ChronologyValidator
	log    *logger.Logger
}

// NewProcessor creates a processor from a validated config.
func NewProcessor(cfg *config.Config, log *logger.Logger) (*Processor, error) {
	fields, err := NewFieldNormalizer(&cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("building field rules: %w", err)
	}

	return &Processor{
		cfg:    cfg,
		fields: fields,
		chrono: NewChronologyValidator(cfg.Pipeline.Chronology),
		log:    log,
	}, nil
}

// Process normalizes a raw table and returns the surviving records, the
// dropped rows with reasons, and the batch summary.
func (p *Processor) Process(table *models.Table) (*models.Result, error) {
	start := time.Now()

	summary := models.BatchSummary{
		BatchID: uuid.NewString(),
		Reasons: make(map[string]int),
		Input:   len(table.Rows),
	}

	rules := p.ruleIndex()
	columns := p.outputColumns(rules, table.Columns)
	dedupe := NewDeduplicator(p.cfg.Pipeline.Dedupe)

	result := &models.Result{}

	for _, row := range table.Rows {
		rec := p.normalizeRow(rules, row, columns)

		disposition := p.chrono.Evaluate(rec)

		if disposition.Kind != models.Dropped && dedupe.IsDuplicate(rec) {
			disposition = models.Drop(ReasonDuplicate)
		}

		rec.Disposition = disposition

		switch disposition.Kind {
		case models.Dropped:
			summary.Dropped++
			summary.Reasons[disposition.Reason]++

			p.log.Debug("record dropped", "line", row.Line, "reason", disposition.Reason)

			result.Dropped = append(result.Dropped, models.DroppedRecord{
				Line:   row.Line,
				Reason: disposition.Reason,
				Fields: row.Fields,
			})
		case models.Flagged:
			summary.Flagged++
			summary.Reasons[disposition.Reason]++

			result.Records = append(result.Records, rec)
		default:
			summary.Kept++

			result.Records = append(result.Records, rec)
		}
	}

	// Imputation runs last, over the surviving records only.
	imputer := NewImputer(p.cfg.Pipeline.Imputation)
	if err := imputer.Apply(result.Records); err != nil {
		return nil, fmt.Errorf("imputation failed: %w", err)
	}

	summary.Duration = time.Since(start)
	result.Summary = summary

	p.log.Info("batch complete",
		"batch", summary.BatchID,
		"input", summary.Input,
		"kept", summary.Kept,
		"dropped", summary.Dropped,
		"flagged", summary.Flagged,
	)

	return result, nil
}

// normalizeRow applies the configured rule to each field. Fields with no
// rule pass through as plain text; derived fields replace their originals
// under the rename.
func (p *Processor) normalizeRow(rules map[string]*config.FieldRule, row models.RawRecord, columns []string) *models.Record {
	rec := models.NewRecord(row.Line, columns)

	for name, raw := range row.Fields {
		rule, ok := rules[name]
		if !ok {
			rec.Set(name, p.passthrough(raw))

			continue
		}

		rec.Set(rule.OutputName(), p.fields.Apply(rule, raw, true))
	}

	// Fields the source row omitted entirely still get a sentinel.
	for _, rule := range p.cfg.Pipeline.Fields {
		if _, ok := row.Fields[rule.Name]; !ok {
			rec.Set(rule.OutputName(), models.MissingValue())
		}
	}

	return rec
}

func (p *Processor) passthrough(raw string) models.Value {
	if raw == "" {
		return models.MissingValue()
	}

	return models.TextValue(raw)
}

func (p *Processor) ruleIndex() map[string]*config.FieldRule {
	index := make(map[string]*config.FieldRule, len(p.cfg.Pipeline.Fields))
	for i := range p.cfg.Pipeline.Fields {
		index[p.cfg.Pipeline.Fields[i].Name] = &p.cfg.Pipeline.Fields[i]
	}

	return index
}

// outputColumns rewrites the raw column order with extract renames applied
// and appends configured fields the source never carried.
func (p *Processor) outputColumns(rules map[string]*config.FieldRule, raw []string) []string {
	var columns []string

	seen := make(map[string]bool)

	for _, name := range raw {
		out := name
		if rule, ok := rules[name]; ok {
			out = rule.OutputName()
		}

		if !seen[out] {
			columns = append(columns, out)
			seen[out] = true
		}
	}

	for _, rule := range p.cfg.Pipeline.Fields {
		out := rule.OutputName()
		if !seen[out] {
			columns = append(columns, out)
			seen[out] = true
		}
	}

	return columns
}
