package normalizer

import (
	"fmt"
	"strconv"

	"recnorm/internal/config"
	"recnorm/internal/models"

	"github.com/montanaflynn/stats"
)

// Imputer fills holes in strictly numeric columns. For fields whose domain
// forbids zero, zero and missing are treated identically. The statistic is
// computed over valid values only, before any replacement happens, so
// imputed values never feed back into it.
type Imputer struct {
	rules []config.ImputationRule
}

// NewImputer creates a new imputer instance.
func NewImputer(rules []config.ImputationRule) *Imputer {
	return &Imputer{rules: rules}
}

// Apply imputes all configured fields across the surviving records.
// A column with no valid values is left untouched.
func (im *Imputer) Apply(records []*models.Record) error {
	for _, rule := range im.rules {
		if err := im.applyRule(rule, records); err != nil {
			return fmt.Errorf("imputing field %q: %w", rule.Field, err)
		}
	}

	return nil
}

func (im *Imputer) applyRule(rule config.ImputationRule, records []*models.Record) error {
	var valid []float64

	for _, rec := range records {
		v, ok := numericValue(rec.Get(rule.Field))
		if !ok {
			continue
		}

		if rule.ZeroInvalid && v == 0 {
			continue
		}

		valid = append(valid, v)
	}

	if len(valid) == 0 {
		return nil
	}

	var (
		replacement float64
		err         error
	)

	switch rule.Strategy {
	case config.StrategyMean:
		replacement, err = stats.Mean(valid)
	case config.StrategyMode:
		replacement, err = modeValue(valid)
	default:
		return fmt.Errorf("unknown strategy %q", rule.Strategy)
	}

	if err != nil {
		return err
	}

	text := formatNumber(replacement)

	for _, rec := range records {
		cur := rec.Get(rule.Field)

		needsFill := cur.IsMissing() || cur.State == models.Invalid
		if !needsFill && rule.ZeroInvalid {
			if v, ok := numericValue(cur); ok && v == 0 {
				needsFill = true
			}
		}

		if needsFill {
			rec.Set(rule.Field, models.TextValue(text))
		}
	}

	return nil
}

// modeValue returns the most frequent value; ties resolve to the smallest
// so repeated runs stay deterministic.
func modeValue(values []float64) (float64, error) {
	modes, err := stats.Mode(values)
	if err != nil {
		return 0, err
	}

	if len(modes) == 0 {
		// Every value unique; fall back to the smallest.
		return stats.Min(values)
	}

	return stats.Min(modes)
}

func numericValue(v models.Value) (float64, bool) {
	if v.State != models.Present {
		return 0, false
	}

	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// formatNumber renders integral results without a decimal point.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}

	return strconv.FormatFloat(v, 'f', 2, 64)
}
