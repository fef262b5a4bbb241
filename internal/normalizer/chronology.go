package normalizer

import (
	"recnorm/internal/config"
	"recnorm/internal/models"
)

// Disposition reasons produced by cross-field checks.
const (
	ReasonConsultationPrecedesArrival = "consultation precedes arrival"
	ReasonNoReturn                    = "no return"
	ReasonNonCausalOrdering           = "non-causal ordering"
	ReasonDuplicate                   = "duplicate"
)

// ChronologyValidator enforces ordering between the three related date
// fields of one record. The rules run in a fixed order and the first match
// wins; the drop/flag asymmetry is deliberate and must not be generalized.
// Date fields are never imputed from each other's distribution.
type ChronologyValidator struct {
	cfg config.ChronologyConfig
}

// NewChronologyValidator creates a new validator instance.
func NewChronologyValidator(cfg config.ChronologyConfig) *ChronologyValidator {
	return &ChronologyValidator{cfg: cfg}
}

// Evaluate produces the record's disposition. A flagged early next-visit is
// repaired in place: the date is replaced with the no-return marker, the
// record is kept.
func (v *ChronologyValidator) Evaluate(rec *models.Record) models.Disposition {
	if !v.cfg.Enabled() {
		return models.Keep()
	}

	arrival := rec.Get(v.cfg.Arrival)
	consultation := rec.Get(v.cfg.Consultation)
	nextVisit := rec.Get(v.cfg.NextVisit)

	// 1. Consultation cannot precede arrival.
	if arrival.IsDate() && consultation.IsDate() && consultation.Date.Before(arrival.Date) {
		return models.Drop(ReasonConsultationPrecedesArrival)
	}

	// 2. Next visit before the consultation means the patient never came
	// back; keep the record but replace the date with the marker.
	if consultation.IsDate() && nextVisit.IsDate() && nextVisit.Date.Before(consultation.Date) {
		rec.Set(v.cfg.NextVisit, models.TextValue(v.cfg.Marker()))

		return models.Flag(ReasonNoReturn)
	}

	// 3. A missing arrival with a consistent consultation/next-visit pair is
	// fine as-is; arrival stays not-a-date. There is no meaningful central
	// tendency to back-fill an arrival date from.
	if !arrival.IsDate() && consultation.IsDate() && nextVisit.IsDate() {
		return models.Keep()
	}

	// 4. Arrival after the next visit is not causally possible.
	if arrival.IsDate() && nextVisit.IsDate() && arrival.Date.After(nextVisit.Date) {
		return models.Drop(ReasonNonCausalOrdering)
	}

	return models.Keep()
}
