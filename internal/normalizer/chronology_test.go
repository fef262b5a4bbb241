package normalizer

import (
	"testing"
	"time"

	"recnorm/internal/config"
	"recnorm/internal/models"
)

func chronoConfig() config.ChronologyConfig {
	return config.ChronologyConfig{
		Arrival:        "arrival_date",
		Consultation:   "first_consultation",
		NextVisit:      "next_visit",
		NoReturnMarker: "no return",
	}
}

func dateRec(t *testing.T, arrival, consultation, nextVisit string) *models.Record {
	t.Helper()

	rec := models.NewRecord(1, []string{"arrival_date", "first_consultation", "next_visit"})

	set := func(name, iso string) {
		if iso == "" {
			rec.Set(name, models.MissingValue())

			return
		}

		parsed, err := time.Parse("2006-01-02", iso)
		if err != nil {
			t.Fatalf("bad date in test: %v", err)
		}

		rec.Set(name, models.DateValue(parsed))
	}

	set("arrival_date", arrival)
	set("first_consultation", consultation)
	set("next_visit", nextVisit)

	return rec
}

func TestChronologyValidator_ConsultationPrecedesArrival(t *testing.T) {
	v := NewChronologyValidator(chronoConfig())

	rec := dateRec(t, "2020-01-10", "2020-01-05", "")

	d := v.Evaluate(rec)
	if d.Kind != models.Dropped || d.Reason != ReasonConsultationPrecedesArrival {
		t.Errorf("disposition = %v, want dropped(%s)", d, ReasonConsultationPrecedesArrival)
	}
}

func TestChronologyValidator_NoReturn(t *testing.T) {
	v := NewChronologyValidator(chronoConfig())

	rec := dateRec(t, "", "2020-01-05", "2020-01-01")

	d := v.Evaluate(rec)
	if d.Kind != models.Flagged || d.Reason != ReasonNoReturn {
		t.Fatalf("disposition = %v, want flagged(%s)", d, ReasonNoReturn)
	}

	// The record is kept and the early date replaced, not deleted.
	nv := rec.Get("next_visit")
	if nv.State != models.Present || nv.Text != "no return" {
		t.Errorf("next_visit = %q (state %d), want the no-return marker", nv.Text, nv.State)
	}
}

func TestChronologyValidator_MissingArrivalStaysMissing(t *testing.T) {
	v := NewChronologyValidator(chronoConfig())

	rec := dateRec(t, "", "2020-02-01", "2020-03-01")

	d := v.Evaluate(rec)
	if d.Kind != models.Kept {
		t.Fatalf("disposition = %v, want kept", d)
	}

	// Arrival is never back-filled from the other dates.
	if !rec.Get("arrival_date").IsMissing() {
		t.Error("arrival_date was imputed, want missing")
	}
}

func TestChronologyValidator_NonCausalOrdering(t *testing.T) {
	v := NewChronologyValidator(chronoConfig())

	rec := dateRec(t, "2020-05-01", "", "2020-04-01")

	d := v.Evaluate(rec)
	if d.Kind != models.Dropped || d.Reason != ReasonNonCausalOrdering {
		t.Errorf("disposition = %v, want dropped(%s)", d, ReasonNonCausalOrdering)
	}
}

func TestChronologyValidator_ConsistentRecordKept(t *testing.T) {
	v := NewChronologyValidator(chronoConfig())

	rec := dateRec(t, "2020-01-01", "2020-01-05", "2020-02-01")

	d := v.Evaluate(rec)
	if d.Kind != models.Kept {
		t.Errorf("disposition = %v, want kept", d)
	}
}

func TestChronologyValidator_Disabled(t *testing.T) {
	v := NewChronologyValidator(config.ChronologyConfig{})

	rec := dateRec(t, "2020-01-10", "2020-01-05", "")

	if d := v.Evaluate(rec); d.Kind != models.Kept {
		t.Errorf("disabled validator disposition = %v, want kept", d)
	}
}
