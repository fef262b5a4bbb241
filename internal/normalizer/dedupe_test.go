package normalizer

import (
	"testing"

	"recnorm/internal/config"
	"recnorm/internal/models"
)

func dedupeRec(title, url string) *models.Record {
	rec := models.NewRecord(1, []string{"title", "url"})
	rec.Set("title", models.TextValue(title))
	rec.Set("url", models.TextValue(url))

	return rec
}

func TestDeduplicator_FirstOccurrenceWins(t *testing.T) {
	d := NewDeduplicator(config.DedupeConfig{Title: "title", URL: "url"})

	first := dedupeRec("energy prices rise", "https://example.com/a")
	second := dedupeRec("energy prices rise", "https://example.com/a")

	if d.IsDuplicate(first) {
		t.Error("first occurrence marked duplicate")
	}

	if !d.IsDuplicate(second) {
		t.Error("second occurrence not marked duplicate")
	}
}

func TestDeduplicator_CanonicalURLIdentity(t *testing.T) {
	d := NewDeduplicator(config.DedupeConfig{Title: "title", URL: "url"})

	first := dedupeRec("story", "https://Example.com/Article/")
	second := dedupeRec("story", "https://example.com/article#section")

	if d.IsDuplicate(first) {
		t.Error("first occurrence marked duplicate")
	}

	if !d.IsDuplicate(second) {
		t.Error("case/fragment/slash variants not treated as one identity")
	}
}

func TestDeduplicator_Idempotent(t *testing.T) {
	records := []*models.Record{
		dedupeRec("a", "https://example.com/a"),
		dedupeRec("a", "https://example.com/a"),
		dedupeRec("b", "https://example.com/b"),
	}

	cfg := config.DedupeConfig{Title: "title", URL: "url"}

	pass := func(in []*models.Record) []*models.Record {
		d := NewDeduplicator(cfg)

		var out []*models.Record

		for _, rec := range in {
			if !d.IsDuplicate(rec) {
				out = append(out, rec)
			}
		}

		return out
	}

	once := pass(records)
	if len(once) != 2 {
		t.Fatalf("first pass kept %d records, want 2", len(once))
	}

	twice := pass(once)
	if len(twice) != len(once) {
		t.Errorf("second pass changed the table: %d -> %d records", len(once), len(twice))
	}
}

func TestDeduplicator_MissingIdentityNeverDuplicate(t *testing.T) {
	d := NewDeduplicator(config.DedupeConfig{Title: "title", URL: "url"})

	rec := models.NewRecord(1, []string{"title", "url"})
	rec.Set("title", models.MissingValue())
	rec.Set("url", models.MissingValue())

	if d.IsDuplicate(rec) || d.IsDuplicate(rec) {
		t.Error("records without identity fields must never be duplicates")
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://Example.com/A/", "https://example.com/a"},
		{"https://example.com/a#frag", "https://example.com/a"},
		{"  https://example.com/a  ", "https://example.com/a"},
	}

	for _, tt := range tests {
		if got := CanonicalURL(tt.raw); got != tt.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
