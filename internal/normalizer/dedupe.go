package normalizer

import (
	"strings"

	"recnorm/internal/config"
	"recnorm/internal/models"
)

// Deduplicator drops records whose (title, canonical URL) identity was
// already seen. Encounter order decides the survivor, so the pass is
// idempotent: deduping already-deduped output changes nothing.
type Deduplicator struct {
	seen map[string]bool
	cfg  config.DedupeConfig
}

// NewDeduplicator creates a new deduplicator instance.
func NewDeduplicator(cfg config.DedupeConfig) *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]bool),
		cfg:  cfg,
	}
}

// IsDuplicate reports whether the record's identity was seen before, and
// remembers it for later records.
func (d *Deduplicator) IsDuplicate(rec *models.Record) bool {
	if !d.cfg.Enabled() {
		return false
	}

	title := rec.Get(d.cfg.Title)
	url := rec.Get(d.cfg.URL)

	// Records without a usable identity are never considered duplicates.
	if title.State != models.Present || url.State != models.Present {
		return false
	}

	key := title.Text + "\x00" + CanonicalURL(url.Text)
	if d.seen[key] {
		return true
	}

	d.seen[key] = true

	return false
}

// CanonicalURL normalizes a URL for identity comparison: lowercased,
// fragment removed, trailing slash removed.
func CanonicalURL(raw string) string {
	url := strings.ToLower(strings.TrimSpace(raw))

	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}

	return strings.TrimSuffix(url, "/")
}
