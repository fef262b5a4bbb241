package models

// DispositionKind classifies what happened to a record.
type DispositionKind int

// Disposition kinds.
const (
	Kept DispositionKind = iota
	Dropped
	Flagged
)

// Disposition is the outcome attached to each record after normalization
// and cross-field checks. A Dropped record never appears in output; a
// Flagged record appears with its reason preserved.
type Disposition struct {
	Reason string
	Kind   DispositionKind
}

// Keep returns a kept disposition.
func Keep() Disposition {
	return Disposition{Kind: Kept}
}

// Drop returns a dropped disposition with the given reason.
func Drop(reason string) Disposition {
	return Disposition{Kind: Dropped, Reason: reason}
}

// Flag returns a flagged disposition with the given reason.
func Flag(reason string) Disposition {
	return Disposition{Kind: Flagged, Reason: reason}
}

// String returns a human-readable form for logs and reports.
func (d Disposition) String() string {
	switch d.Kind {
	case Dropped:
		return "dropped: " + d.Reason
	case Flagged:
		return "flagged: " + d.Reason
	default:
		return "kept"
	}
}
