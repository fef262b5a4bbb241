package models

import "time"

// DroppedRecord preserves a dropped row's raw fields and the reason it was
// removed, for the optional sidecar file.
type DroppedRecord struct {
	Fields map[string]string
	Reason string
	Line   int
}

// BatchSummary aggregates one normalization run.
type BatchSummary struct {
	Reasons  map[string]int
	BatchID  string
	Duration time.Duration
	Input    int
	Kept     int
	Dropped  int
	Flagged  int
}

// Result is the output of one batch: the surviving normalized records
// (kept and flagged), the dropped rows with reasons, and the summary.
type Result struct {
	Records []*Record
	Dropped []DroppedRecord
	Summary BatchSummary
}
