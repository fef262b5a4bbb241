// Package models defines data structures for the record normalizer pipeline.
package models

import "time"

// ValueState distinguishes the sentinel states a field value can be in.
type ValueState int

// Value states. ExplicitMissing means the field was absent or empty in the
// source; PlaceholderMissing means the source held a literal missing marker
// ("NA", "-", ...). The two stay distinct until export formatting.
const (
	Present ValueState = iota
	ExplicitMissing
	PlaceholderMissing
	Invalid
)

// Value is a single normalized field value with its sentinel state.
// Date is set only when the value was parsed by the date rules.
type Value struct {
	Date  time.Time
	Text  string
	State ValueState
}

// TextValue returns a present value holding the given text.
func TextValue(s string) Value {
	return Value{Text: s, State: Present}
}

// MissingValue returns an explicit-missing sentinel.
func MissingValue() Value {
	return Value{State: ExplicitMissing}
}

// PlaceholderValue returns a placeholder-missing sentinel, keeping the raw
// marker text for the dropped-rows sidecar.
func PlaceholderValue(raw string) Value {
	return Value{Text: raw, State: PlaceholderMissing}
}

// InvalidValue returns an invalid sentinel, keeping the raw token.
func InvalidValue(raw string) Value {
	return Value{Text: raw, State: Invalid}
}

// DateValue returns a present value for a parsed calendar date.
func DateValue(t time.Time) Value {
	return Value{Date: t, Text: t.Format("2006-01-02"), State: Present}
}

// IsDate reports whether the value holds a parsed calendar date.
func (v Value) IsDate() bool {
	return v.State == Present && !v.Date.IsZero()
}

// IsMissing reports whether the value is in either missing state.
func (v Value) IsMissing() bool {
	return v.State == ExplicitMissing || v.State == PlaceholderMissing
}

// Render formats the value for output. Both missing states and invalid
// tokens collapse onto the unknown label here and only here.
func (v Value) Render(unknown string) string {
	if v.State == Present {
		return v.Text
	}

	return unknown
}

// RawRecord is one row as read from the source, before any rule runs.
// A field absent from Fields was absent from the source row.
type RawRecord struct {
	Fields map[string]string
	Line   int
}

// Table is an in-memory batch of raw rows sharing one column order.
type Table struct {
	Columns []string
	Rows    []RawRecord
}

// Record is a normalized row. Columns preserves output field order, which
// can differ from the raw order when derived fields replace originals.
type Record struct {
	Values      map[string]Value
	Columns     []string
	Disposition Disposition
	Line        int
}

// NewRecord creates an empty normalized record for the given source line.
func NewRecord(line int, columns []string) *Record {
	return &Record{
		Values:  make(map[string]Value, len(columns)),
		Columns: columns,
		Line:    line,
	}
}

// Get returns the value for a field, or an explicit-missing sentinel if the
// field does not exist on this record.
func (r *Record) Get(name string) Value {
	if v, ok := r.Values[name]; ok {
		return v
	}

	return MissingValue()
}

// Set stores a value for a field.
func (r *Record) Set(name string, v Value) {
	r.Values[name] = v
}
