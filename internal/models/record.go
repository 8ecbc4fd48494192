package models

import "strings"

// Record is one header-keyed row of a return-section extract.
// Records read from source are treated as immutable; derived rows are built as new maps.
type Record map[string]Value

// RecordFromStrings builds a text-only record from a parsed CSV row
func RecordFromStrings(fields map[string]string) Record {
	r := make(Record, len(fields))
	for k, v := range fields {
		r[k] = Text(v)
	}
	return r
}

// Clone returns a shallow copy that can be modified without touching the source
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Trimmed returns a copy with whitespace removed around every text field
func (r Record) Trimmed() Record {
	c := make(Record, len(r))
	for k, v := range r {
		if v.Kind() == KindText {
			c[k] = Text(strings.TrimSpace(v.String()))
			continue
		}
		c[k] = v
	}
	return c
}

// Has reports whether the key is present, regardless of its content
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}
