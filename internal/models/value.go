package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
)

// Value is a cell-level datum read from a source extract or derived from one.
// It is either text or an exact decimal number.
type Value struct {
	kind ValueKind
	text string
	num  decimal.Decimal
}

// Text wraps a string
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number wraps a decimal
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

// Int wraps an integer
func Int(n int64) Value {
	return Number(decimal.NewFromInt(n))
}

// Kind returns the variant tag
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNumber reports whether the value holds a number
func (v Value) IsNumber() bool {
	return v.kind == KindNumber
}

// IsEmpty reports whether the value is blank text. Numbers are never empty, zero included.
func (v Value) IsEmpty() bool {
	return v.kind == KindText && strings.TrimSpace(v.text) == ""
}

// String renders the value as text. Numbers use their shortest exact form.
func (v Value) String() string {
	if v.kind == KindNumber {
		return v.num.String()
	}
	return v.text
}

// Decimal returns the numeric reading of the value. Text is parsed with ParseAmount.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind == KindNumber {
		return v.num, true
	}
	return ParseAmount(v.text)
}

// AmountOrZero returns the numeric reading of the value, or zero when it has none
func (v Value) AmountOrZero() decimal.Decimal {
	d, ok := v.Decimal()
	if !ok {
		return decimal.Zero
	}
	return d
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber {
		return []byte(v.num.String()), nil
	}
	return json.Marshal(v.text)
}

// ParseAmount parses a monetary or quantity string. Thousands separators and
// surrounding whitespace are ignored; anything else that is not a number fails.
func ParseAmount(s string) (decimal.Decimal, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
