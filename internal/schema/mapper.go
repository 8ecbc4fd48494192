// Package schema maps source-dialect column names onto the canonical column
// headers of the GSTR-1 template, one mapping table per output sheet.
package schema

import (
	"fmt"
	"strings"

	"github.com/garyjia/gstr1-reconciler/internal/models"
)

// ColumnRule lists the source columns accepted for one template column, in priority order
type ColumnRule struct {
	TemplateColumn string
	Aliases        []string
}

// ColumnMapping is the ordered rule set for one sheet
type ColumnMapping []ColumnRule

// SheetMappings holds a ColumnMapping per template sheet
type SheetMappings map[string]ColumnMapping

// AliasesFor returns the configured aliases of a template column, or nil
func (m ColumnMapping) AliasesFor(templateColumn string) []string {
	for _, rule := range m {
		if rule.TemplateColumn == templateColumn {
			return rule.Aliases
		}
	}
	return nil
}

// Columns returns the template columns covered by the mapping, in declaration order
func (m ColumnMapping) Columns() []string {
	cols := make([]string, 0, len(m))
	for _, rule := range m {
		cols = append(cols, rule.TemplateColumn)
	}
	return cols
}

// ResolveColumn finds the row value feeding a template column. An exact header match
// wins; otherwise the first alias present in the row is used. Presence is what counts,
// so a present-but-blank column still resolves.
func ResolveColumn(templateColumn string, mapping ColumnMapping, row models.Record) (models.Value, bool) {
	if v, ok := row[templateColumn]; ok {
		return v, true
	}
	for _, alias := range mapping.AliasesFor(templateColumn) {
		if v, ok := row[alias]; ok {
			return v, true
		}
	}
	return models.Value{}, false
}

// FirstNonEmpty returns the first non-blank value among keys
func FirstNonEmpty(row models.Record, keys ...string) (models.Value, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && !v.IsEmpty() {
			return v, true
		}
	}
	return models.Value{}, false
}

// Dialect names the column-naming convention of an uploaded extract set
type Dialect string

// Supported dialects
const (
	DialectStandard Dialect = "standard"
	DialectTally    Dialect = "tally"
)

// ParseDialect validates a user-supplied dialect name; blank means standard
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectStandard:
		return DialectStandard, nil
	case DialectTally:
		return DialectTally, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %q", s)
	}
}

// MappingsFor returns the read-only mapping tables for a dialect
func MappingsFor(d Dialect) SheetMappings {
	if d == DialectTally {
		return tallyMappings
	}
	return standardMappings
}
