package schema

import (
	"testing"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumn(t *testing.T) {
	mapping := MappingsFor(DialectStandard)[SheetB2B]

	tests := []struct {
		name     string
		column   string
		row      models.Record
		expected string
		found    bool
	}{
		{
			name:     "exact template header wins over aliases",
			column:   "Invoice No",
			row:      models.Record{"Invoice No": models.Text("A-1"), "Invoice Number": models.Text("B-2")},
			expected: "A-1",
			found:    true,
		},
		{
			name:     "falls back to the first configured alias",
			column:   "GSTIN/UIN",
			row:      models.Record{"GSTIN/UIN of Recipient": models.Text("27AAAAA0000A1Z5")},
			expected: "27AAAAA0000A1Z5",
			found:    true,
		},
		{
			name:     "alias order decides between two present aliases",
			column:   "GSTIN/UIN",
			row:      models.Record{"gstin": models.Text("second"), "ctin": models.Text("first")},
			expected: "first",
			found:    true,
		},
		{
			name:     "present but blank alias still resolves",
			column:   "CESS",
			row:      models.Record{"Cess Amount": models.Text("")},
			expected: "",
			found:    true,
		},
		{
			name:   "absent when neither header nor alias is present",
			column: "E-Commerce GSTIN",
			row:    models.Record{"Invoice Number": models.Text("X")},
			found:  false,
		},
		{
			name:   "unknown template column only matches exactly",
			column: "Not A Column",
			row:    models.Record{"Invoice Number": models.Text("X")},
			found:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ResolveColumn(tt.column, mapping, tt.row)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, v.String())
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	row := models.Record{"ctin": models.Text("  "), "gstin": models.Text("29BBBBB1111B1Z1")}

	v, ok := FirstNonEmpty(row, CounterpartyIDFields...)
	require.True(t, ok)
	assert.Equal(t, "29BBBBB1111B1Z1", v.String())

	_, ok = FirstNonEmpty(models.Record{}, CounterpartyIDFields...)
	assert.False(t, ok)
}

func TestMappingsFor_TallyOverridesDocsIssued(t *testing.T) {
	standard := MappingsFor(DialectStandard)
	tally := MappingsFor(DialectTally)

	row := models.Record{"Sr. No. From": models.Text("INV/001")}

	_, ok := ResolveColumn("Sr.No.From", standard[SheetDocsIssued], row)
	assert.False(t, ok, "standard dialect does not know the spaced header")

	v, ok := ResolveColumn("Sr.No.From", tally[SheetDocsIssued], row)
	require.True(t, ok)
	assert.Equal(t, "INV/001", v.String())

	assert.Equal(t, standard[SheetB2B], tally[SheetB2B], "other sheets are shared")
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, DialectStandard, d)

	d, err = ParseDialect(" Tally ")
	require.NoError(t, err)
	assert.Equal(t, DialectTally, d)

	_, err = ParseDialect("sap")
	assert.Error(t, err)
}

func TestSheetForFile(t *testing.T) {
	tests := []struct {
		fileName string
		sheet    string
		found    bool
	}{
		{fileName: "hsn_b2b.csv", sheet: SheetHSN, found: true},
		{fileName: "B2B_April.csv", sheet: SheetB2B, found: true},
		{fileName: "b2cl.csv", sheet: SheetB2CL, found: true},
		{fileName: "b2cs.csv", sheet: SheetB2CS, found: true},
		{fileName: "exp.csv", sheet: SheetExport, found: true},
		{fileName: "exemp.csv", sheet: SheetExempt, found: true},
		{fileName: "cdnr.csv", sheet: SheetCDNR, found: true},
		{fileName: "cdnur.csv", sheet: SheetCDNUR, found: true},
		{fileName: "atadj.csv", sheet: SheetAdvanceAdjust, found: true},
		{fileName: "at.csv", sheet: SheetAdvanceTax, found: true},
		{fileName: "docs.csv", sheet: SheetDocsIssued, found: true},
		{fileName: "ledger.csv", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			sheet, ok := SheetForFile(tt.fileName)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.sheet, sheet)
		})
	}
}
