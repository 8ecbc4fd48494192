package schema

import "strings"

// Template sheet names
const (
	SheetB2B            = "b2b"
	SheetB2CL           = "b2cl"
	SheetB2CS           = "b2cs"
	SheetExport         = "export"
	SheetExempt         = "Nil_exempt_NonGST"
	SheetCDNR           = "cdnr"
	SheetCDNUR          = "cdnur"
	SheetAdvanceTax     = "adv_tax"
	SheetAdvanceAdjust  = "adv_tax_adjusted"
	SheetDocsIssued     = "Docs_issued"
	SheetHSN            = "hsn"
	ExemptKeyColumn     = "Description"
	DocsNetIssuedColumn = "Net Issued"
)

type sheetRule struct {
	keyword string
	exclude string
	sheet   string
}

// Order matters: the first matching keyword decides the sheet.
var sheetRules = []sheetRule{
	{keyword: "HSN", sheet: SheetHSN},
	{keyword: "B2B", sheet: SheetB2B},
	{keyword: "B2CL", sheet: SheetB2CL},
	{keyword: "B2CS", sheet: SheetB2CS},
	{keyword: "EXP", sheet: SheetExport},
	{keyword: "EXEMP", sheet: SheetExempt},
	{keyword: "CDNR", exclude: "CDNUR", sheet: SheetCDNR},
	{keyword: "CDNUR", sheet: SheetCDNUR},
	{keyword: "ATADJ", sheet: SheetAdvanceAdjust},
	{keyword: "AT", exclude: "ATADJ", sheet: SheetAdvanceTax},
	{keyword: "DOC", sheet: SheetDocsIssued},
}

// SheetForFile resolves the template sheet an extract belongs to from its file name
func SheetForFile(fileName string) (string, bool) {
	upper := strings.ToUpper(fileName)
	for _, rule := range sheetRules {
		if !strings.Contains(upper, rule.keyword) {
			continue
		}
		if rule.exclude != "" && strings.Contains(upper, rule.exclude) {
			continue
		}
		return rule.sheet, true
	}
	return "", false
}
