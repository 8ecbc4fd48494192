package workbook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/shopspring/decimal"
)

var (
	shortDatePattern   = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{2})$`)
	stateCodePrefix    = regexp.MustCompile(`^\d+-\s*`)
	numericCellPattern = regexp.MustCompile(`^-?\d+(\.\d*)?$`)
)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// cellValue is what actually gets written to a sheet cell
type cellValue struct {
	number bool
	num    decimal.Decimal
	text   string
}

func textCell(s string) cellValue {
	return cellValue{text: s}
}

func numberCell(d decimal.Decimal) cellValue {
	return cellValue{number: true, num: d}
}

func isRateHeader(header string) bool {
	return header == "Rate" || header == "GST%"
}

func isReverseChargeHeader(header string) bool {
	return header == "RCM Applicable" || header == "RCM" || header == "Reverse Charge"
}

func isInvoiceTypeHeader(header string) bool {
	return header == "Invoice Type" || header == "Note Supply Type"
}

// normalizeCell applies the portal's formatting rules for a template column
func normalizeCell(header string, v models.Value, ok bool) cellValue {
	if !ok || v.IsEmpty() {
		if isRateHeader(header) {
			return numberCell(decimal.Zero)
		}
		return textCell("")
	}
	if v.IsNumber() {
		d, _ := v.Decimal()
		return numberCell(d)
	}

	s := strings.TrimSpace(v.String())
	lower := strings.ToLower(header)

	if strings.Contains(lower, "place of supply") {
		s = strings.TrimSpace(stateCodePrefix.ReplaceAllString(s, ""))
	}
	if isInvoiceTypeHeader(header) {
		s = strings.Replace(s, " B2B", "", 1)
		s = strings.TrimSpace(strings.Replace(s, " B2C", "", 1))
	}
	if isReverseChargeHeader(header) {
		switch s {
		case "Y":
			s = "Yes"
		case "N":
			s = "No"
		}
	}
	if strings.Contains(lower, "date") {
		s = normalizeDate(s)
	}

	return parseCell(s)
}

// normalizeDate rewrites dd-Mon-yy as dd-mm-20yy; anything else is returned as is
func normalizeDate(s string) string {
	m := shortDatePattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	month, ok := monthNumbers[strings.ToLower(m[2])]
	if !ok {
		return s
	}
	var day int
	fmt.Sscanf(m[1], "%d", &day)
	return fmt.Sprintf("%02d-%02d-20%s", day, month, m[3])
}

// parseCell stores numeric-looking text as a number, thousands separators ignored
func parseCell(s string) cellValue {
	clean := strings.ReplaceAll(s, ",", "")
	if numericCellPattern.MatchString(clean) {
		if d, err := decimal.NewFromString(clean); err == nil {
			return numberCell(d)
		}
	}
	return textCell(s)
}
