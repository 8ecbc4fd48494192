package compliance

import (
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/shopspring/decimal"
)

// SummaryReport describes how the HSN summary was checked against a reclassification
type SummaryReport struct {
	Adjusted    bool            `json:"adjusted"`
	TargetIndex int             `json:"target_index"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PreTotal    decimal.Decimal `json:"pre_total"`
	PostTotal   decimal.Decimal `json:"post_total"`
}

// Balanced reports whether the HSN taxable total survived reconciliation
func (r *SummaryReport) Balanced() bool {
	return r.PreTotal.Equal(r.PostTotal)
}

// ReconcileSummary picks the HSN line that absorbs the reclassified amount, the line
// with the largest taxable value (first one on ties). HSN totals cover B2B and B2C
// supplies alike, so moving invoices between sections leaves them unchanged and the
// rows are returned as given.
func ReconcileSummary(hsn []models.Record, ledger []models.ErrorEntry) ([]models.Record, *SummaryReport) {
	pre := hsnTotal(hsn)
	report := &SummaryReport{
		TargetIndex: -1,
		Amount:      decimal.Zero,
		PreTotal:    pre,
		PostTotal:   pre,
	}
	if len(ledger) == 0 || len(hsn) == 0 {
		return hsn, report
	}

	for _, e := range ledger {
		report.Amount = report.Amount.Add(e.TaxableValue)
	}

	target := 0
	max := amount(hsn[0], schema.TaxableValueFields)
	for i := 1; i < len(hsn); i++ {
		if v := amount(hsn[i], schema.TaxableValueFields); v.GreaterThan(max) {
			target, max = i, v
		}
	}

	report.Adjusted = true
	report.TargetIndex = target
	if v, ok := schema.FirstNonEmpty(hsn[target], schema.HSNCodeFields...); ok {
		report.HSNCode = v.String()
	}
	report.PostTotal = hsnTotal(hsn)

	return hsn, report
}

func hsnTotal(rows []models.Record) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(amount(row, schema.TaxableValueFields))
	}
	return total
}
