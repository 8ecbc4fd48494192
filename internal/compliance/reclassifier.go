// Package compliance moves B2B invoices with unverifiable counterparties into the
// B2C-small section and keeps the HSN summary consistent with the move.
package compliance

import (
	"context"
	"fmt"

	"github.com/garyjia/gstr1-reconciler/internal/gateway"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultRegionCode is used for migrated rows when neither the invoice nor the
// filing party supplies a place of supply
const DefaultRegionCode = "01"

// UnknownInvoiceNumber fills the ledger when an invoice carries no number
const UnknownInvoiceNumber = "N/A"

// Reclassifier partitions B2B rows by counterparty verification
type Reclassifier struct {
	verifier    gateway.Verifier
	concurrency int
	logger      *zap.Logger
}

// NewReclassifier creates a Reclassifier. concurrency bounds in-flight registry
// lookups; values below 1 mean sequential.
func NewReclassifier(verifier gateway.Verifier, concurrency int, logger *zap.Logger) *Reclassifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reclassifier{
		verifier:    verifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Reclassify verifies every row's counterparty. Valid rows pass through untouched,
// failing rows become b2cs records plus an error ledger entry. Output order follows
// input order whatever the concurrency. The only error is context cancellation.
func (r *Reclassifier) Reclassify(ctx context.Context, rawRecords []models.Record, partyRegionCode string) (*models.ReconciliationResult, error) {
	result := &models.ReconciliationResult{
		ValidRecords:        []models.Record{},
		MigratedRecords:     []models.Record{},
		ErrorLedger:         []models.ErrorEntry{},
		TotalTaxableShifted: decimal.Zero,
	}
	if len(rawRecords) == 0 {
		return result, nil
	}

	verdicts, err := r.verifyAll(ctx, rawRecords)
	if err != nil {
		return nil, err
	}

	for i, row := range rawRecords {
		if verdicts[i].Valid {
			result.ValidRecords = append(result.ValidRecords, row)
			continue
		}

		entry := newErrorEntry(row, verdicts[i].Reason)
		result.ErrorLedger = append(result.ErrorLedger, entry)
		result.MigratedRecords = append(result.MigratedRecords, migrate(row, partyRegionCode))
		result.TotalTaxableShifted = result.TotalTaxableShifted.Add(entry.TaxableValue)
	}

	r.logger.Info("B2B reclassification completed",
		zap.Int("total", len(rawRecords)),
		zap.Int("valid", len(result.ValidRecords)),
		zap.Int("migrated", len(result.MigratedRecords)),
		zap.String("taxable_shifted", result.TotalTaxableShifted.String()))

	return result, nil
}

// verifyAll collects one verdict per row, indexed like the input
func (r *Reclassifier) verifyAll(ctx context.Context, rows []models.Record) ([]models.Verdict, error) {
	verdicts := make([]models.Verdict, len(rows))

	if r.concurrency == 1 {
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("failed to verify counterparties: %w", err)
			}
			verdicts[i] = r.verifier.Verify(ctx, counterpartyID(row))
		}
		return verdicts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, row := range rows {
		i, id := i, counterpartyID(row)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = r.verifier.Verify(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to verify counterparties: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to verify counterparties: %w", err)
	}
	return verdicts, nil
}

func counterpartyID(row models.Record) string {
	v, ok := schema.FirstNonEmpty(row, schema.CounterpartyIDFields...)
	if !ok {
		return ""
	}
	return v.String()
}

func amount(row models.Record, fields []string) decimal.Decimal {
	v, ok := schema.FirstNonEmpty(row, fields...)
	if !ok {
		return decimal.Zero
	}
	return v.AmountOrZero()
}

func newErrorEntry(row models.Record, reason models.ReasonCode) models.ErrorEntry {
	invoiceNumber := UnknownInvoiceNumber
	if v, ok := schema.FirstNonEmpty(row, schema.InvoiceNumberFields...); ok {
		invoiceNumber = v.String()
	}
	return models.ErrorEntry{
		InvoiceNumber:  invoiceNumber,
		CounterpartyID: counterpartyID(row),
		Reason:         reason,
		TaxableValue:   amount(row, schema.TaxableValueFields),
		CentralTax:     amount(row, schema.CentralTaxFields),
		StateTax:       amount(row, schema.StateTaxFields),
		IntegratedTax:  amount(row, schema.IntegratedTaxFields),
		Rate:           amount(row, schema.RateFields),
	}
}

// migrate builds a fresh b2cs record; the source row is not modified
func migrate(row models.Record, partyRegionCode string) models.Record {
	pos := models.Text(regionCode(partyRegionCode))
	if v, ok := schema.FirstNonEmpty(row, schema.PlaceOfSupplyFields...); ok {
		pos = v
	}
	return models.Record{
		models.FieldPlaceOfSupply: pos,
		models.FieldRate:          models.Number(amount(row, schema.RateFields)),
		models.FieldTaxableValue:  models.Number(amount(row, schema.TaxableValueFields)),
		models.FieldIntegratedTax: models.Number(amount(row, schema.IntegratedTaxFields)),
		models.FieldCentralTax:    models.Number(amount(row, schema.CentralTaxFields)),
		models.FieldStateTax:      models.Number(amount(row, schema.StateTaxFields)),
		models.FieldType:          models.Text(models.MigratedTypeOE),
	}
}

// regionCode takes the state code prefix of the party GSTIN
func regionCode(partyRegionCode string) string {
	if len(partyRegionCode) >= 2 {
		return partyRegionCode[:2]
	}
	return DefaultRegionCode
}
