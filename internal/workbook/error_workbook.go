package workbook

import (
	"fmt"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrorSheetName is the only sheet of the error list workbook
const ErrorSheetName = "Compliance Errors"

var errorListHeaders = []interface{}{
	"Invoice Number", "GSTIN", "Error Reason", "Taxable Value", "CGST", "SGST", "IGST", "GST Rate",
}

// BuildErrorWorkbook renders the error ledger as a single-sheet xlsx
func BuildErrorWorkbook(ledger []models.ErrorEntry) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", ErrorSheetName); err != nil {
		return nil, fmt.Errorf("failed to name error sheet: %w", err)
	}

	if err := file.SetSheetRow(ErrorSheetName, "A1", &errorListHeaders); err != nil {
		return nil, fmt.Errorf("failed to write error list header: %w", err)
	}
	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF2CC"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := file.SetCellStyle(ErrorSheetName, "A1", "H1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style error list header: %w", err)
	}
	if err := file.SetColWidth(ErrorSheetName, "A", "C", 22); err != nil {
		return nil, fmt.Errorf("failed to size error list columns: %w", err)
	}

	for i, e := range ledger {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address cell: %w", err)
		}
		values := []interface{}{
			e.InvoiceNumber,
			e.CounterpartyID,
			string(e.Reason),
			e.TaxableValue.InexactFloat64(),
			e.CentralTax.InexactFloat64(),
			e.StateTax.InexactFloat64(),
			e.IntegratedTax.InexactFloat64(),
			e.Rate.InexactFloat64(),
		}
		if err := file.SetSheetRow(ErrorSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write error row %d: %w", i+1, err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write error workbook: %w", err)
	}
	return buf.Bytes(), nil
}
