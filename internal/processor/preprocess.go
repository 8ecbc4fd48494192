package processor

import (
	"strings"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
)

// preprocess applies the sheet-specific clean-up before rows reach the template
func preprocess(sheet, fileName string, rows []models.Record, mapping schema.ColumnMapping) []models.Record {
	switch sheet {
	case schema.SheetDocsIssued:
		return docsIssuedRows(rows, mapping)
	case schema.SheetHSN:
		return hsnRows(rows, fileName)
	default:
		out := make([]models.Record, len(rows))
		for i, row := range rows {
			out[i] = row.Trimmed()
		}
		return out
	}
}

// docsIssuedRows rebuilds each row with canonical headers and derives
// Net Issued = Total Number - Cancelled
func docsIssuedRows(rows []models.Record, mapping schema.ColumnMapping) []models.Record {
	text := func(row models.Record, column string) models.Value {
		keys := append([]string{column}, mapping.AliasesFor(column)...)
		if v, ok := schema.FirstNonEmpty(row, keys...); ok {
			return v
		}
		return models.Text("")
	}

	out := make([]models.Record, len(rows))
	for i, raw := range rows {
		row := raw.Trimmed()
		total := row["Total Number"].AmountOrZero()
		cancelled := row["Cancelled"].AmountOrZero()
		out[i] = models.Record{
			"Nature of Document":       text(row, "Nature of Document"),
			"Sr.No.From":               text(row, "Sr.No.From"),
			"Sr.No.To":                 text(row, "Sr.No.To"),
			"Total Number":             models.Number(total),
			"Cancelled":                models.Number(cancelled),
			schema.DocsNetIssuedColumn: models.Number(total.Sub(cancelled)),
		}
	}
	return out
}

// hsnRows tags rows with the supply type named in the file and defaults a blank rate to 0
func hsnRows(rows []models.Record, fileName string) []models.Record {
	upper := strings.ToUpper(fileName)
	supplyType := ""
	switch {
	case strings.Contains(upper, "B2B"):
		supplyType = "B2B"
	case strings.Contains(upper, "B2C"):
		supplyType = "B2C"
	}

	out := make([]models.Record, len(rows))
	for i, raw := range rows {
		row := raw.Trimmed()
		if supplyType != "" {
			row["Type"] = models.Text(supplyType)
		}
		if _, ok := schema.FirstNonEmpty(row, "Rate", "rt"); !ok {
			row["Rate"] = models.Int(0)
		}
		out[i] = row
	}
	return out
}
