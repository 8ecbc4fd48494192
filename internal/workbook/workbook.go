// Package workbook fills the bundled GSTR-1 xlsx template and writes it back out.
package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// headerRow is the 1-based row holding the template column names
const headerRow = 1

// TemplateWorkbook is an in-memory copy of the template owned by a single run
type TemplateWorkbook struct {
	file   *excelize.File
	logger *zap.Logger
}

// LoadTemplate parses an xlsx package
func LoadTemplate(blob []byte, logger *zap.Logger) (*TemplateWorkbook, error) {
	file, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateCorrupted, err)
	}
	return &TemplateWorkbook{file: file, logger: logger}, nil
}

// SheetNames lists the sheets in workbook order
func (w *TemplateWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// HasSheet reports whether the workbook contains the sheet
func (w *TemplateWorkbook) HasSheet(sheet string) bool {
	idx, err := w.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// UsedRange returns the declared dimension of a sheet, e.g. "A1:K12"
func (w *TemplateWorkbook) UsedRange(sheet string) (string, error) {
	if !w.HasSheet(sheet) {
		return "", fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	ref, err := w.file.GetSheetDimension(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to read dimension of %s: %w", sheet, err)
	}
	return ref, nil
}

// Rows returns the sheet contents as text, row 1 first
func (w *TemplateWorkbook) Rows(sheet string) ([][]string, error) {
	if !w.HasSheet(sheet) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", sheet, err)
	}
	return rows, nil
}

// AppendRows writes one row per record after the last non-empty row of the sheet.
// Each template header is resolved against the record through mapping; headers the
// record cannot supply get an empty cell.
func (w *TemplateWorkbook) AppendRows(sheet string, rows []models.Record, mapping schema.ColumnMapping) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := w.Rows(sheet)
	if err != nil {
		return err
	}
	headers, err := w.headers(sheet, existing)
	if err != nil {
		return err
	}

	start := lastNonEmptyRow(existing) + 1
	for i, row := range rows {
		rowNum := start + i
		for col, header := range headers {
			if header == "" {
				continue
			}
			v, ok := schema.ResolveColumn(header, mapping, row)
			if err := w.setCell(sheet, col+1, rowNum, normalizeCell(header, v, ok)); err != nil {
				return err
			}
		}
	}

	lastRow := start + len(rows) - 1
	if err := w.extendDimension(sheet, len(headers), lastRow); err != nil {
		return err
	}

	w.logger.Debug("Rows appended to sheet",
		zap.String("sheet", sheet),
		zap.Int("first_row", start),
		zap.Int("row_count", len(rows)))

	return nil
}

// UpsertByKeyColumn updates pre-filled rows of a fixed-layout sheet. For each record the
// first existing row whose key cell equals the record's key is overwritten, column by
// column, for every template column the record resolves. The key cell itself is kept.
// Records without a matching row are skipped.
func (w *TemplateWorkbook) UpsertByKeyColumn(sheet string, rows []models.Record, mapping schema.ColumnMapping, keyColumn string) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := w.Rows(sheet)
	if err != nil {
		return err
	}
	headers, err := w.headers(sheet, existing)
	if err != nil {
		return err
	}

	keyIdx := -1
	for i, h := range headers {
		if h == keyColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return fmt.Errorf("%w: %s in %s", ErrKeyColumnNotFound, keyColumn, sheet)
	}

	for _, row := range rows {
		key, ok := schema.ResolveColumn(keyColumn, mapping, row)
		if !ok || key.IsEmpty() {
			continue
		}
		target := findKeyRow(existing, keyIdx, strings.TrimSpace(key.String()))
		if target < 0 {
			w.logger.Debug("No template row for key, skipping",
				zap.String("sheet", sheet),
				zap.String("key", key.String()))
			continue
		}

		for col, header := range headers {
			if header == "" || col == keyIdx {
				continue
			}
			v, ok := schema.ResolveColumn(header, mapping, row)
			if !ok {
				continue
			}
			cell := parseCell(strings.TrimSpace(v.String()))
			if v.IsEmpty() {
				cell = numberCell(decimal.Zero)
			}
			if err := w.setCell(sheet, col+1, target+1, cell); err != nil {
				return err
			}
		}
	}

	return nil
}

// Serialize writes the complete xlsx package
func (w *TemplateWorkbook) Serialize() ([]byte, error) {
	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the underlying package
func (w *TemplateWorkbook) Close() error {
	return w.file.Close()
}

// headers reads the template column names across the declared width of the sheet
func (w *TemplateWorkbook) headers(sheet string, rows [][]string) ([]string, error) {
	width := 0
	if len(rows) >= headerRow {
		width = len(rows[headerRow-1])
	}
	ref, err := w.file.GetSheetDimension(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read dimension of %s: %w", sheet, err)
	}
	if _, _, endCol, _, ok := parseRange(ref); ok && endCol > width {
		width = endCol
	}

	headers := make([]string, width)
	if len(rows) >= headerRow {
		for i, h := range rows[headerRow-1] {
			headers[i] = strings.TrimSpace(h)
		}
	}
	return headers, nil
}

func (w *TemplateWorkbook) setCell(sheet string, col, row int, v cellValue) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if v.number {
		err = w.file.SetCellFloat(sheet, cell, v.num.InexactFloat64(), -1, 64)
	} else {
		err = w.file.SetCellStr(sheet, cell, v.text)
	}
	if err != nil {
		return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// extendDimension grows the declared used range to cover cols x lastRow
func (w *TemplateWorkbook) extendDimension(sheet string, cols, lastRow int) error {
	ref, err := w.file.GetSheetDimension(sheet)
	if err != nil {
		return fmt.Errorf("failed to read dimension of %s: %w", sheet, err)
	}
	startCol, startRow := 1, 1
	if c1, r1, c2, r2, ok := parseRange(ref); ok {
		startCol, startRow = c1, r1
		if c2 > cols {
			cols = c2
		}
		if r2 > lastRow {
			lastRow = r2
		}
	}
	if cols < 1 {
		cols = 1
	}

	topLeft, err := excelize.CoordinatesToCellName(startCol, startRow)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	bottomRight, err := excelize.CoordinatesToCellName(cols, lastRow)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if err := w.file.SetSheetDimension(sheet, topLeft+":"+bottomRight); err != nil {
		return fmt.Errorf("failed to update dimension of %s: %w", sheet, err)
	}
	return nil
}

// parseRange splits "A1:K12" (or a single cell) into 1-based coordinates
func parseRange(ref string) (col1, row1, col2, row2 int, ok bool) {
	if ref == "" {
		return 0, 0, 0, 0, false
	}
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	col1, row1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	col2, row2, err = excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	return col1, row1, col2, row2, true
}

// lastNonEmptyRow returns the 1-based index of the last row holding any text, at
// least the header row
func lastNonEmptyRow(rows [][]string) int {
	for i := len(rows) - 1; i >= headerRow; i-- {
		for _, v := range rows[i] {
			if strings.TrimSpace(v) != "" {
				return i + 1
			}
		}
	}
	return headerRow
}

// findKeyRow returns the 0-based index of the first data row whose key cell equals key
func findKeyRow(rows [][]string, keyIdx int, key string) int {
	for i := headerRow; i < len(rows); i++ {
		if keyIdx < len(rows[i]) && strings.TrimSpace(rows[i][keyIdx]) == key {
			return i
		}
	}
	return -1
}
