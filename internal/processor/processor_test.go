package processor

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/garyjia/gstr1-reconciler/internal/gateway"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/garyjia/gstr1-reconciler/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// stubRegistry rejects "BAD" and accepts everything else
func stubRegistry(calls *int32) gateway.Verifier {
	return gateway.VerifierFunc(func(ctx context.Context, id string) models.Verdict {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if id == "BAD" {
			return models.Verdict{Valid: false, Reason: models.ReasonNotFound}
		}
		return models.Verdict{Valid: true, Reason: models.ReasonActive}
	})
}

type progressRecorder struct {
	events []models.ProcessingProgress
}

func (r *progressRecorder) record(p models.ProcessingProgress) {
	r.events = append(r.events, p)
}

func (r *progressRecorder) percents() []int {
	out := make([]int, len(r.events))
	for i, e := range r.events {
		out[i] = e.Percent
	}
	return out
}

func sheetRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	wb, err := workbook.LoadTemplate(data, zap.NewNop())
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.Rows(sheet)
	require.NoError(t, err)
	return rows
}

var b2bCSV = []byte("gstin,inum,txval,rt\n27AAAAA0000A1Z5,INV1,1000,18\nBAD,INV2,500,5\n")

var hsnCSV = []byte("HSN,Description,Total Taxable Value,Rate\n8471,Laptops,1500,\n9983,Services,4000,18\n")

func TestProcessor_Run_Progress(t *testing.T) {
	p := NewProcessor(nil, Config{}, zap.NewNop())
	rec := &progressRecorder{}

	files := []InputFile{
		{Name: "b2b.csv", Content: b2bCSV},
		{Name: "readme.txt", Content: []byte("hello")},
	}
	result, err := p.Run(context.Background(), files, RunOptions{PartyName: "Acme"}, rec.record)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 20, 50, 80, 90, 100}, rec.percents())
	assert.Equal(t, "Loading template...", rec.events[0].Message)
	assert.Equal(t, "Processing CSV files...", rec.events[1].Message)
	assert.Equal(t, "Generating Excel...", rec.events[4].Message)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, models.ProgressSuccess, last.Status)
	assert.Equal(t, "Done!", last.Message)

	assert.Equal(t, 1, result.FilesWritten)
	assert.Equal(t, []string{"readme.txt"}, result.FilesSkipped)
	assert.Equal(t, "Speqta_GSTR1_Acme.xlsx", result.Workbook.Name)
	assert.Nil(t, result.ErrorList)

	b2b := sheetRows(t, result.Workbook.Data, schema.SheetB2B)
	require.Len(t, b2b, 3, "without reconciliation every B2B row stays")
	assert.Equal(t, "BAD", b2b[2][0])
}

func TestProcessor_Run_Reconcile(t *testing.T) {
	var calls int32
	p := NewProcessor(stubRegistry(&calls), Config{VerifyConcurrency: 2, CacheVerdicts: true}, zap.NewNop())

	files := []InputFile{
		{Name: "B2B_April.csv", Content: b2bCSV},
		{Name: "hsn_b2b.csv", Content: hsnCSV},
	}
	opts := RunOptions{PartyName: "Acme Traders", PartyGSTIN: "29ABCDE1234F1Z5", ProductName: "Ledgerly", Reconcile: true}

	result, err := p.Run(context.Background(), files, opts, nil)
	require.NoError(t, err)

	assert.Equal(t, "Ledgerly_GSTR1_Acme Traders_RECONCILED.xlsx", result.Workbook.Name)
	require.NotNil(t, result.ErrorList)
	assert.Equal(t, "Error_List_Acme Traders.xlsx", result.ErrorList.Name)
	require.Len(t, result.ErrorLedger, 1)
	assert.Equal(t, "INV2", result.ErrorLedger[0].InvoiceNumber)
	assert.Equal(t, "500", result.TotalTaxableShifted.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	b2b := sheetRows(t, result.Workbook.Data, schema.SheetB2B)
	require.Len(t, b2b, 2)
	assert.Equal(t, "INV1", b2b[1][1])

	b2cs := sheetRows(t, result.Workbook.Data, schema.SheetB2CS)
	require.Len(t, b2cs, 2)
	assert.Equal(t, []string{"OE", "29", "5", "500"}, b2cs[1][:4])

	hsn := sheetRows(t, result.Workbook.Data, schema.SheetHSN)
	require.Len(t, hsn, 3)
	assert.Equal(t, "B2B", hsn[1][0], "type tagged from file name")
	assert.Equal(t, "0", hsn[1][6], "blank rate defaults to zero")

	require.NotNil(t, result.Summary)
	assert.True(t, result.Summary.Adjusted)
	assert.Equal(t, "9983", result.Summary.HSNCode)
	assert.True(t, result.Summary.Balanced())

	errs := sheetRows(t, result.ErrorList.Data, workbook.ErrorSheetName)
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"INV2", "BAD", "NOT_FOUND", "500", "0", "0", "0", "5"}, errs[1])
}

// templateWithout returns the default template with the named sheets removed
func templateWithout(t *testing.T, sheets ...string) []byte {
	t.Helper()
	blob, err := workbook.DefaultTemplate()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer f.Close()
	for _, sheet := range sheets {
		require.NoError(t, f.DeleteSheet(sheet))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestProcessor_Run_ReconcileWithoutB2CSSheet(t *testing.T) {
	p := NewProcessor(stubRegistry(nil), Config{}, zap.NewNop()).
		WithTemplate(templateWithout(t, schema.SheetB2CS))

	result, err := p.Run(context.Background(), []InputFile{{Name: "b2b.csv", Content: b2bCSV}},
		RunOptions{PartyName: "Acme", Reconcile: true}, nil)
	require.NoError(t, err)

	wb, err := workbook.LoadTemplate(result.Workbook.Data, zap.NewNop())
	require.NoError(t, err)
	defer wb.Close()
	assert.False(t, wb.HasSheet(schema.SheetB2CS))

	b2b, err := wb.Rows(schema.SheetB2B)
	require.NoError(t, err)
	require.Len(t, b2b, 2)
	assert.Equal(t, "INV1", b2b[1][1])

	require.Len(t, result.ErrorLedger, 1, "the ledger still records the migrated invoice")
	assert.Equal(t, "500", result.TotalTaxableShifted.String())
	require.NotNil(t, result.ErrorList)
}

func TestProcessor_Run_DocsIssued(t *testing.T) {
	csv := []byte("Nature of Document,Sr. No. From,Sr. No. To,Total Number,Cancelled\n" +
		"Invoices for outward supply,INV001,INV100,100,15\n")
	p := NewProcessor(nil, Config{}, zap.NewNop())

	result, err := p.Run(context.Background(), []InputFile{{Name: "docs.csv", Content: csv}},
		RunOptions{Dialect: schema.DialectTally}, nil)
	require.NoError(t, err)

	rows := sheetRows(t, result.Workbook.Data, schema.SheetDocsIssued)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Invoices for outward supply", "INV001", "INV100", "100", "15", "85"}, rows[1])
}

func TestProcessor_Run_Exempt(t *testing.T) {
	csv := []byte("Description,Nil Rated Supplies,Exempted (other than nil rated/non GST supply),Non-GST Supplies\n" +
		"Intra-State supplies to unregistered persons,2000,300,\n")
	p := NewProcessor(nil, Config{}, zap.NewNop())

	result, err := p.Run(context.Background(), []InputFile{{Name: "exemp.csv", Content: csv}}, RunOptions{}, nil)
	require.NoError(t, err)

	rows := sheetRows(t, result.Workbook.Data, schema.SheetExempt)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Intra-State supplies to unregistered persons", "2000", "300", "0"}, rows[4])
}

func TestProcessor_Run_Deterministic(t *testing.T) {
	files := []InputFile{
		{Name: "b2b.csv", Content: b2bCSV},
		{Name: "hsn_b2c.csv", Content: hsnCSV},
	}
	opts := RunOptions{PartyName: "Acme", PartyGSTIN: "27AAAAA0000A1Z5", Reconcile: true}

	first, err := NewProcessor(stubRegistry(nil), Config{VerifyConcurrency: 4}, zap.NewNop()).
		Run(context.Background(), files, opts, nil)
	require.NoError(t, err)
	second, err := NewProcessor(stubRegistry(nil), Config{VerifyConcurrency: 1}, zap.NewNop()).
		Run(context.Background(), files, opts, nil)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.Workbook.Data, second.Workbook.Data))
	assert.True(t, bytes.Equal(first.ErrorList.Data, second.ErrorList.Data))
}

func TestProcessor_Run_Failures(t *testing.T) {
	files := []InputFile{{Name: "b2b.csv", Content: b2bCSV}}

	t.Run("unreadable template", func(t *testing.T) {
		p := NewProcessor(nil, Config{}, zap.NewNop()).WithTemplate([]byte("not an xlsx"))
		rec := &progressRecorder{}

		result, err := p.Run(context.Background(), files, RunOptions{}, rec.record)

		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrTemplateLoad)
		require.NotEmpty(t, rec.events)
		last := rec.events[len(rec.events)-1]
		assert.Equal(t, models.ProgressError, last.Status)
		assert.Equal(t, err.Error(), last.Message)
		for _, e := range rec.events[:len(rec.events)-1] {
			assert.NotEqual(t, models.ProgressError, e.Status, "exactly one error event")
		}
	})

	t.Run("reconcile without verifier", func(t *testing.T) {
		_, err := NewProcessor(nil, Config{}, zap.NewNop()).
			Run(context.Background(), files, RunOptions{Reconcile: true}, nil)
		assert.ErrorIs(t, err, ErrNoVerifier)
	})

	t.Run("no files", func(t *testing.T) {
		_, err := NewProcessor(nil, Config{}, zap.NewNop()).Run(context.Background(), nil, RunOptions{}, nil)
		assert.ErrorIs(t, err, ErrNoInputFiles)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewProcessor(nil, Config{}, zap.NewNop()).Run(ctx, files, RunOptions{}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkbookName(t *testing.T) {
	tests := []struct {
		name     string
		opts     RunOptions
		expected string
	}{
		{name: "defaults", opts: RunOptions{}, expected: "Speqta_GSTR1_Party.xlsx"},
		{name: "reconciled", opts: RunOptions{PartyName: "Acme", ProductName: "Ledgerly", Reconcile: true}, expected: "Ledgerly_GSTR1_Acme_RECONCILED.xlsx"},
		{name: "unsafe characters", opts: RunOptions{PartyName: "A/B: Co"}, expected: "Speqta_GSTR1_A_B_ Co.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WorkbookName(tt.opts))
		})
	}
	assert.Equal(t, "Error_List_Acme.xlsx", ErrorListName(RunOptions{PartyName: " Acme "}))
}
