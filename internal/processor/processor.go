// Package processor runs a batch of GSTR-1 section extracts through reconciliation
// and into the template workbook.
package processor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/garyjia/gstr1-reconciler/internal/compliance"
	"github.com/garyjia/gstr1-reconciler/internal/csvreader"
	"github.com/garyjia/gstr1-reconciler/internal/gateway"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/garyjia/gstr1-reconciler/internal/workbook"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config tunes reconciliation
type Config struct {
	VerifyConcurrency int
	CacheVerdicts     bool
}

// Processor generates GSTR-1 workbooks. It holds no per-run state and may serve
// concurrent runs; each run loads its own template copy.
type Processor struct {
	reader   *csvreader.Reader
	verifier gateway.Verifier
	template func() ([]byte, error)
	cfg      Config
	logger   *zap.Logger
}

// NewProcessor creates a Processor. verifier may be nil when runs never reconcile.
func NewProcessor(verifier gateway.Verifier, cfg Config, logger *zap.Logger) *Processor {
	return &Processor{
		reader:   csvreader.NewReader(),
		verifier: verifier,
		template: workbook.DefaultTemplate,
		cfg:      cfg,
		logger:   logger,
	}
}

// WithTemplate replaces the bundled template
func (p *Processor) WithTemplate(blob []byte) *Processor {
	p.template = func() ([]byte, error) {
		return append([]byte(nil), blob...), nil
	}
	return p
}

// run carries the state of one Run call
type run struct {
	wb       *workbook.TemplateWorkbook
	mappings schema.SheetMappings
	ledger   []models.ErrorEntry
	shifted  decimal.Decimal
	hsn      []models.Record
	result   *RunResult
}

// Run processes files in order and returns the generated artifacts. Any failure
// aborts the whole batch: a single error event is emitted and nothing is returned.
func (p *Processor) Run(ctx context.Context, files []InputFile, opts RunOptions, onProgress ProgressFunc) (*RunResult, error) {
	emit := func(percent int, message string, status models.ProgressStatus) {
		if onProgress != nil {
			onProgress(models.ProcessingProgress{Percent: percent, Message: message, Status: status})
		}
	}

	result, err := p.run(ctx, files, opts, emit)
	if err != nil {
		p.logger.Error("GSTR-1 batch failed",
			zap.String("party", opts.PartyName),
			zap.Int("file_count", len(files)),
			zap.Error(err))
		emit(0, err.Error(), models.ProgressError)
		return nil, err
	}

	emit(100, "Done!", models.ProgressSuccess)
	return result, nil
}

func (p *Processor) run(ctx context.Context, files []InputFile, opts RunOptions, emit func(int, string, models.ProgressStatus)) (*RunResult, error) {
	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}
	if opts.Reconcile && p.verifier == nil {
		return nil, ErrNoVerifier
	}

	emit(10, "Loading template...", models.ProgressInfo)
	blob, err := p.template()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}
	wb, err := workbook.LoadTemplate(blob, p.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}
	defer wb.Close()

	st := &run{
		wb:       wb,
		mappings: schema.MappingsFor(opts.Dialect),
		shifted:  decimal.Zero,
		result:   &RunResult{FilesSkipped: []string{}},
	}

	var reclassifier *compliance.Reclassifier
	if opts.Reconcile {
		var verifier gateway.Verifier = p.verifier
		if p.cfg.CacheVerdicts {
			verifier = gateway.NewCachingVerifier(p.verifier)
		}
		reclassifier = compliance.NewReclassifier(verifier, p.cfg.VerifyConcurrency, p.logger)
	}

	emit(20, "Processing CSV files...", models.ProgressInfo)
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch cancelled: %w", err)
		}

		written, err := p.processFile(ctx, st, file, opts, reclassifier)
		if err != nil {
			return nil, err
		}

		message := "Processed " + file.Name
		if written {
			st.result.FilesWritten++
		} else {
			st.result.FilesSkipped = append(st.result.FilesSkipped, file.Name)
			message = "Skipped " + file.Name
		}
		emit(20+int(math.Round(60*float64(i+1)/float64(len(files)))), message, models.ProgressInfo)
	}

	if opts.Reconcile {
		_, report := compliance.ReconcileSummary(st.hsn, st.ledger)
		st.result.Summary = report
		if report.Adjusted {
			p.logger.Info("HSN summary reconciled",
				zap.String("hsn", report.HSNCode),
				zap.String("amount", report.Amount.String()),
				zap.Bool("balanced", report.Balanced()))
		}
	}

	emit(90, "Generating Excel...", models.ProgressInfo)
	out, err := wb.Serialize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}

	st.result.Workbook = Artifact{Name: WorkbookName(opts), Data: out}
	st.result.ErrorLedger = st.ledger
	st.result.TotalTaxableShifted = st.shifted
	if len(st.ledger) > 0 {
		data, err := workbook.BuildErrorWorkbook(st.ledger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerateFailed, err)
		}
		st.result.ErrorList = &Artifact{Name: ErrorListName(opts), Data: data}
	}

	p.logger.Info("GSTR-1 batch completed",
		zap.String("party", opts.PartyName),
		zap.Int("files_written", st.result.FilesWritten),
		zap.Int("files_skipped", len(st.result.FilesSkipped)),
		zap.Int("error_count", len(st.ledger)),
		zap.String("migrated_amount", st.shifted.String()))

	return st.result, nil
}

// processFile writes one extract into the workbook. It reports false when the file
// was skipped: unknown section, no rows, or no matching sheet.
func (p *Processor) processFile(ctx context.Context, st *run, file InputFile, opts RunOptions, reclassifier *compliance.Reclassifier) (bool, error) {
	sheet, ok := schema.SheetForFile(file.Name)
	if !ok {
		p.logger.Debug("No section keyword in file name, skipping", zap.String("file", file.Name))
		return false, nil
	}

	rows, err := p.reader.ReadBytes(file.Content)
	if err != nil {
		return false, fmt.Errorf("%w %s: %v", ErrParseFailed, file.Name, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	if !st.wb.HasSheet(sheet) {
		p.logger.Warn("Template has no sheet for file, skipping",
			zap.String("file", file.Name),
			zap.String("sheet", sheet))
		return false, nil
	}

	mapping := st.mappings[sheet]
	rows = preprocess(sheet, file.Name, rows, mapping)

	switch {
	case sheet == schema.SheetExempt:
		err = st.wb.UpsertByKeyColumn(sheet, rows, mapping, schema.ExemptKeyColumn)

	case sheet == schema.SheetB2B && reclassifier != nil:
		res, rerr := reclassifier.Reclassify(ctx, rows, opts.PartyGSTIN)
		if rerr != nil {
			return false, rerr
		}
		st.ledger = append(st.ledger, res.ErrorLedger...)
		st.shifted = st.shifted.Add(res.TotalTaxableShifted)
		if err = st.wb.AppendRows(schema.SheetB2B, res.ValidRecords, mapping); err != nil {
			break
		}
		if len(res.MigratedRecords) > 0 && !st.wb.HasSheet(schema.SheetB2CS) {
			p.logger.Warn("Template has no b2cs sheet, migrated rows not written",
				zap.String("file", file.Name),
				zap.Int("migrated", len(res.MigratedRecords)))
			break
		}
		err = st.wb.AppendRows(schema.SheetB2CS, res.MigratedRecords, st.mappings[schema.SheetB2CS])

	default:
		if sheet == schema.SheetHSN {
			st.hsn = append(st.hsn, rows...)
		}
		err = st.wb.AppendRows(sheet, rows, mapping)
	}
	if err != nil {
		return false, fmt.Errorf("failed to write %s into %s: %w", file.Name, sheet, err)
	}

	p.logger.Debug("File written to template",
		zap.String("file", file.Name),
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)))

	return true, nil
}

// WorkbookName is <Product>_GSTR1_<party>[_RECONCILED].xlsx
func WorkbookName(opts RunOptions) string {
	product := opts.ProductName
	if strings.TrimSpace(product) == "" {
		product = DefaultProductName
	}
	name := fmt.Sprintf("%s_GSTR1_%s", sanitizeName(product), partyLabel(opts))
	if opts.Reconcile {
		name += "_RECONCILED"
	}
	return name + ".xlsx"
}

// ErrorListName is Error_List_<party>.xlsx
func ErrorListName(opts RunOptions) string {
	return fmt.Sprintf("Error_List_%s.xlsx", partyLabel(opts))
}

func partyLabel(opts RunOptions) string {
	if strings.TrimSpace(opts.PartyName) == "" {
		return "Party"
	}
	return sanitizeName(opts.PartyName)
}

var unsafeNameChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

func sanitizeName(s string) string {
	return unsafeNameChars.Replace(strings.TrimSpace(s))
}
