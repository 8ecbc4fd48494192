package processor

import (
	"github.com/garyjia/gstr1-reconciler/internal/compliance"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/shopspring/decimal"
)

// DefaultProductName prefixes generated workbook names when none is configured
const DefaultProductName = "Speqta"

// InputFile is one uploaded section extract
type InputFile struct {
	Name    string
	Content []byte
}

// RunOptions controls a single batch run
type RunOptions struct {
	Dialect     schema.Dialect
	PartyName   string
	PartyGSTIN  string
	ProductName string
	Reconcile   bool
}

// ProgressFunc receives progress events in order. It may be nil.
type ProgressFunc func(models.ProcessingProgress)

// Artifact is a generated file
type Artifact struct {
	Name string
	Data []byte
}

// RunResult is everything a successful run produced
type RunResult struct {
	Workbook            Artifact
	ErrorList           *Artifact
	ErrorLedger         []models.ErrorEntry
	TotalTaxableShifted decimal.Decimal
	Summary             *compliance.SummaryReport
	FilesWritten        int
	FilesSkipped        []string
}
