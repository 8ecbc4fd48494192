package processor

import "errors"

// Run errors
var (
	ErrNoInputFiles   = errors.New("no input files")
	ErrNoVerifier     = errors.New("reconciliation requested without a GSTIN verifier")
	ErrTemplateLoad   = errors.New("failed to load template")
	ErrParseFailed    = errors.New("failed to parse input file")
	ErrGenerateFailed = errors.New("failed to generate workbook")
)
