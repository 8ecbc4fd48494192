package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/garyjia/gstr1-reconciler/internal/compliance"
	"github.com/garyjia/gstr1-reconciler/internal/domain/workflow"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/processor"
	"github.com/garyjia/gstr1-reconciler/internal/repository"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/garyjia/gstr1-reconciler/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Processing log vocabulary
const (
	ActionGenerate   = "GSTR-1 Generation"
	ActionReconcile  = "Compliance Automation"
	BatchLogFileName = "Batch Process"
)

// Runner executes one batch; *processor.Processor satisfies it
type Runner interface {
	Run(ctx context.Context, files []processor.InputFile, opts processor.RunOptions, onProgress processor.ProgressFunc) (*processor.RunResult, error)
}

// ProcessRequest selects how a party's pending files are processed
type ProcessRequest struct {
	Dialect   string `json:"dialect" binding:"omitempty,oneof=standard tally"`
	Reconcile bool   `json:"reconcile"`
}

// ProcessOutcome reports a batch run for a party
type ProcessOutcome struct {
	PartyID             string                      `json:"party_id"`
	Workbook            string                      `json:"workbook,omitempty"`
	ErrorList           string                      `json:"error_list,omitempty"`
	FileIDs             []string                    `json:"file_ids"`
	FilesSkipped        []string                    `json:"files_skipped"`
	ErrorCount          int                         `json:"error_count"`
	TotalTaxableShifted decimal.Decimal             `json:"total_taxable_shifted"`
	Summary             *compliance.SummaryReport   `json:"summary,omitempty"`
	Progress            []models.ProcessingProgress `json:"progress"`
}

// Defaults applied when a request leaves a setting empty
type Defaults struct {
	ProductName string
	Dialect     schema.Dialect
}

// ComplianceService turns a party's pending uploads into a GSTR-1 workbook
type ComplianceService interface {
	ProcessParty(ctx context.Context, partyID string, req ProcessRequest) (*ProcessOutcome, error)
}

type complianceServiceImpl struct {
	store     repository.RecordStore
	runner    Runner
	artifacts *storage.ArtifactStore
	defaults  Defaults
	lifecycle *workflow.Lifecycle
	logger    *zap.Logger
}

// NewComplianceService creates a new ComplianceService
func NewComplianceService(
	store repository.RecordStore,
	runner Runner,
	artifacts *storage.ArtifactStore,
	defaults Defaults,
	logger *zap.Logger,
) ComplianceService {
	return &complianceServiceImpl{
		store:     store,
		runner:    runner,
		artifacts: artifacts,
		defaults:  defaults,
		lifecycle: workflow.FileLifecycle(),
		logger:    logger,
	}
}

// ProcessParty runs every pending upload of the party as one batch. Files move to
// Completed with the workbook location, or to Error when the batch fails; either
// way a processing log entry is written. A failed batch returns the outcome with
// its progress trail alongside the error.
func (s *complianceServiceImpl) ProcessParty(ctx context.Context, partyID string, req ProcessRequest) (*ProcessOutcome, error) {
	party, err := findParty(ctx, s.store, partyID)
	if err != nil {
		return nil, err
	}

	dialect := s.defaults.Dialect
	if req.Dialect != "" {
		if dialect, err = schema.ParseDialect(req.Dialect); err != nil {
			return nil, err
		}
	}

	pending, err := s.store.GetFiles(ctx, models.FileFilter{CustomerID: party.ID, Status: models.FileStatusPending})
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPendingFiles, party.ID)
	}

	outcome := &ProcessOutcome{
		PartyID:             party.ID,
		FileIDs:             make([]string, 0, len(pending)),
		FilesSkipped:        []string{},
		TotalTaxableShifted: decimal.Zero,
		Progress:            []models.ProcessingProgress{},
	}
	inputs := make([]processor.InputFile, 0, len(pending))
	for _, f := range pending {
		next, err := s.lifecycle.Next(workflow.State(f.Status), workflow.TriggerStart)
		if err != nil {
			s.release(ctx, outcome.FileIDs)
			return nil, err
		}
		if err := s.store.UpdateFileStatus(ctx, f.ID, next.FileStatus(), ""); err != nil {
			s.release(ctx, outcome.FileIDs)
			return nil, fmt.Errorf("failed to start %s: %w", f.FileName, err)
		}
		outcome.FileIDs = append(outcome.FileIDs, f.ID)
		inputs = append(inputs, processor.InputFile{Name: f.FileName, Content: []byte(f.Content)})
	}

	opts := processor.RunOptions{
		Dialect:     dialect,
		PartyName:   party.FullName,
		PartyGSTIN:  party.GSTIN,
		ProductName: s.defaults.ProductName,
		Reconcile:   req.Reconcile,
	}

	s.logger.Info("Processing party batch",
		zap.String("party_id", party.ID),
		zap.Int("file_count", len(inputs)),
		zap.String("dialect", string(dialect)),
		zap.Bool("reconcile", req.Reconcile))

	result, runErr := s.runner.Run(ctx, inputs, opts, func(p models.ProcessingProgress) {
		outcome.Progress = append(outcome.Progress, p)
	})
	if runErr != nil {
		s.finish(ctx, party, outcome, workflow.TriggerFail, "", runErr, req.Reconcile)
		return outcome, runErr
	}

	if err := s.storeArtifacts(party.ID, result, outcome); err != nil {
		s.finish(ctx, party, outcome, workflow.TriggerFail, "", err, req.Reconcile)
		return outcome, err
	}

	outcome.FilesSkipped = result.FilesSkipped
	outcome.ErrorCount = len(result.ErrorLedger)
	outcome.TotalTaxableShifted = result.TotalTaxableShifted
	outcome.Summary = result.Summary

	s.finish(ctx, party, outcome, workflow.TriggerComplete, ArtifactURL(party.ID, outcome.Workbook), nil, req.Reconcile)
	return outcome, nil
}

func (s *complianceServiceImpl) storeArtifacts(partyID string, result *processor.RunResult, outcome *ProcessOutcome) error {
	if _, err := s.artifacts.Save(partyID, result.Workbook.Name, result.Workbook.Data); err != nil {
		return fmt.Errorf("failed to store workbook: %w", err)
	}
	outcome.Workbook = result.Workbook.Name

	if result.ErrorList != nil {
		if _, err := s.artifacts.Save(partyID, result.ErrorList.Name, result.ErrorList.Data); err != nil {
			return fmt.Errorf("failed to store error list: %w", err)
		}
		outcome.ErrorList = result.ErrorList.Name
	}
	return nil
}

// release puts files claimed by a batch that never ran back to Pending
func (s *complianceServiceImpl) release(ctx context.Context, fileIDs []string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range fileIDs {
		if err := s.store.UpdateFileStatus(ctx, id, workflow.StatePending.FileStatus(), ""); err != nil {
			s.logger.Error("Failed to release file",
				zap.String("file_id", id),
				zap.Error(err))
		}
	}
}

// finish records file statuses and the processing log. Store failures here are
// logged; the batch outcome has already been decided.
func (s *complianceServiceImpl) finish(
	ctx context.Context,
	party *models.User,
	outcome *ProcessOutcome,
	trigger workflow.Trigger,
	processedURL string,
	runErr error,
	reconcile bool,
) {
	ctx = context.WithoutCancel(ctx)

	next, err := s.lifecycle.Next(workflow.StateProcessing, trigger)
	if err != nil {
		s.logger.Error("Unexpected batch transition", zap.String("trigger", trigger.String()), zap.Error(err))
		return
	}
	status := next.FileStatus()

	for _, id := range outcome.FileIDs {
		if err := s.store.UpdateFileStatus(ctx, id, status, processedURL); err != nil {
			s.logger.Error("Failed to update file status",
				zap.String("file_id", id),
				zap.String("status", string(status)),
				zap.Error(err))
		}
	}

	entry := &models.ProcessingLog{
		Action:         ActionGenerate,
		FileName:       BatchLogFileName,
		Result:         "Success",
		Status:         string(status),
		CACode:         party.CACode,
		CustomerID:     party.ID,
		ErrorCount:     outcome.ErrorCount,
		MigratedAmount: outcome.TotalTaxableShifted.String(),
	}
	if reconcile {
		entry.Action = ActionReconcile
	}
	if runErr != nil {
		entry.Result = runErr.Error()
	}
	if err := s.store.SaveLog(ctx, entry); err != nil {
		s.logger.Error("Failed to save processing log",
			zap.String("party_id", party.ID),
			zap.Error(err))
	}

	s.logger.Info("Party batch finished",
		zap.String("party_id", party.ID),
		zap.String("status", string(status)),
		zap.Int("error_count", outcome.ErrorCount),
		zap.String("migrated_amount", entry.MigratedAmount))
}

// ArtifactURL is the API location of a stored artifact
func ArtifactURL(partyID, name string) string {
	return fmt.Sprintf("/api/v1/parties/%s/artifacts/%s", url.PathEscape(partyID), url.PathEscape(name))
}
