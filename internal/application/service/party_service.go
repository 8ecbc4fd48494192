package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/gstr1-reconciler/internal/domain/workflow"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/repository"
	"github.com/garyjia/gstr1-reconciler/internal/storage"
	"go.uber.org/zap"
)

// UploadRequest describes one uploaded section extract
type UploadRequest struct {
	FileName      string
	Content       []byte
	FinancialYear string
	Month         string
	Note          string
}

// PartyService manages users, their uploaded extracts, logs and generated artifacts
type PartyService interface {
	RegisterUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetParty(ctx context.Context, partyID string) (*models.User, error)
	UploadFile(ctx context.Context, partyID string, req UploadRequest) (*models.UploadedFile, error)
	ListFiles(ctx context.Context, partyID string, status models.FileStatus) ([]models.UploadedFile, error)
	RequeueFile(ctx context.Context, partyID, fileID string) (*models.UploadedFile, error)
	ListLogs(ctx context.Context, partyID string) ([]models.ProcessingLog, error)
	ListArtifacts(ctx context.Context, partyID string) ([]string, error)
	OpenArtifact(ctx context.Context, partyID, name string) ([]byte, error)
}

type partyServiceImpl struct {
	store     repository.RecordStore
	artifacts *storage.ArtifactStore
	lifecycle *workflow.Lifecycle
	logger    *zap.Logger
}

// NewPartyService creates a new PartyService
func NewPartyService(store repository.RecordStore, artifacts *storage.ArtifactStore, logger *zap.Logger) PartyService {
	return &partyServiceImpl{
		store:     store,
		artifacts: artifacts,
		lifecycle: workflow.FileLifecycle(),
		logger:    logger,
	}
}

// RegisterUser stores a CA or a client party
func (s *partyServiceImpl) RegisterUser(ctx context.Context, user *models.User) error {
	user.GSTIN = strings.ToUpper(strings.TrimSpace(user.GSTIN))
	if err := s.store.SaveUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("ca_code", user.CACode))
	return nil
}

// ListUsers returns every registered user
func (s *partyServiceImpl) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.GetUsers(ctx)
}

// GetParty looks a party up by id
func (s *partyServiceImpl) GetParty(ctx context.Context, partyID string) (*models.User, error) {
	return findParty(ctx, s.store, partyID)
}

// UploadFile stores an extract as Pending for the party
func (s *partyServiceImpl) UploadFile(ctx context.Context, partyID string, req UploadRequest) (*models.UploadedFile, error) {
	party, err := findParty(ctx, s.store, partyID)
	if err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyUpload, req.FileName)
	}

	file := &models.UploadedFile{
		CustomerID:    party.ID,
		CACode:        party.CACode,
		FileName:      req.FileName,
		FileSize:      formatSize(len(req.Content)),
		UploadedAt:    time.Now().UTC(),
		FinancialYear: req.FinancialYear,
		Month:         req.Month,
		Note:          req.Note,
		Status:        models.FileStatusPending,
		Content:       string(req.Content),
	}
	if err := s.store.SaveFile(ctx, file); err != nil {
		return nil, err
	}

	s.logger.Info("Extract uploaded",
		zap.String("party_id", party.ID),
		zap.String("file_id", file.ID),
		zap.String("file_name", file.FileName),
		zap.String("size", file.FileSize))
	return file, nil
}

// ListFiles returns a party's uploads, optionally narrowed by status
func (s *partyServiceImpl) ListFiles(ctx context.Context, partyID string, status models.FileStatus) ([]models.UploadedFile, error) {
	if _, err := findParty(ctx, s.store, partyID); err != nil {
		return nil, err
	}
	return s.store.GetFiles(ctx, models.FileFilter{CustomerID: partyID, Status: status})
}

// RequeueFile puts a settled extract back to Pending so the next batch includes it
func (s *partyServiceImpl) RequeueFile(ctx context.Context, partyID, fileID string) (*models.UploadedFile, error) {
	files, err := s.ListFiles(ctx, partyID, "")
	if err != nil {
		return nil, err
	}
	for i := range files {
		file := &files[i]
		if file.ID != fileID {
			continue
		}
		next, err := s.lifecycle.Next(workflow.State(file.Status), workflow.TriggerRequeue)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateFileStatus(ctx, file.ID, next.FileStatus(), ""); err != nil {
			return nil, err
		}
		s.logger.Info("Extract requeued",
			zap.String("party_id", partyID),
			zap.String("file_id", file.ID),
			zap.String("from", string(file.Status)))
		file.Status = next.FileStatus()
		file.ProcessedFileURL = ""
		return file, nil
	}
	return nil, fmt.Errorf("%w: file %s", repository.ErrNotFound, fileID)
}

// ListLogs returns a party's processing history, newest first
func (s *partyServiceImpl) ListLogs(ctx context.Context, partyID string) ([]models.ProcessingLog, error) {
	if _, err := findParty(ctx, s.store, partyID); err != nil {
		return nil, err
	}
	return s.store.GetLogs(ctx, models.LogFilter{CustomerID: partyID})
}

// ListArtifacts returns the generated workbooks stored for a party
func (s *partyServiceImpl) ListArtifacts(ctx context.Context, partyID string) ([]string, error) {
	if _, err := findParty(ctx, s.store, partyID); err != nil {
		return nil, err
	}
	return s.artifacts.List(partyID)
}

// OpenArtifact returns a generated workbook
func (s *partyServiceImpl) OpenArtifact(ctx context.Context, partyID, name string) ([]byte, error) {
	if _, err := findParty(ctx, s.store, partyID); err != nil {
		return nil, err
	}
	return s.artifacts.Open(partyID, name)
}

func findParty(ctx context.Context, store repository.RecordStore, partyID string) (*models.User, error) {
	users, err := store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		if users[i].ID == partyID {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPartyNotFound, partyID)
}

func formatSize(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
