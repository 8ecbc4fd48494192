package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is a process-local RecordStore for the CLI and tests
type MemoryStore struct {
	mu    sync.RWMutex
	users []models.User
	files []models.UploadedFile
	logs  []models.ProcessingLog
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// GetUsers implements RecordStore
func (s *MemoryStore) GetUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User{}, s.users...), nil
}

// SaveUser implements RecordStore
func (s *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = *user
			return nil
		}
		if s.users[i].Username == user.Username {
			return fmt.Errorf("failed to save user: %w: username %q", ErrDuplicate, user.Username)
		}
	}
	s.users = append(s.users, *user)
	return nil
}

// GetFiles implements RecordStore
func (s *MemoryStore) GetFiles(ctx context.Context, filter models.FileFilter) ([]models.UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.UploadedFile{}
	for _, f := range s.files {
		if filter.CustomerID != "" && f.CustomerID != filter.CustomerID {
			continue
		}
		if filter.CACode != "" && f.CACode != filter.CACode {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

// SaveFile implements RecordStore
func (s *MemoryStore) SaveFile(ctx context.Context, file *models.UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareFile(file)
	for i := range s.files {
		if s.files[i].ID == file.ID {
			s.files[i] = *file
			return nil
		}
	}
	s.files = append(s.files, *file)
	return nil
}

// UpdateFileStatus implements RecordStore
func (s *MemoryStore) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus, processedFileURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.files {
		if s.files[i].ID != id {
			continue
		}
		s.files[i].Status = status
		s.files[i].ProcessedFileURL = processedFileURL
		return nil
	}
	return fmt.Errorf("%w: file %s", ErrNotFound, id)
}

// GetLogs implements RecordStore
func (s *MemoryStore) GetLogs(ctx context.Context, filter models.LogFilter) ([]models.ProcessingLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ProcessingLog{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if filter.CustomerID != "" && l.CustomerID != filter.CustomerID {
			continue
		}
		if filter.CACode != "" && l.CACode != filter.CACode {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// SaveLog implements RecordStore
func (s *MemoryStore) SaveLog(ctx context.Context, entry *models.ProcessingLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareLog(entry)
	s.logs = append(s.logs, *entry)
	return nil
}
