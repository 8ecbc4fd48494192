// Package repository persists users, uploaded extracts and processing logs.
package repository

import (
	"context"
	"errors"

	"github.com/garyjia/gstr1-reconciler/internal/models"
)

var (
	// ErrNotFound is returned when an update targets a missing record
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a save collides with a unique field
	ErrDuplicate = errors.New("record already exists")
)

// RecordStore is the persistence boundary used by the service layer
type RecordStore interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	GetFiles(ctx context.Context, filter models.FileFilter) ([]models.UploadedFile, error)
	SaveFile(ctx context.Context, file *models.UploadedFile) error
	// UpdateFileStatus sets the status and processed file URL; an empty URL clears it
	UpdateFileStatus(ctx context.Context, id string, status models.FileStatus, processedFileURL string) error
	GetLogs(ctx context.Context, filter models.LogFilter) ([]models.ProcessingLog, error)
	SaveLog(ctx context.Context, entry *models.ProcessingLog) error
}
