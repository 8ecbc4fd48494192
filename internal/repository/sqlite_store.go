package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore implements RecordStore on the sqlite schema in pkg/database
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new sqlite-backed store
func NewSQLiteStore(db *sql.DB, logger *zap.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger,
	}
}

// GetUsers returns all users in registration order
func (s *SQLiteStore) GetUsers(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, username, full_name, role, ca_code, firm_name, gstin
		FROM users
		ORDER BY rowid
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.CACode, &u.FirmName, &u.GSTIN); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveUser inserts or replaces a user, assigning an ID when missing
func (s *SQLiteStore) SaveUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, username, full_name, role, ca_code, firm_name, gstin)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			role = excluded.role,
			ca_code = excluded.ca_code,
			firm_name = excluded.firm_name,
			gstin = excluded.gstin
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.FullName,
		user.Role,
		user.CACode,
		user.FirmName,
		user.GSTIN,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("failed to save user: %w: username %q", ErrDuplicate, user.Username)
		}
		s.logger.Error("Failed to save user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetFiles returns uploaded files matching filter, oldest first
func (s *SQLiteStore) GetFiles(ctx context.Context, filter models.FileFilter) ([]models.UploadedFile, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.CACode != "" {
		where = append(where, "ca_code = ?")
		args = append(args, filter.CACode)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `
		SELECT id, customer_id, ca_code, file_name, file_size, uploaded_at,
			financial_year, month, note, status, processed_file_url, content
		FROM uploaded_files
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY uploaded_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to query files", zap.Error(err))
		return nil, fmt.Errorf("failed to get files: %w", err)
	}
	defer rows.Close()

	files := []models.UploadedFile{}
	for rows.Next() {
		var (
			f       models.UploadedFile
			content []byte
		)
		if err := rows.Scan(
			&f.ID,
			&f.CustomerID,
			&f.CACode,
			&f.FileName,
			&f.FileSize,
			&f.UploadedAt,
			&f.FinancialYear,
			&f.Month,
			&f.Note,
			&f.Status,
			&f.ProcessedFileURL,
			&content,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Content = string(content)
		files = append(files, f)
	}
	return files, rows.Err()
}

// SaveFile inserts or replaces an uploaded file. New files default to Pending.
func (s *SQLiteStore) SaveFile(ctx context.Context, file *models.UploadedFile) error {
	prepareFile(file)

	query := `
		INSERT INTO uploaded_files (
			id, customer_id, ca_code, file_name, file_size, uploaded_at,
			financial_year, month, note, status, processed_file_url, content
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			file_size = excluded.file_size,
			financial_year = excluded.financial_year,
			month = excluded.month,
			note = excluded.note,
			status = excluded.status,
			processed_file_url = excluded.processed_file_url,
			content = excluded.content
	`

	_, err := s.db.ExecContext(ctx, query,
		file.ID,
		file.CustomerID,
		file.CACode,
		file.FileName,
		file.FileSize,
		file.UploadedAt,
		file.FinancialYear,
		file.Month,
		file.Note,
		file.Status,
		file.ProcessedFileURL,
		[]byte(file.Content),
	)
	if err != nil {
		s.logger.Error("Failed to save file", zap.String("file_name", file.FileName), zap.Error(err))
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// UpdateFileStatus moves a file to a new status and replaces its processed file URL.
// An empty URL clears the link to an earlier run.
func (s *SQLiteStore) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus, processedFileURL string) error {
	query := `
		UPDATE uploaded_files
		SET status = ?,
			processed_file_url = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, processedFileURL, id)
	if err != nil {
		s.logger.Error("Failed to update file status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update file status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: file %s", ErrNotFound, id)
	}
	return nil
}

// GetLogs returns processing logs matching filter, newest first
func (s *SQLiteStore) GetLogs(ctx context.Context, filter models.LogFilter) ([]models.ProcessingLog, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.CACode != "" {
		where = append(where, "ca_code = ?")
		args = append(args, filter.CACode)
	}

	query := `
		SELECT id, timestamp, action, file_name, result, status, ca_code,
			customer_id, error_count, migrated_amount
		FROM processing_logs
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to query logs", zap.Error(err))
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ProcessingLog{}
	for rows.Next() {
		var l models.ProcessingLog
		if err := rows.Scan(
			&l.ID,
			&l.Timestamp,
			&l.Action,
			&l.FileName,
			&l.Result,
			&l.Status,
			&l.CACode,
			&l.CustomerID,
			&l.ErrorCount,
			&l.MigratedAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// SaveLog appends a processing log entry
func (s *SQLiteStore) SaveLog(ctx context.Context, entry *models.ProcessingLog) error {
	prepareLog(entry)

	query := `
		INSERT INTO processing_logs (
			id, timestamp, action, file_name, result, status, ca_code,
			customer_id, error_count, migrated_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.Action,
		entry.FileName,
		entry.Result,
		entry.Status,
		entry.CACode,
		entry.CustomerID,
		entry.ErrorCount,
		entry.MigratedAmount,
	)
	if err != nil {
		s.logger.Error("Failed to save log", zap.String("action", entry.Action), zap.Error(err))
		return fmt.Errorf("failed to save log: %w", err)
	}
	return nil
}

func prepareFile(file *models.UploadedFile) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	if file.Status == "" {
		file.Status = models.FileStatusPending
	}
}

func prepareLog(entry *models.ProcessingLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.MigratedAmount == "" {
		entry.MigratedAmount = "0"
	}
}
