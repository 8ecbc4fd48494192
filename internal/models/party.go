package models

import "time"

// Role of a registered user
type Role string

// Role constants
const (
	RoleCA       Role = "ca"
	RoleCustomer Role = "customer"
)

// User is a chartered accountant or one of their client parties
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	CACode   string `json:"ca_code"`
	FirmName string `json:"firm_name,omitempty"`
	GSTIN    string `json:"gstin,omitempty"`
}

// FileStatus tracks an uploaded extract through processing
type FileStatus string

// File status constants
const (
	FileStatusPending    FileStatus = "Pending"
	FileStatusProcessing FileStatus = "Processing"
	FileStatusCompleted  FileStatus = "Completed"
	FileStatusError      FileStatus = "Error"
)

// UploadedFile is a return-section extract uploaded for a party
type UploadedFile struct {
	ID               string     `json:"id"`
	CustomerID       string     `json:"customer_id"`
	CACode           string     `json:"ca_code"`
	FileName         string     `json:"file_name"`
	FileSize         string     `json:"file_size"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	FinancialYear    string     `json:"financial_year"`
	Month            string     `json:"month"`
	Note             string     `json:"note"`
	Status           FileStatus `json:"status"`
	ProcessedFileURL string     `json:"processed_file_url,omitempty"`
	Content          string     `json:"-"`
}

// FileFilter narrows GetFiles; zero fields match everything
type FileFilter struct {
	CustomerID string
	CACode     string
	Status     FileStatus
}

// ProcessingLog records one engine run for a party
type ProcessingLog struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	FileName       string    `json:"file_name"`
	Result         string    `json:"result"`
	Status         string    `json:"status"`
	CACode         string    `json:"ca_code"`
	CustomerID     string    `json:"customer_id"`
	ErrorCount     int       `json:"error_count"`
	MigratedAmount string    `json:"migrated_amount"`
}

// LogFilter narrows GetLogs; zero fields match everything
type LogFilter struct {
	CustomerID string
	CACode     string
}
