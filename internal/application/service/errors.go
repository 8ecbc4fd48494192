package service

import "errors"

var (
	// ErrPartyNotFound is returned when a party id has no registered user
	ErrPartyNotFound = errors.New("party not found")
	// ErrNoPendingFiles is returned when a party has nothing waiting to be processed
	ErrNoPendingFiles = errors.New("no pending files")
	// ErrEmptyUpload is returned for uploads without content
	ErrEmptyUpload = errors.New("uploaded file is empty")
)
