// Package storage keeps generated workbooks on the local filesystem, one folder per party.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrArtifactNotFound is returned when a party has no artifact by that name
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrInvalidArtifactName is returned for names that could leave the party folder
	ErrInvalidArtifactName = errors.New("invalid artifact name")
)

var unsafeFolderChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// ArtifactStore writes and reads artifacts under baseDir/<party>/<name>
type ArtifactStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewArtifactStore creates a new ArtifactStore
func NewArtifactStore(baseDir string, logger *zap.Logger) *ArtifactStore {
	return &ArtifactStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save stores content for a party and returns the artifact's relative location
func (s *ArtifactStore) Save(partyID, name string, content []byte) (string, error) {
	fullPath, rel, err := s.resolve(partyID, name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create party folder",
			zap.String("party_id", partyID),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// Write to a temp file first so readers never see a half-written workbook
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		s.logger.Error("Failed to write artifact",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Artifact saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return rel, nil
}

// Open returns the content of a stored artifact
func (s *ArtifactStore) Open(partyID, name string) ([]byte, error) {
	fullPath, _, err := s.resolve(partyID, name)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return content, nil
}

// List returns the artifact names stored for a party
func (s *ArtifactStore) List(partyID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, SanitizeFolderName(partyID)))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && !strings.HasSuffix(e.Name(), ".tmp") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// resolve maps a party and artifact name to a path inside baseDir
func (s *ArtifactStore) resolve(partyID, name string) (string, string, error) {
	folder := SanitizeFolderName(partyID)
	if folder == "" {
		return "", "", fmt.Errorf("%w: party id %q", ErrInvalidArtifactName, partyID)
	}
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}

	rel := filepath.Join(folder, name)
	fullPath := filepath.Join(s.baseDir, rel)
	if err := s.ValidatePath(fullPath); err != nil {
		return "", "", err
	}
	return fullPath, filepath.ToSlash(rel), nil
}

// ValidatePath checks that the path is within baseDir
func (s *ArtifactStore) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// SanitizeFolderName keeps only letters, digits, hyphens and underscores
func SanitizeFolderName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	return unsafeFolderChars.ReplaceAllString(name, "")
}
