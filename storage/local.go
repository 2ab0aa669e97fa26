package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps contract documents on the local filesystem.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new local document store
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Save writes the contract text to disk
func (s *LocalStore) Save(ctx context.Context, contractID uuid.UUID, text string) (string, error) {
	key := documentKey(contractID)
	fullPath := filepath.Join(s.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(text), 0644); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return key, nil
}

// LoadText reads a stored document back
func (s *LocalStore) LoadText(ctx context.Context, key string) (string, error) {
	fullPath := filepath.Join(s.basePath, key)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("document not found: %s", key)
		}
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

// Delete removes a stored document
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.basePath, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
