// Package storage holds the raw contract documents the extraction
// pipeline reads from. Documents are stored as plain text keyed by
// contract ID; the pipeline only ever needs the text back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// DocumentStore persists raw contract text.
type DocumentStore interface {
	// Save stores the contract text and returns the storage key.
	Save(ctx context.Context, contractID uuid.UUID, text string) (string, error)

	// LoadText retrieves previously stored contract text by key.
	LoadText(ctx context.Context, key string) (string, error)

	// Delete removes a stored document by key.
	Delete(ctx context.Context, key string) error
}

// BackendType selects the storage backend
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendS3    BackendType = "s3"
)

// Config holds configuration for the document store
type Config struct {
	Type         BackendType
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// NewDocumentStore creates a document store from configuration
func NewDocumentStore(cfg Config) (DocumentStore, error) {
	switch cfg.Type {
	case BackendLocal:
		return NewLocalStore(cfg.LocalPath)
	case BackendS3:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewDocumentStoreFromEnv creates a document store from environment variables
func NewDocumentStoreFromEnv() (DocumentStore, error) {
	backend := os.Getenv("STORAGE_TYPE")
	if backend == "" {
		backend = "local"
	}

	cfg := Config{Type: BackendType(backend)}

	switch cfg.Type {
	case BackendLocal:
		cfg.LocalPath = os.Getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/documents"
		}
		return NewLocalStore(cfg.LocalPath)

	case BackendS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Store(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", backend)
	}
}

// documentKey shards stored documents by the first byte of the contract ID.
func documentKey(contractID uuid.UUID) string {
	id := contractID.String()
	return fmt.Sprintf("%s/%s.txt", id[:2], id)
}
