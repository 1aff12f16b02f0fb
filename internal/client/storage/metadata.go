package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// GetDeviceID returns the stable device identifier, generating it on first call
	GetDeviceID(ctx context.Context) (string, error)

	// SaveLastSyncTimestamp saves the timestamp of the last successful sync (unix ms)
	SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error

	// GetLastSyncTimestamp retrieves the timestamp of the last successful sync
	// Returns 0 if no sync has been performed yet
	GetLastSyncTimestamp(ctx context.Context) (int64, error)
}
