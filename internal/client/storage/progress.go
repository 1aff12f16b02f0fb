package storage

import (
	"context"

	"github.com/iudanet/gophprogress/internal/models"
)

//go:generate moq -out progress_mock.go . ProgressStorage

// ProgressStorage хранит единственную локальную запись прогресса устройства
type ProgressStorage interface {
	// LoadProgress возвращает сохранённую запись
	// Returns ErrProgressNotFound if nothing was saved yet
	LoadProgress(ctx context.Context) (*models.ProgressRecord, error)

	// SaveProgress перезаписывает запись целиком.
	// Реализация проставляет LastLocalSaveAt перед сериализацией.
	SaveProgress(ctx context.Context, record *models.ProgressRecord) error
}
