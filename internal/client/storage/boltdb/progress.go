package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophprogress/internal/client/storage"
	"github.com/iudanet/gophprogress/internal/models"
)

var progressKey = []byte("current")

// SaveProgress перезаписывает запись прогресса, проставляя LastLocalSaveAt
func (s *Storage) SaveProgress(ctx context.Context, record *models.ProgressRecord) error {
	if record == nil {
		return fmt.Errorf("progress record is nil")
	}

	// штамп ставим на копию, чтобы не мутировать запись вызывающего
	stamped := *record
	stamped.LastLocalSaveAt = s.now()

	data, err := json.Marshal(&stamped)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProgress)
		if bucket == nil {
			return fmt.Errorf("progress bucket not found")
		}

		if err := bucket.Put(progressKey, data); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return nil
	})
}

// LoadProgress возвращает сохранённую запись или storage.ErrProgressNotFound
func (s *Storage) LoadProgress(ctx context.Context) (*models.ProgressRecord, error) {
	var record *models.ProgressRecord

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProgress)
		if bucket == nil {
			return fmt.Errorf("progress bucket not found")
		}

		data := bucket.Get(progressKey)
		if data == nil {
			return storage.ErrProgressNotFound
		}

		record = &models.ProgressRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}
