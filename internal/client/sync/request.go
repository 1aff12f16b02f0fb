package sync

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/pkg/api"
)

// RequestMeta метаданные запроса сохранения, не зависящие от батча
type RequestMeta struct {
	RequestID   string
	DeviceID    string
	PackageName string
	PremiumItem string
	Timestamp   int64 // unix ms
}

// NewRequestID генерирует идентификатор запроса сохранения
func NewRequestID() string {
	return "progress_" + uuid.NewString()
}

// BuildSaveRequest собирает тело POST /game/saveGameProgress из батча и снимка записи
func BuildSaveRequest(record models.ProgressRecord, batch []string, meta RequestMeta) (api.SaveProgressRequest, error) {
	progress, err := json.Marshal(record)
	if err != nil {
		return api.SaveProgressRequest{}, fmt.Errorf("failed to marshal progress: %w", err)
	}

	premium := 0
	for _, code := range batch {
		if code == meta.PremiumItem {
			premium++
		}
	}

	items := make([]string, len(batch))
	copy(items, batch)

	return api.SaveProgressRequest{
		RequestID:    meta.RequestID,
		DeviceID:     meta.DeviceID,
		PackageName:  meta.PackageName,
		Progress:     string(progress),
		ItemCodes:    items,
		Timestamp:    meta.Timestamp,
		Times:        len(batch),
		PremiumCount: premium,
	}, nil
}

// toServerSnapshot переводит wire-формат в вход для слияния
func toServerSnapshot(s *api.ProgressSnapshot) models.ServerSnapshot {
	if s == nil {
		return models.ServerSnapshot{}
	}
	return models.ServerSnapshot{
		GoldTotal:      s.GoldNum,
		GoldComposed:   s.GoldNumCompose,
		RedBagTotal:    s.RedBagNum,
		RedBagComposed: s.RedBagNumCompose,
		WealthCount:    s.WealthNum,
		Exp:            s.Exp,
		Level:          s.Level,
		DrawCount:      s.DrawNum,
		ProgressToken:  s.Progress,
	}
}
