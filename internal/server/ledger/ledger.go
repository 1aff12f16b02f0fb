// Package ledger применяет батчи compose-событий к серверному прогрессу игрока.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/validation"
	"github.com/iudanet/gophprogress/pkg/api"
)

// ErrInvalidRequest тело запроса сохранения не проходит проверку
var ErrInvalidRequest = errors.New("invalid save request")

// Rules параметры начисления
type Rules struct {
	PremiumItem string
	ExpPerLevel int64
}

// Apply возвращает новое состояние ledger после батча.
//
// Compose-счётчики продвигаются до max(stored, reported): клиент присылает
// свои накопленные значения в progress. Богатство растёт на число premium
// событий, опыт на размер батча.
func Apply(current models.Ledger, req api.SaveProgressRequest, rules Rules) (models.Ledger, error) {
	if err := Validate(req); err != nil {
		return models.Ledger{}, err
	}

	var reported models.ProgressRecord
	if req.Progress != "" {
		if err := json.Unmarshal([]byte(req.Progress), &reported); err != nil {
			return models.Ledger{}, fmt.Errorf("%w: progress is not a valid record: %v", ErrInvalidRequest, err)
		}
	}

	updated := current
	updated.GoldComposed = max(current.GoldComposed, reported.GoldComposed)
	updated.RedBagComposed = max(current.RedBagComposed, reported.RedBagComposed)

	premium := CountPremium(req.ItemCodes, rules.PremiumItem)
	updated.WealthCount += int64(min(premium, req.Times))
	updated.Exp += int64(req.Times)

	if rules.ExpPerLevel > 0 {
		updated.Level = max(current.Level, models.DefaultLevel+updated.Exp/rules.ExpPerLevel)
	}

	if reported.ProgressToken != "" {
		updated.Progress = reported.ProgressToken
	}

	return updated, nil
}

// Validate проверяет согласованность полей батча
func Validate(req api.SaveProgressRequest) error {
	if req.Times < 0 {
		return fmt.Errorf("%w: times must not be negative", ErrInvalidRequest)
	}
	if req.Times != len(req.ItemCodes) {
		return fmt.Errorf("%w: times=%d but %d item codes", ErrInvalidRequest, req.Times, len(req.ItemCodes))
	}
	if req.PremiumCount < 0 || req.PremiumCount > req.Times {
		return fmt.Errorf("%w: composeTgcfNum=%d out of range", ErrInvalidRequest, req.PremiumCount)
	}
	for _, code := range req.ItemCodes {
		if err := validation.ValidateItemCode(code); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	return nil
}

// ToSnapshot переводит ledger в wire-формат ответа
func ToSnapshot(l models.Ledger) *api.ProgressSnapshot {
	s := l.Snapshot()
	return &api.ProgressSnapshot{
		GoldNum:          s.GoldTotal,
		GoldNumCompose:   s.GoldComposed,
		RedBagNum:        s.RedBagTotal,
		RedBagNumCompose: s.RedBagComposed,
		WealthNum:        s.WealthCount,
		Exp:              s.Exp,
		Level:            s.Level,
		DrawNum:          s.DrawCount,
		Progress:         s.ProgressToken,
	}
}

// CountPremium число событий premium предмета в батче
func CountPremium(codes []string, premium string) int {
	n := 0
	for _, code := range codes {
		if code == premium {
			n++
		}
	}
	return n
}
