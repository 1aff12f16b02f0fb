package storage

import (
	"context"

	"github.com/iudanet/gophprogress/internal/models"
)

// ApplyFunc вычисляет новое состояние ledger из текущего.
// Вызывается внутри транзакции хранилища.
type ApplyFunc func(current models.Ledger) (models.Ledger, error)

// ProgressStorage хранит авторитетный прогресс игроков
type ProgressStorage interface {
	// GetLedger возвращает ledger игрока
	// Returns ErrLedgerNotFound if the player never saved progress
	GetLedger(ctx context.Context, userID string) (*models.Ledger, error)

	// ApplySave атомарно применяет apply к ledger и помечает requestID обработанным.
	// Повторный requestID не применяется: возвращается текущий ledger и replayed=true.
	ApplySave(ctx context.Context, userID, requestID string, apply ApplyFunc) (ledger models.Ledger, replayed bool, err error)
}
