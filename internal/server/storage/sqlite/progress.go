package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/server/storage"
)

const selectLedger = `
	SELECT user_id, gold_other, gold_composed, red_bag_other, red_bag_composed,
	       wealth_count, exp, level, draw_count, progress, updated_at
	FROM progress
	WHERE user_id = ?
`

type rowScanner interface {
	Scan(dest ...any) error
}

// GetLedger возвращает ledger игрока
func (s *Storage) GetLedger(ctx context.Context, userID string) (*models.Ledger, error) {
	ledger, err := scanLedger(s.db.QueryRowContext(ctx, selectLedger, userID))
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// ApplySave применяет изменение и отмечает requestID в одной транзакции
func (s *Storage) ApplySave(ctx context.Context, userID, requestID string, apply storage.ApplyFunc) (models.Ledger, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Ledger{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanLedger(tx.QueryRowContext(ctx, selectLedger, userID))
	switch {
	case errors.Is(err, storage.ErrLedgerNotFound):
		fresh := models.NewLedger(userID, time.Now().UTC())
		current = &fresh
	case err != nil:
		return models.Ledger{}, false, err
	}

	if requestID != "" {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM processed_requests WHERE user_id = ? AND request_id = ?`,
			userID, requestID,
		).Scan(&exists)
		if err == nil {
			return *current, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Ledger{}, false, fmt.Errorf("failed to check request id: %w", err)
		}
	}

	updated, err := apply(*current)
	if err != nil {
		return models.Ledger{}, false, err
	}
	updated.UserID = userID
	updated.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress (user_id, gold_other, gold_composed, red_bag_other, red_bag_composed,
		                      wealth_count, exp, level, draw_count, progress, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			gold_other = excluded.gold_other,
			gold_composed = excluded.gold_composed,
			red_bag_other = excluded.red_bag_other,
			red_bag_composed = excluded.red_bag_composed,
			wealth_count = excluded.wealth_count,
			exp = excluded.exp,
			level = excluded.level,
			draw_count = excluded.draw_count,
			progress = excluded.progress,
			updated_at = excluded.updated_at
	`,
		updated.UserID,
		updated.GoldOther,
		updated.GoldComposed,
		updated.RedBagOther,
		updated.RedBagComposed,
		updated.WealthCount,
		updated.Exp,
		updated.Level,
		updated.DrawCount,
		updated.Progress,
		updated.UpdatedAt,
	)
	if err != nil {
		return models.Ledger{}, false, fmt.Errorf("failed to upsert progress: %w", err)
	}

	if requestID != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO processed_requests (user_id, request_id, processed_at) VALUES (?, ?, ?)`,
			userID, requestID, updated.UpdatedAt,
		)
		if err != nil {
			return models.Ledger{}, false, fmt.Errorf("failed to record request id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Ledger{}, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, false, nil
}

func scanLedger(row rowScanner) (*models.Ledger, error) {
	ledger := &models.Ledger{}
	err := row.Scan(
		&ledger.UserID,
		&ledger.GoldOther,
		&ledger.GoldComposed,
		&ledger.RedBagOther,
		&ledger.RedBagComposed,
		&ledger.WealthCount,
		&ledger.Exp,
		&ledger.Level,
		&ledger.DrawCount,
		&ledger.Progress,
		&ledger.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return ledger, nil
}
