package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/server/ledger"
	"github.com/iudanet/gophprogress/internal/server/metrics"
	"github.com/iudanet/gophprogress/internal/server/storage"
	"github.com/iudanet/gophprogress/pkg/api"
)

const msgSuccess = "success"

// ProgressHandler обслуживает /game/queryGameProgress и /game/saveGameProgress
type ProgressHandler struct {
	logger *slog.Logger
	store  storage.ProgressStorage
	rules  ledger.Rules
	now    func() time.Time
}

// NewProgressHandler создает handler прогресса
func NewProgressHandler(logger *slog.Logger, store storage.ProgressStorage, rules ledger.Rules) *ProgressHandler {
	return &ProgressHandler{
		logger: logger,
		store:  store,
		rules:  rules,
		now:    time.Now,
	}
}

// QueryProgress обрабатывает GET /game/queryGameProgress.
// Игрок без сохранённого прогресса получает начальный снимок.
func (h *ProgressHandler) QueryProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	current, err := h.store.GetLedger(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrLedgerNotFound):
		fresh := models.NewLedger(userID, h.now().UTC())
		current = &fresh
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to load ledger", slog.String("user_id", userID), slog.Any("error", err))
		writeJSON(h.logger, w, api.QueryProgressResponse{
			Code: api.CodeInternal,
			Msg:  "internal server error",
		}, http.StatusInternalServerError)
		return
	}

	writeJSON(h.logger, w, api.QueryProgressResponse{
		Success: true,
		Code:    api.CodeOK,
		Msg:     msgSuccess,
		Data:    ledger.ToSnapshot(*current),
	}, http.StatusOK)
}

// SaveProgress обрабатывает POST /game/saveGameProgress.
// Ошибки содержимого запроса отдаются с HTTP 200 и бизнес-кодом 400.
func (h *ProgressHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.SaveProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		h.reject(w, r, userID, "invalid request body")
		return
	}

	updated, replayed, err := h.store.ApplySave(ctx, userID, req.RequestID, func(current models.Ledger) (models.Ledger, error) {
		return ledger.Apply(current, req, h.rules)
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidRequest) {
			metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			h.reject(w, r, userID, err.Error())
			return
		}
		metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		h.logger.ErrorContext(ctx, "failed to apply progress save",
			slog.String("user_id", userID),
			slog.String("request_id", req.RequestID),
			slog.Any("error", err),
		)
		writeJSON(h.logger, w, api.SaveProgressResponse{
			Code: api.CodeInternal,
			Msg:  "internal server error",
		}, http.StatusInternalServerError)
		return
	}

	if replayed {
		metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeReplayed).Inc()
		h.logger.InfoContext(ctx, "replayed progress save",
			slog.String("user_id", userID),
			slog.String("request_id", req.RequestID),
		)
	} else {
		metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeApplied).Inc()
		premium := min(ledger.CountPremium(req.ItemCodes, h.rules.PremiumItem), req.Times)
		metrics.ComposeEventsTotal.WithLabelValues("premium").Add(float64(premium))
		metrics.ComposeEventsTotal.WithLabelValues("regular").Add(float64(req.Times - premium))
		h.logger.DebugContext(ctx, "applied progress save",
			slog.String("user_id", userID),
			slog.String("request_id", req.RequestID),
			slog.Int("times", req.Times),
		)
	}

	writeJSON(h.logger, w, api.SaveProgressResponse{
		Code: api.CodeOK,
		Msg:  msgSuccess,
		Data: ledger.ToSnapshot(updated),
	}, http.StatusOK)
}

func (h *ProgressHandler) reject(w http.ResponseWriter, r *http.Request, userID, msg string) {
	h.logger.WarnContext(r.Context(), "rejected progress save",
		slog.String("user_id", userID),
		slog.String("reason", msg),
	)
	writeJSON(h.logger, w, api.SaveProgressResponse{
		Code: api.CodeBadRequest,
		Msg:  msg,
	}, http.StatusOK)
}
