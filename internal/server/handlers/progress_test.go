package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/server/ledger"
	"github.com/iudanet/gophprogress/internal/server/metrics"
	"github.com/iudanet/gophprogress/pkg/api"
)

var testRules = ledger.Rules{PremiumItem: "GOD_OF_WEALTH", ExpPerLevel: 10}

func newProgressHandler(store *mockProgressStorage) *ProgressHandler {
	return NewProgressHandler(setupTestLogger(), store, testRules)
}

func progressJSON(t *testing.T, record models.ProgressRecord) string {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	return string(data)
}

func saveRequest(t *testing.T, userID string, body any) *http.Request {
	t.Helper()
	req := postJSON(t, "/game/saveGameProgress", body)
	return req.WithContext(withUser(req.Context(), userID))
}

func decodeSave(t *testing.T, w *httptest.ResponseRecorder) api.SaveProgressResponse {
	t.Helper()
	var resp api.SaveProgressResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestProgressHandler_QueryProgress_NewPlayer(t *testing.T) {
	handler := newProgressHandler(newMockProgressStorage())

	req := httptest.NewRequest(http.MethodGet, "/game/queryGameProgress", nil)
	req = req.WithContext(withUser(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	handler.QueryProgress(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.QueryProgressResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, api.CodeOK, resp.Code)
	assert.Equal(t, "success", resp.Msg)
	require.NotNil(t, resp.Data)
	assert.Equal(t, int64(0), *resp.Data.GoldNum)
	assert.Equal(t, int64(1), *resp.Data.Level)
}

func TestProgressHandler_QueryProgress_Existing(t *testing.T) {
	store := newMockProgressStorage()
	l := models.NewLedger("user-1", testNow)
	l.GoldOther, l.GoldComposed = 30, 170
	l.WealthCount = 2
	store.ledgers["user-1"] = l
	handler := newProgressHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/game/queryGameProgress", nil)
	req = req.WithContext(withUser(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	handler.QueryProgress(w, req)

	var resp api.QueryProgressResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Data)
	assert.Equal(t, int64(200), *resp.Data.GoldNum)
	assert.Equal(t, int64(170), *resp.Data.GoldNumCompose)
	assert.Equal(t, int64(2), *resp.Data.WealthNum)
}

func TestProgressHandler_QueryProgress_Errors(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		handler := newProgressHandler(newMockProgressStorage())
		w := httptest.NewRecorder()
		handler.QueryProgress(w, httptest.NewRequest(http.MethodGet, "/game/queryGameProgress", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := newMockProgressStorage()
		store.getError = errors.New("database is locked")
		handler := newProgressHandler(store)

		req := httptest.NewRequest(http.MethodGet, "/game/queryGameProgress", nil)
		req = req.WithContext(withUser(req.Context(), "user-1"))
		w := httptest.NewRecorder()
		handler.QueryProgress(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp api.QueryProgressResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
	})
}

func TestProgressHandler_SaveProgress_Applies(t *testing.T) {
	store := newMockProgressStorage()
	handler := newProgressHandler(store)
	applied := testutil.ToFloat64(metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeApplied))

	local := models.InitializeDefault(testNow)
	local.GoldComposed = 50
	local.ProgressToken = "tok-7"

	w := httptest.NewRecorder()
	handler.SaveProgress(w, saveRequest(t, "user-1", api.SaveProgressRequest{
		RequestID:    "progress_a",
		DeviceID:     "dev",
		Progress:     progressJSON(t, local),
		ItemCodes:    []string{"ITEM_A", "GOD_OF_WEALTH", "ITEM_B"},
		Times:        3,
		PremiumCount: 1,
	}))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSave(t, w)
	assert.Equal(t, api.CodeOK, resp.Code)
	require.NotNil(t, resp.Data)
	assert.Equal(t, int64(50), *resp.Data.GoldNumCompose)
	assert.Equal(t, int64(1), *resp.Data.WealthNum)
	assert.Equal(t, int64(3), *resp.Data.Exp)
	assert.Equal(t, "tok-7", *resp.Data.Progress)

	assert.InDelta(t, applied+1, testutil.ToFloat64(metrics.ProgressSavesTotal.WithLabelValues(metrics.OutcomeApplied)), 0)
}

func TestProgressHandler_SaveProgress_ReplayedRequestID(t *testing.T) {
	store := newMockProgressStorage()
	handler := newProgressHandler(store)

	body := api.SaveProgressRequest{
		RequestID: "progress_same",
		ItemCodes: []string{"GOD_OF_WEALTH"},
		Times:     1,
	}

	for range 3 {
		w := httptest.NewRecorder()
		handler.SaveProgress(w, saveRequest(t, "user-1", body))
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeSave(t, w)
		require.Equal(t, api.CodeOK, resp.Code)
		assert.Equal(t, int64(1), *resp.Data.WealthNum)
		assert.Equal(t, int64(1), *resp.Data.Exp)
	}
}

func TestProgressHandler_SaveProgress_BusinessErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"times mismatch", `{"requestId":"r","composeIllustrationCodeList":["A"],"times":2}`},
		{"bad item code", `{"requestId":"r","composeIllustrationCodeList":["lower"],"times":1}`},
		{"bad progress", `{"requestId":"r","progress":"{broken","composeIllustrationCodeList":[],"times":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockProgressStorage()
			handler := newProgressHandler(store)

			req := httptest.NewRequest(http.MethodPost, "/game/saveGameProgress", strings.NewReader(tt.body))
			req = req.WithContext(withUser(req.Context(), "user-1"))
			w := httptest.NewRecorder()
			handler.SaveProgress(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			resp := decodeSave(t, w)
			assert.Equal(t, api.CodeBadRequest, resp.Code)
			assert.NotEmpty(t, resp.Msg)
			assert.Nil(t, resp.Data)
			assert.Empty(t, store.ledgers)
		})
	}
}

func TestProgressHandler_SaveProgress_StorageFailure(t *testing.T) {
	store := newMockProgressStorage()
	store.saveError = errors.New("disk I/O error")
	handler := newProgressHandler(store)

	w := httptest.NewRecorder()
	handler.SaveProgress(w, saveRequest(t, "user-1", api.SaveProgressRequest{RequestID: "r"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, api.CodeInternal, decodeSave(t, w).Code)
}

func TestProgressHandler_SaveProgress_Unauthorized(t *testing.T) {
	handler := newProgressHandler(newMockProgressStorage())

	w := httptest.NewRecorder()
	handler.SaveProgress(w, postJSON(t, "/game/saveGameProgress", api.SaveProgressRequest{}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProgressHandler_SaveThenQuery(t *testing.T) {
	store := newMockProgressStorage()
	handler := newProgressHandler(store)

	w := httptest.NewRecorder()
	handler.SaveProgress(w, saveRequest(t, "user-1", api.SaveProgressRequest{
		RequestID: "r1",
		ItemCodes: []string{"A", "B"},
		Times:     2,
	}))
	require.Equal(t, api.CodeOK, decodeSave(t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/game/queryGameProgress", nil)
	req = req.WithContext(withUser(context.Background(), "user-1"))
	w = httptest.NewRecorder()
	handler.QueryProgress(w, req)

	var resp api.QueryProgressResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(2), *resp.Data.Exp)
}
