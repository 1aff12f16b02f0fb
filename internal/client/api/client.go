package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/gophprogress/pkg/api"
)

// DefaultRequestTimeout таймаут одного запроса к серверу прогресса
const DefaultRequestTimeout = 10 * time.Second

const (
	queryProgressPath = "/game/queryGameProgress"
	saveProgressPath  = "/game/saveGameProgress"
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	timeout    time.Duration
}

// Option настраивает Client
type Option func(*Client)

// WithTimeout задаёт таймаут на каждый вызов
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger задаёт логгер
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient подменяет транспорт (тесты, прокси)
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultRequestTimeout,
		logger:  slog.Default(),
		httpClient: &http.Client{
			// таймаут задаётся контекстом каждого вызова
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryProgress загружает серверный снимок прогресса игрока.
// Пустой токен возвращает ErrAuthMissing без сетевого запроса.
func (c *Client) QueryProgress(ctx context.Context, token string) (*api.ProgressSnapshot, error) {
	if token == "" {
		return nil, &SyncError{Kind: KindAuthMissing}
	}

	var resp api.QueryProgressResponse
	if err := c.doRequest(ctx, http.MethodGet, queryProgressPath, token, nil, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		// сервер иногда отвечает success=false с сообщением об успехе
		if !looksSuccessful(resp.Msg) {
			return nil, &SyncError{Kind: KindBusiness, Code: resp.Code, Message: resp.Msg}
		}
		c.logger.Warn("query progress: success flag is false but message reports success, accepting data",
			"code", resp.Code,
			"msg", resp.Msg,
		)
	}

	if resp.Data == nil {
		return &api.ProgressSnapshot{}, nil
	}
	return resp.Data, nil
}

// SaveProgress отправляет батч compose-событий. Успех только при code == 200.
func (c *Client) SaveProgress(ctx context.Context, token string, req api.SaveProgressRequest) (*api.ProgressSnapshot, error) {
	if token == "" {
		return nil, &SyncError{Kind: KindAuthMissing}
	}

	var resp api.SaveProgressResponse
	if err := c.doRequest(ctx, http.MethodPost, saveProgressPath, token, req, &resp); err != nil {
		return nil, err
	}

	if resp.Code != api.CodeOK {
		return nil, &SyncError{Kind: KindBusiness, Code: resp.Code, Message: resp.Msg}
	}

	if resp.Data == nil {
		return &api.ProgressSnapshot{}, nil
	}
	return resp.Data, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и классифицирует ошибки в *SyncError
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &SyncError{Kind: KindParse, StatusCode: resp.StatusCode, Err: err}
		}
	}

	return nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &SyncError{Kind: KindTimeout, Err: err}
	}
	return &SyncError{Kind: KindNetwork, Err: err}
}

func statusError(status int, body []byte) error {
	kind := KindHTTP
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthorized
	case http.StatusForbidden:
		kind = KindForbidden
	}

	syncErr := &SyncError{Kind: kind, StatusCode: status}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Message != "" || errResp.Error != "") {
		syncErr.Message = errResp.Message
		if syncErr.Message == "" {
			syncErr.Message = errResp.Error
		}
	}
	return syncErr
}

func looksSuccessful(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "success") || strings.Contains(msg, "成功")
}
