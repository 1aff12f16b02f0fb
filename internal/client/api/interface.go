package api

import (
	"context"

	"github.com/iudanet/gophprogress/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет операции сервера прогресса, которые использует клиент
type ClientAPI interface {
	QueryProgress(ctx context.Context, token string) (*api.ProgressSnapshot, error)
	SaveProgress(ctx context.Context, token string, req api.SaveProgressRequest) (*api.ProgressSnapshot, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	Health(ctx context.Context) (*api.HealthResponse, error)
}

var _ ClientAPI = (*Client)(nil)
