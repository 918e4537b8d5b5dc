package inbound

import (
	"context"

	"go-realtime-template/internal/domain/user"
)

type UserUseCase interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	Get(ctx context.Context, id int64) (*user.User, error)
	// Login returns an access token for valid credentials.
	Login(ctx context.Context, email, password string) (string, error)
	// Authenticate resolves an access token to its user.
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

type PredictionUseCase interface {
	Predict(ctx context.Context, features []float64) (float64, error)
}
