package facade

import (
	"context"
	"errors"
	"fmt"

	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/port/inbound"
	"go-realtime-template/internal/port/outbound"
)

type UserApplicationService struct {
	users  outbound.UserRepository
	hasher outbound.PasswordHasher
	tokens outbound.TokenIssuer
	logger logger.Logger
}

var _ inbound.UserUseCase = (*UserApplicationService)(nil)

func NewUserApplicationService(
	users outbound.UserRepository,
	hasher outbound.PasswordHasher,
	tokens outbound.TokenIssuer,
	log logger.Logger,
) *UserApplicationService {
	return &UserApplicationService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: log.WithField("component", "user_service"),
	}
}

func (s *UserApplicationService) Register(ctx context.Context, email, password string) (*user.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", u.ID).Info("User registered")
	return u, nil
}

func (s *UserApplicationService) Get(ctx context.Context, id int64) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserApplicationService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return "", user.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := s.hasher.Verify(password, u.HashedPassword); err != nil {
		return "", user.ErrInvalidCredentials
	}

	return s.tokens.Issue(u.ID)
}

func (s *UserApplicationService) Authenticate(ctx context.Context, token string) (*user.User, error) {
	id, err := s.tokens.Subject(token)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}
