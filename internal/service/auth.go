package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/codehouse/bookshop/internal/auth"
	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/repository"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

// AuthService authenticates shop users and issues access tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.JWTManager
	logger *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(users repository.UserRepository, tokens *auth.JWTManager, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: log,
	}
}

// Login verifies the credentials and returns a signed access token together
// with the authenticated user. Unknown users and bad passwords return the
// same error so login failures leak nothing about which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, apperrors.Unauthorized("invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.InfoContext(ctx, "login rejected", slog.String("email", email))
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("email", email))

	return token, user, nil
}
