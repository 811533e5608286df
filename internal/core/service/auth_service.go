package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rcastell/shop-backend/internal/auth"
	"github.com/rcastell/shop-backend/internal/core/domain"
	"github.com/rcastell/shop-backend/internal/port"
)

// AuthService handles registration and login. Passwords are bcrypt-hashed
// before they reach storage; both operations hand back a signed token.
type AuthService struct {
	users      port.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(users port.UserRepository, tokens *auth.TokenManager, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password, role string) (string, error) {
	if !domain.ValidRole(role) {
		return "", fmt.Errorf("role %q: %w", role, domain.ErrInvalidRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", username))
	return s.tokens.Issue(user.ID, user.Role)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		// A missing account looks the same as a wrong password.
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("invalid password", zap.String("email", email))
		return "", domain.ErrInvalidCredentials
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return s.tokens.Issue(user.ID, user.Role)
}
