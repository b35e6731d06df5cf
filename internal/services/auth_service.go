package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/config"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
	"github.com/housiehub/housie-backend/internal/utils"
)

// AuthService defines the interface for registration and login
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (string, *models.User, error)
}

// AuthServiceImpl implements the AuthService interface
type AuthServiceImpl struct {
	userRepo repositories.UserRepository
	config   *config.Config
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.UserRepository, config *config.Config) *AuthServiceImpl {
	return &AuthServiceImpl{userRepo: userRepo, config: config}
}

// Register creates a new player account with a hashed password.
func (s *AuthServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	existing, err := s.userRepo.FindByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("phone %s already registered: %w", req.Phone, apperrors.ErrInvalidState)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  string(hashed),
		Role:      "user",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User registered", "userId", user.ID.Hex(), "phone", user.Phone)
	return user, nil
}

// Login verifies credentials and returns a signed token for the user.
func (s *AuthServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (string, *models.User, error) {
	user, err := s.userRepo.FindByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrValidationFailure)
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("account disabled: %w", apperrors.ErrInvalidState)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrValidationFailure)
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role, s.config)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}
