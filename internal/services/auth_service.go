// internal/services/auth_service.go
// Authentication and authorization for the TO/operator account surface.

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"tournament-planner/internal/config"
	"tournament-planner/internal/models"
	"tournament-planner/internal/repositories"
	"tournament-planner/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles operator authentication and authorization.
type AuthService struct {
	userRepo *repositories.UserRepository
	config   config.AuthConfig
	cache    *CacheService
	logger   *log.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo *repositories.UserRepository, cfg config.AuthConfig, cache *CacheService, logger *log.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, config: cfg, cache: cache, logger: logger}
}

var ErrEmailAlreadyExists = fmt.Errorf("email already exists")

// Register creates a new operator account.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.TokenPair, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, nil, ErrEmailAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           utils.GenerateUUID(),
		Email:        req.Email,
		PasswordHash: string(hashed),
		DisplayName:  req.DisplayName,
		Role:         models.RoleOrganizer,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokenPair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	user.PasswordHash = ""
	return user, tokenPair, nil
}

// Login authenticates an operator and returns tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokenPair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	go s.userRepo.UpdateLastLogin(context.Background(), user.ID)

	user.PasswordHash = ""
	return user, tokenPair, nil
}

// RefreshToken generates new tokens from a previously-issued refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	cacheKey := fmt.Sprintf("refresh_token_%s", refreshToken)
	var userID string
	if err := s.cache.Get(ctx, cacheKey, &userID); err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	s.cache.Delete(ctx, cacheKey)
	return s.generateTokenPair(ctx, user)
}

// ValidateToken validates an access token and returns the operator id and role.
func (s *AuthService) ValidateToken(token string) (string, string, error) {
	return utils.ValidateJWT(token, s.config.JWTSecret)
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	accessToken, err := utils.GenerateJWT(user.ID, string(user.Role), s.config.JWTSecret, s.config.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := utils.GenerateSecureToken()
	cacheKey := fmt.Sprintf("refresh_token_%s", refreshToken)
	if err := s.cache.Set(ctx, cacheKey, user.ID, s.config.RefreshTokenExpiry); err != nil {
		s.logger.Printf("failed to cache refresh token: %v", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.config.JWTExpiration),
	}, nil
}
