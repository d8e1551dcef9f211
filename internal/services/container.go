// internal/services/container.go
// Service container provides dependency injection for all business
// logic services, keeping the engine and its adapters loosely coupled
// from the HTTP/websocket presentation layer.

package services

import (
	"errors"
	"log"

	"tournament-planner/internal/config"
	"tournament-planner/internal/database"
	"tournament-planner/internal/notify"
	"tournament-planner/internal/provider"
	"tournament-planner/internal/repositories"
	"tournament-planner/internal/seeding"
)

// Container holds all service instances and provides them to handlers.
type Container struct {
	Engine *EngineService
	Cache  *CacheService
	Auth   *AuthService
}

// NewContainer creates a new service container with all dependencies.
func NewContainer(db *database.Connections, cfg *config.Config, hub notify.Hub, logger *log.Logger) *Container {
	stateRepo := repositories.NewStateRepository(db.MySQL)
	userRepo := repositories.NewUserRepository(db.MySQL)

	cache := NewCacheService(db.Redis, logger)
	emitter := notify.NewCompositeEmitter(hub, db.MongoDB, logger)
	seeder := seeding.NewSeeder(seeding.DefaultHTTPGetter(), cache, logger)
	providerFactory := func(baseURL, apiKey string) provider.Client {
		return provider.NewHTTPClient(baseURL, apiKey, logger)
	}

	engineSvc := NewEngineService(stateRepo, emitter, seeder, providerFactory, logger)
	auth := NewAuthService(userRepo, cfg.Auth, cache, logger)

	return &Container{
		Engine: engineSvc,
		Cache:  cache,
		Auth:   auth,
	}
}

// Common errors used across services.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)
