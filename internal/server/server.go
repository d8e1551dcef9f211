// internal/server/server.go
// HTTP server setup with dependency injection

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"tournament-planner/internal/api"
	"tournament-planner/internal/config"
	"tournament-planner/internal/database"
	"tournament-planner/internal/middleware"
	"tournament-planner/internal/services"
	"tournament-planner/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	router   *gin.Engine
	services *services.Container
	hub      *websocket.Hub
	logger   *log.Logger
	server   *http.Server
}

// New creates a new server with all dependencies
func New(cfg *config.Config, db *database.Connections, logger *log.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	serviceContainer := services.NewContainer(db, cfg, hub, logger)

	router := setupRouter(cfg, serviceContainer, hub, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		config:   cfg,
		router:   router,
		services: serviceContainer,
		hub:      hub,
		logger:   logger,
		server:   srv,
	}
}

// setupRouter configures all routes and middleware
func setupRouter(cfg *config.Config, svc *services.Container, hub *websocket.Hub, logger *log.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimiter(svc.Cache))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	if cfg.Features.MaintenanceMode {
		router.Use(middleware.MaintenanceMode())
	}

	router.GET("/health", api.HealthCheck(cfg))

	v1 := router.Group("/api/v1")
	{
		api.RegisterAuthRoutes(v1, svc)
		api.RegisterTournamentRoutes(v1, svc)
	}

	if cfg.Features.EnableWebSocket {
		api.RegisterWebSocketRoutes(router, hub, svc, logger)
	}

	return router
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Resume reloads every active tournament from storage and restarts
// its reconciliation loop. Call once after New, before Start.
func (s *Server) Resume(ctx context.Context) error {
	return s.services.Engine.ResumeAll(ctx)
}

// Shutdown gracefully shuts down the server and stops every live
// tournament's reconciliation loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("shutting down server...")
	s.services.Engine.ShutdownAll()
	return s.server.Shutdown(ctx)
}
