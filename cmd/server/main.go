// cmd/server/main.go
// This is the main entry point for the tournament engine's server. It
// initializes all dependencies, resumes any tournaments left active
// from a prior run, and starts the HTTP server.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-planner/internal/config"
	"tournament-planner/internal/database"
	"tournament-planner/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg.Environment)

	dbConnections, err := initializeDatabases(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to initialize databases: %v", err)
	}
	defer dbConnections.Close()

	srv := server.New(cfg, dbConnections, logger)

	resumeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Resume(resumeCtx); err != nil {
		logger.Printf("failed to resume active tournaments: %v", err)
	}
	cancel()

	go func() {
		logger.Printf("starting server on port %s in %s mode", cfg.Server.Port, cfg.Environment)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	gracefulShutdown(srv, logger)
}

// initializeDatabases sets up all database connections with health checks
func initializeDatabases(cfg *config.Config, logger *log.Logger) (*database.Connections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return database.Initialize(ctx, database.Config{
		MySQL: database.MySQLConfig{
			DSN:             cfg.Database.MySQL.DSN,
			MaxOpenConns:    cfg.Database.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.MySQL.ConnMaxLifetime,
		},
		MongoDB: database.MongoConfig{
			URI:      cfg.Database.MongoDB.URI,
			Database: cfg.Database.MongoDB.Database,
		},
		Redis: database.RedisConfig{
			Addr:     cfg.Database.Redis.Addr,
			Password: cfg.Database.Redis.Password,
			DB:       cfg.Database.Redis.DB,
		},
	}, logger)
}

// setupLogger returns the stdout logger; every environment gets the same one
func setupLogger(env string) *log.Logger {
	return log.New(os.Stdout, "[tournament-engine] ", log.LstdFlags|log.Lshortfile)
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(srv *server.Server, logger *log.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("server forced to shutdown: %v", err)
	}

	logger.Println("server exited")
}
