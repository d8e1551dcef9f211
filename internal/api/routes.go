// internal/api/routes.go
// Central route registration for all API endpoints

package api

import (
	"log"

	"tournament-planner/internal/middleware"
	"tournament-planner/internal/services"
	ws "tournament-planner/internal/websocket"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers authentication-related routes
func RegisterAuthRoutes(router *gin.RouterGroup, svc *services.Container) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", HandleRegister(svc.Auth))
		auth.POST("/login", HandleLogin(svc.Auth))
		auth.POST("/refresh", HandleRefreshToken(svc.Auth))
	}
}

// RegisterTournamentRoutes registers tournament lifecycle and
// participant routes. Every mutating route requires operator auth;
// the spec's TO/admin account surface is the only writer of a
// tournament's lifecycle.
func RegisterTournamentRoutes(router *gin.RouterGroup, svc *services.Container) {
	tournaments := router.Group("/tournaments")
	tournaments.Use(middleware.RequireAuth(svc.Auth))
	{
		tournaments.POST("", HandleCreateTournament(svc.Engine))
		tournaments.GET("/:id", middleware.RequireTournamentExists(svc.Engine), HandleGetTournament(svc.Engine))

		tournaments.POST("/:id/registration/start", middleware.RequireTournamentExists(svc.Engine), HandleStartRegistration(svc.Engine))
		tournaments.POST("/:id/registration/end", middleware.RequireTournamentExists(svc.Engine), HandleEndRegistration(svc.Engine))
		tournaments.POST("/:id/participants", middleware.RequireTournamentExists(svc.Engine), HandleRegisterParticipant(svc.Engine))
		tournaments.DELETE("/:id/participants/:userId", middleware.RequireTournamentExists(svc.Engine), HandleUnregisterParticipant(svc.Engine))
		tournaments.POST("/:id/participants/:userId/checkin", middleware.RequireTournamentExists(svc.Engine), HandleCheckInParticipant(svc.Engine))

		tournaments.POST("/:id/checkin/start", middleware.RequireTournamentExists(svc.Engine), HandleStartCheckin(svc.Engine))
		tournaments.POST("/:id/checkin/call", middleware.RequireTournamentExists(svc.Engine), HandleCallCheckin(svc.Engine))
		tournaments.POST("/:id/checkin/end", middleware.RequireTournamentExists(svc.Engine), HandleEndCheckin(svc.Engine))

		tournaments.POST("/:id/start", middleware.RequireTournamentExists(svc.Engine), HandleStartTournament(svc.Engine))
		tournaments.POST("/:id/end", middleware.RequireTournamentExists(svc.Engine), HandleEndTournament(svc.Engine))
		tournaments.POST("/:id/bracket/reset", middleware.RequireTournamentExists(svc.Engine), HandleResetBracket(svc.Engine))

		tournaments.POST("/:id/matches/:set/score", middleware.RequireTournamentExists(svc.Engine), HandleReportScore(svc.Engine))
		tournaments.POST("/:id/matches/:set/force-end", middleware.RequireTournamentExists(svc.Engine), HandleForceEndMatch(svc.Engine))
		tournaments.POST("/:id/matches/:set/relaunch", middleware.RequireTournamentExists(svc.Engine), HandleRelaunchMatch(svc.Engine))
		tournaments.POST("/:id/matches/:set/disqualify", middleware.RequireTournamentExists(svc.Engine), HandleDisqualifyParticipant(svc.Engine))
		tournaments.POST("/:id/matches/:set/forfeit", middleware.RequireTournamentExists(svc.Engine), HandleForfeitMatch(svc.Engine))

		tournaments.POST("/:id/streamers", middleware.RequireTournamentExists(svc.Engine), HandleAddStreamer(svc.Engine))
		tournaments.POST("/:id/streamers/:streamerId/swap", middleware.RequireTournamentExists(svc.Engine), HandleSwapStreamerQueue(svc.Engine))
		tournaments.POST("/:id/streamers/:streamerId/insert", middleware.RequireTournamentExists(svc.Engine), HandleInsertStreamerQueue(svc.Engine))
		tournaments.POST("/:id/streamers/:streamerId/remove", middleware.RequireTournamentExists(svc.Engine), HandleRemoveFromStreamerQueue(svc.Engine))
		tournaments.DELETE("/:id/streamers/:streamerId", middleware.RequireTournamentExists(svc.Engine), HandleEndStreamer(svc.Engine))
	}
}

// RegisterWebSocketRoutes registers the dashboard WebSocket endpoint.
func RegisterWebSocketRoutes(router *gin.RouterGroup, hub *ws.Hub, svc *services.Container, logger *log.Logger) {
	router.GET("/ws", OptionalWebSocketAuth(svc.Auth), HandleWebSocketUpgrade(hub, logger))
}
