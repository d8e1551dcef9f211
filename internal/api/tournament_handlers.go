// internal/api/tournament_handlers.go
// Tournament lifecycle and participant HTTP handlers

package api

import (
	"net/http"

	"tournament-planner/internal/engine"
	"tournament-planner/internal/models"
	"tournament-planner/internal/services"

	"github.com/gin-gonic/gin"
)

// HandleCreateTournament sets up a new tournament against the remote
// bracket provider and brings it under engine management.
func HandleCreateTournament(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Ref             string              `json:"ref" binding:"required"`
			BaseURL         string              `json:"provider_base_url" binding:"required"`
			APIKey          string              `json:"provider_api_key" binding:"required"`
			Config          models.EngineConfig `json:"config"`
			TZOffsetSeconds int                 `json:"tz_offset_seconds"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		state, err := engineSvc.CreateTournament(c.Request.Context(), services.CreateTournamentRequest{
			Ref:             req.Ref,
			BaseURL:         req.BaseURL,
			APIKey:          req.APIKey,
			Config:          req.Config,
			TZOffsetSeconds: req.TZOffsetSeconds,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"tournament": state})
	}
}

// HandleGetTournament returns the current state snapshot of a tournament.
func HandleGetTournament(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := engineSvc.Snapshot(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tournament": state})
	}
}

func withTournament(c *gin.Context, engineSvc *services.EngineService, fn func(t *engine.Tournament) error) {
	id := c.Param("id")
	t, ok := engineSvc.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
		return
	}

	if err := fn(t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := engineSvc.Persist(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist tournament state"})
		return
	}

	state := t.State()
	c.JSON(http.StatusOK, gin.H{"tournament": state})
}

// HandleStartRegistration opens registration, manually or on the
// second window.
func HandleStartRegistration(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Second bool `json:"second"`
		}
		c.ShouldBindJSON(&req)
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.StartRegistration(c.Request.Context(), req.Second)
		})
	}
}

// HandleEndRegistration closes registration.
func HandleEndRegistration(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.EndRegistration(c.Request.Context())
		})
	}
}

// HandleStartCheckin opens the check-in window.
func HandleStartCheckin(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.StartCheckin(c.Request.Context())
		})
	}
}

// HandleCallCheckin sends a manual check-in reminder.
func HandleCallCheckin(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WithDM bool `json:"with_dm"`
		}
		c.ShouldBindJSON(&req)
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.CallCheckin(c.Request.Context(), req.WithDM)
		})
	}
}

// HandleEndCheckin closes check-in, dropping no-shows.
func HandleEndCheckin(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.EndCheckin(c.Request.Context())
		})
	}
}

// HandleStartTournament transitions to ongoing on the remote bracket.
func HandleStartTournament(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.Start(c.Request.Context())
		})
	}
}

// HandleEndTournament finalizes the tournament and stops its loop.
func HandleEndTournament(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.End(c.Request.Context())
		})
	}
}

// HandleResetBracket resets the remote bracket.
func HandleResetBracket(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.ResetBracket(c.Request.Context())
		})
	}
}

// HandleRegisterParticipant registers a chat user as a participant.
func HandleRegisterParticipant(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			User models.UserRef `json:"user" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		id := c.Param("id")
		t, ok := engineSvc.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
			return
		}

		participant, err := t.RegisterParticipant(c.Request.Context(), req.User, true)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := engineSvc.Persist(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist tournament state"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"participant": participant})
	}
}

// HandleUnregisterParticipant removes a participant by user id.
func HandleUnregisterParticipant(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.UnregisterParticipant(c.Request.Context(), userID)
		})
	}
}

// HandleCheckInParticipant marks a participant as checked in.
func HandleCheckInParticipant(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.CheckInParticipant(c.Request.Context(), userID)
		})
	}
}
