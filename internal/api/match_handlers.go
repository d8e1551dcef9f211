// internal/api/match_handlers.go
// Match and streamer-queue HTTP handlers

package api

import (
	"net/http"
	"strconv"

	"tournament-planner/internal/engine"
	"tournament-planner/internal/models"
	"tournament-planner/internal/services"

	"github.com/gin-gonic/gin"
)

func parseSet(c *gin.Context) (int, bool) {
	set, err := strconv.Atoi(c.Param("set"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid set number"})
		return 0, false
	}
	return set, true
}

// HandleReportScore records a manual score for a match.
func HandleReportScore(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := parseSet(c)
		if !ok {
			return
		}

		var req struct {
			Score1 int  `json:"score1" binding:"min=0"`
			Score2 int  `json:"score2" binding:"min=0"`
			Upload bool `json:"upload"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.EndMatchBySet(c.Request.Context(), set, req.Score1, req.Score2, req.Upload)
		})
	}
}

// HandleForceEndMatch ends a match without a score.
func HandleForceEndMatch(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := parseSet(c)
		if !ok {
			return
		}
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.ForceEndMatchBySet(c.Request.Context(), set)
		})
	}
}

// HandleRelaunchMatch reopens a completed match.
func HandleRelaunchMatch(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := parseSet(c)
		if !ok {
			return
		}
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.RelaunchMatchBySet(c.Request.Context(), set)
		})
	}
}

// HandleDisqualifyParticipant disqualifies one side of a match.
func HandleDisqualifyParticipant(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := parseSet(c)
		if !ok {
			return
		}

		var req struct {
			ParticipantID string `json:"participant_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.DisqualifyParticipantBySet(c.Request.Context(), set, req.ParticipantID)
		})
	}
}

// HandleForfeitMatch records a self-reported forfeit.
func HandleForfeitMatch(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := parseSet(c)
		if !ok {
			return
		}

		var req struct {
			ParticipantID string `json:"participant_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.ForfeitMatchBySet(c.Request.Context(), set, req.ParticipantID)
		})
	}
}

// HandleAddStreamer registers a streamer and its claimed set queue.
func HandleAddStreamer(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Owner   models.UserRef `json:"owner" binding:"required"`
			Channel string         `json:"channel" binding:"required"`
			Sets    []int          `json:"sets"`
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

		streamer, err := t.AddStreamer(c.Request.Context(), req.Owner, req.Channel, req.Sets)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := engineSvc.Persist(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist tournament state"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"streamer": streamer})
	}
}

// HandleSwapStreamerQueue swaps two positions in a streamer's queue.
func HandleSwapStreamerQueue(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		streamerID := c.Param("streamerId")
		var req struct {
			A int `json:"a"`
			B int `json:"b"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.Swap(streamerID, req.A, req.B)
		})
	}
}

// HandleInsertStreamerQueue moves a set to a new queue position.
func HandleInsertStreamerQueue(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		streamerID := c.Param("streamerId")
		var req struct {
			Src    int `json:"src"`
			Before int `json:"before"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.Insert(streamerID, req.Src, req.Before)
		})
	}
}

// HandleRemoveFromStreamerQueue removes sets from a streamer's queue.
func HandleRemoveFromStreamerQueue(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		streamerID := c.Param("streamerId")
		var req struct {
			Sets []int `json:"sets"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.Remove(c.Request.Context(), streamerID, req.Sets...)
		})
	}
}

// HandleEndStreamer removes a streamer entirely, releasing its queue.
func HandleEndStreamer(engineSvc *services.EngineService) gin.HandlerFunc {
	return func(c *gin.Context) {
		streamerID := c.Param("streamerId")
		withTournament(c, engineSvc, func(t *engine.Tournament) error {
			return t.EndStreamer(c.Request.Context(), streamerID)
		})
	}
}
