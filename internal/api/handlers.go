package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"signal-advisor/internal/engine"
)

type generateRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// handleHealth reports process liveness and registry counts.
func (s *Server) handleHealth(c *gin.Context) {
	active, history := s.engine.Registry().Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"time":           time.Now().UTC(),
		"active_signals": active,
		"history_size":   history,
	})
}

// handleGenerate runs one decision cycle on demand. A suppressed cycle is a
// 200 with the suppression reason, not an error: the caller asked a question
// and "no signal" is a valid answer.
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.Interval == "" {
		req.Interval = "1h"
	}

	outcome, err := s.engine.Generate(c.Request.Context(), req.Symbol, req.Interval)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", req.Symbol).Msg("generate failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "market data unavailable"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// handleActive lists the active signal set, newest first.
func (s *Server) handleActive(c *gin.Context) {
	signals := s.engine.Registry().GetActive()
	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}

// handleHistory lists recent signals. limit defaults to 50 and is clamped to
// the retained history size.
func (s *Server) handleHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	signals := s.engine.Registry().GetHistory(limit)
	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}

// handleUpdateStatus transitions a signal's lifecycle state.
func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	sig, err := s.engine.UpdateStatus(c.Param("id"), req.Status)
	if err != nil {
		status := http.StatusNotFound
		if req.Status != engine.StatusActive && req.Status != engine.StatusClosed && req.Status != engine.StatusExpired {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sig)
}
