package orchestrator

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradefleet/core/internal/model"
)

type Server struct {
	Orc *Orchestrator
}

type runRequest struct {
	Symbol     string         `json:"symbol"`
	Mode       model.CommMode `json:"mode"`
	Side       *model.Side    `json:"side,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
}

func (s *Server) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "symbol is required"})
		return
	}
	result := s.Orc.AcceptRun(c.Request.Context(), req.Symbol, req.Mode, req.Side, req.Confidence)
	c.JSON(result.StatusCode, result.Body)
}

func (s *Server) Stop(c *gin.Context) {
	// Stopping an in-flight run is advisory: it only marks the requestId as
	// failed in the run table. The stream consumers do not consult that
	// phase, so hops already queued for the requestId still proceed.
	var req struct {
		RequestID string `json:"requestId"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.RequestID != "" {
		s.Orc.runs.setPhase(req.RequestID, phaseFailed)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) PnLStatus(c *gin.Context) {
	day, err := s.Orc.PnLStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "pnl unavailable"})
		return
	}
	c.JSON(http.StatusOK, day)
}

func (s *Server) Status(c *gin.Context) {
	day, _ := s.Orc.PnLStatus(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"pnl": day})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Routes(r gin.IRouter) {
	r.GET("/health", s.Health)
	r.GET("/status", s.Status)
	r.GET("/pnl/status", s.PnLStatus)
	r.POST("/orchestrate/run", s.Run)
	r.POST("/orchestrate/stop", s.Stop)
	r.GET("/ws", s.WebSocket)
}
