package riskworker

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradefleet/core/internal/httpmw"
	"github.com/tradefleet/core/internal/model"
)

// Server exposes POST /risk/evaluate for the orchestrator's synchronous path.
type Server struct {
	Eval *Evaluator
}

type evaluateRequest struct {
	Symbol     string     `json:"symbol"`
	Side       model.Side `json:"side"`
	Confidence float64    `json:"confidence"`
	RequestID  string     `json:"requestId"`
	TraceID    string     `json:"traceId"`
}

func (s *Server) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.TraceID == "" {
		req.TraceID = httpmw.TraceIDFrom(c)
	}
	if req.TraceID == "" {
		req.TraceID = req.RequestID
	}

	decision, err := s.Eval.Evaluate(c.Request.Context(), model.RiskRequest{
		RequestID:  req.RequestID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Confidence: req.Confidence,
		TraceID:    req.TraceID,
		Ts:         time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "risk evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

// Routes registers the risk worker's HTTP surface on an existing engine.
func (s *Server) Routes(r gin.IRouter) {
	r.POST("/risk/evaluate", s.Evaluate)
}
