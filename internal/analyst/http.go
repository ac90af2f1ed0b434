package analyst

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradefleet/core/internal/httpmw"
	"github.com/tradefleet/core/internal/model"
)

type Server struct {
	Gen *Generator
}

type analyzeRequest struct {
	Symbol     string      `json:"symbol"`
	RequestID  string      `json:"requestId"`
	TraceID    string      `json:"traceId"`
	Side       *model.Side `json:"side,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
}

func (s *Server) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "symbol is required"})
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

	signal := s.Gen.Analyze(c.Request.Context(), req.Symbol, req.RequestID, req.TraceID, req.Side, req.Confidence)
	c.JSON(http.StatusOK, signal)
}

func (s *Server) Routes(r gin.IRouter) {
	r.POST("/analysis/analyze", s.Analyze)
}
