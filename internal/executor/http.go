package executor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradefleet/core/internal/httpmw"
	"github.com/tradefleet/core/internal/model"
)

type Server struct {
	Exec *Executor
}

type submitRequest struct {
	OrderID string     `json:"orderId"`
	Symbol  string      `json:"symbol"`
	Side    model.Side  `json:"side"`
	Qty     float64     `json:"qty"`
	TraceID string      `json:"traceId"`
}

func (s *Server) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	traceID := req.TraceID
	if traceID == "" {
		traceID = httpmw.TraceIDFrom(c)
	}

	status, err := s.Exec.Handle(c.Request.Context(), model.Order{
		OrderID: req.OrderID,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     req.Qty,
		TraceID: traceID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "order submission failed"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) Routes(r gin.IRouter) {
	r.POST("/trade/submit", s.Submit)
}
