package notifier

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradefleet/core/internal/model"
)

type Server struct {
	N *Notifier
}

func (s *Server) Notify(c *gin.Context) {
	var event model.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	if err := s.N.Dispatch(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "DOWNSTREAM_DEGRADED", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) Recent(c *gin.Context) {
	events, err := s.N.Recent(c.Request.Context(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "failed to load recent events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type ackRequest struct {
	TraceID   string `json:"traceId"`
	RequestID string `json:"requestId"`
}

func (s *Server) Ack(c *gin.Context) {
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	id := req.TraceID
	if id == "" {
		id = req.RequestID
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "traceId or requestId is required"})
		return
	}
	ok, err := s.N.Ack(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "ack failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "no such event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) Routes(r gin.IRouter) {
	r.POST("/notify", s.Notify)
	r.GET("/notify/recent", s.Recent)
	r.POST("/admin/notify/ack", s.Ack)
}
