package orchestrator

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/internal/wire"
)

func (s *Server) ResetPnL(c *gin.Context) {
	day, err := s.Orc.ledger.ResetDay(c.Request.Context(), s.Orc.cfg.StartEquity, s.Orc.cfg.DailyTargetPct)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "reset failed"})
		return
	}
	if s.Orc.audit != nil {
		_ = s.Orc.audit.RecordAdminAction(c.Request.Context(), "pnl_reset", "operator", "")
	}
	c.JSON(http.StatusOK, day)
}

type haltRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) Halt(c *gin.Context) {
	var req haltRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual_halt"
	}
	day, err := s.Orc.ledger.SetHalted(c.Request.Context(), true, req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "halt failed"})
		return
	}
	s.Orc.broadcastHalt(c.Request.Context(), req.Reason)
	if s.Orc.audit != nil {
		_ = s.Orc.audit.RecordAdminAction(c.Request.Context(), "halt", "operator", req.Reason)
	}
	c.JSON(http.StatusOK, day)
}

func (s *Server) Unhalt(c *gin.Context) {
	day, err := s.Orc.ledger.SetHalted(c.Request.Context(), false, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "unhalt failed"})
		return
	}
	if s.Orc.audit != nil {
		_ = s.Orc.audit.RecordAdminAction(c.Request.Context(), "unhalt", "operator", "")
	}
	c.JSON(http.StatusOK, day)
}

func (s *Server) StreamsPending(c *gin.Context) {
	stream := c.Query("stream")
	group := c.Query("group")
	if stream == "" || group == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "stream and group are required"})
		return
	}
	n, err := s.Orc.bus.PendingCount(c.Request.Context(), stream, group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "pending count unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream": stream, "group": group, "pending": n})
}

func (s *Server) StreamsDLQ(c *gin.Context) {
	stream := c.Query("stream")
	if stream == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "stream is required"})
		return
	}
	start := c.DefaultQuery("start", "-")
	end := c.DefaultQuery("end", "+")
	count := int64(100)
	if v := c.Query("count"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			count = parsed
		}
	}
	entries, err := s.Orc.bus.RangeDLQ(c.Request.Context(), wire.DLQName(stream), start, end, count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "dlq range failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type dlqRequeueRequest struct {
	DLQStream string `json:"dlqStream"`
	ID        string `json:"id"`
}

func (s *Server) StreamsDLQRequeue(c *gin.Context) {
	var req dlqRequeueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DLQStream == "" || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "dlqStream and id are required"})
		return
	}
	newID, err := s.Orc.bus.Requeue(c.Request.Context(), req.DLQStream, req.ID)
	if err != nil {
		if err == streambus.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "dlq entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "requeue failed"})
		return
	}
	if s.Orc.audit != nil {
		_ = s.Orc.audit.RecordAdminAction(c.Request.Context(), "dlq_requeue", "operator", req.DLQStream+":"+req.ID)
	}
	c.JSON(http.StatusOK, gin.H{"newId": newID})
}

func (s *Server) AdminRoutes(admin gin.IRouter) {
	admin.POST("/admin/pnl/reset", s.ResetPnL)
	admin.POST("/admin/orchestrate/halt", s.Halt)
	admin.POST("/admin/orchestrate/unhalt", s.Unhalt)
	admin.GET("/admin/streams/pending", s.StreamsPending)
	admin.GET("/admin/streams/dlq", s.StreamsDLQ)
	admin.POST("/admin/streams/dlq/requeue", s.StreamsDLQRequeue)
	// /chat dispatches the same admin intents (halt/unhalt/run/dlq_list/
	// dlq_requeue) the routes above expose directly, so it requires the
	// same pre-shared admin token per spec §4.8.
	admin.POST("/chat", s.Chat)
}
