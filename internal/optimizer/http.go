package optimizer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradefleet/core/internal/httpmw"
)

type Server struct {
	Opt *Optimizer
}

func (s *Server) Run(c *gin.Context) {
	traceID := httpmw.TraceIDFrom(c)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	job, err := s.Opt.Propose(c.Request.Context(), traceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "optimization proposal failed"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) Params(c *gin.Context) {
	params, err := s.Opt.ActiveParams(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "failed to load parameters"})
		return
	}
	c.JSON(http.StatusOK, params)
}

type approveRequest struct {
	JobID string `json:"jobId"`
}

func (s *Server) Approve(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "jobId is required"})
		return
	}
	job, err := s.Opt.Approve(c.Request.Context(), req.JobID)
	if err != nil {
		switch err {
		case ErrJobNotFound:
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "job not found"})
		case ErrJobNotPending:
			c.JSON(http.StatusConflict, gin.H{"code": "CONFLICT", "error": "job is not pending approval"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "approval failed"})
		}
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) Routes(r gin.IRouter, admin gin.IRouter) {
	r.POST("/optimize/run", s.Run)
	r.GET("/optimize/params", s.Params)
	admin.POST("/admin/optimize/approve", s.Approve)
}
