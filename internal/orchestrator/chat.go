package orchestrator

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/internal/wire"
)

// chatRequest is the POST /chat payload. Callers can either name an intent
// directly (the structured path operator tooling uses) or supply free-text
// input; input is matched against the same fixed intent set since this is
// not a language-model front end, just a single admin surface for a few
// well-known commands.
type chatRequest struct {
	Input  string                 `json:"input"`
	Intent string                 `json:"intent"`
	Args   map[string]interface{} `json:"args"`
}

func argString(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Chat dispatches one of the fixed admin intents spec §4.8 enumerates:
// status, halt, unhalt, run, dlq_list, dlq_requeue.
func (s *Server) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "invalid chat request"})
		return
	}
	intent := req.Intent
	if intent == "" {
		intent = req.Input
	}
	if req.Args == nil {
		req.Args = map[string]interface{}{}
	}

	ctx := c.Request.Context()
	switch intent {
	case "status":
		day, err := s.Orc.PnLStatus(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "pnl unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"intent": intent, "pnl": day})

	case "halt":
		reason := argString(req.Args, "reason")
		if reason == "" {
			reason = "manual_halt"
		}
		day, err := s.Orc.ledger.SetHalted(ctx, true, reason)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "halt failed"})
			return
		}
		s.Orc.broadcastHalt(ctx, reason)
		c.JSON(http.StatusOK, gin.H{"intent": intent, "pnl": day})

	case "unhalt":
		day, err := s.Orc.ledger.SetHalted(ctx, false, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "unhalt failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"intent": intent, "pnl": day})

	case "run":
		symbol := argString(req.Args, "symbol")
		if symbol == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "symbol is required"})
			return
		}
		mode := model.CommMode(argString(req.Args, "mode"))
		result := s.Orc.AcceptRun(ctx, symbol, mode, nil, nil)
		c.JSON(result.StatusCode, gin.H{"intent": intent, "result": result.Body})

	case "dlq_list":
		stream := argString(req.Args, "stream")
		if stream == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "stream is required"})
			return
		}
		entries, err := s.Orc.bus.RangeDLQ(ctx, wire.DLQName(stream), "-", "+", 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "dlq range failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"intent": intent, "entries": entries})

	case "dlq_requeue":
		stream := argString(req.Args, "stream")
		id := argString(req.Args, "id")
		if stream == "" || id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "stream and id are required"})
			return
		}
		newID, err := s.Orc.bus.Requeue(ctx, wire.DLQName(stream), id)
		if err != nil {
			if err == streambus.ErrNotFound {
				c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "dlq entry not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": "requeue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"intent": intent, "newId": newID})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "unknown intent"})
	}
}
