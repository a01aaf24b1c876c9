package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nairaramp_back/pkg/apperr"
)

const streamKeepAlive = 25 * time.Second

type rejectInput struct {
	Reason string `json:"reason"`
}

func (h *Handler) ListConversions(c *gin.Context) {
	filter, ok := transactionFilter(c)
	if !ok {
		return
	}
	rows, err := h.service.Approval.ListConversions(c.Request.Context(), filter)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

func (h *Handler) ApproveTransaction(c *gin.Context) {
	tx, err := h.service.Approval.Approve(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"transaction": tx,
	})
}

func (h *Handler) RejectTransaction(c *gin.Context) {
	var input rejectInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	tx, err := h.service.Approval.Reject(c.Request.Context(), c.Param("transaction_id"), input.Reason)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"transaction": tx,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Approval.Stats(c.Request.Context())
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"stats": stats,
	})
}

// StreamTransactions is a server-sent event feed of ledger changes.
func (h *Handler) StreamTransactions(c *gin.Context) {
	if h.service.Events == nil {
		newErrorResponse(c, apperr.New(apperr.Unknown, "change feed is not enabled"))
		return
	}
	feed, cancel := h.service.Events.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent(string(evt.Type), evt)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC())
			return true
		}
	})
}
