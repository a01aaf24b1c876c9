package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nairaramp_back/models"
)

const defaultPageSize = 50

// transactionFilter reads status, limit and offset query parameters.
// status=all or an empty status means no status filter.
func transactionFilter(c *gin.Context) (models.TransactionFilter, bool) {
	filter := models.TransactionFilter{Limit: defaultPageSize}

	if raw := c.Query("status"); raw != "" && raw != "all" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			badRequest(c, "unknown status "+strconv.Quote(raw))
			return filter, false
		}
		filter.Status = status
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			badRequest(c, "limit must be a positive integer")
			return filter, false
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			badRequest(c, "offset must be a non-negative integer")
			return filter, false
		}
		filter.Offset = offset
	}
	return filter, true
}

func (h *Handler) ListTransactions(c *gin.Context) {
	filter, ok := transactionFilter(c)
	if !ok {
		return
	}
	filter.WalletAddress = c.Query("wallet_address")

	rows, err := h.service.Transaction.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	var input models.CreateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.service.Transaction.CreateTransaction(c.Request.Context(), input)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": created})
}

func (h *Handler) GetTransaction(c *gin.Context) {
	tx, err := h.service.Transaction.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"transaction": tx,
	})
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	var input models.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	tx, err := h.service.Transaction.UpdateTransactionStatus(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"transaction": tx,
	})
}

func (h *Handler) SyncTransactions(c *gin.Context) {
	var input models.SyncInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.service.Transaction.SyncTransactions(c.Request.Context(), input)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
