package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nairaramp_back/models"
	"nairaramp_back/pkg/middleware"
)

func (h *Handler) GetBankAccount(c *gin.Context) {
	acc, err := h.service.Bank.GetBankAccount(c.Request.Context(), middleware.WalletAddress(c))
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"bank_account": acc,
		"complete":     acc.IsComplete(),
	})
}

func (h *Handler) SaveBankAccount(c *gin.Context) {
	var input models.BankAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	acc, err := h.service.Bank.SaveBankAccount(c.Request.Context(), middleware.WalletAddress(c), input)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"bank_account": acc,
	})
}

func (h *Handler) ClearBankAccount(c *gin.Context) {
	if err := h.service.Bank.ClearBankAccount(c.Request.Context(), middleware.WalletAddress(c)); err != nil {
		newErrorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetBanks(c *gin.Context) {
	wrapOkJSON(c, map[string]interface{}{
		"banks": h.service.Bank.Banks(),
	})
}

func (h *Handler) VerifyBankAccount(c *gin.Context) {
	res, err := h.service.Bank.VerifyBankAccount(c.Request.Context(), c.Query("account_number"), c.Query("bank_code"))
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"verification": res,
	})
}
