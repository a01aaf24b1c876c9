package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/middleware"
)

func (h *Handler) CreateWallet(c *gin.Context) {
	created, err := h.service.Wallet.CreateManagedWallet(c.Request.Context())
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"wallet": created})
}

// GetWallet reports whether the header wallet is connected to a managed keypair.
func (h *Handler) GetWallet(c *gin.Context) {
	address := middleware.WalletAddress(c)
	if _, err := h.service.Wallet.Signer(c.Request.Context(), address); err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"address":   address,
		"connected": true,
	})
}

func (h *Handler) GetBalances(c *gin.Context) {
	refresh := c.Query("refresh") == "true"
	snap, err := h.service.Balances.BalanceSnapshot(c.Request.Context(), middleware.WalletAddress(c), refresh)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"balances": snap,
	})
}

func (h *Handler) GetRates(c *gin.Context) {
	snap := h.service.Rates.Snapshot()
	if snap.IsZero() {
		newErrorResponse(c, apperr.New(apperr.RateUnavailable, "rates have not been fetched yet"))
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"rates": snap,
	})
}

func (h *Handler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.service.Conversion.Quote(req)
	if err != nil {
		newErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"quote": q,
	})
}

// Convert runs a conversion for the header wallet. Failures still carry the
// states walked and, once the transfer reached the chain, its signature.
func (h *Handler) Convert(c *gin.Context) {
	var req models.ConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.WalletAddress = middleware.WalletAddress(c)

	res, err := h.service.Conversion.InitiateConversion(c.Request.Context(), req)
	if err != nil {
		var states []models.ConversionState
		if res != nil {
			states = res.States
		}
		conversionErrorResponse(c, err, states)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversion": res})
}
