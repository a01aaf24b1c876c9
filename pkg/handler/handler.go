package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"nairaramp_back/pkg/middleware"
	"nairaramp_back/pkg/service"
)

type Options struct {
	AllowedOrigins []string
	AdminToken     string
}

type Handler struct {
	service *service.Service
	opts    Options
}

func NewHandler(service *service.Service, opts Options) *Handler {
	return &Handler{
		service: service,
		opts:    opts,
	}
}

func (h *Handler) InitRoute() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", middleware.WalletHeader, middleware.AdminTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(h.opts.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = h.opts.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	transactions := router.Group("/transactions")
	{
		transactions.GET("", h.ListTransactions)
		transactions.POST("", h.CreateTransaction)
		transactions.POST("/sync", h.SyncTransactions)
		transactions.GET("/:id", h.GetTransaction)
		transactions.PUT("/:id", h.UpdateTransaction)
	}

	api := router.Group("/api")
	{
		api.GET("/rates", h.GetRates)
		api.POST("/quote", h.Quote)
		api.GET("/banks", h.GetBanks)
		api.GET("/banks/verify", h.VerifyBankAccount)
		api.POST("/wallets", h.CreateWallet)

		wallet := api.Group("", middleware.WalletMiddleware())
		{
			wallet.GET("/wallets/me", h.GetWallet)
			wallet.GET("/balances", h.GetBalances)
			wallet.POST("/conversions", h.Convert)
			wallet.GET("/bank-account", h.GetBankAccount)
			wallet.PUT("/bank-account", h.SaveBankAccount)
			wallet.DELETE("/bank-account", h.ClearBankAccount)
		}
	}

	admin := router.Group("/admin", middleware.AdminMiddleware(h.opts.AdminToken))
	{
		admin.GET("/transactions", h.ListConversions)
		admin.POST("/transactions/:transaction_id/approve", h.ApproveTransaction)
		admin.POST("/transactions/:transaction_id/reject", h.RejectTransaction)
		admin.GET("/stats", h.GetStats)
		admin.GET("/stream", h.StreamTransactions)
	}
	return router
}
