package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	WalletHeader     = "X-Wallet-Address"
	AdminTokenHeader = "X-Admin-Token"

	walletAddressKey = "walletAddress"
)

// WalletMiddleware requires the caller to name its wallet. Whether a managed
// keypair exists for it is checked by the services that need to sign.
func WalletMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.GetHeader(WalletHeader)
		if address == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "wallet address is required in '" + WalletHeader + "' header",
				"kind":  "NoWallet",
			})
			return
		}
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid wallet address",
				"kind":  "InvalidInput",
			})
			return
		}
		logrus.WithField("wallet", address).Debug("wallet request")
		c.Set(walletAddressKey, address)
		c.Next()
	}
}

// WalletAddress returns the address stored by WalletMiddleware.
func WalletAddress(c *gin.Context) string {
	return c.GetString(walletAddressKey)
}

// AdminMiddleware guards merchant routes with a shared token. An empty
// configured token disables the admin API.
func AdminMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access is not configured"})
			return
		}
		given := c.GetHeader(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			logrus.WithField("ip", c.ClientIP()).Warn("rejected admin request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}
