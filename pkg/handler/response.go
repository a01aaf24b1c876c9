package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

type Error struct {
	Message   string                   `json:"error"`
	Kind      string                   `json:"kind"`
	Signature string                   `json:"signature,omitempty"`
	States    []models.ConversionState `json:"states,omitempty"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.InvalidInput:     http.StatusBadRequest,
	apperr.InvalidAmount:    http.StatusBadRequest,
	apperr.UnsupportedToken: http.StatusBadRequest,

	apperr.NoWallet:            http.StatusUnprocessableEntity,
	apperr.InsufficientBalance: http.StatusUnprocessableEntity,
	apperr.NoBankAccount:       http.StatusUnprocessableEntity,
	apperr.TokenAccountMissing: http.StatusUnprocessableEntity,

	apperr.NotFound: http.StatusNotFound,

	apperr.DuplicateTransactionID: http.StatusConflict,
	apperr.ConversionInProgress:   http.StatusConflict,
	apperr.InvalidTransition:      http.StatusConflict,
	apperr.DuplicateRequest:       http.StatusConflict,
	apperr.RateDrift:              http.StatusConflict,

	apperr.RateUnavailable: http.StatusServiceUnavailable,

	apperr.TransferRejected:       http.StatusBadGateway,
	apperr.ChainUnavailable:       http.StatusBadGateway,
	apperr.BankVerificationFailed: http.StatusBadGateway,

	apperr.ConfirmationTimeout: http.StatusGatewayTimeout,
}

func statusOf(kind apperr.Kind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// newErrorResponse maps err to its HTTP status and aborts. This is the one
// place request failures are logged.
func newErrorResponse(c *gin.Context, err error) {
	conversionErrorResponse(c, err, nil)
}

func conversionErrorResponse(c *gin.Context, err error, states []models.ConversionState) {
	kind := apperr.KindOf(err)
	code := statusOf(kind)
	body := Error{Message: err.Error(), Kind: string(kind), Signature: apperr.SignatureOf(err), States: states}

	entry := logrus.WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": code,
		"kind":   kind,
	})
	if code >= http.StatusInternalServerError {
		entry.Error(err)
	} else {
		entry.Warn(err)
	}
	c.AbortWithStatusJSON(code, body)
}

func badRequest(c *gin.Context, message string) {
	newErrorResponse(c, apperr.New(apperr.InvalidInput, "%s", message))
}

func wrapOkJSON(c *gin.Context, response map[string]interface{}) {
	c.JSON(http.StatusOK, response)
}
