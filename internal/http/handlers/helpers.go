package handlers

import (
	"errors"
	"net/http"

	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		dispatchErr    *domain.DispatchError
		translationErr *domain.TranslationError
		configErr      *domain.ConfigurationError
	)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrUnknownGateway):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyDispatched):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, service.ErrInvalidOrder),
		errors.As(err, &translationErr),
		errors.As(err, &configErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dispatchErr):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"ok": false, "error": msg})
}
