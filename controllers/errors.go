package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/utils"
)

// respondServiceError maps the service error taxonomy onto HTTP codes:
// missing resources 404, state conflicts 409, other precondition failures 400,
// anything else 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrTableNotFound),
		errors.Is(err, services.ErrPrintJobNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrSessionClosed),
		errors.Is(err, services.ErrTableOccupied):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrInvalidAgent):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrSessionInvalid),
		errors.Is(err, services.ErrSessionNotSettled),
		errors.Is(err, services.ErrSessionNotClosed),
		errors.Is(err, services.ErrTableMismatch),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrCartEmpty),
		errors.Is(err, services.ErrNoOrders),
		errors.Is(err, services.ErrNoPrinter),
		errors.Is(err, services.ErrPrintJobNotFailed),
		errors.Is(err, services.ErrPrintJobNotPicked):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
