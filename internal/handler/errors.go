package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed-backend/internal/common"
)

// handleServiceError maps service errors to HTTP responses.
// Storage faults are never echoed to the client.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		common.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, common.ErrForbidden):
		common.ErrorResponse(c, http.StatusForbidden, "You are not allowed to modify this resource", err)
	case common.IsBadRequest(err):
		common.ErrorResponse(c, http.StatusBadRequest, err.Error(), err)
	case common.IsNotFound(err):
		common.ErrorResponse(c, http.StatusNotFound, err.Error(), err)
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
