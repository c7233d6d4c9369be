package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	"github.com/mamadbah2/farmdesk/internal/service/masterdata"
	"github.com/mamadbah2/farmdesk/internal/service/reporting"
)

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, bookkeeping.ErrNotFound),
		errors.Is(err, reporting.ErrBatchNotFound),
		errors.Is(err, datatable.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, access.ErrForbidden),
		errors.Is(err, bookkeeping.ErrFarmNotAllowed),
		errors.Is(err, datatable.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, masterdata.ErrConflict),
		errors.Is(err, bookkeeping.ErrDuplicateRecording),
		errors.Is(err, bookkeeping.ErrCoopUnavailable),
		errors.Is(err, bookkeeping.ErrBatchClosed):
		return http.StatusConflict
	case errors.Is(err, bookkeeping.ErrInsufficientStock),
		errors.Is(err, bookkeeping.ErrInsufficientPopulation),
		errors.Is(err, bookkeeping.ErrInvalidInput),
		errors.Is(err, masterdata.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, datatable.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
