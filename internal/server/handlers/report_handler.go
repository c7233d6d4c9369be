package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// Performance computes batch reports.
type Performance interface {
	BatchPerformance(ctx context.Context, p access.Principal, livestockID uint) (*models.BatchReport, error)
}

// ReportHandler serves batch performance.
type ReportHandler struct {
	reports Performance
	logger  *zap.Logger
}

// NewReportHandler creates the handler.
func NewReportHandler(reports Performance, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, logger: logger}
}

// BatchPerformance returns the current performance of a batch.
func (h *ReportHandler) BatchPerformance(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	r, err := h.reports.BatchPerformance(c.Request.Context(), principal(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
