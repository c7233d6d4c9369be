package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
)

// Grids serves DataTables grids.
type Grids interface {
	Serve(ctx context.Context, name string, req datatable.Request, p access.Principal) (*datatable.Response, error)
	Columns(name string, p access.Principal) ([]datatable.ColumnMeta, error)
}

// DataTableHandler exposes the grids over HTTP.
type DataTableHandler struct {
	grids  Grids
	logger *zap.Logger
}

// NewDataTableHandler creates the handler.
func NewDataTableHandler(grids Grids, logger *zap.Logger) *DataTableHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataTableHandler{grids: grids, logger: logger}
}

// Serve answers GET (query string) and POST (form body) grid requests.
func (h *DataTableHandler) Serve(c *gin.Context) {
	h.serve(c, c.Param("table"))
}

// List serves a fixed grid, used by the CRUD list routes.
func (h *DataTableHandler) List(table string) gin.HandlerFunc {
	return func(c *gin.Context) { h.serve(c, table) }
}

func (h *DataTableHandler) serve(c *gin.Context, table string) {
	if err := c.Request.ParseForm(); err != nil {
		badRequest(c, err)
		return
	}
	req, err := datatable.ParseRequest(c.Request.Form)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, datatable.Response{Error: err.Error()})
		return
	}
	resp, err := h.grids.Serve(c.Request.Context(), table, req, principal(c))
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("grid failed", zap.String("table", table), zap.Error(err))
			c.AbortWithStatusJSON(status, datatable.Response{Draw: req.Draw, Error: "internal error"})
			return
		}
		c.AbortWithStatusJSON(status, datatable.Response{Draw: req.Draw, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Columns describes the visible columns of a grid.
func (h *DataTableHandler) Columns(c *gin.Context) {
	cols, err := h.grids.Columns(c.Param("table"), principal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": cols})
}
