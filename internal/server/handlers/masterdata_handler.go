package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/service/masterdata"
)

// MasterDataHandler exposes CRUD of farms, coops, feeds and supplies.
type MasterDataHandler struct {
	svc    *masterdata.Service
	logger *zap.Logger
}

// NewMasterDataHandler creates the handler.
func NewMasterDataHandler(svc *masterdata.Service, logger *zap.Logger) *MasterDataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterDataHandler{svc: svc, logger: logger}
}

// getOne, create, update and remove adapt one service method to a gin handler.

func getOne[T any](h *MasterDataHandler, fn func(context.Context, access.Principal, uint) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		v, err := fn(c.Request.Context(), principal(c), id)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func create[In, T any](h *MasterDataHandler, fn func(context.Context, access.Principal, In) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		v, err := fn(c.Request.Context(), principal(c), in)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

func update[In, T any](h *MasterDataHandler, fn func(context.Context, access.Principal, uint, In) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		v, err := fn(c.Request.Context(), principal(c), id, in)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func remove(h *MasterDataHandler, fn func(context.Context, access.Principal, uint) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		if err := fn(c.Request.Context(), principal(c), id); err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *MasterDataHandler) GetFarm() gin.HandlerFunc    { return getOne(h, h.svc.GetFarm) }
func (h *MasterDataHandler) CreateFarm() gin.HandlerFunc { return create(h, h.svc.CreateFarm) }
func (h *MasterDataHandler) UpdateFarm() gin.HandlerFunc { return update(h, h.svc.UpdateFarm) }
func (h *MasterDataHandler) DeleteFarm() gin.HandlerFunc { return remove(h, h.svc.DeleteFarm) }

func (h *MasterDataHandler) GetCoop() gin.HandlerFunc    { return getOne(h, h.svc.GetCoop) }
func (h *MasterDataHandler) CreateCoop() gin.HandlerFunc { return create(h, h.svc.CreateCoop) }
func (h *MasterDataHandler) UpdateCoop() gin.HandlerFunc { return update(h, h.svc.UpdateCoop) }
func (h *MasterDataHandler) DeleteCoop() gin.HandlerFunc { return remove(h, h.svc.DeleteCoop) }

func (h *MasterDataHandler) GetFeed() gin.HandlerFunc    { return getOne(h, h.svc.GetFeed) }
func (h *MasterDataHandler) CreateFeed() gin.HandlerFunc { return create(h, h.svc.CreateFeed) }
func (h *MasterDataHandler) UpdateFeed() gin.HandlerFunc { return update(h, h.svc.UpdateFeed) }
func (h *MasterDataHandler) DeleteFeed() gin.HandlerFunc { return remove(h, h.svc.DeleteFeed) }

func (h *MasterDataHandler) GetSupply() gin.HandlerFunc    { return getOne(h, h.svc.GetSupply) }
func (h *MasterDataHandler) CreateSupply() gin.HandlerFunc { return create(h, h.svc.CreateSupply) }
func (h *MasterDataHandler) UpdateSupply() gin.HandlerFunc { return update(h, h.svc.UpdateSupply) }
func (h *MasterDataHandler) DeleteSupply() gin.HandlerFunc { return remove(h, h.svc.DeleteSupply) }

type operatorsRequest struct {
	UserIDs []uint `json:"user_ids"`
}

// AssignOperators replaces the users assigned to a farm.
func (h *MasterDataHandler) AssignOperators(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req operatorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.AssignOperators(c.Request.Context(), principal(c), id, req.UserIDs); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
