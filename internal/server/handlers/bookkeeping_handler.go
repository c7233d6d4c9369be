package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
)

// Invalidator drops cached grid counts.
type Invalidator interface {
	Invalidate(ctx context.Context, table string) error
}

// BookkeepingHandler exposes purchases, mutations, depletions, sales and
// recordings.
type BookkeepingHandler struct {
	books  *bookkeeping.Service
	cache  Invalidator
	logger *zap.Logger
}

// NewBookkeepingHandler creates the handler. cache may be nil.
func NewBookkeepingHandler(books *bookkeeping.Service, cache Invalidator, logger *zap.Logger) *BookkeepingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookkeepingHandler{books: books, cache: cache, logger: logger}
}

// post binds the JSON input, runs the operation and drops the counts of the
// grids it wrote to.
func post[In, T any](h *BookkeepingHandler, fn func(context.Context, access.Principal, In) (*T, error), grids ...string) gin.HandlerFunc {
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
		h.invalidate(c.Request.Context(), grids...)
		c.JSON(http.StatusCreated, v)
	}
}

func (h *BookkeepingHandler) invalidate(ctx context.Context, grids ...string) {
	if h.cache == nil {
		return
	}
	for _, g := range grids {
		if err := h.cache.Invalidate(ctx, g); err != nil {
			h.logger.Warn("grid count invalidation failed", zap.String("table", g), zap.Error(err))
		}
	}
}

func (h *BookkeepingHandler) PurchaseFeed() gin.HandlerFunc {
	return post(h, h.books.PurchaseFeed, "feed-purchases", "feed-stocks")
}

func (h *BookkeepingHandler) PurchaseSupply() gin.HandlerFunc {
	return post(h, h.books.PurchaseSupply, "supply-purchases", "supply-stocks")
}

func (h *BookkeepingHandler) PurchaseLivestock() gin.HandlerFunc {
	return post(h, h.books.PurchaseLivestock, "livestock-purchases", "livestocks", "coops")
}

func (h *BookkeepingHandler) MutateFeed() gin.HandlerFunc {
	return post(h, h.books.MutateFeed, "feed-mutations", "feed-stocks")
}

func (h *BookkeepingHandler) MutateSupply() gin.HandlerFunc {
	return post(h, h.books.MutateSupply, "supply-mutations", "supply-stocks")
}

func (h *BookkeepingHandler) MutateLivestock() gin.HandlerFunc {
	return post(h, h.books.MutateLivestock, "livestock-mutations")
}

func (h *BookkeepingHandler) Deplete() gin.HandlerFunc {
	return post(h, h.books.Deplete, "depletions")
}

func (h *BookkeepingHandler) Sell() gin.HandlerFunc {
	return post(h, h.books.Sell, "sales")
}

func (h *BookkeepingHandler) UseFeed() gin.HandlerFunc {
	return post(h, h.books.UseFeed, "feed-usages")
}

func (h *BookkeepingHandler) RecordDaily() gin.HandlerFunc {
	return post(h, h.books.RecordDaily, "recordings", "depletions", "feed-usages")
}

// CloseBatch closes a livestock batch and frees its coop.
func (h *BookkeepingHandler) CloseBatch(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	l, err := h.books.CloseBatch(c.Request.Context(), principal(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.invalidate(c.Request.Context(), "livestocks", "coops")
	c.JSON(http.StatusOK, l)
}
