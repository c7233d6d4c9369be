package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/server/handlers"
)

// Handlers groups everything the router mounts. Webhook and Metrics may be nil.
type Handlers struct {
	Auth        *handlers.AuthHandler
	DataTables  *handlers.DataTableHandler
	MasterData  *handlers.MasterDataHandler
	Bookkeeping *handlers.BookkeepingHandler
	Reports     *handlers.ReportHandler
	Webhook     *handlers.WebhookHandler
	Metrics     HTTPObserver
	MetricsPage http.Handler
	CORSOrigins []string
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	if h.Metrics != nil {
		r.Use(metricsMiddleware(h.Metrics))
	}
	r.Use(cors.New(corsConfig(h.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.MetricsPage != nil {
		r.GET("/metrics", gin.WrapH(h.MetricsPage))
	}

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Auth.Authenticate(), handlers.Require(access.Perm(access.Create, access.Report)), h.Webhook.SendMessage)
	}

	api := r.Group("/api/v1", h.Auth.Authenticate())
	api.GET("/me", h.Auth.Me)
	api.POST("/logout", h.Auth.Logout)

	dt := api.Group("/datatables")
	dt.GET("/:table", h.DataTables.Serve)
	dt.POST("/:table", h.DataTables.Serve)
	dt.GET("/:table/columns", h.DataTables.Columns)

	md := h.MasterData
	crud := func(path, grid string, res access.Resource, get, create, update, del gin.HandlerFunc) *gin.RouterGroup {
		g := api.Group(path)
		g.GET("", handlers.Require(access.Perm(access.Read, res)), h.DataTables.List(grid))
		g.GET("/:id", handlers.Require(access.Perm(access.Read, res)), get)
		g.POST("", handlers.Require(access.Perm(access.Create, res)), create)
		g.PUT("/:id", handlers.Require(access.Perm(access.Update, res)), update)
		g.DELETE("/:id", handlers.Require(access.Perm(access.Delete, res)), del)
		return g
	}
	farms := crud("/farms", "farms", access.Farm, md.GetFarm(), md.CreateFarm(), md.UpdateFarm(), md.DeleteFarm())
	farms.POST("/:id/operators", handlers.Require(access.Perm(access.Update, access.Farm)), md.AssignOperators)
	crud("/coops", "coops", access.Coop, md.GetCoop(), md.CreateCoop(), md.UpdateCoop(), md.DeleteCoop())
	crud("/feeds", "feeds", access.Feed, md.GetFeed(), md.CreateFeed(), md.UpdateFeed(), md.DeleteFeed())
	crud("/supplies", "supplies", access.Supply, md.GetSupply(), md.CreateSupply(), md.UpdateSupply(), md.DeleteSupply())

	bk := h.Bookkeeping
	api.POST("/purchases/livestock", bk.PurchaseLivestock())
	api.POST("/purchases/feed", bk.PurchaseFeed())
	api.POST("/purchases/supply", bk.PurchaseSupply())
	api.POST("/mutations/livestock", bk.MutateLivestock())
	api.POST("/mutations/feed", bk.MutateFeed())
	api.POST("/mutations/supply", bk.MutateSupply())
	api.POST("/depletions", bk.Deplete())
	api.POST("/sales", bk.Sell())
	api.POST("/recordings", bk.RecordDaily())
	api.POST("/feed-usages", bk.UseFeed())
	api.POST("/livestocks/:id/close", bk.CloseBatch)
	api.GET("/livestocks/:id/performance", h.Reports.BatchPerformance)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
