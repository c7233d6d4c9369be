package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/database"
	"github.com/mamadbah2/farmdesk/internal/datatable"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/grids"
	"github.com/mamadbah2/farmdesk/internal/metrics"
	"github.com/mamadbah2/farmdesk/internal/repository/cache"
	"github.com/mamadbah2/farmdesk/internal/repository/mongodb"
	"github.com/mamadbah2/farmdesk/internal/repository/sheets"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/scheduler"
	"github.com/mamadbah2/farmdesk/internal/server/handlers"
	"github.com/mamadbah2/farmdesk/internal/server/router"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	commandsvc "github.com/mamadbah2/farmdesk/internal/service/commands"
	"github.com/mamadbah2/farmdesk/internal/service/masterdata"
	reportingsvc "github.com/mamadbah2/farmdesk/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/farmdesk/internal/service/whatsapp"
	"github.com/mamadbah2/farmdesk/pkg/authtoken"
	whatsappclient "github.com/mamadbah2/farmdesk/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level, cfg.Log.Encoding))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, baseLogger.Named("database"))
	if err != nil {
		baseLogger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(ctx, db); err != nil {
		baseLogger.Fatal("failed to migrate database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var (
		engineOpts  = []datatable.Option{datatable.WithObserver(m)}
		invalidator masterdata.Invalidator
		revocations handlers.Revocations
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		counts := cache.NewCountCache(rdb, cfg.Redis.CountTTL, baseLogger.Named("cache.counts"))
		engineOpts = append(engineOpts, datatable.WithCountCache(counts))
		invalidator = counts
		revocations = cache.NewRevocations(rdb)
		baseLogger.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		baseLogger.Warn("redis not configured, grid counts uncached and logout disabled")
	}

	reportOpts := []reportingsvc.Option{reportingsvc.WithObserver(m)}
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		reportOpts = append(reportOpts, reportingsvc.WithArchive(mongoRepo))
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportOpts = append(reportOpts, reportingsvc.WithExporter(sheetsRepo))
	}

	tokens, err := authtoken.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		baseLogger.Fatal("failed to init token manager", zap.Error(err))
	}

	users := store.NewUsers(db)
	engine := datatable.NewEngine(db, grids.Registry(nil), baseLogger.Named("datatable"), engineOpts...)
	books := bookkeeping.NewService(db, baseLogger.Named("svc.bookkeeping"), bookkeeping.WithObserver(m))
	masterSvc := masterdata.NewService(db, invalidator, baseLogger.Named("svc.masterdata"))
	reportingSvc := reportingsvc.NewService(db, baseLogger.Named("svc.reporting"), reportOpts...)
	commandDispatcher := commandsvc.NewService(books, reportingSvc, users, store.New[models.Feed](db), baseLogger.Named("svc.commands"),
		commandsvc.WithInvalidator(invalidator))

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
	} else {
		baseLogger.Warn("whatsapp credentials missing, replies and reports will not be sent")
	}
	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, m, baseLogger.Named("svc.whatsapp"))

	httpHandler := router.New(router.Handlers{
		Auth:        handlers.NewAuthHandler(tokens, revocations, users, baseLogger.Named("handlers.auth")),
		DataTables:  handlers.NewDataTableHandler(engine, baseLogger.Named("handlers.datatable")),
		MasterData:  handlers.NewMasterDataHandler(masterSvc, baseLogger.Named("handlers.masterdata")),
		Bookkeeping: handlers.NewBookkeepingHandler(books, invalidator, baseLogger.Named("handlers.bookkeeping")),
		Reports:     handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports")),
		Webhook:     handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp")),
		Metrics:     m,
		MetricsPage: m.Handler(),
		CORSOrigins: cfg.Server.CORSOrigins,
	}, baseLogger.Named("router"))

	var sender scheduler.Sender
	if whatsClient != nil {
		sender = messagingSvc
	}
	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, sender, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
