package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradefleet/core/internal/auditlog"
	"github.com/tradefleet/core/internal/httpmw"
	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/logging"
	"github.com/tradefleet/core/internal/metrics"
	"github.com/tradefleet/core/internal/model"
	"github.com/tradefleet/core/internal/orchestrator"
	"github.com/tradefleet/core/internal/pnl"
	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load("orchestrator")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := logging.New("orchestrator")
	logger.Info("starting")

	store, err := kv.Open(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Fatal("redis connect failed")
	}
	defer store.Close()

	reg := metrics.New()
	bus := streambus.New(store, logger, reg)
	ledger := pnl.New(store)

	audit, err := auditlog.Open(cfg.AuditDBPath)
	if err != nil {
		logger.WithError(err).Fatal("audit db open failed")
	}
	defer audit.Close()

	orc := orchestrator.New(orchestrator.Config{
		CommMode:           model.CommMode(cfg.CommMode),
		StartEquity:        cfg.StartEquity,
		DailyTargetPct:     cfg.DailyTargetPct,
		EnableOptOnLoss:    cfg.EnableOptOnLoss,
		OptMinLoss:         cfg.OptMinLoss,
		OptCooldownSeconds: cfg.OptCooldownSeconds,
		JWTSecret:          cfg.JWTSecret,
	}, store, bus, ledger, audit, logger, cfg.AnalystURL, cfg.RiskURL, cfg.ExecutorURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CommMode != "http" {
		orc.RunConsumers(ctx, "orchestrator-"+uuid.NewString(), time.Duration(cfg.StreamIdempTTLSeconds)*time.Second, cfg.StreamMaxFailures)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmw.RequestID())
	r.Use(httpmw.RequestLogger(logger))
	r.Use(httpmw.RequestCounter(reg.HTTPRequests))
	r.Use(httpmw.RateLimit(50, 100))
	r.Use(httpmw.Timeout(10 * time.Second))
	r.Use(httpmw.CORS())
	r.GET("/metrics", reg.Handler())

	srv := &orchestrator.Server{Orc: orc}
	srv.Routes(r)

	admin := r.Group("/")
	admin.Use(httpmw.AdminAuth(cfg.AdminTokenFile))
	srv.AdminRoutes(admin)

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.WithField("port", cfg.Port).Info("http listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
}
