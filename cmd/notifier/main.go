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

	"github.com/tradefleet/core/internal/httpmw"
	"github.com/tradefleet/core/internal/kv"
	"github.com/tradefleet/core/internal/logging"
	"github.com/tradefleet/core/internal/metrics"
	"github.com/tradefleet/core/internal/notifier"
	"github.com/tradefleet/core/internal/streambus"
	"github.com/tradefleet/core/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load("notifier")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := logging.New("notifier")
	logger.Info("starting")

	store, err := kv.Open(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Fatal("redis connect failed")
	}
	defer store.Close()

	reg := metrics.New()
	bus := streambus.New(store, logger, reg)

	n := notifier.New(store, notifier.Sinks{
		Info:     cfg.NotifySinkInfoURL,
		Warning:  cfg.NotifySinkWarningURL,
		Critical: cfg.NotifySinkCriticalURL,
	}, cfg.NotifyRecentCap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CommMode != "http" {
		go func() {
			if err := notifier.RunConsumer(ctx, bus, n, "notifier-"+uuid.NewString(), time.Duration(cfg.StreamIdempTTLSeconds)*time.Second, cfg.StreamMaxFailures, logger); err != nil {
				logger.WithError(err).Error("stream consumer stopped")
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmw.RequestID())
	r.Use(httpmw.RequestLogger(logger))
	r.Use(httpmw.RequestCounter(reg.HTTPRequests))
	r.Use(httpmw.Timeout(10 * time.Second))
	r.GET("/metrics", reg.Handler())
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	srv := &notifier.Server{N: n}
	srv.Routes(r)

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
