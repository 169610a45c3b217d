package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"AbsenSend/internal/config"
	"AbsenSend/internal/logging"
	"AbsenSend/internal/metrics"
	"AbsenSend/internal/queue"
	"AbsenSend/internal/recap"
	"AbsenSend/internal/store"
	"AbsenSend/internal/wa"
)

func main() {
	os.Exit(run())
}

func run() int {

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := logging.New(cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("tz", cfg.Timezone), zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Job store (Firestore)
	// ------------------------------------------------
	st, err := store.New(ctx, cfg.FirestoreProjectID, logger)
	if err != nil {
		logger.Fatal("firestore connection failed", zap.Error(err))
	}
	defer st.Close()

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// WhatsApp session + group directory
	// ------------------------------------------------
	session := wa.NewSession(wa.SessionConfig{
		DBDialect:      cfg.SessionDBDialect,
		DBDSN:          cfg.SessionDBDSN,
		QRImageFile:    cfg.QRImageFile,
		ReconnectDelay: cfg.ReconnectDelay,
		SendRate:       rate.Limit(cfg.SendRate),
	}, logger)

	groups := wa.NewGroupCache(session, logger)

	// ------------------------------------------------
	// Queue consumer + manual trigger listener
	// ------------------------------------------------
	consumer := queue.NewConsumer(st, session, groups, logger,
		cfg.CountryCode, cfg.JobDelayMin, cfg.JobDelayMax)

	monthly := recap.NewMonthly(st, st, st, logger, loc,
		cfg.MonthlyCheckInterval, cfg.EnqueueDelay)

	listener := recap.NewTriggerListener(st, monthly, logger, cfg.TriggerDelay)

	// The drain loops must not run against a closed session; they start on
	// the first successful open. Reconnects only refresh the group cache.
	var startLoops sync.Once
	session.SetOnOpen(func() {
		if err := groups.Refresh(ctx); err != nil {
			logger.Error("group directory refresh failed", zap.Error(err))
		}
		startLoops.Do(func() {
			go func() {
				if err := consumer.Run(ctx); err != nil {
					logger.Error("consumer stopped", zap.Error(err))
				}
			}()
			go func() {
				if err := listener.Run(ctx); err != nil {
					logger.Error("trigger listener stopped", zap.Error(err))
				}
			}()
		})
	})

	if err := session.Connect(ctx); err != nil {
		logger.Fatal("whatsapp connect failed", zap.Error(err))
	}

	// ------------------------------------------------
	// Background timers
	// ------------------------------------------------
	reclaimer := queue.NewReclaimer(st, logger, cfg.ReclaimInterval, cfg.ReclaimTimeout)
	go reclaimer.Run(ctx)

	daily := recap.NewDaily(st, st, logger, loc, cfg.DailyCheckInterval, cfg.AttendanceGrace)
	go daily.Run(ctx)

	go monthly.Run(ctx)

	// ------------------------------------------------
	// Wait for shutdown or permanent logout
	// ------------------------------------------------
	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down services...")
	case <-session.LoggedOut():
		logger.Error("session permanently logged out, exiting for re-pairing")
		exitCode = 1
		cancel()
	}

	session.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("worker shutdown complete")
	return exitCode
}
