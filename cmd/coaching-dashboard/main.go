package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/meld/coaching-dashboard/internal/client"
	"github.com/meld/coaching-dashboard/internal/config"
	"github.com/meld/coaching-dashboard/internal/metrics"
	"github.com/meld/coaching-dashboard/internal/notify"
	"github.com/meld/coaching-dashboard/internal/store"
	"github.com/meld/coaching-dashboard/internal/transport"
	"github.com/meld/coaching-dashboard/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.ENV)
	if err != nil {
		fmt.Println("failed to initialize logger:", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)
	ctx = logger.WithNewRequestID(ctx)
	log.Info(ctx, "starting coaching-dashboard",
		zap.String("env", cfg.ENV),
		zap.String("api_base_url", cfg.API.BaseURL),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	notifications := notify.New(
		notify.WithDefaultDuration(cfg.Notifications.DefaultDuration),
		notify.WithMetrics(m),
	)
	api := client.NewCoachingClient(cfg.API.BaseURL, cfg.API.RequestTimeout, m)
	s := store.New(api, notifications, log, m)

	// Views assume data is populated only after the first load settles.
	if err := s.Refresh(ctx); err != nil {
		log.Warn(ctx, "initial load failed, serving empty snapshot", zap.Error(err))
	}

	handler := transport.NewHandler(s, notifications)
	router := mux.NewRouter()
	handler.RegisterRoutes(router, log, reg)

	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server starting", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(ctx, "server error", zap.Error(err))
		}

	case sig := <-shutdown:
		log.Info(ctx, "shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "graceful shutdown failed, forcing shutdown", zap.Error(err))
			if closeErr := server.Close(); closeErr != nil {
				log.Error(ctx, "server close error", zap.Error(closeErr))
			}
		}
		notifications.Clear()
		log.Info(ctx, "server shutdown completed gracefully")
	}
}
