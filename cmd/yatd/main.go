package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/frankjeworrek-lab/yat/internal/api"
	"github.com/frankjeworrek-lab/yat/internal/config"
	"github.com/frankjeworrek-lab/yat/internal/logger"
	"github.com/frankjeworrek-lab/yat/internal/manager"
	"github.com/frankjeworrek-lab/yat/internal/monitor"
	"github.com/frankjeworrek-lab/yat/internal/plugin"
	"github.com/frankjeworrek-lab/yat/internal/registry"
	"github.com/frankjeworrek-lab/yat/internal/reset"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if exists; it carries provider credentials
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reg := registry.New(cfg.Providers.RegistryFile, ".env", log)
	if err := reg.Load(); err != nil {
		log.Fatal("Failed to load provider registry", zap.Error(err))
	}

	loader := plugin.NewLoader(cfg.Plugins.Dir, log)
	mgr := manager.New(log)

	ctx := context.Background()
	if err := manager.Bootstrap(ctx, mgr, loader, reg); err != nil {
		log.Fatal("Failed to bootstrap providers", zap.Error(err))
	}

	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		mon = monitor.New(cfg.Monitor, log)
		mon.Start(ctx)
		defer mon.Stop()
	}

	resetSvc := reset.NewService(cfg.Data.Dir, log)
	handler := api.NewHandler(log, mgr, reg, loader, mon, resetSvc, cfg.Chat)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, log, handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("API server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	activeProvider, activeModel := mgr.Active()
	log.Info("yat daemon started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("providers", len(mgr.IDs())),
		zap.String("active_provider", activeProvider),
		zap.String("active_model", activeModel))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	mgr.Shutdown(shutdownCtx)

	log.Info("Shutdown complete")
}
