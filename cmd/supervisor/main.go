package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-attention/internal/supervisor/config"
	delivery "market-attention/internal/supervisor/delivery/http"
	"market-attention/internal/supervisor/service"
	"market-attention/pkg/logger"
	"market-attention/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the pipeline supervisor",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Supervisor", logger.Field("name", cfg.App.Name), logger.IntField("processes", len(cfg.Supervisor.Processes)))

	notifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
	}

	supervisorSvc := service.NewSupervisorService(cfg.Supervisor, notifier, appLogger)
	supervisorDone := make(chan struct{})
	go func() {
		supervisorSvc.Start(ctx)
		close(supervisorDone)
	}()

	e := echo.New()
	e.HideBanner = true
	e.GET("/healthz", delivery.Healthz)

	processHandler := delivery.NewProcessHandler(supervisorSvc, appLogger)
	apiV1 := e.Group("/api/v1")
	processHandler.RegisterRoutes(apiV1.Group("/processes"))

	if cfg.API.Port > 0 {
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
			appLogger.Info("HTTP server starting", logger.Field("address", addr))
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
				stop()
			}
		}()
	}

	<-ctx.Done()

	appLogger.Info("Shutting down supervisor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	<-supervisorDone
	appLogger.Info("Supervisor exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "supervisor"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-supervisor.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing supervisor CLI: %s\n", err)
		os.Exit(1)
	}
}
