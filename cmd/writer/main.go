package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"market-attention/internal/writer/config"
	"market-attention/internal/writer/delivery/consumer"
	"market-attention/internal/writer/repository"
	"market-attention/internal/writer/sentiment"
	"market-attention/internal/writer/service"
	"market-attention/pkg/bus"
	"market-attention/pkg/common"
	"market-attention/pkg/logger"
	"market-attention/pkg/objectstore"
	"market-attention/pkg/redis"
	"market-attention/pkg/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the writer service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Writer Service", zap.String("name", cfg.App.Name))

	// Initialize store
	db, err := store.NewDB(store.FromConfig(cfg.Database))
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		appLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Initialize Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	for _, stream := range []string{common.RedisStreamPrices, common.RedisStreamNews} {
		if err := bus.EnsureGroup(ctx, redisClient.Client, stream, common.RedisStreamGroup); err != nil {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	priceRepo := repository.NewPriceRepository(db.DB)
	newsRepo := repository.NewNewsRepository(db.DB)

	var uploader objectstore.Uploader
	if cfg.Snapshot.S3.Enabled {
		uploader, err = objectstore.NewS3Uploader(ctx, objectstore.Config{
			Bucket:   cfg.Snapshot.S3.Bucket,
			Prefix:   cfg.Snapshot.S3.Prefix,
			Region:   cfg.Snapshot.S3.Region,
			Endpoint: cfg.Snapshot.S3.Endpoint,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize S3 uploader", zap.Error(err))
		}
	}

	// Initialize services
	priceSvc := service.NewPriceService(priceRepo, appLogger)
	newsSvc := service.NewNewsService(newsRepo, sentiment.NewVaderScorer(), appLogger)
	priceStream := service.NewStreamService(common.RedisStreamPrices, priceSvc, redisClient.Client, cfg.Writer, appLogger)
	newsStream := service.NewStreamService(common.RedisStreamNews, newsSvc, redisClient.Client, cfg.Writer, appLogger)
	snapshotSvc := service.NewSnapshotService(cfg.Snapshot.Dir, priceRepo, newsRepo, uploader, appLogger)

	// Initialize and start the Redis consumer
	redisConsumer := consumer.NewRedisConsumer(cfg, priceStream, newsStream, snapshotSvc, appLogger)
	redisConsumer.Start(ctx)

	appLogger.Info("Writer service started. Waiting for events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down writer service...")
	cancel()
	redisConsumer.Stop()

	// One last export so the snapshot reflects everything committed before shutdown.
	exportCtx, exportCancel := context.WithTimeout(context.Background(), cfg.Snapshot.Timeout)
	if err := snapshotSvc.Export(exportCtx); err != nil {
		appLogger.Error("Final snapshot export failed", zap.Error(err))
	}
	exportCancel()

	appLogger.Info("Writer service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "writer"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-writer.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing writer CLI: %s\n", err)
		os.Exit(1)
	}
}
