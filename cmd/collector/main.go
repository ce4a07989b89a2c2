package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"market-attention/internal/collector/config"
	"market-attention/internal/collector/keyword"
	"market-attention/internal/collector/service"
	"market-attention/internal/collector/source"
	"market-attention/pkg/bus"
	"market-attention/pkg/logger"
	"market-attention/pkg/redis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	sourceName string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs a single source adapter",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	src, err := cfg.Source(sourceName)
	if err != nil {
		appLogger.Fatal("Invalid source", zap.Error(err))
	}

	appLogger.Info("Starting collector",
		zap.String("name", cfg.App.Name),
		zap.String("source", sourceName),
		zap.String("kind", src.Kind))

	matcher, err := keyword.Load(cfg.Collector.KeywordsFile)
	if err != nil {
		appLogger.Fatal("Failed to load keywords", zap.Error(err))
	}

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

	publisher := bus.NewRedisPublisher(redisClient.Client, cfg.Redis.StreamMaxLen)

	svc, err := newCollectorService(src, publisher, matcher, cfg.Collector, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize collector", zap.Error(err))
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		// A non-zero exit lets the supervisor restart the process.
		appLogger.Fatal("Collector stopped", zap.String("source", sourceName), zap.Error(err))
	}
	appLogger.Info("Collector stopped", zap.String("source", sourceName))
}

func newCollectorService(src config.Source, publisher bus.Publisher, matcher *keyword.Matcher, cfg config.Collector, log *logger.Logger) (service.CollectorService, error) {
	switch src.Kind {
	case config.KindBinance:
		adapter := source.NewBinanceSource(src.URL, src.Symbols, src.QuoteSuffix, src.ReadTimeout, log)
		return service.NewStreamingService(adapter, publisher, matcher, cfg.SeenTTL, src.ReconnectDelay, log), nil
	case config.KindAlpaca:
		adapter := source.NewAlpacaSource(src.URL, src.KeyID, src.SecretKey, src.Symbols, src.ReadTimeout, log)
		return service.NewStreamingService(adapter, publisher, matcher, cfg.SeenTTL, src.ReconnectDelay, log), nil
	case config.KindFirehose:
		adapter := source.NewFirehoseSource(src.URL, src.ReadTimeout, log)
		return service.NewStreamingService(adapter, publisher, matcher, cfg.SeenTTL, src.ReconnectDelay, log), nil
	case config.KindGDELT:
		adapter := source.NewGDELTSource(source.GDELTOptions{
			BaseURL:             src.URL,
			Query:               matcher.OrQuery(),
			PageSize:            src.PageSize,
			MaxPages:            src.MaxPages,
			Lookback:            src.Lookback,
			RequestTimeout:      src.RequestTimeout,
			MaxRequestPerMinute: src.MaxRequestPerMinute,
		}, log)
		return service.NewPollingService(adapter, publisher, matcher, cfg.SeenTTL, src.Schedule, log)
	case config.KindRSS:
		adapter := source.NewRSSSource(src.Feeds, src.FetchBody, src.RequestTimeout, src.MaxRequestPerMinute, log)
		return service.NewPollingService(adapter, publisher, matcher, cfg.SeenTTL, src.Schedule, log)
	case config.KindSocialSearch:
		adapter := source.NewSocialSearchSource(source.SocialSearchOptions{
			BaseURL:             src.URL,
			BearerToken:         src.BearerToken,
			Query:               matcher.OrQuery(),
			PageSize:            src.PageSize,
			MaxPages:            src.MaxPages,
			MinFollowers:        src.MinFollowers,
			RequestTimeout:      src.RequestTimeout,
			MaxRequestPerMinute: src.MaxRequestPerMinute,
		}, log)
		return service.NewPollingService(adapter, publisher, matcher, cfg.SeenTTL, src.Schedule, log)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func main() {
	rootCmd := &cobra.Command{Use: "collector"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-collector.yaml", "Path to the configuration file")
	serveCmd.Flags().StringVarP(&sourceName, "source", "s", "", "Name of the source to run")
	_ = serveCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing collector CLI: %s\n", err)
		os.Exit(1)
	}
}
