package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SN7k/Flexova/internal/cache"
	"github.com/SN7k/Flexova/internal/config"
	h "github.com/SN7k/Flexova/internal/http"
	"github.com/SN7k/Flexova/internal/metrics"
	"github.com/SN7k/Flexova/internal/poller"
	"github.com/SN7k/Flexova/internal/repository"
	"github.com/SN7k/Flexova/internal/service"
	"github.com/SN7k/Flexova/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	os.Exit(serve(os.Args[1:], os.Stderr, logger.New))
}

// serve returns the process exit code so deferred flushes run before exit.
func serve(args []string, stderr io.Writer, newLogger func(level string) (*zap.Logger, error)) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDBName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		return err
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	m := metrics.New(prometheus.NewRegistry())
	products := repository.NewProductRepository(mongoDB)
	carts := service.NewCartService(
		repository.NewMongoRepository(mongoDB),
		cache.NewRedisCache(redisClient, cfg.CacheTTL),
		products,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithSaveAttempts(cfg.CartSaveAttempts),
		service.WithPricingPolicy(cfg.PricingPolicy()),
	)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(carts, poller.NewKafkaReader(cfg.CheckoutTopic, "", cfg.KafkaBrokers...), log)
		defer func() {
			stop()
			p.Close()
		}()
		go p.Run(ctx)
		log.Info("checkout consumer started", zap.String("topic", cfg.CheckoutTopic))
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(h.RouterConfig{
			Cart:           h.NewCartHandler(carts, cfg.RequestTimeout),
			Products:       h.NewProductHandler(products, cfg.RequestTimeout),
			JWTSecret:      []byte(cfg.JWTSecret),
			RequestTimeout: cfg.RequestTimeout,
			Logger:         log,
			Metrics:        m,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront API starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
