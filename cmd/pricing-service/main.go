package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/api"
	"github.com/Cheertaboi/storefront-pricing/internal/backend"
	"github.com/Cheertaboi/storefront-pricing/internal/cache"
	"github.com/Cheertaboi/storefront-pricing/internal/config"
	"github.com/Cheertaboi/storefront-pricing/internal/events"
	"github.com/Cheertaboi/storefront-pricing/internal/logger"
	"github.com/Cheertaboi/storefront-pricing/internal/metrics"
	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
	"github.com/Cheertaboi/storefront-pricing/internal/repository"
	"github.com/Cheertaboi/storefront-pricing/internal/service"
	"github.com/Cheertaboi/storefront-pricing/pkg/db"
)

const couponCacheTTL = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting storefront pricing",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	conn, err := db.NewPostgresConnection(db.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.EnsureSchema(schemaCtx, conn)
	cancel()
	if err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	policy, err := cfg.Policy()
	if err != nil {
		log.Fatal("pricing policy", zap.Error(err))
	}
	formatter, err := pricing.NewFormatter(cfg.Pricing.Locale, cfg.Pricing.CurrencySymbol)
	if err != nil {
		log.Fatal("currency formatter", zap.Error(err))
	}

	m := metrics.New()

	var carts service.CartStore = repository.NewMemoryCartStore()
	if cfg.Redis.Enabled {
		client, err := repository.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer client.Close()
		carts = repository.NewRedisCartStore(client, cfg.Redis.CartTTL, log)
		log.Info("carts stored in redis", zap.String("addr", cfg.Redis.Addr))
	}

	var catalog service.ProductLookup
	if cfg.Catalog.BaseURL != "" {
		catalog = backend.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	} else {
		log.Warn("no catalog configured; item prices are taken from requests")
	}

	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("close publisher", zap.Error(err))
		}
	}()

	coupons := service.NewCouponService(
		repository.NewCouponRepo(conn),
		repository.NewUsageRepo(conn),
		cache.NewCouponCache(couponCacheTTL),
		policy, log, m,
	)
	discounts := service.NewDiscountService(repository.NewDiscountRepo(conn), log)
	cartService := service.NewCartService(carts, catalog, coupons, discounts, policy, formatter, log, m)
	checkout := service.NewCheckoutService(conn, cartService, coupons, discounts,
		repository.NewOrderRepo(conn), publisher, log, m)

	handler := api.NewRouter(api.Deps{
		Coupons:        coupons,
		Discounts:      discounts,
		Carts:          cartService,
		Checkout:       checkout,
		CatalogPriced:  catalog != nil,
		Policy:         policy,
		Log:            log,
		Metrics:        m,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		JWTIssuer:      cfg.Auth.Issuer,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("http server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	log.Info("listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	log.Info("server stopped")
}
