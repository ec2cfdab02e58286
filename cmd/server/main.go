package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ratelimit-service/internal/client"
	"ratelimit-service/internal/config"
	"ratelimit-service/internal/events"
	"ratelimit-service/internal/handler"
	"ratelimit-service/internal/ratelimit"
	"ratelimit-service/internal/util"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		util.Fatal("Invalid configuration", util.ErrorField(err))
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	catalog, err := buildCatalog(cfg)
	if err != nil {
		util.Fatal("Invalid rate limit policies", util.ErrorField(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	localStore := ratelimit.NewLocalStore()
	localStore.StartJanitor(ctx)

	limiterOpts := []ratelimit.LimiterOption{}

	// A missing or unreachable Redis is not fatal: the service runs on
	// local counters and every instance limits its own share.
	if cfg.RedisEnabled() {
		redisClient, err := client.NewRedisClient(cfg, util.Get())
		if err != nil {
			util.Warn("Redis unavailable, starting in local-only mode", util.ErrorField(err))
		} else {
			defer redisClient.Close()
			store := ratelimit.NewRedisStore(redisClient,
				ratelimit.WithCallTimeout(cfg.Redis.Timeout))
			limiterOpts = append(limiterOpts, ratelimit.WithDistributedStore(store))
		}
	} else {
		util.Info("No Redis configured, starting in local-only mode")
	}

	var publisher *events.Publisher
	if cfg.KafkaEnabled() {
		producer, err := client.NewKafkaProducer(cfg, util.Get())
		if err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without audit events", util.ErrorField(err))
		} else {
			defer producer.Close()
			publisher = events.NewPublisher(producer, util.Get())
			limiterOpts = append(limiterOpts, ratelimit.WithObserver(publisher))
		}
	}

	limiter := ratelimit.NewLimiter(catalog, localStore, util.Get(), limiterOpts...)
	router := handler.NewRouter(limiter, localStore, publisher, util.Get())

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		util.Info("Server started",
			util.String("environment", cfg.Environment),
			util.String("address", server.Addr),
			util.String("mode", limiter.Mode()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		util.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		util.Fatal("Server failed", util.ErrorField(err))
	}
	util.Info("Server shutdown completed")
}

func buildCatalog(cfg *config.Config) (*ratelimit.Catalog, error) {
	policies := make(map[ratelimit.Category]ratelimit.Policy, len(cfg.RateLimits))
	for category, rl := range cfg.RateLimits {
		policies[ratelimit.Category(category)] = ratelimit.Policy{
			Limit:  rl.Limit,
			Window: rl.Window,
		}
	}
	return ratelimit.NewCatalog(policies)
}
