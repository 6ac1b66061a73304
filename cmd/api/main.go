// @title           Pet Boarding API
// @version         1.0
// @description     Access control, caching and real-time notifications for the pet boarding back office.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pawhaus/boarding-api/internal/api"
	"github.com/pawhaus/boarding-api/internal/api/handler"
	"github.com/pawhaus/boarding-api/internal/core/service"
	"github.com/pawhaus/boarding-api/internal/infrastructure/cache"
	"github.com/pawhaus/boarding-api/internal/infrastructure/queue"
	"github.com/pawhaus/boarding-api/internal/infrastructure/realtime"
	"github.com/pawhaus/boarding-api/internal/pkg/config"
	"github.com/pawhaus/boarding-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "boarding-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer logClose(log, "storage", func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return store.close(closeCtx)
	})

	// --- Cache ---
	cacheStore, err := openCache(cfg)
	if err != nil {
		return err
	}
	cacheSvc := cache.NewService(cacheStore, cache.Options{
		OpTimeout:  cfg.Cache.OpTimeout,
		DefaultTTL: cfg.Cache.DefaultTTL,
	}, log)
	// A failing cache only costs latency.
	_ = cacheSvc.Connect(ctx)
	defer logClose(log, "cache", cacheSvc.Close)

	// --- Realtime ---
	registry := realtime.NewRegistry(log)
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, cfg.Notify.Buffer, log)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher.Start(dispatchCtx)
	notifier := realtime.NewNotifier(registry, dispatcher, log)

	// --- Services ---
	tokens, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL())
	if err != nil {
		stopDispatch()
		return err
	}
	ttl := service.CacheTTLs{List: cfg.Cache.ListTTL, Item: cfg.Cache.ItemTTL}
	authService := service.NewAuthService(store.repos.Users, tokens, cacheSvc, notifier, log)
	userService := service.NewUserService(store.repos.Users, cacheSvc, notifier, ttl)
	resources := service.NewResources(store.repos, cacheSvc, notifier, ttl, log)

	if cfg.Admin.Enabled() {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			stopDispatch()
			return err
		}
	}

	e := api.NewRouter(api.Deps{
		Log:       log,
		Tokens:    tokens,
		Auth:      authService,
		Users:     userService,
		Resources: resources,
		Registry:  registry,
		Notifier:  notifier,
		WS: handler.WSOptions{
			AllowedOrigins: cfg.WS.AllowedOrigins,
			PingInterval:   cfg.WS.PingInterval,
			WriteTimeout:   cfg.WS.WriteTimeout,
		},
		Health: []handler.Dependency{
			{Name: "storage", Pinger: store.pinger},
			{Name: "cache", Pinger: cacheSvc, Optional: true},
		},
		Metrics: true,
		Swagger: !cfg.IsProduction(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage.Backend).Str("cache", cfg.Cache.Backend).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		registry.CloseAll("server shutting down")
		stopDispatch()
		dispatcher.Wait()
		return err
	})
	return g.Wait()
}

// logClose runs closeFn and logs a failure under name. Shutdown continues
// either way.
func logClose(log zerolog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("resource", name).Msg("close failed")
	}
}
