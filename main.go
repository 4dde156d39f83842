package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/yu23ki14/Footprint-Jibungoto/api"
	"github.com/yu23ki14/Footprint-Jibungoto/config"
	"github.com/yu23ki14/Footprint-Jibungoto/page"
	"github.com/yu23ki14/Footprint-Jibungoto/profiles"
	"github.com/yu23ki14/Footprint-Jibungoto/storage"
	"github.com/yu23ki14/Footprint-Jibungoto/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New()
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELExporterEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	rc := redis.NewClient(storage.RedisOptions(cfg.RedisConnectionString))

	var (
		source     page.ActionSource
		dispatcher *api.Dispatcher
	)
	if cfg.CatalogFile != "" {
		file, err := storage.LoadFileCatalog(cfg.CatalogFile)
		if err != nil {
			log.Fatalf("catalog: %v", err)
		}
		source = storage.NewCache(file, rc, cfg.CatalogCacheTTL)
	} else {
		store, err := storage.New(cfg.StorageConnectionString, cfg.ActionsTable, cfg.CompletionQueue)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		source = storage.NewCache(store, rc, cfg.CatalogCacheTTL)
		if cfg.CompletionQueue != "" {
			dispatcher = api.NewDispatcher(store, logger, api.DispatcherConfig{
				Workers:        cfg.CompletionWorkers,
				Buffer:         cfg.CompletionBuffer,
				SendTimeout:    cfg.CompletionTimeout,
				HandoffTimeout: cfg.CompletionHandoff,
			})
		}
	}

	profileClient := profiles.New(cfg.ProfileAPIURL, cfg.ProfileAPITimeout)
	var opts []page.Option
	if dispatcher != nil {
		opts = append(opts, page.WithNotifier(dispatcher))
	}
	pg := page.New(source, profileClient, logger, opts...)

	auth, err := newAuth(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, api.Deps{
		Page:          pg,
		Sessions:      storage.NewSessionStore(rc, cfg.SessionTTL),
		Profiles:      profileClient,
		InFlight:      api.NewRedisInFlight(rc, cfg.InFlightTTL),
		Auth:          auth,
		Log:           logger,
		SecureCookies: cfg.SecureCookies,
	})

	go func() {
		if err := e.Start(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server shutdown: %v", err)
	}
	if dispatcher != nil {
		dispatcher.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnf("tracing shutdown: %v", err)
	}
	if err := rc.Close(); err != nil {
		log.Warnf("redis close: %v", err)
	}
}

func newAuth(cfg config.Config) (*api.Auth, error) {
	if cfg.AuthTestMode {
		return api.NewSharedSecretAuth([]byte(cfg.AuthTestSecret), cfg.Auth0Audience, ""), nil
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, cfg.Auth0Audience, "https://"+cfg.Auth0Domain+"/", cfg.JWKSCacheTTL), nil
}
