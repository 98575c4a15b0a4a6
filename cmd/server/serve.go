package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/ggame-miniapp/internal/config"
	"github.com/iliyamo/ggame-miniapp/internal/credential"
	"github.com/iliyamo/ggame-miniapp/internal/database"
	"github.com/iliyamo/ggame-miniapp/internal/handler"
	"github.com/iliyamo/ggame-miniapp/internal/identity"
	"github.com/iliyamo/ggame-miniapp/internal/logging"
	"github.com/iliyamo/ggame-miniapp/internal/middleware"
	"github.com/iliyamo/ggame-miniapp/internal/queue"
	"github.com/iliyamo/ggame-miniapp/internal/repository"
	"github.com/iliyamo/ggame-miniapp/internal/router"
	"github.com/iliyamo/ggame-miniapp/internal/service"
	"github.com/iliyamo/ggame-miniapp/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE:  runServe,
}

// sessionSweepEvery is how often idle in-memory sessions are dropped.
const sessionSweepEvery = 5 * time.Minute

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load() // Load environment config

	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable: rate limiting and catalog cache disabled", zap.Error(err))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	factory, closeStore, err := credentialFactory(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeStore()

	events := config.LoadEventsConfig()
	opts := []session.Option{session.WithLogger(log)}
	if events.Enabled {
		opts = append(opts, session.WithNotifier(service.NewPublisher(events.URL, events.Queue, log)))
	}
	mgr := session.NewManager(factory, newResolver(cfg, log), session.Config{
		APIBaseURL: cfg.APIBaseURL,
		AuthScheme: cfg.AuthScheme,
		Secret:     cfg.SessionSecret,
		TTLMin:     cfg.SessionTTLMin,
	}, opts...)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))

	auth := middleware.SessionAuth(cfg.SessionSecret, mgr)
	router.RegisterRoutes(e, &handler.HealthHandler{Sessions: mgr})
	router.RegisterLaunch(e, &handler.LaunchHandler{Sessions: mgr, Log: log}, auth)
	router.RegisterView(e, &handler.ViewHandler{}, auth, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterCatalog(e, &handler.CatalogHandler{}, auth, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("api_base_url", cfg.APIBaseURL), zap.String("credential_backend", cfg.CredentialBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		t := time.NewTicker(sessionSweepEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-t.C:
				ttl := time.Duration(cfg.SessionTTLMin) * time.Minute
				if n := mgr.Sweep(gctx, now.Add(-ttl)); n > 0 {
					log.Info("idle sessions dropped", zap.Int("count", n))
				}
			}
		}
	})
	if events.Enabled && events.ConsumeLocal {
		consumer := &queue.Consumer{URL: events.URL, Queue: events.Queue, LogDir: events.LogDir, Log: log}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func newResolver(cfg config.Config, log *zap.Logger) *identity.Resolver {
	prefixes := identity.PrefixPolicy{Default: cfg.CredentialPrefix}
	if cfg.LegacyHostPrefix {
		prefixes.HostSDK = identity.LegacyPrefixes().HostSDK
	}
	return identity.NewResolver(identity.Options{
		BotToken:        cfg.TelegramBotToken,
		HeaderColor:     cfg.HostHeaderColor,
		BackgroundColor: cfg.HostBackgroundColor,
		Prefixes:        prefixes,
		Hooks:           identity.Hooks{Logger: log.Named("identity")},
	})
}

// credentialFactory opens the configured credential backend. The returned
// func releases whatever the backend holds.
func credentialFactory(ctx context.Context, cfg config.Config, rdb *redis.Client, log *zap.Logger) (credential.Factory, func(), error) {
	noop := func() {}
	switch cfg.CredentialBackend {
	case "", "memory":
		return credential.MemoryFactory(), noop, nil
	case "file":
		return credential.FileFactory(cfg.CredentialDir), noop, nil
	case "redis":
		if rdb == nil {
			return nil, nil, errors.New("credential backend redis: redis is unavailable")
		}
		return credential.RedisFactory(rdb, cfg.CredentialRedisKey), noop, nil
	case "mysql":
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("credential backend mysql: %w", err)
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("credential backend mysql: %w", err)
		}
		log.Info("mysql credential store ready", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return credential.SQLFactory(repository.NewCredentialRepo(db)), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
}
