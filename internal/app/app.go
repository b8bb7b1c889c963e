package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/noticeboard/internal/auth"
	"github.com/MrSnakeDoc/noticeboard/internal/board"
	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/config"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/mw"
	"github.com/MrSnakeDoc/noticeboard/internal/live"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/redis"
	"github.com/MrSnakeDoc/noticeboard/internal/scheduler"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
	boltstore "github.com/MrSnakeDoc/noticeboard/internal/store/bolt"
	redisstore "github.com/MrSnakeDoc/noticeboard/internal/store/redis"
	"github.com/MrSnakeDoc/noticeboard/internal/uploads"
	"github.com/MrSnakeDoc/noticeboard/internal/utils"
	"github.com/MrSnakeDoc/noticeboard/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	store       store.Store
	redisClient *goredis.Client
	hub         *broadcast.Hub
	relay       *broadcast.Relay
	board       *board.Manager
	watcher     *scheduler.WindowWatcher
	seeder      *scheduler.CategorySeeder
}

func New() (*App, error) {
	cfg := config.MustLoad()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	loggerClient.Debug("configuration loaded", logger.Any("config", cfg.Redacted()))

	a := &App{cfg: cfg, logger: loggerClient}
	if err := a.openStore(context.Background()); err != nil {
		return nil, err
	}

	uploadStore, err := uploads.New(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		a.closeStore()
		return nil, fmt.Errorf("failed to prepare uploads: %w", err)
	}

	a.hub = broadcast.NewHub(loggerClient.With(logger.String("component", "broadcast")), broadcast.Options{
		Buffer:    cfg.SubscriberBuffer,
		Heartbeat: cfg.SSEHeartbeat,
	})
	if a.redisClient != nil {
		a.relay = broadcast.NewRelay(a.redisClient, cfg.RelayChannel, a.hub, loggerClient)
	}

	a.board = board.New(board.Config{
		Store:     a.store,
		Publisher: a.hub,
		Logger:    loggerClient.With(logger.String("component", "board")),
		Images:    uploadStore,
	})
	liveController := live.NewController(a.store, a.hub, loggerClient, nil)

	var tokens *auth.Tokens
	if cfg.AuthEnabled() {
		tokens, err = auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL, nil)
		if err != nil {
			a.closeStore()
			return nil, fmt.Errorf("failed to configure tokens: %w", err)
		}
	} else {
		loggerClient.Warn("JWT_SECRET not set, login will not issue tokens")
	}
	authService := auth.NewService(auth.Config{
		Store:  a.store,
		Tokens: tokens,
		Logger: loggerClient,
	})
	if _, err := authService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		a.closeStore()
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	a.watcher = scheduler.NewWindowWatcher(a.board, a.hub, loggerClient, cfg.WindowCheckSpec)
	if cfg.CategorySeedFile != "" {
		a.seeder = scheduler.NewCategorySeeder(cfg.CategorySeedFile, a.board, loggerClient)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		StoreBackend:   cfg.StoreBackend,
		Store:          a.store,
		RelayEnabled:   a.relay != nil,
		Board:          a.board,
		Live:           liveController,
		Auth:           authService,
		Hub:            a.hub,
		Uploads:        uploadStore,
		Upgrader:       broadcast.Upgrader(mw.OriginAllowed(cfg.CORSOrigins)),
		Validate:       validator.New(),
		AuthRequired:   cfg.AuthRequired,
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a, nil
}

// openStore opens the configured backend. The redis backend fails fast when
// the server is unreachable.
func (a *App) openStore(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.StoreBackend {
	case config.BackendMemory:
		a.logger.Warn("using in-memory store, state is lost on restart")
		a.store = store.NewMemory()

	case config.BackendFile:
		s, err := store.OpenFile(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("failed to open file store: %w", err)
		}
		a.store = s

	case config.BackendBolt:
		s, err := boltstore.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("failed to open bolt store: %w", err)
		}
		a.store = s

	case config.BackendRedis:
		a.logger.Infof("Connecting to Redis at %s", cfg.Redis.Addr)
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.Redis.Addr,
			User:           cfg.Redis.User,
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			DialTimeout:    cfg.Redis.DialTimeout,
			ReadTimeout:    cfg.Redis.ReadTimeout,
			WriteTimeout:   cfg.Redis.WriteTimeout,
			PoolSize:       cfg.Redis.PoolSize,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			RetryInterval:  cfg.Redis.RetryInterval,
			MaxWait:        cfg.Redis.MaxWait,
			PingTimeout:    cfg.Redis.PingTimeout,
			WarnThreshold:  cfg.Redis.WarnThreshold,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		a.store = redisstore.NewStore(client, cfg.Redis.KeyPrefix)

	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	a.logger.Info("store opened",
		logger.String("backend", cfg.StoreBackend),
		logger.String("path", cfg.StorePath))
	return nil
}

func (a *App) closeStore() {
	utils.CloseLogged(a.store, a.logger, "store")
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, a.logger, "redis")
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Notice Board %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Notice Board %s", version.Summary())

	defer a.closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.hub.Start()
	defer a.hub.Close()

	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("event relay stopped", logger.Error(err))
			}
		}()
		a.logger.Info("event relay started", logger.String("channel", a.cfg.RelayChannel))
	}

	if a.seeder != nil {
		if _, err := a.seeder.Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		go func() {
			if err := a.seeder.Watch(ctx); err != nil {
				a.logger.Warn("category seed watcher stopped", logger.Error(err))
			}
		}()
	}

	if err := a.watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start window watcher: %w", err)
	}
	defer a.watcher.Stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// End event streams first so Shutdown does not wait on them.
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ Notice Board stopped cleanly")
	return nil
}
