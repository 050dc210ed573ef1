package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domainauth "botdash-server-go/internal/domain/auth"
	identityservice "botdash-server-go/internal/domain/identity/service"
	platformcache "botdash-server-go/internal/platform/cache"
	platformconfig "botdash-server-go/internal/platform/config"
	platformerrors "botdash-server-go/internal/platform/errors"
	platformlogging "botdash-server-go/internal/platform/logging"
	platformobservability "botdash-server-go/internal/platform/observability"
	platformstorage "botdash-server-go/internal/platform/storage"
	httptransport "botdash-server-go/internal/transport/http"
	httpwebapi "botdash-server-go/internal/transport/http/webapi"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	db                    *gorm.DB
	cacheStore            platformcache.Store
	tokens                *domainauth.SessionTokens
	observabilityShutdown platformobservability.ShutdownFunc
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, route registration and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.Internal("bootstrap.validate", "config/logger not initialised")
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("[BOOT] observability did not shut down cleanly: %v", err)
			}
		}()
	}

	defer func() {
		if state.cacheStore != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := state.cacheStore.Close(closeCtx); err != nil {
				logger.Warn("[BOOT] cache store did not close cleanly: %v", err)
			}
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.Info("[BOOT] service stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.Info("[BOOT] initialisation order")
	for _, step := range steps {
		logger.Info("[BOOT] %s", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.Internal("bootstrap.init", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.Internal(step.ID, fmt.Sprintf("dependency %s not satisfied", dep))
			}
		}
		if step.Execute == nil {
			return platformerrors.Internal(step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			return platformerrors.Wrap(step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the ordered initialisation steps with their
// dependencies made explicit.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:open-database",
			Title:     "Open database",
			DependsOn: []string{"logging:init-provider"},
			Execute:   openDatabaseStep,
		},
		{
			ID:        "cache:init-store",
			Title:     "Initialise cache store",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initCacheStep,
		},
		{
			ID:        "auth:init-tokens",
			Title:     "Initialise session tokens",
			DependsOn: []string{"config:load"},
			Execute:   initTokensStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap("config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.Internal("logging:init-provider", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap("logging:init-provider", "failed to initialise logging provider", err)
	}
	state.logger = logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.Info("[BOOT] logging ready [%s] config from %s", state.config.Log.Level, source)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.Internal("observability:setup-hooks", "config/logger not initialised")
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap("observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func openDatabaseStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.Internal("storage:open-database", "config not loaded")
	}

	db, err := platformstorage.Open(state.config.Storage.DSN)
	if err != nil {
		return platformerrors.Wrap("storage:open-database", "failed to open database", err)
	}
	state.db = db
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.Internal("cache:init-store", "config not loaded")
	}

	cfg := platformcache.Config{Driver: state.config.Cache.Driver}
	switch cfg.Driver {
	case platformcache.DriverRedis:
		cfg.Redis = &platformcache.RedisConfig{
			Addr:     state.config.Cache.Redis.Addr,
			Username: state.config.Cache.Redis.Username,
			Password: state.config.Cache.Redis.Password,
			DB:       state.config.Cache.Redis.DB,
			Prefix:   state.config.Cache.Redis.Prefix,
		}
		if cfg.Redis.Addr == "" {
			return platformerrors.Internal("cache:init-store", "redis cache addr is required")
		}
	default:
		cfg.Memory = &platformcache.MemoryConfig{GCInterval: state.config.Cache.GCInterval}
	}

	store, err := platformcache.New(cfg)
	if err != nil {
		return platformerrors.Wrap("cache:init-store", "failed to initialise cache store", err)
	}
	state.cacheStore = store
	return nil
}

func initTokensStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.Internal("auth:init-tokens", "config not loaded")
	}
	if state.config.Auth.Secret == "" {
		return platformerrors.Internal("auth:init-tokens", "session secret is required (BOTDASH_SESSION_SECRET)")
	}

	tokens := domainauth.NewSessionTokens(state.config.Auth.Secret)
	if ttl := state.config.Auth.TokenTTL; ttl > 0 {
		tokens = tokens.WithTTL(ttl)
	}
	state.tokens = tokens
	return nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			httptransport.RespondError(c, platformerrors.NotFound("http.route", "route not found"), !config.Runtime.Production())
			return
		}
		c.File(config.Server.StaticDir + "/index.html")
	})

	pipeline := httptransport.NewPipeline(httptransport.PipelineOptions{
		Store:       state.cacheStore,
		Tokens:      state.tokens,
		Logger:      logger,
		Version:     config.API.Version,
		ExposeCause: !config.Runtime.Production(),
	})

	identityRepo := platformstorage.NewIdentityRepository(state.db)
	botRepo := platformstorage.NewBotRepository(state.db)
	reconciler := identityservice.NewReconciler(identityRepo, logger, config.Runtime.Cleanup)

	services := []interface {
		Start(context.Context, *gin.RouterGroup) error
	}{
		httpwebapi.NewSettingsService(reconciler, pipeline, config, logger),
		httpwebapi.NewBotService(botRepo, pipeline, config, logger),
		httpwebapi.NewSystemService(botRepo, pipeline, config, logger),
		httpwebapi.NewSessionService(state.tokens, identityRepo, pipeline, config, logger),
	}
	for _, service := range services {
		if err := service.Start(groupCtx, apiGroup); err != nil {
			return nil, platformerrors.Wrap("http:register-services", "failed to register api services", err)
		}
	}

	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.Info("[HTTP] listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("[HTTP] shutdown failed: %v", err)
			} else {
				logger.Info("[HTTP] server stopped cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[HTTP] server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.Info("[BOOT] shutdown signal received, cleaning up")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("[BOOT] shutdown finished with error: %v", err)
			return err
		}
		logger.Info("[BOOT] all services stopped")
	case <-time.After(15 * time.Second):
		logger.Error("[BOOT] shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
