package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-workcenter/internal/api/http"
	"github.com/spec-kit/complaint-workcenter/internal/api/http/handlers"
	"github.com/spec-kit/complaint-workcenter/internal/auth"
	"github.com/spec-kit/complaint-workcenter/internal/client"
	"github.com/spec-kit/complaint-workcenter/internal/config"
	"github.com/spec-kit/complaint-workcenter/internal/events"
	"github.com/spec-kit/complaint-workcenter/internal/observability"
	"github.com/spec-kit/complaint-workcenter/internal/persistence"
	"github.com/spec-kit/complaint-workcenter/internal/repository"
	"github.com/spec-kit/complaint-workcenter/internal/service"
	"github.com/spec-kit/complaint-workcenter/internal/workcenter"
	"github.com/spec-kit/complaint-workcenter/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workcenter HTTP service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	agentAPI, err := client.NewAgentClient(cfg.AgentAPI.BaseURL, cfg.AgentAPI.Timeout())
	if err != nil {
		return fmt.Errorf("agent api client: %w", err)
	}
	assistant, err := newAssistant(cfg, logger)
	if err != nil {
		return err
	}

	var (
		departments service.DepartmentWrapper
		invalidator handlers.DepartmentInvalidator
	)
	if redis.Enabled() {
		cache := repository.NewDepartmentCache(redis.Client, cfg.Redis.DepartmentCacheTTL(), logger)
		departments = func(src workcenter.DepartmentSource) workcenter.DepartmentSource {
			return cache.Wrap(src)
		}
		invalidator = cache
	}

	dispatcher := events.NewInMemoryDispatcher()
	var actionLogs repository.ActionLogRepository
	if pg.Enabled() {
		actionLogs = repository.NewActionLogRepository(pg.PoolHandle())
	}
	audit := service.NewAuditService(dispatcher, actionLogs, logger)
	worker.StartAuditWorker(audit)

	sessions := service.NewSessionService(service.SessionDependencies{
		Backends: func(authorization string) service.AgentBackend {
			return agentAPI.WithAuthorization(authorization)
		},
		Departments: departments,
		Assistant:   assistant,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		IdleTTL:     cfg.Session.IdleTTL(),

		MaxSessionsPerAgent: cfg.Session.MaxPerAgent,
	})
	go worker.RunSessionJanitor(ctx, sessions, cfg.Session.SweepInterval(), logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}, sessions.Count),
		Workcenter:       handlers.NewWorkcenterHandler(sessions, audit),
		Admin:            handlers.NewAdminHandler(invalidator),
		Metrics:          metrics,
		AuthMiddleware:   auth.NewAuthMiddleware(tokens),
		AssistantTimeout: cfg.AIService.Timeout(),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		sessions.Shutdown(context.Background())
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(ctx, logger):
	}

	cancel()
	sessions.Shutdown(context.Background())
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	return nil
}

// newAssistant builds the AI client, swapping in the OpenAI drafter when configured.
func newAssistant(cfg *config.Config, logger *zap.Logger) (*client.AIClient, error) {
	opts := []client.AIOption{client.WithDraftPath(cfg.AIService.DraftPath)}
	if cfg.AIService.DraftProvider == config.DraftProviderOpenAI {
		drafter, err := client.NewOpenAIDrafter(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("openai drafter: %w", err)
		}
		opts = append(opts, client.WithDrafter(drafter))
		logger.Info("ai drafts served by openai", zap.String("model", cfg.OpenAI.Model))
	}
	ai, err := client.NewAIClient(cfg.AIService.BaseURL, cfg.AIService.Timeout(), opts...)
	if err != nil {
		return nil, fmt.Errorf("ai service client: %w", err)
	}
	return ai, nil
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("shutting down", zap.Error(ctx.Err()))
		}
	}()
	return done
}
