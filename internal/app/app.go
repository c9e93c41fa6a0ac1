package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"insightpipe/internal/agents"
	"insightpipe/internal/config"
	"insightpipe/internal/errorintel"
	"insightpipe/internal/infrastructure"
	customMiddleware "insightpipe/internal/middleware"
	"insightpipe/internal/narrative"
	handlers "insightpipe/internal/transport/http"
	ws "insightpipe/internal/websocket"
	"insightpipe/internal/workflow"
)

const AppName = "InsightPipe"

// Version is set at build time via -ldflags.
var Version = "dev"

// Application wires the workflow engine to its HTTP surface: config,
// logging, telemetry, the agent registry, the executor, and the
// websocket hub, assembled once and torn down in reverse order.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics

	Registry   *workflow.Registry
	Executor   *workflow.Executor
	Tracker    *errorintel.Tracker
	Integrator *narrative.Integrator
	Hub        *ws.Hub

	Router *chi.Mux
	Server *http.Server
}

// New builds a fully wired application from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application around an explicit configuration.
// Tests use it to run the full server against a throwaway config.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	metrics, err := infrastructure.NewPipelineMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeEngine(); err != nil {
		return nil, err
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeEngine assembles the workflow engine: registry, built-in
// agents, error intelligence, the websocket event sink, the executor,
// and the narrative integrator.
func (a *Application) initializeEngine() error {
	engineCfg := a.Config.EngineConfig()

	registry := workflow.NewRegistry()
	if err := agents.RegisterBuiltins(registry, engineCfg.RetryPolicy, a.Logger); err != nil {
		return fmt.Errorf("register built-in agents: %w", err)
	}
	a.Registry = registry

	a.Tracker = errorintel.NewTracker(a.Logger)

	hub := ws.NewHub(a.Logger)
	hub.SetClientGauge(func(delta int64) {
		a.Metrics.RecordWebSocketClients(context.Background(), delta)
	})
	hub.Start()
	a.Hub = hub

	a.Executor = workflow.NewExecutor(registry, engineCfg,
		workflow.WithObserver(a.Tracker),
		workflow.WithHealthReporter(a.Tracker),
		workflow.WithEventSink(ws.NewBroadcaster(hub)),
		workflow.WithLogger(a.Logger),
	)

	a.Integrator = narrative.NewIntegrator(a.Executor.Cache(), a.Tracker, a.Logger)

	return nil
}

// setupRouter configures the HTTP router and all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware ahead of the websocket route; the upgrade
	// handler must not run behind a wrapped ResponseWriter.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", ws.Handler(a.Hub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.Metrics(a.Metrics))
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.Config.Security.AllowedOrigins))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes mounts the workflow, agents, and health handlers.
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		workflowHandler := handlers.NewWorkflowHandler(a.Executor, a.Integrator, a.Logger)
		workflowHandler.SetMetrics(a.Metrics)
		r.Mount("/workflows", workflowHandler.Routes())

		agentsHandler := handlers.NewAgentsHandler(a.Registry, a.Logger)
		r.Mount("/agents", agentsHandler.Routes())

		healthHandler := handlers.NewHealthHandler(a.Tracker, a.Hub, a.Logger)
		r.Mount("/health", healthHandler.Routes())
	})
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP until the context is cancelled or an interrupt
// arrives, then shuts everything down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server listening",
			slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the server, the hub, the executor, and the
// telemetry providers, in that order.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down",
		slog.Duration("timeout", a.Config.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}

	a.Hub.Stop()
	a.Executor.Shutdown()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown error",
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return firstErr
}
