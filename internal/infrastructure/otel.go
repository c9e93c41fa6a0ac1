package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "insightpipe"
	ServiceVersion = "1.0.0"
	MeterName      = "insightpipe"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the initialized OpenTelemetry providers.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a development-friendly configuration.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes metrics and tracing per the config.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "otel_initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))
	return providers, nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// Dedicated registry so repeated initialization (tests, restarts)
		// never trips duplicate collector registration.
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none":
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// PipelineMetrics holds the application-specific instruments.
type PipelineMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	WorkflowExecutionsTotal   metric.Int64Counter
	WorkflowExecutionDuration metric.Float64Histogram
	WorkflowActive            metric.Int64UpDownCounter
	WorkflowErrors            metric.Int64Counter
	WorkflowCancellations     metric.Int64Counter

	TasksTotal   metric.Int64Counter
	TaskDuration metric.Float64Histogram

	WebSocketClients metric.Int64UpDownCounter
}

// NewPipelineMetrics creates the application instruments on a meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	workflowExecutionsTotal, err := meter.Int64Counter(
		"workflow_executions_total",
		metric.WithDescription("Total number of workflow executions"),
	)
	if err != nil {
		return nil, err
	}
	workflowExecutionDuration, err := meter.Float64Histogram(
		"workflow_execution_duration_seconds",
		metric.WithDescription("Workflow execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	workflowActive, err := meter.Int64UpDownCounter(
		"workflow_active_executions",
		metric.WithDescription("Number of workflows currently executing"),
	)
	if err != nil {
		return nil, err
	}
	workflowErrors, err := meter.Int64Counter(
		"workflow_errors_total",
		metric.WithDescription("Total number of workflow errors"),
	)
	if err != nil {
		return nil, err
	}
	workflowCancellations, err := meter.Int64Counter(
		"workflow_cancellations_total",
		metric.WithDescription("Total number of cancelled workflows"),
	)
	if err != nil {
		return nil, err
	}

	tasksTotal, err := meter.Int64Counter(
		"workflow_tasks_total",
		metric.WithDescription("Total number of executed workflow tasks"),
	)
	if err != nil {
		return nil, err
	}
	taskDuration, err := meter.Float64Histogram(
		"workflow_task_duration_seconds",
		metric.WithDescription("Workflow task execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	websocketClients, err := meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Number of connected WebSocket clients"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		HTTPRequestsTotal:         httpRequestsTotal,
		HTTPRequestDuration:       httpRequestDuration,
		HTTPActiveRequests:        httpActiveRequests,
		WorkflowExecutionsTotal:   workflowExecutionsTotal,
		WorkflowExecutionDuration: workflowExecutionDuration,
		WorkflowActive:            workflowActive,
		WorkflowErrors:            workflowErrors,
		WorkflowCancellations:     workflowCancellations,
		TasksTotal:                tasksTotal,
		TaskDuration:              taskDuration,
		WebSocketClients:          websocketClients,
	}, nil
}

// RecordWorkflow records completion metrics for a workflow run.
func (m *PipelineMetrics) RecordWorkflow(ctx context.Context, workflowID, status string, duration time.Duration, failedTasks int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workflow.id", workflowID),
		attribute.String("status", status),
	)
	m.WorkflowExecutionsTotal.Add(ctx, 1, attrs)
	m.WorkflowExecutionDuration.Record(ctx, duration.Seconds(), attrs)
	if failedTasks > 0 {
		m.WorkflowErrors.Add(ctx, int64(failedTasks), attrs)
	}
}

// RecordWebSocketClients adjusts the connected client gauge.
func (m *PipelineMetrics) RecordWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}

// RecordTask records completion metrics for a single task.
func (m *PipelineMetrics) RecordTask(ctx context.Context, taskType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("task.type", taskType),
		attribute.String("status", status),
	)
	m.TasksTotal.Add(ctx, 1, attrs)
	m.TaskDuration.Record(ctx, duration.Seconds(), attrs)
}
