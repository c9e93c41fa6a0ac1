package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"insightpipe/internal/agents"
	"insightpipe/internal/config"
	"insightpipe/internal/errorintel"
	"insightpipe/internal/infrastructure"
	"insightpipe/internal/narrative"
	"insightpipe/internal/workflow"
)

// pipeline runs a single workflow definition from a YAML or JSON file
// and prints the result, without starting the HTTP server.
func main() {
	file := flag.String("f", "", "workflow definition file (YAML or JSON)")
	story := flag.Bool("story", false, "print the narrative report instead of the raw result")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: pipeline -f workflow.yaml [-story]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	req, err := workflow.LoadDefinition(*file)
	if err != nil {
		logger.Error("failed to load workflow definition",
			slog.String("file", *file),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	engineCfg := cfg.EngineConfig()
	registry := workflow.NewRegistry()
	if err := agents.RegisterBuiltins(registry, engineCfg.RetryPolicy, logger); err != nil {
		logger.Error("failed to register agents", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tracker := errorintel.NewTracker(logger)
	executor := workflow.NewExecutor(registry, engineCfg,
		workflow.WithObserver(tracker),
		workflow.WithHealthReporter(tracker),
		workflow.WithLogger(logger),
	)
	defer executor.Shutdown()

	result, err := executor.Execute(context.Background(), req)
	if err != nil {
		var wfErr *workflow.Error
		if result == nil || (errors.As(err, &wfErr) && wfErr.Structural()) {
			// Rejected before any agent ran, so there is no run to report.
			logger.Error("workflow rejected", slog.String("error", err.Error()))
			os.Exit(1)
		}
		// A critical task failed mid-run. The result document below
		// carries the per-task outcomes, so print it as usual.
		logger.Error("workflow failed", slog.String("error", err.Error()))
	}

	if *story {
		integrator := narrative.NewIntegrator(executor.Cache(), tracker, logger)
		doc := integrator.BuildStory(result)
		printJSON(doc)
	} else {
		printJSON(result)
	}

	if result.Status == workflow.StatusFailed {
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode result:", err)
		os.Exit(1)
	}
}
