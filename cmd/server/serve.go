package main

import (
	"context"
	"time"

	"gotokenbridge/telemetry"
	"gotokenbridge/workers"
	"gotokenbridge/workers/handlers"

	"github.com/spf13/cobra"
)

func getServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "runs the HTTP API and the worker that resumes stranded operations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := commandContext(0)
	defer stop()

	tel := telemetry.NewTelemetry(telemetry.TelemetryConfig{
		PrometheusAddr: a.cfg.Telemetry.PrometheusAddr,
	}, a.logger.Named("telemetry"))
	if err := tel.Start(); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Close(shutdownCtx); err != nil {
			a.logger.Warn("error stopping telemetry", "err", err)
		}
	}()

	// worker threads:
	// * resume operations that stopped moving
	// * API serving HTTP(S) server (serves as main worker thread)
	go workers.Worker_processExecution(ctx, a.orchestrator, a.cfg.Server.ResumeInterval, a.logger)

	api := handlers.NewAPI(ctx, a.orchestrator, a.chains, a.store, tel, a.logger)

	return workers.Worker_HTTP(ctx, a.cfg, workers.NewRouter(api), a.logger)
}
