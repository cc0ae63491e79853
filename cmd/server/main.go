package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/deepmd/internal/api"
	"github.com/dgallion1/deepmd/internal/config"
	"github.com/dgallion1/deepmd/internal/exporter"
	"github.com/dgallion1/deepmd/internal/pathstore"
	"github.com/dgallion1/deepmd/internal/pipeline"
	"github.com/dgallion1/deepmd/internal/sink"
)

func main() {
	cfg := config.Load()
	log, logCloser := cfg.NewLogger()
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize sinks. The local file goes last so a failed remote save
	// leaves nothing on disk.
	var sinks sink.Multi
	var ps *pathstore.Client
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		sinks = append(sinks, sink.Pathstore{Client: ps, Source: "deepmd"})
	}
	if cfg.OutputDir != "" {
		sinks = append(sinks, sink.Dir{Path: cfg.OutputDir})
	}
	var out exporter.Sink
	if len(sinks) > 0 {
		out = sinks
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, out, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting deepmd", "port", cfg.Port, "workers", cfg.WorkerCount, "sinks", len(sinks))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
