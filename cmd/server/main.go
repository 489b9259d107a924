// Command main is the entry point for the Confide backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confide/internal/bootstrap"
	"confide/internal/config"
	"confide/internal/observability"
	"confide/internal/server"
	"confide/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment and config.yml still apply.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel, os.Stdout)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "confide-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	projector := service.NewProjector(rt.Store, rt.Projection, cfg.ProjectionSchedule)
	if err := projector.Start(ctx); err != nil {
		log.Fatalf("Failed to start projector: %v", err)
	}

	ingestor := service.NewMessageIngestor(rt.Bus, rt.Store)
	if err := ingestor.Start(ctx); err != nil {
		log.Fatalf("Failed to start message ingestor: %v", err)
	}

	presence := service.NewPresenceService(rt.Redis, rt.Store, time.Duration(cfg.PresenceTTLSeconds)*time.Second)
	go presence.Run(ctx, presence.TTL()/3)

	srv, err := server.New(server.Deps{
		Config:   cfg,
		Store:    rt.Store,
		DB:       rt.DB,
		Redis:    rt.Redis,
		Bus:      rt.Bus,
		Flags:    rt.Flags,
		Presence: presence,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		<-ctx.Done()
		observability.GlobalLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			observability.GlobalLogger.Error("server shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		observability.GlobalLogger.Error("server stopped", "error", err)
	}

	// Listen has returned; flush what is left and release resources.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := projector.Stop(cleanupCtx); err != nil {
		observability.GlobalLogger.Error("final projection flush failed", "error", err)
	}
	if err := shutdownTracing(cleanupCtx); err != nil {
		observability.GlobalLogger.Error("tracing shutdown failed", "error", err)
	}
	if err := rt.Close(); err != nil {
		observability.GlobalLogger.Error("error closing runtime", "error", err)
	}
}
