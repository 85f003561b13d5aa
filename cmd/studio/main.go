package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/telemetry"
	"github.com/tjfontaine/polyglot-image-studio/pkg/studio"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tp, shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, nil, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	s, err := studio.New(
		studio.WithLogger(logger),
		studio.WithFileConfig(*configPath),
		studio.WithTracerProvider(tp),
	)
	if err != nil {
		log.Fatalf("Failed to create studio: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		log.Fatalf("Failed to start studio: %v", err)
	}

	logger.Info("Studio started successfully",
		slog.String("config", *configPath),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("tracing", cfg.Telemetry.Enabled))

	// Wait for shutdown signal or a server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping studio...")
	case err := <-s.Err():
		logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		exitCode = 1
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("Studio shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
