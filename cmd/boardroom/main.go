package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/execboard/boardroom/internal/audit"
	auditmem "github.com/execboard/boardroom/internal/audit/memory"
	auditsqlite "github.com/execboard/boardroom/internal/audit/sqlite"
	"github.com/execboard/boardroom/internal/config"
	"github.com/execboard/boardroom/internal/consensus"
	"github.com/execboard/boardroom/internal/engine"
	"github.com/execboard/boardroom/internal/gateway"
	"github.com/execboard/boardroom/internal/orchestrator"
	"github.com/execboard/boardroom/internal/server"
	"github.com/execboard/boardroom/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	// Audit trails persist in sqlite when a path is configured, in memory
	// otherwise.
	var store audit.TrailStore
	if cfg.Audit.Path != "" {
		s, err := auditsqlite.New(cfg.Audit.Path)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
		defer s.Close()
		store = s
	} else {
		store = auditmem.New()
	}
	recorder := audit.NewRecorder(store, audit.WithLogger(logger))

	var eng engine.Engine
	if cfg.Engine.Demo || cfg.Engine.APIKey == "" {
		logger.Info("no engine credentials configured, running in demo mode")
		eng = engine.NewDemoEngine()
	} else {
		eng = engine.NewHTTPEngine(cfg.Engine.APIKey, engine.WithBaseURL(cfg.Engine.BaseURL))
	}

	gw := gateway.New(eng,
		gateway.WithModel(cfg.Engine.Model),
		gateway.WithTimeout(cfg.Engine.Timeout),
		gateway.WithGenerationOptions(engine.Options{
			Temperature: float32(cfg.Engine.Temperature),
			MaxTokens:   cfg.Engine.MaxTokens,
		}),
		gateway.WithLogger(logger),
	)

	synth := consensus.New(gw, consensus.WithLogger(logger))

	orch := orchestrator.New(gw,
		orchestrator.WithSynthesizer(synth),
		orchestrator.WithTracker(recorder),
		orchestrator.WithLogger(logger),
	)

	api := &server.API{
		Orchestrator: orch,
		Recorder:     recorder,
		Session:      cfg.Session,
		Demo:         cfg.Engine.Demo || cfg.Engine.APIKey == "",
		Logger:       logger,
	}

	srv := server.New(cfg.Server.Port, logger, api)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
