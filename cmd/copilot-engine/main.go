package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidogstack/incident-copilot/internal/agents"
	"github.com/aidogstack/incident-copilot/internal/config"
	"github.com/aidogstack/incident-copilot/internal/engine"
	"github.com/aidogstack/incident-copilot/internal/forecast"
	"github.com/aidogstack/incident-copilot/internal/llm"
	"github.com/aidogstack/incident-copilot/internal/memory"
	"github.com/aidogstack/incident-copilot/internal/metrics"
	"github.com/aidogstack/incident-copilot/internal/models"
	"github.com/aidogstack/incident-copilot/internal/patterns"
	"github.com/aidogstack/incident-copilot/internal/repo"
	"github.com/aidogstack/incident-copilot/internal/utils"
)

// incidentFile is the on-disk shape of an investigation request.
type incidentFile struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Services    []string `json:"services"`
	StartedAt   string   `json:"started_at"`
	UserID      string   `json:"user_id"`
	UserRole    string   `json:"user_role"`
}

func main() {
	var configPath, incidentPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&incidentPath, "incident", "", "Path to incident JSON file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting incident copilot", slog.String("telemetry_mode", cfg.Telemetry.Mode))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	if incidentPath == "" {
		logger.Error("no incident file supplied, use -incident")
		os.Exit(1)
	}
	incident, profile, err := loadIncident(incidentPath)
	if err != nil {
		logger.Error("failed to load incident", slog.String("path", incidentPath), slog.Any("error", err))
		os.Exit(1)
	}

	var mirror memory.Mirror
	if cfg.Memory.Enabled && cfg.Memory.Addr != "" {
		redisMirror, err := memory.NewRedisMirror(memory.RedisMirrorConfig{
			Addr:        cfg.Memory.Addr,
			Password:    cfg.Memory.Password,
			DB:          cfg.Memory.DB,
			KeyPrefix:   cfg.Memory.KeyPrefix,
			DialTimeout: cfg.Memory.DialTimeout,
			SessionTTL:  cfg.Memory.SessionTTL,
		})
		if err != nil {
			logger.Warn("session mirror unavailable", slog.Any("error", err))
		} else {
			mirror = redisMirror
			defer redisMirror.Close()
		}
	}
	sessions := memory.NewStore(logger, mirror)

	var patternStore patterns.Store
	if cfg.Memory.Enabled && cfg.Memory.Addr != "" {
		redisPatterns, err := patterns.NewRedisStore(patterns.RedisStoreConfig{
			Addr:        cfg.Memory.Addr,
			Password:    cfg.Memory.Password,
			DB:          cfg.Memory.DB,
			DialTimeout: cfg.Memory.DialTimeout,
		})
		if err != nil {
			logger.Warn("pattern store unavailable", slog.Any("error", err))
		} else {
			patternStore = redisPatterns
			defer redisPatterns.Close()
			if history, err := redisPatterns.ListPatterns(context.Background(), profile.UserID, 10); err == nil {
				profile.Patterns = history
			}
		}
	}

	collector := repo.NewDatadogClient(
		cfg.Telemetry.Mode,
		cfg.Telemetry.Site,
		cfg.Telemetry.APIKey,
		cfg.Telemetry.AppKey,
		cfg.Telemetry.Timeout,
	)

	provider := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	forecaster := forecast.NewForecaster(logger, func() (forecast.Model, error) {
		return forecast.NewHTTPModel(cfg.Forecast.Endpoint, cfg.Forecast.Timeout)
	})

	runner := engine.NewRunner(
		logger,
		sessions,
		collector,
		forecaster,
		agents.NewIncidentSummarizer(provider, logger),
		agents.NewHypothesisRanker(provider, logger),
		agents.NewGuidedStepsPlanner(provider, logger),
		agents.NewRecommendationDesigner(provider, logger),
		agents.NewTestPlanner(provider, logger),
		agents.NewBehaviorMiner(provider, logger),
		patternStore,
		cfg.Forecast.Horizon,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	result := runner.Run(ctx, incident, profile)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancel()
	}
	logger.Info("incident copilot stopped")
}

func loadIncident(path string) (models.Incident, models.MemoryProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Incident{}, models.MemoryProfile{}, err
	}

	var file incidentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return models.Incident{}, models.MemoryProfile{}, fmt.Errorf("parse incident file: %w", err)
	}
	if file.ID == "" {
		return models.Incident{}, models.MemoryProfile{}, fmt.Errorf("incident file missing id")
	}

	incident := models.Incident{
		ID:          file.ID,
		Title:       file.Title,
		Description: file.Description,
		Severity:    file.Severity,
		Services:    file.Services,
	}
	if file.StartedAt != "" {
		if ts, err := time.Parse(time.RFC3339, file.StartedAt); err == nil {
			incident.StartedAt = ts
		}
	}

	userID := file.UserID
	if userID == "" {
		userID = "anonymous"
	}
	profile := models.MemoryProfile{
		UserID:      userID,
		Preferences: models.DefaultPreferences(file.UserRole),
		Patterns:    []models.LearnedPattern{},
	}
	return incident, profile, nil
}
