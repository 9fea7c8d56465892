package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/searchforge/hatchery/internal/api"
	"github.com/searchforge/hatchery/internal/controller"
	"github.com/searchforge/hatchery/obs"
	"github.com/searchforge/hatchery/policy"
)

type config struct {
	Port          int     `env:"HATCHERY_PORT" envDefault:"7171"`
	ConfigPath    string  `env:"HATCHERY_CONFIG_PATH" envDefault:"config.yml"`
	ReloadBurst   int     `env:"HATCHERY_RELOAD_BURST" envDefault:"3"`
	ReloadRefill  int     `env:"HATCHERY_RELOAD_REFILL_MS" envDefault:"10000"`
	LogFormat     string  `env:"HATCHERY_LOG_FORMAT" envDefault:"text"`
	TraceSampling float64 `env:"HATCHERY_TRACE_SAMPLE_RATIO" envDefault:"0.1"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid environment", "error", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	logger := newLogger(cfg.LogFormat, level)
	slog.SetDefault(logger)

	shutdown, err := obs.InitTracer("hatchery", cfg.TraceSampling)
	if err != nil {
		logger.Warn("tracer setup failed", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}()

	ctrl, err := controller.New(controller.Config{
		Source:   controller.FileSource{Path: cfg.ConfigPath, Default: controller.DefaultConfig},
		Logger:   logger,
		LogLevel: level,
		Metrics:  policy.NewMetrics(),
	})
	if err != nil {
		logger.Error("controller setup failed", "error", err)
		os.Exit(1)
	}
	if _, err := ctrl.Reload(context.Background()); err != nil {
		logger.Error("initial configuration load failed, every egg will be cancelled until a reload succeeds", "error", err)
	}

	router, err := api.NewRouter(ctrl, api.Options{
		ReloadBurst:  cfg.ReloadBurst,
		ReloadRefill: time.Duration(cfg.ReloadRefill) * time.Millisecond,
	})
	if err != nil {
		logger.Error("router setup failed", "error", err)
		os.Exit(1)
	}

	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", router)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("hatchery listening", "port", cfg.Port, "config", cfg.ConfigPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reload:
			logger.Info("reloading configuration")
			_, _ = ctrl.Reload(context.Background())
		case <-stop:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("shutdown error", "error", err)
			}
			return
		}
	}
}

func newLogger(format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
