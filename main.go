package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-mvc/app/controllers"
	"github.com/km-arc/go-mvc/app/models"
	"github.com/km-arc/go-mvc/framework/app"
	"github.com/km-arc/go-mvc/framework/config"
	"github.com/km-arc/go-mvc/framework/logger"
	"github.com/km-arc/go-mvc/framework/metrics"
	"github.com/km-arc/go-mvc/framework/session"
)

func main() {
	cfg := config.Load() // loads .env automatically

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		SentryDSN:   cfg.Log.SentryDSN,
		Environment: cfg.App.Env,
	}, logger.RequestIDExtractor)

	if err := cfg.LoadFile(cfg.App.ConfigFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error("load config", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Warn("no application file, using defaults", slog.String("path", cfg.App.ConfigFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []app.Option{
		app.WithLogger(log),
		app.WithMetrics(metrics.New(true)),
	}
	if cfg.Session.Driver == "redis" {
		client, err := session.OpenRedis(ctx, cfg.Session.RedisURL)
		if err != nil {
			log.Error("open session store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		opts = append(opts, app.WithSessionStore(session.NewRedisStore(client, "")))
	}
	application := app.New(cfg, opts...)

	// ── Controllers and models ───────────────────────────────────────────────

	controllers.Register(application.Controllers())

	users := models.NewUserModel()
	application.Catalog().Register(func() *models.UserModel { return users })

	if err := application.Run(ctx); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
