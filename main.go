package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Mephiles/torn-travelbot/bot"
	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/dashboard"
	"github.com/Mephiles/torn-travelbot/format"
	"github.com/Mephiles/torn-travelbot/gateway"
	"github.com/Mephiles/torn-travelbot/logger"
	"github.com/Mephiles/torn-travelbot/logring"
	"github.com/Mephiles/torn-travelbot/reader/torn"
	"github.com/Mephiles/torn-travelbot/reader/yata"
	"github.com/Mephiles/torn-travelbot/resolver"
	"github.com/Mephiles/torn-travelbot/scheduler"
	"github.com/Mephiles/torn-travelbot/store"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath, "config/config.yml"))
	if err != nil {
		if errors.Is(err, config.ErrSilent) {
			log.WithError(err).Info("configuration invalid, aborting startup quietly")
			os.Exit(0)
		}
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Travelbot.Name,
		"version": cfg.Travelbot.Version,
	}).Info("starting travelbot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.InitCloudWatch(os.Getenv("AWS_REGION"), cfg.Travelbot.Name, cfg.Logging.DashboardName)
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	ring := logring.New(cfg.Travelbot.DefaultLogsCount, func(t time.Time) string {
		return format.Date(t, cfg.Travelbot.DateFormat)
	})

	catalogStore := store.NewCatalog()
	stockStore := store.NewStock()

	sched := scheduler.New(cfg, catalogStore, stockStore,
		torn.NewReader(cfg), yata.NewReader(cfg), ring)

	res := resolver.New(catalogStore)
	fmtr := format.New(catalogStore, stockStore)
	commandBot := bot.New(cfg, res, fmtr, catalogStore, stockStore, ring)

	dash := dashboard.NewServer(cfg.Dashboard, cfg.Refresh, log, catalogStore, stockStore, ring)

	var wg sync.WaitGroup

	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start refresh scheduler")
		os.Exit(1)
	}

	var gw *gateway.Gateway
	if cfg.Discord.Enabled {
		gw = gateway.New(cfg, commandBot)
		if err := gw.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start discord gateway")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("discord gateway disabled; queries served only through diagnostics")
	}

	if dash != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.WithFields(logger.Fields{"address": dash.Address()}).Info("starting diagnostics server")
			if err := dash.Run(ctx); err != nil {
				log.WithError(err).Warn("diagnostics server exited with error")
			}
		}()
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	if gw != nil {
		log.Info("stopping discord gateway")
		gw.Stop()
	}

	log.Info("stopping refresh scheduler")
	sched.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("travelbot stopped")
}
