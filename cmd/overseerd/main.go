package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"overseer/internal/config"
	"overseer/internal/daemon"
	"overseer/internal/executor"
	"overseer/internal/logging"
	"overseer/internal/notifications"
	"overseer/internal/orchestrator"
	"overseer/internal/progress"
	"overseer/internal/server"
	"overseer/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}
	defer st.Close()

	exec, err := executor.NewClient(cfg)
	if err != nil {
		logger.Error("init executor", logging.Error(err))
		return
	}

	hub := progress.NewHub()
	notifier := notifications.NewService(cfg)
	sup := orchestrator.New(cfg, st, exec, notifier, hub, logger)
	api := server.New(cfg, st, sup, hub, notifier, logger)

	d, err := daemon.New(cfg, st, sup, api, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("overseerd shutting down")
	d.Stop()
}
