// Command seriesvault renames and classifies episode files in a folder of
// media against a TheTVDB-like catalog, per series.json/episodes.json
// metadata cached alongside each show's folder.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hnipps/seriesvault/internal/app"
	"github.com/hnipps/seriesvault/internal/config"
	"github.com/hnipps/seriesvault/internal/svlog"
	"github.com/hnipps/seriesvault/internal/tvdb"
)

const catalogBaseURL = "https://api.thetvdb.com"

var version = "dev"

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("seriesvault: %v", err)
	}
	if cfg.ShowHelp {
		return
	}

	var logger svlog.Logger
	if cfg.LogFilePath != "" {
		logFile, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("seriesvault: open log file: %v", err)
		}
		defer logFile.Close()
		logger = svlog.NewStandardLogger(cfg.LogLevel, logFile)
	} else {
		logger = svlog.NewConsoleLogger(cfg.LogLevel, os.Stdout)
	}
	logger.Info("seriesvault v%s starting", version)
	if cfg.DryRun {
		logger.Info("dry-run mode enabled: no files will be changed")
	}

	rules, err := config.LoadFilterRules(cfg.ConfigPath)
	if err != nil {
		logger.Error("load filter rules: %v", err)
		os.Exit(1)
	}

	client := tvdb.New(catalogBaseURL, cfg.RequestTimeout, cfg.RequestDelay, logger)
	controller := app.New(cfg.ConfigPath, rules, client, logger, cfg.ConcurrentLimit)

	if err := controller.Login(context.Background()); err != nil {
		logger.Warn("login skipped: %v", err)
	}

	if err := controller.LoadFolders(cfg.FolderPath); err != nil {
		logger.Error("load folders: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.CronSchedule != "" {
		if err := controller.StartScheduler(ctx, cfg.CronSchedule, cfg.DryRun); err != nil {
			logger.Error("start scheduler: %v", err)
			os.Exit(1)
		}
		logger.Info("scheduler running; press Ctrl+C to stop")
		<-ctx.Done()
		controller.StopScheduler()
		logger.Info("scheduler stopped, shutting down")
		return
	}

	if err := controller.RunCycle(ctx, cfg.DryRun); err != nil {
		logger.Error("run cycle: %v", err)
		os.Exit(1)
	}
	logger.Info("seriesvault run complete")
}
