// Package main is the entry point for the spritebake CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/spritebake/internal/bake"
	"github.com/Faultbox/spritebake/internal/config"
	"github.com/Faultbox/spritebake/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== spritebake ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.WriteConfig() {
		if err := cfg.Save(); err != nil {
			logger.Error("failed to save config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		return
	}

	a, err := newApp(cfg)
	if err != nil {
		logger.Error("failed to set up bake", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n := config.SampleCount(); n > 0 {
		err = a.sample(ctx, n)
	} else {
		err = a.bake(ctx, config.SelectionPath())
	}

	switch {
	case errors.Is(err, bake.ErrCancelled):
		logger.Warn("bake cancelled")
		logger.Sync()
		os.Exit(130)
	case err != nil:
		logger.Error("bake failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("bake finished", zap.String("out", cfg.Output.Dir))
}
