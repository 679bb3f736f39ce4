package main

import (
	"context"

	"github.com/joho/godotenv"

	"gatewayd/internal/app"
	"gatewayd/pkg/config"
	"gatewayd/pkg/logger"
	"gatewayd/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseConfigFlags()

	eff, err := config.LoadEffectiveConfig(flags)
	if err != nil {
		logger.Init()
		shutdown.Abort("failed to load config", err)
	}
	logger.InitWithLevel(eff.Config.Logging.Level)

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("failed to initialize", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err)
	}
	logger.Sync()
}
