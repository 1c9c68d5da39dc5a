package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/finkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/server"
	"github.com/dmitrijs2005/finkeeper/internal/server/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		return 1
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		return 1
	}
	return 0
}
