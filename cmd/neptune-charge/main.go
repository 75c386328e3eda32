package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"neptunecharge/internal/app"
	"neptunecharge/internal/config"
	"neptunecharge/libs/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return 1
	}
	defer logger.Sync()

	application, err := app.New(cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		logger.Error("failed to init neptune-charge", zap.Error(err))
		return 1
	}
	defer application.Close()

	outcome, err := application.Run(ctx)
	if err != nil {
		logger.Error("run aborted", zap.Error(err))
		fmt.Fprintln(os.Stderr, "aborted:", err)
		return 1
	}
	return outcome.ExitCode()
}
