package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BarcodeScanner/internal/app"
	"BarcodeScanner/internal/config"
	"BarcodeScanner/internal/logging"
	"BarcodeScanner/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupLog := logger.New("main")

	cfg := config.Load()
	slogger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, slogger)
	if err != nil {
		startupLog.Printf("startup failed: %v", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		slogger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
