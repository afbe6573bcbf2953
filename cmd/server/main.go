package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myfeed/internal/app"
	"myfeed/internal/config"
	"myfeed/internal/logging"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.Logger.Info("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("Shutdown error", logging.WithField("error", err.Error()))
		}
	}()

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("Server error", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
}
