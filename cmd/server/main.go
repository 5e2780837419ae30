package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sundayezeilo/tinylink/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer shutdown(application, application.Logger)

	// Blocks until a signal arrives or the listener fails.
	return application.Start(ctx)
}

type shutdowner interface {
	Shutdown() error
}

// shutdown releases the app's resources, logging anything that failed to close.
func shutdown(a shutdowner, logger *slog.Logger) {
	if err := a.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
	}
}
