package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"wkfmanager/pkg/logging"
)

// shutdownTimeout bounds the graceful shutdown of the REST server. Running
// transitions are not waited for beyond it.
const shutdownTimeout = 30 * time.Second

// runServer serves the REST API until ctx is done or the process receives
// SIGINT or SIGTERM.
//
// Shutdown sequence:
//  1. Stop accepting requests and wait for in-flight ones (bounded)
//  2. Stop the catalog watcher
//  3. Release the cluster runtime
func runServer(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if services.Watcher != nil {
		if err := services.Watcher.Start(ctx); err != nil {
			logging.Warn("Bootstrap", "Catalog hot reload disabled: %v", err)
		} else {
			defer services.Watcher.Stop()
		}
	}
	defer func() {
		if err := services.Runtime.Close(); err != nil {
			logging.Warn("Bootstrap", "Failed to close cluster runtime: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- services.Server.Start()
	}()

	logging.Info("Bootstrap", "wkfmanager ready. Press Ctrl+C to stop.")

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Bootstrap", err, "Server stopped")
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("Bootstrap", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := services.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if n := services.Registry.InFlight(); n > 0 {
		logging.Warn("Bootstrap", "Exiting with %d transition(s) still running", n)
	}
	return <-errCh
}
