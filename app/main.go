package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/docket-comb/app/api"
	"github.com/lysyi3m/docket-comb/app/cfg"
	"github.com/lysyi3m/docket-comb/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	c, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	if c == nil {
		// Help was shown
		return 0
	}

	setupLogger(c.Debug)

	slog.Info("Starting Docket Comb",
		"version", c.Version,
		"docket", c.DocketID,
		"source", c.SourceFeedURL(),
		"output", c.OutputPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: c.Timeout}
	builder := tasks.NewBuilder(c, httpClient)

	if _, err := builder.Build(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Printf("%s written successfully.\n", c.OutputPath)

	if !c.Serve {
		return 0
	}

	if err := serve(ctx, c, builder); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// serve runs the preview server until ctx is cancelled.
func serve(ctx context.Context, c *cfg.Cfg, builder *tasks.Builder) error {
	docketName := fmt.Sprintf("%d/%s", c.DocketID, c.DocketSlug)
	handler := api.NewHandler(builder, docketName, c.SourceFeedURL(), c.Version)
	server := api.NewServer(handler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: rebuildWriteTimeout(c),
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("HTTP server stopped")
	return nil
}

// rebuildWriteTimeout leaves room for a rebuild that uses every retry.
func rebuildWriteTimeout(c *cfg.Cfg) time.Duration {
	attempts := time.Duration(c.MaxRetries + 1)
	return c.Timeout*attempts + tasks.DefaultRetryMaxDelay*attempts + 30*time.Second
}
