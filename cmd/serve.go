package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/likesync/internal/server"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	handler, closer, err := r.apiHandler(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("serving API", "addr", addr, "store", r.config.Store.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: shutdown: %v", shared.ErrTimeout, err)
	}
	return nil
}

// apiHandler builds the API router over the configured store.
func (r *Runner) apiHandler(ctx context.Context) (http.Handler, io.Closer, error) {
	engine, stores, closer, err := r.engine(ctx)
	if err != nil {
		return nil, nil, err
	}

	_, callbackPath := r.callbackAddr()
	api := server.NewAPI(server.APIOpts{
		Auth:         r.spotify,
		Credentials:  r.creds,
		Source:       r.spotify,
		Engine:       engine,
		Tracks:       stores.Tracks,
		CallbackPath: callbackPath,
		Logger:       shared.WithLogger(r.logger, "component", "api"),
	})

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	api.Register(router)

	return router, closer, nil
}
