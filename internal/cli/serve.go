package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alanyang/projects-sync/internal/config"
	"github.com/alanyang/projects-sync/internal/wire"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper, opts []wire.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, websocket and MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd.ErrOrStderr(), config.Config.Validate)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := wire.Build(ctx, cfg, opts...)
			if err != nil {
				return err
			}
			defer app.Close()

			return serve(ctx, app.HTTPServer(ctx))
		},
	}

	cmd.Flags().String(config.KeyPort, "8080", "listen port (env PORT)")
	bindFlags(v, cmd.Flags(), config.KeyPort)
	return cmd
}

// serve blocks until ctx is cancelled or the listener fails, then shuts the
// server down. It returns only after the listener goroutine has exited.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP + MCP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			slog.Error("HTTP server error", "error", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	// The listener goroutine closes errCh once ListenAndServe returns.
	for err := range errCh {
		if serveErr == nil {
			serveErr = err
			slog.Error("HTTP server error", "error", err)
		}
	}

	slog.Info("projects-sync server stopped")
	return serveErr
}
