package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"blog/api/routes"
	"blog/logger"
	"blog/media"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, conf)
	if err != nil {
		return err
	}
	defer a.close()

	gin.SetMode(conf.Backend.Mode)
	opts := routes.Options{MediaPrefix: conf.Media.URLPrefix}
	if local, ok := a.storage.(*media.LocalStorage); ok {
		opts.MediaRoot = local.Root()
	}
	router := routes.NewRouter(a.handler, a.auth, opts)

	srv := &http.Server{
		Addr:    conf.Addr(),
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Backend.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
