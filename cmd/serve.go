package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/server"
)

const shutdownGrace = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		geoSvc, err := newGeoService()
		if err != nil {
			return err
		}
		cache := dataset.NewCache(dataset.NewLoader(cfg.Data.BaseDir, cfg.Data.Dirs))

		// Warm the cache so a bad data directory shows up in the startup
		// log rather than on the first request.
		if ds, err := cache.Dataset(ctx); err != nil {
			zap.L().Warn("initial dataset load failed", zap.Error(err))
		} else if ds.Empty() {
			zap.L().Warn("no source rows found",
				zap.String("base_dir", cfg.Data.BaseDir),
				zap.Strings("dirs", cfg.Data.Dirs),
			)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Handler: server.New(cache, geoSvc).Router(cfg.Server.AllowedOrigins),
		}
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveAndWait(ctx, srv, ln)
	},
}

// serveAndWait serves on ln until ctx is canceled, then shuts down with a
// fresh grace-period context so in-flight requests drain instead of being
// cut off by the already-canceled signal context.
func serveAndWait(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
	<-errc
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
