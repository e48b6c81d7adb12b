package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"margin/api/internal/app"
	"margin/api/internal/config"
	"margin/api/internal/search"
	"margin/api/internal/seed"
	"margin/api/internal/store"
)

func newServeCommand(opts *Options) *cobra.Command {
	var addr string
	var withSeed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the commenting HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.Config
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, withSeed, LoggerFromContext(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides MARGIN_ADDR)")
	cmd.Flags().BoolVar(&withSeed, "seed", true, "Load the seed fixture before serving")
	return cmd
}

// buildService wires the store, search and service for cfg.
func buildService(cfg config.Config, logger *slog.Logger) (*app.Service, func()) {
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meiliClient, logger)
	service := app.New(cfg, store.NewMemoryStore(), searchService, logger)

	cleanup := func() {
		if meiliClient != nil {
			meiliClient.Close()
		}
	}
	return service, cleanup
}

func serve(ctx context.Context, cfg config.Config, withSeed bool, logger *slog.Logger) error {
	service, cleanup := buildService(cfg, logger)
	defer cleanup()

	if withSeed {
		fx, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		summary, err := seed.Apply(ctx, service, fx)
		if err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		service.ReindexSearch()
		logger.Info("seed applied",
			"documents", summary.Documents,
			"threads", summary.Threads,
			"comments", summary.Comments,
		)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("margin API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
