package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/docspace-portals/backend/internal/api"
	"github.com/docspace-portals/backend/internal/export"
	"github.com/docspace-portals/backend/internal/fillsign"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/docspace-portals/backend/internal/web"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	store, err := a.openStore()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", zap.Error(err))
		}
	}()

	// Background flusher for snapshot-backed stores
	var wg sync.WaitGroup
	flushCtx, cancelFlush := context.WithCancel(context.Background())
	defer func() {
		cancelFlush()
		wg.Wait()
	}()
	if f, ok := store.(storage.Flushable); ok {
		flusher := storage.NewFlusher(f, cfg.FlushInterval(), logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			flusher.Run(flushCtx)
		}()
	}

	client, err := a.docspaceClient()
	if err != nil {
		return fmt.Errorf("failed to initialize DocSpace client: %w", err)
	}

	deps := &api.Dependencies{
		Store:         store,
		StorageDriver: cfg.Storage.Driver,
		Resolver:      fillsign.NewResolver(client, logger),
		Platform:      client,
		Logger:        logger,
		Version:       Version,
	}

	// Spreadsheet export is optional
	if cfg.Export.DatabasePath != "" {
		if _, err := os.Stat(cfg.Export.DatabasePath); err != nil {
			logger.Info("export database not found, export disabled", zap.String("path", cfg.Export.DatabasePath))
		} else if exporter, err := export.NewExporter(cfg.Export.DatabasePath, cfg.Export.MaxRows, cfg.Export.SheetName, logger); err != nil {
			logger.Warn("failed to open export database, export disabled", zap.Error(err))
		} else {
			defer exporter.Close()
			deps.Exporter = exporter
		}
	}

	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:         logger,
		RequestLogging: cfg.Logging.EnableRequestLogging,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		ExposeErrors:   cfg.Logging.Level == "debug",

		RequestTimeout:    cfg.RequestTimeout(),
		EnableCompression: cfg.Server.EnableCompression,
		CompressionLevel:  cfg.Server.CompressionLevel,
	})
	api.RegisterRoutes(e, api.NewHandlers(deps))
	if cfg.Server.EnableMetrics {
		api.RegisterMetricsRoute(e)
	}

	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", zap.Error(err))
		} else {
			logger.Info("serving embedded frontend from binary")
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(a, embeddedMode)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func printBanner(a *app, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "Embedded frontend"
	}
	room := a.cfg.DocSpace.FormsRoomTitle
	if a.cfg.DocSpace.FormsRoomID != "" {
		room = "#" + a.cfg.DocSpace.FormsRoomID
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           DocSpace Patient Portal                         ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", a.configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", a.cfg.GetServerAddr())
	fmt.Printf("║  DocSpace:  %-46s║\n", a.cfg.DocSpace.BaseURL)
	fmt.Printf("║  Forms:     %-46s║\n", room)
	fmt.Printf("║  Storage:   %-46s║\n", a.cfg.Storage.Driver+" "+a.cfg.StorePath())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
