package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"zigbee-catalog/internal/coordinator"
	"zigbee-catalog/internal/store"
	"zigbee-catalog/internal/web"
)

func (a *app) runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", a.cfg.Web.Listen, "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	logger := a.logger
	logger.Info("zigbee-catalog starting", "version", appVersion(), "definitions", a.catalog.Len(), "clusters", len(a.registry.All()))

	db, err := store.NewBoltStore(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	var stack coordinator.Stack
	if a.cfg.Stack.Mode == "dry-run" {
		stackLog := logger.With("component", "dry-run-stack")
		stack = newDryRunStack(a.registry, func(line string) { stackLog.Info(line) })
	}

	events := coordinator.NewEventBus(logger)
	coord := coordinator.New(stack, db, a.registry, a.catalog, events, logger)

	webOpts := []web.ServerOption{web.WithVersion(appVersion())}
	if a.cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(a.cfg.Web.APIKey))
	}
	if len(a.cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(a.cfg.Web.AllowedOrigins))
	}
	webServer := web.NewServer(coord, logger, webOpts...)
	defer webServer.Stop()

	httpServer := &http.Server{
		Addr:         *listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web server starting", "addr", *listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("goodbye")
	return err
}
