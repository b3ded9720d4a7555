package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lugatuic/goberus-auth/config"
	"github.com/lugatuic/goberus-auth/gateway"
	"github.com/lugatuic/goberus-auth/internal/httpserver"
	"github.com/lugatuic/goberus-auth/internal/metrics"
	"github.com/lugatuic/goberus-auth/ldaps"
	"github.com/lugatuic/goberus-auth/token"
)

func main() {
	// Initialize structured logger early so we can log config errors.
	logger, lerr := zap.NewProduction()
	if lerr != nil {
		panic("failed to initialize logger: " + lerr.Error())
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
		}
	}()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	client, err := ldaps.NewClient(cfg.Directory, logger)
	if err != nil {
		logger.Fatal("ldaps client init failed", zap.Error(err))
	}

	recorder := metrics.Init(cfg.MetricsEnabled)
	gwOpts := []gateway.Option{gateway.WithMetrics(recorder)}
	if cfg.Token.Enabled() {
		issuer, err := token.NewIssuer(cfg.Token)
		if err != nil {
			logger.Fatal("token issuer init failed", zap.Error(err))
		}
		gwOpts = append(gwOpts, gateway.WithTokenIssuer(issuer))
	}
	gw := gateway.New(client, logger, gwOpts...)

	var srvOpts []httpserver.Option
	if m, ok := recorder.(*metrics.Metrics); ok {
		srvOpts = append(srvOpts, httpserver.WithMetricsHandler(m.Handler()))
	}
	s := httpserver.New(cfg, logger, client, gw, srvOpts...)

	logger.Info("startup",
		zap.String("ldap_url", client.URL()),
		zap.String("base_dn", cfg.Directory.BaseDN),
		zap.Bool("tokens", gw.TokensEnabled()),
		zap.Bool("metrics", cfg.MetricsEnabled),
	)

	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http.listen", zap.String("addr", cfg.BindAddr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown.signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown.error", zap.Error(err))
		} else {
			logger.Info("shutdown.complete")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http.server.failed", zap.Error(err))
		}
	}
}
