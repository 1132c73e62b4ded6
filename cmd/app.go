package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/ddv-scanner/internal/config"
	"github.com/example/ddv-scanner/internal/logging"
	"github.com/example/ddv-scanner/internal/provider"
	"github.com/example/ddv-scanner/internal/scan"
	"github.com/example/ddv-scanner/internal/telemetry"
	"github.com/example/ddv-scanner/internal/transport"
)

// app is what every scanning command needs.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	shutdown, err := telemetry.Setup(ctx, "ddvscan", Version, cfg.OTLPEndpoint, log)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return &app{cfg: cfg, log: log, shutdown: shutdown}, nil
}

func (a *app) Close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.log.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) scanner() (*scan.Scanner, error) {
	aliases := provider.DefaultAliases()
	if a.cfg.AliasFile != "" {
		var err error
		if aliases, err = provider.LoadAliases(a.cfg.AliasFile); err != nil {
			return nil, err
		}
	}
	opts := a.cfg.TransportOptions()
	opts.Logger = a.log
	return &scan.Scanner{
		Open:    func() scan.Session { return transport.New(opts) },
		Aliases: aliases,
		Log:     a.log,
	}, nil
}
