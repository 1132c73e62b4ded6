package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/example/ddv-scanner/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.scanner()
			if err != nil {
				return err
			}
			hashKey, blockKey, err := a.cfg.CookieKeys()
			if err != nil {
				return err
			}
			if hashKey == nil {
				a.log.Warn("DDV_COOKIE_SECRET not set, saved form values will not survive a restart")
			}
			if a.cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}

			ws := &web.Server{
				Scanner: s,
				Defaults: web.Defaults{
					Product:     a.cfg.ScanConfig(),
					Weekdays:    a.cfg.DefaultWeekdays(),
					Concurrency: a.cfg.Concurrency,
					RetryWindow: a.cfg.RetryWindow(),
				},
				Prefs:          web.NewPrefStore(hashKey, blockKey),
				Log:            a.log,
				AutoRefresh:    a.cfg.AutoRefresh(),
				ScansPerMinute: a.cfg.WebScansPerMinute,
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			return web.Start(ctx, addr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: DDV_LISTEN_ADDR)")
	return cmd
}
