package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/sparkpath-gateway/pkg/config"
	"github.com/tanpawarit/sparkpath-gateway/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = log.Logger.WithContext(ctx)

		httpCfg, err := configx.New[server.Config]("HTTP")
		if err != nil {
			return err
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := a.Close(closeCtx); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("shutdown cleanup failed")
			}
		}()

		// A nil *labs.Labs must not reach the server as a non-nil interface.
		var lab server.Labs
		if a.labs != nil {
			lab = a.labs
		}
		srv, err := server.New(a.gw, lab, *httpCfg)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	},
}
