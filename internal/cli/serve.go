package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"price-monitor/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard API",
		Long:  "Serve the REST API and the /ws message stream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = app.Config.Server.Addr
			}

			st, err := app.startStack(ctx, app.Config.Server.WSBuffer)
			if err != nil {
				return err
			}
			defer st.stop()

			for _, s := range app.Config.Monitor.Symbols {
				if _, err := st.svc.AddSymbol(ctx, s); err != nil {
					app.Logger.Warn().Err(err).Str("symbol", s).Msg("Startup symbol rejected")
				}
			}

			srv := server.New(server.Config{
				Addr:           addr,
				AllowedOrigins: app.Config.Server.AllowedOrigins,
				WSBuffer:       app.Config.Server.WSBuffer,
				Service:        st.svc,
				Hub:            st.hub,
				Log:            app.Logger,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
