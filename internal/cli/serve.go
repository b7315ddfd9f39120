package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dukerupert/shoplist/internal/server"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local UI shell API and event stream",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			addr := app.Config.Listen
			if listen != "" {
				addr = listen
			}
			srv := server.New(app.Machine, app.Client, app.Bus, app.Registry, app.Logger)
			return srv.ListenAndServe(ctx, addr)
		}),
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	return cmd
}
