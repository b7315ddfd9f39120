package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string

	open   func(ctx context.Context, opts *RootOptions) (*App, error)
	stderr io.Writer
}

func (o *RootOptions) errWriter() io.Writer {
	if o.stderr != nil {
		return o.stderr
	}
	return os.Stderr
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{open: OpenApp})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shoplist",
		Short: "Shared shopping lists from the terminal",
		Long: `shoplist keeps a signed-in session against a shopping-list backend
and edits lists with optimistic local updates that are reconciled
against the server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be 'text' or 'json'", opts.Format))
			}
			if opts.stderr == nil {
				opts.stderr = cmd.ErrOrStderr()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		NewLoginCommand(opts),
		NewLogoutCommand(opts),
		NewStatusCommand(opts),
		NewWhoamiCommand(opts),
		NewRegisterCommand(opts),
		NewRecoverCommand(opts),
		NewListsCommand(opts),
		NewListCommand(opts),
		NewItemCommand(opts),
		NewParticipantsCommand(opts),
		NewInvitationsCommand(opts),
		NewNotificationsCommand(opts),
		NewBackupCodesCommand(opts),
		NewServeCommand(opts),
	)
	return cmd
}

// run opens the app for the duration of one command.
func run(opts *RootOptions, fn func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := opts.open(ctx, opts)
		if err != nil {
			return WrapExitError(ExitCommandError, "startup failed", err)
		}
		defer app.Close()
		return fn(ctx, cmd, app, NewFormatter(cmd.OutOrStdout(), opts.Format))
	}
}

// authed is run for commands that need a live session.
func authed(opts *RootOptions, fn func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error) func(*cobra.Command, []string) error {
	return run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
		if err := app.RequireSession(ctx); err != nil {
			return err
		}
		return fn(ctx, cmd, app, out)
	})
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	return ExitCode(err)
}
