package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/shoplist/internal/model"
)

func NewBackupCodesCommand(opts *RootOptions) *cobra.Command {
	var generate, regenerate bool

	cmd := &cobra.Command{
		Use:   "backupcodes",
		Short: "Show or generate account recovery codes",
		Args:  cobra.NoArgs,
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			var codes *model.BackupCodes
			var err error
			if generate || regenerate {
				codes, err = app.Client.GenerateBackupCodes(ctx, regenerate)
			} else {
				codes, err = app.Client.BackupCodes(ctx)
			}
			if err != nil {
				return err
			}
			return out.Print(codes, func(w io.Writer) { renderCodes(w, codes) })
		}),
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "create codes if the account has none")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "replace existing codes")
	cmd.MarkFlagsMutuallyExclusive("generate", "regenerate")
	return cmd
}
