package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/shoplist/internal/reconcile"
)

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", name, s))
	}
	return id, nil
}

func viewOf(l *reconcile.List) listView {
	return listView{
		ID:            l.ListID(),
		Title:         l.Title(),
		IsParticipant: l.IsParticipant(),
		Items:         l.Items(),
	}
}

func printList(out *Formatter, l *reconcile.List) error {
	v := viewOf(l)
	return out.Print(v, func(w io.Writer) { renderList(w, v) })
}

func NewListsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show every list you own or share",
		Args:  cobra.NoArgs,
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			lists, err := app.Client.Lists(ctx)
			if err != nil {
				return err
			}
			return out.Print(lists, func(w io.Writer) { renderLists(w, lists) })
		}),
	}
}

func NewListCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show, create, or delete a list",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <list-id>",
			Short: "Show a list's items in order",
			Args:  cobra.ExactArgs(1),
			RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
				id, err := parseID("list id", cmd.Flags().Arg(0))
				if err != nil {
					return err
				}
				l := app.NewList()
				defer l.Close()
				if err := l.Load(ctx, id); err != nil {
					return err
				}
				return printList(out, l)
			}),
		},
		&cobra.Command{
			Use:   "create <title>",
			Short: "Create an empty list",
			Args:  cobra.MinimumNArgs(1),
			RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
				title := strings.TrimSpace(strings.Join(cmd.Flags().Args(), " "))
				if title == "" {
					return NewExitError(ExitCommandError, "title is required")
				}
				l, err := app.Client.CreateList(ctx, title)
				if err != nil {
					return err
				}
				return out.Print(l, func(w io.Writer) {
					fmt.Fprintf(w, "created list %d: %s\n", l.ID, l.Title)
				})
			}),
		},
		&cobra.Command{
			Use:   "delete <list-id>",
			Short: "Delete a list you own",
			Args:  cobra.ExactArgs(1),
			RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
				id, err := parseID("list id", cmd.Flags().Arg(0))
				if err != nil {
					return err
				}
				if err := app.Client.DeleteList(ctx, id); err != nil {
					return err
				}
				return out.Done(fmt.Sprintf("deleted list %d", id))
			}),
		},
	)
	return cmd
}
