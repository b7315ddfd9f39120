package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/shoplist/internal/reconcile"
)

// itemCommand loads the list named by the first argument, applies fn, and
// prints the list as it stands afterwards.
func itemCommand(opts *RootOptions, fn func(ctx context.Context, l *reconcile.List, args []string) error) func(*cobra.Command, []string) error {
	return authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
		args := cmd.Flags().Args()
		listID, err := parseID("list id", args[0])
		if err != nil {
			return err
		}
		l := app.NewList()
		defer l.Close()
		if err := l.Load(ctx, listID); err != nil {
			return err
		}
		if err := fn(ctx, l, args[1:]); err != nil {
			return err
		}
		return printList(out, l)
	})
}

// parseIndex converts a 1-based position as shown by 'list show'.
func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 || i > n {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid position %q: list has %d items", s, n))
	}
	return i - 1, nil
}

func NewItemCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Add, move, rename, toggle, or remove items",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <list-id> <title>",
			Short: "Append an item to the end of a list",
			Args:  cobra.MinimumNArgs(2),
			RunE: itemCommand(opts, func(ctx context.Context, l *reconcile.List, args []string) error {
				return l.CreateItem(ctx, strings.Join(args, " "))
			}),
		},
		&cobra.Command{
			Use:   "move <list-id> <from> <to>",
			Short: "Move the item at one position to another",
			Args:  cobra.ExactArgs(3),
			RunE: itemCommand(opts, func(ctx context.Context, l *reconcile.List, args []string) error {
				n := len(l.Items())
				from, err := parseIndex(args[0], n)
				if err != nil {
					return err
				}
				to, err := parseIndex(args[1], n)
				if err != nil {
					return err
				}
				return l.Move(ctx, from, to)
			}),
		},
		&cobra.Command{
			Use:     "rm <list-id> <item-id>",
			Aliases: []string{"delete"},
			Short:   "Remove an item",
			Args:    cobra.ExactArgs(2),
			RunE: itemCommand(opts, func(ctx context.Context, l *reconcile.List, args []string) error {
				id, err := parseID("item id", args[0])
				if err != nil {
					return err
				}
				return l.DeleteItem(ctx, id)
			}),
		},
		&cobra.Command{
			Use:   "toggle <list-id> <item-id>",
			Short: "Flip an item's bought flag",
			Args:  cobra.ExactArgs(2),
			RunE: itemCommand(opts, func(ctx context.Context, l *reconcile.List, args []string) error {
				id, err := parseID("item id", args[0])
				if err != nil {
					return err
				}
				return l.ToggleBought(ctx, id)
			}),
		},
		&cobra.Command{
			Use:   "rename <list-id> <item-id> <title>",
			Short: "Change an item's title",
			Args:  cobra.MinimumNArgs(3),
			RunE: itemCommand(opts, func(ctx context.Context, l *reconcile.List, args []string) error {
				id, err := parseID("item id", args[0])
				if err != nil {
					return err
				}
				return l.RenameItem(ctx, id, strings.Join(args[1:], " "))
			}),
		},
	)
	return cmd
}
